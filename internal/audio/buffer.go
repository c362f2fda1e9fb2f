// Package audio decodes input recordings into canonical 16 kHz mono PCM.
package audio

import (
	"time"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// Buffer holds decoded samples for one recording. Samples are interleaved
// when Channels > 1 and scaled to [-1, 1].
type Buffer struct {
	Path       string
	Samples    []float32
	SampleRate int
	Channels   int
}

// Validate rejects anything other than 16 kHz mono.
func (b *Buffer) Validate() error {
	if b.SampleRate != SampleRate || b.Channels != Channels {
		return apperr.FormatMismatch(b.Path, b.SampleRate, b.Channels)
	}
	return nil
}

// Len returns the number of frames.
func (b *Buffer) Len() int {
	if b.Channels <= 1 {
		return len(b.Samples)
	}
	return len(b.Samples) / b.Channels
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.SampleRate)
}

// Slice returns frames [start, end) sharing the underlying samples. Callers
// must clamp indices first.
func (b *Buffer) Slice(start, end int) *Buffer {
	ch := b.Channels
	if ch < 1 {
		ch = 1
	}
	return &Buffer{
		Path:       b.Path,
		Samples:    b.Samples[start*ch : end*ch],
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}
