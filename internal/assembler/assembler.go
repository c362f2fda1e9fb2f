// Package assembler slices a recording along diarization boundaries,
// transcribes each slice and merges the results into one speaker-labelled
// transcript.
package assembler

import (
	"context"
	"math"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// Transcriber turns a canonical buffer into text. Empty text means no speech.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer) (string, error)
}

// Stats counts what happened to the input segments.
type Stats struct {
	Segments    int
	Entries     int
	OutOfRange  int
	EmptySlice  int
	NoSpeech    int
	Failed      int
	Interrupted bool
}

// Dropped is the number of segments that produced no entry.
func (s Stats) Dropped() int {
	return s.Segments - s.Entries
}

type Assembler struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Assembler {
	return &Assembler{log: log.WithComponent("assembler")}
}

// Assemble transcribes segments one at a time in the given order. Segment
// level problems never fail the call: out-of-range and empty slices, empty
// text and transcription errors drop the segment. If every segment is
// dropped the result is an empty transcript.
func (a *Assembler) Assemble(ctx context.Context, buf *audio.Buffer, segments []transcript.Segment, tr Transcriber) transcript.Transcript {
	t, _ := a.AssembleStats(ctx, buf, segments, tr)
	return t
}

// AssembleStats is Assemble plus drop accounting. A cancelled ctx stops
// the loop and returns the entries collected so far. Interrupted is set
// whenever ctx has ended by the time the call returns.
func (a *Assembler) AssembleStats(ctx context.Context, buf *audio.Buffer, segments []transcript.Segment, tr Transcriber) (transcript.Transcript, Stats) {
	var b transcript.Builder
	stats := Stats{Segments: len(segments)}
	total := buf.Len()

	for _, seg := range segments {
		if ctx.Err() != nil {
			stats.Interrupted = true
			break
		}

		startIdx := sampleIndex(seg.Start, buf.SampleRate)
		endIdx := sampleIndex(seg.End, buf.SampleRate)

		if startIdx >= total {
			stats.OutOfRange++
			a.drop(seg, "starts beyond end of recording")
			continue
		}
		if startIdx < 0 {
			startIdx = 0
		}
		if endIdx > total {
			endIdx = total
		}
		if endIdx <= startIdx {
			stats.EmptySlice++
			a.drop(seg, "empty slice")
			continue
		}

		text, err := tr.Transcribe(ctx, buf.Slice(startIdx, endIdx))
		if err != nil {
			stats.Failed++
			a.log.Warn("segment transcription failed", logger.Fields(
				"speaker", seg.Speaker, "start", seg.Start, "end", seg.End, logger.FieldError, err.Error()))
			continue
		}
		if text == "" {
			stats.NoSpeech++
			a.drop(seg, "no speech")
			continue
		}

		b.Add(transcript.FromSegment(seg, text))
		stats.Entries++
	}
	// ctx may end during the last segment, after the loop's own check
	if ctx.Err() != nil {
		stats.Interrupted = true
	}

	return b.Transcript(), stats
}

func (a *Assembler) drop(seg transcript.Segment, reason string) {
	a.log.Debug(apperr.SegmentDropped(seg.Speaker, seg.Start, seg.End, reason).Message)
}

func sampleIndex(seconds float64, rate int) int {
	return int(math.Round(seconds * float64(rate)))
}
