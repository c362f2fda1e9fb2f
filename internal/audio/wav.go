package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file.
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid PCM wav file")
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}

	bitDepth := int(d.BitDepth)
	if bitDepth == 0 {
		bitDepth = pcm.SourceBitDepth
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	return &Buffer{
		Path:       path,
		Samples:    intsToFloat(pcm.Data, bitDepth),
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
	}, nil
}

// WriteWAV encodes buf as 16-bit PCM.
func WriteWAV(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, buf.SampleRate, 16, buf.Channels, 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: buf.Channels, SampleRate: buf.SampleRate},
		Data:           floatToInt16(buf.Samples),
		SourceBitDepth: 16,
	}

	if err := enc.Write(pcm); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

func intsToFloat(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	// 8-bit wav is unsigned
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	scale := float32(int64(1) << (bitDepth - 1))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

func floatToInt16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int(s * 32767)
	}
	return out
}
