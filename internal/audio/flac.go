package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// DecodeFLAC decodes a FLAC file into interleaved samples at its native
// rate and channel count.
func DecodeFLAC(path string) (*Buffer, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse flac: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	if channels == 0 || info.BitsPerSample == 0 {
		return nil, fmt.Errorf("flac stream info incomplete")
	}
	scale := float32(int64(1) << (info.BitsPerSample - 1))

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse flac frame: %w", err)
		}

		n := frame.Subframes[0].NSamples
		for i := 0; i < n; i++ {
			for _, sub := range frame.Subframes {
				samples = append(samples, float32(sub.Samples[i])/scale)
			}
		}
	}

	return &Buffer{
		Path:       path,
		Samples:    samples,
		SampleRate: int(info.SampleRate),
		Channels:   channels,
	}, nil
}
