package audio

import "math"

// Downmix averages interleaved channels into mono.
func Downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Resample converts mono samples between rates with linear interpolation.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, n)
	ratio := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}

// toCanonical downmixes and resamples buf to 16 kHz mono.
func toCanonical(buf *Buffer) *Buffer {
	mono := Downmix(buf.Samples, buf.Channels)
	return &Buffer{
		Path:       buf.Path,
		Samples:    Resample(mono, buf.SampleRate, SampleRate),
		SampleRate: SampleRate,
		Channels:   Channels,
	}
}
