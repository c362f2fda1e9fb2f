package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/process"
)

// Extensions lists the input containers the batch scans for.
var Extensions = []string{".wav", ".mp3", ".flac", ".ogg"}

// IsSupported reports whether path has a recognized audio extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Normalizer turns any supported input into a canonical 16 kHz mono WAV on
// disk and returns its decoded samples.
type Normalizer struct {
	ffmpeg string
	run    process.Runner
	log    *logger.Logger
}

// NewNormalizer creates a normalizer. ffmpeg is the binary used for
// containers that have no native decoder.
func NewNormalizer(ffmpeg string, log *logger.Logger) *Normalizer {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Normalizer{
		ffmpeg: ffmpeg,
		run:    process.Run,
		log:    log.WithComponent("normalizer"),
	}
}

// Normalize returns the canonical buffer for path. A canonical WAV passes
// through untouched. Any other input is converted to <stem>.wav next to it
// and the original is removed once the result validates. The output is
// staged in a hidden temp file and only renamed over <stem>.wav after it
// decodes as canonical, so a failed conversion never touches an existing
// <stem>.wav.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*Buffer, error) {
	ext := strings.ToLower(filepath.Ext(path))
	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".wav"

	if ext == ".wav" {
		buf, err := ReadWAV(path)
		if err != nil {
			return nil, apperr.UnsupportedFormat(path, err)
		}
		if buf.Validate() == nil {
			return buf, nil
		}
		n.log.Info("re-encoding wav to 16 kHz mono", logger.Fields(
			logger.FieldFile, filepath.Base(path), "sample_rate", buf.SampleRate, "channels", buf.Channels))
		return n.stage(out, func(tmp string) error {
			if err := WriteWAV(tmp, toCanonical(buf)); err != nil {
				return fmt.Errorf("rewrite %s: %w", path, err)
			}
			return nil
		})
	}

	buf, err := n.stage(out, func(tmp string) error {
		return n.convert(ctx, path, ext, tmp)
	})
	if err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil {
		n.log.Warn("could not remove original after conversion", logger.ErrorFields("remove", err))
	}
	n.log.Info("converted to wav", logger.Fields(logger.FieldFile, filepath.Base(path), "output", filepath.Base(out)))
	return buf, nil
}

// stage runs write against a temp file in the directory of out, validates
// the result and renames it over out. On any failure only the temp file is
// removed.
func (n *Normalizer) stage(out string, write func(tmp string) error) (*Buffer, error) {
	f, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp for %s: %w", out, err)
	}
	tmp := f.Name()
	f.Close()

	buf, err := n.stageInto(tmp, out, write)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	return buf, nil
}

func (n *Normalizer) stageInto(tmp, out string, write func(tmp string) error) (*Buffer, error) {
	if err := write(tmp); err != nil {
		return nil, err
	}
	buf, err := n.readCanonical(tmp)
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, out); err != nil {
		return nil, fmt.Errorf("replace %s: %w", out, err)
	}
	buf.Path = out
	return buf, nil
}

func (n *Normalizer) readCanonical(path string) (*Buffer, error) {
	buf, err := ReadWAV(path)
	if err != nil {
		return nil, apperr.UnsupportedFormat(path, err)
	}
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return buf, nil
}

func (n *Normalizer) convert(ctx context.Context, in, ext, out string) error {
	if ext == ".flac" {
		buf, err := DecodeFLAC(in)
		if err == nil {
			if err := WriteWAV(out, toCanonical(buf)); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return nil
		}
		n.log.Debug("native flac decode failed, falling back to ffmpeg", logger.ErrorFields("decode_flac", err))
	}
	return n.ffmpegConvert(ctx, in, out)
}

func (n *Normalizer) ffmpegConvert(ctx context.Context, in, out string) error {
	res, err := n.run(ctx, process.Command{
		Binary: n.ffmpeg,
		Args: []string{
			"-y", "-loglevel", "error",
			"-i", in,
			"-ac", "1",
			"-ar", "16000",
			"-c:a", "pcm_s16le",
			"-f", "wav",
			out,
		},
	})
	if err != nil {
		if tail := res.Tail(3); tail != "" {
			err = fmt.Errorf("%w: %s", err, tail)
		}
		return apperr.UnsupportedFormat(in, err)
	}
	return nil
}
