// Package diarize runs an external speaker diarization engine and parses
// its boundary output into speaker segments.
package diarize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// Request tells an engine where its inputs are and where to write.
type Request struct {
	ConfigPath   string
	ManifestPath string
	OutDir       string
}

// Engine is the diarization backend. It must leave
// <OutDir>/pred_rttms/<audio stem>.rttm behind on success.
type Engine interface {
	Run(ctx context.Context, req Request) error
}

// Adapter prepares scratch inputs for an Engine and reads back its output.
type Adapter struct {
	engine      Engine
	configPath  string
	scratchRoot string
	log         *logger.Logger
}

// NewAdapter creates an adapter. scratchRoot may be empty for the system
// temp directory.
func NewAdapter(engine Engine, configPath, scratchRoot string, log *logger.Logger) *Adapter {
	return &Adapter{
		engine:      engine,
		configPath:  configPath,
		scratchRoot: scratchRoot,
		log:         log.WithComponent("diarizer"),
	}
}

// CheckConfig reports ConfigNotFound if the engine configuration is absent.
func (a *Adapter) CheckConfig() error {
	if _, err := os.Stat(a.configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ConfigNotFound(a.configPath)
		}
		return fmt.Errorf("stat %s: %w", a.configPath, err)
	}
	return nil
}

// Diarize returns the speaker turns of buf's recording in engine order.
// Scratch files are removed on every path.
func (a *Adapter) Diarize(ctx context.Context, buf *audio.Buffer) ([]transcript.Segment, error) {
	if err := a.CheckConfig(); err != nil {
		return nil, err
	}

	audioPath, err := filepath.Abs(buf.Path)
	if err != nil {
		return nil, err
	}

	if a.scratchRoot != "" {
		if err := os.MkdirAll(a.scratchRoot, 0o755); err != nil {
			return nil, fmt.Errorf("create scratch root: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(a.scratchRoot, "diarization-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	manifest := filepath.Join(scratch, "manifest.json")
	if err := WriteManifest(manifest, audioPath); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	start := time.Now()
	err = a.engine.Run(ctx, Request{
		ConfigPath:   a.configPath,
		ManifestPath: manifest,
		OutDir:       scratch,
	})
	if err != nil {
		return nil, apperr.EngineFailed("diarizer", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	rttmPath := filepath.Join(scratch, "pred_rttms", stem+".rttm")
	f, err := os.Open(rttmPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.DiarizationOutputMissing(rttmPath)
		}
		return nil, fmt.Errorf("open rttm: %w", err)
	}
	defer f.Close()

	segments, skipped, err := ParseRTTM(f)
	if err != nil {
		return nil, fmt.Errorf("read rttm: %w", err)
	}
	if skipped > 0 {
		a.log.Warn("skipped malformed rttm lines", logger.Fields("count", skipped))
	}

	fields := logger.DurationFields("diarize", time.Since(start))
	fields["segments"] = len(segments)
	fields[logger.FieldFile] = filepath.Base(audioPath)
	a.log.Info("diarization finished", fields)
	return segments, nil
}
