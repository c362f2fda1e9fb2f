// Package engine wraps one loaded acoustic model behind a synchronous
// transcribe call.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

// AcousticModel is a loaded speech-to-text model.
//
// Transcribe returns ("", nil) when the audio holds no speech. Any inference
// failure must be reported as an error, never as empty text.
type AcousticModel interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
	// Release frees inference-scoped memory (accelerator caches).
	Release(ctx context.Context) error
	Close() error
}

// Liveness is implemented by models that can be lost mid-run, such as an
// out-of-process worker that is killed when a call is cancelled.
type Liveness interface {
	Alive() bool
}

// Loader loads the model named by spec. It is only called after the spec
// has been validated against the catalog.
type Loader func(ctx context.Context, spec catalog.ModelSpec) (AcousticModel, error)

// Engine owns the single model instance of a process.
type Engine struct {
	model AcousticModel
	spec  catalog.ModelSpec
	load  Loader
	log   *logger.Logger
}

// New validates spec and loads the model once.
func New(ctx context.Context, spec catalog.ModelSpec, load Loader, log *logger.Logger) (*Engine, error) {
	if err := catalog.Validate(spec); err != nil {
		return nil, err
	}

	log = log.WithComponent("engine")
	log.Info("loading acoustic model", logger.Fields(
		"model", spec.Name, "language", string(spec.Language), "architecture", string(spec.Architecture)))

	start := time.Now()
	model, err := load(ctx, spec)
	if err != nil {
		return nil, apperr.EngineFailed("model loader", err).WithDetail("model", spec.Name)
	}
	log.Info("acoustic model ready", logger.DurationFields("load", time.Since(start)))

	return &Engine{model: model, spec: spec, load: load, log: log}, nil
}

func (e *Engine) Spec() catalog.ModelSpec { return e.spec }

// Transcribe runs inference on a canonical buffer. Empty text is a valid
// result meaning no speech was detected.
func (e *Engine) Transcribe(ctx context.Context, buf *audio.Buffer) (string, error) {
	if err := buf.Validate(); err != nil {
		return "", err
	}
	if buf.Len() == 0 {
		return "", nil
	}
	if err := e.reload(ctx); err != nil {
		return "", err
	}

	text, err := e.model.Transcribe(ctx, buf.Samples, buf.SampleRate)
	e.release(ctx)
	if err != nil {
		return "", apperr.EngineFailed("acoustic model", err)
	}
	return strings.TrimSpace(text), nil
}

// ReleaseMemory trims accelerator memory between files. A model lost to a
// cancelled call is reloaded here, so ctx should outlive any per-file
// deadline.
func (e *Engine) ReleaseMemory(ctx context.Context) {
	if !e.alive() {
		if err := e.reload(ctx); err != nil {
			e.log.Error("acoustic model reload failed", logger.ErrorFields("reload", err))
		}
		return
	}
	e.release(ctx)
}

func (e *Engine) alive() bool {
	l, ok := e.model.(Liveness)
	return !ok || l.Alive()
}

// reload replaces a dead model with a fresh one from the loader.
func (e *Engine) reload(ctx context.Context) error {
	if e.alive() {
		return nil
	}
	e.log.Warn("acoustic model lost, reloading", logger.Fields("model", e.spec.Name))
	_ = e.model.Close()

	start := time.Now()
	model, err := e.load(ctx, e.spec)
	if err != nil {
		return apperr.EngineFailed("model reload", err).WithDetail("model", e.spec.Name)
	}
	e.model = model
	e.log.Info("acoustic model reloaded", logger.DurationFields("load", time.Since(start)))
	return nil
}

func (e *Engine) release(ctx context.Context) {
	if !e.alive() {
		return
	}
	if err := e.model.Release(context.WithoutCancel(ctx)); err != nil {
		e.log.Warn("release inference memory", logger.ErrorFields("release", err))
	}
}

func (e *Engine) Close() error {
	return e.model.Close()
}
