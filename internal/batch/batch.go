// Package batch transcribes every recording in an input directory and
// writes one transcript per file, isolating per-file failures.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/assembler"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/results"
	"github.com/leonardotrapani/diarscribe/internal/runlock"
	"github.com/leonardotrapani/diarscribe/internal/transcript"
)

// DiarizationSuffix is appended to the stem of speaker-labelled transcripts.
const DiarizationSuffix = "-diarization"

type Normalizer interface {
	Normalize(ctx context.Context, path string) (*audio.Buffer, error)
}

// Transcriber is the loaded engine shared by every file of a run.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer) (string, error)
	ReleaseMemory(ctx context.Context)
}

type Diarizer interface {
	Diarize(ctx context.Context, buf *audio.Buffer) ([]transcript.Segment, error)
}

// Options wires a Runner. Diarizer is optional.
type Options struct {
	InputDir    string
	Results     *results.Store
	Normalizer  Normalizer
	Engine      Transcriber
	Diarizer    Diarizer
	Assembler   *assembler.Assembler
	FileTimeout time.Duration
	// Progress receives one human-readable line per step.
	Progress io.Writer
	Log      *logger.Logger
}

// FileFailure records why one file stopped early.
type FileFailure struct {
	File  string
	Stage string
	Err   error
}

// Report summarizes a run.
type Report struct {
	Found     int
	Processed int
	Failed    []FileFailure
	Artifacts []string
	Duration  time.Duration
}

// NoInput reports that the input directory held no recordings.
func (r *Report) NoInput() bool { return r.Found == 0 }

type Runner struct {
	opts Options
	log  *logger.Logger
}

func New(opts Options) *Runner {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Assembler == nil {
		opts.Assembler = assembler.New(opts.Log)
	}
	return &Runner{opts: opts, log: opts.Log.WithComponent("batch")}
}

// Scan lists visible supported recordings in dir, sorted by name. A missing
// dir is created and yields no files.
func Scan(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if audio.IsSupported(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run processes every recording sequentially while holding the results
// directory lock. Only setup problems are returned as errors.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	lock, err := runlock.Acquire(r.opts.Results.Dir())
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	files, err := Scan(r.opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.opts.InputDir, err)
	}

	report := &Report{Found: len(files)}
	if len(files) == 0 {
		r.log.Info("no audio files found", logger.Fields("dir", r.opts.InputDir))
		r.progress("no audio files found in %s", r.opts.InputDir)
		return report, nil
	}

	for _, path := range files {
		if ctx.Err() != nil {
			r.log.Warn("batch interrupted", logger.ErrorFields("run", ctx.Err()))
			break
		}
		if failure := r.processFile(ctx, path, report); failure != nil {
			report.Failed = append(report.Failed, *failure)
			continue
		}
		report.Processed++
	}

	report.Duration = time.Since(start)
	r.log.Info("batch finished", logger.Fields(
		"found", report.Found, "processed", report.Processed, "failed", len(report.Failed),
		logger.FieldDuration, report.Duration.Milliseconds()))
	return report, nil
}

func (r *Runner) processFile(ctx context.Context, path string, report *Report) *FileFailure {
	name := filepath.Base(path)
	r.progress(">> Processing: %s", name)

	// release on the run context: a model lost to the file deadline is
	// reloaded there for the next file
	defer r.opts.Engine.ReleaseMemory(ctx)
	if r.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.FileTimeout)
		defer cancel()
	}

	fail := func(stage string, err error) *FileFailure {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("per-file deadline of %s exceeded: %w", r.opts.FileTimeout, err)
		}
		fields := logger.ErrorFields(stage, err)
		fields[logger.FieldFile] = name
		if kind := apperr.KindOf(err); kind != "" {
			fields["kind"] = string(kind)
		}
		r.log.Error("file failed", fields)
		r.progress("   failed (%s): %v", stage, err)
		return &FileFailure{File: name, Stage: stage, Err: err}
	}

	buf, err := r.opts.Normalizer.Normalize(ctx, path)
	if err != nil {
		return fail("normalize", err)
	}
	stem := strings.TrimSuffix(filepath.Base(buf.Path), filepath.Ext(buf.Path))

	text, err := r.opts.Engine.Transcribe(ctx, buf)
	if err != nil {
		return fail("transcribe", err)
	}
	if err := r.save(stem+".txt", transcript.Plain(text), report); err != nil {
		return fail("save", err)
	}

	if r.opts.Diarizer == nil {
		return nil
	}

	segments, err := r.opts.Diarizer.Diarize(ctx, buf)
	if err != nil {
		return fail("diarize", err)
	}
	t, stats := r.opts.Assembler.AssembleStats(ctx, buf, segments, r.opts.Engine)
	r.log.Info("assembled transcript", logger.Fields(
		logger.FieldFile, name, "segments", stats.Segments, "entries", stats.Entries, "dropped", stats.Dropped()))
	if stats.Interrupted {
		return fail("assemble", ctx.Err())
	}
	if err := r.save(stem+DiarizationSuffix+".txt", t, report); err != nil {
		return fail("save", err)
	}
	return nil
}

func (r *Runner) save(name string, t transcript.Transcript, report *Report) error {
	if _, err := r.opts.Results.Write(name, t.Format()); err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, name)
	r.progress("   saved: %s", name)
	return nil
}

func (r *Runner) progress(format string, args ...any) {
	fmt.Fprintf(r.opts.Progress, format+"\n", args...)
}
