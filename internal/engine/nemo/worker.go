// Package nemo runs pretrained NeMo ASR checkpoints in a long-lived Python
// worker process. One worker holds the single model instance of a run.
package nemo

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/engine"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

//go:embed worker.py
var workerScript []byte

// newCommand is swapped in tests.
var newCommand = exec.Command

// Options configures the worker process.
type Options struct {
	Python       string
	Device       string // "auto", "cpu", "cuda", "cuda:1"
	ReadyTimeout time.Duration
	TempDir      string
}

type request struct {
	Op   string `json:"op"`
	Path string `json:"path,omitempty"`
}

type response struct {
	Ready      *bool  `json:"ready,omitempty"`
	Device     string `json:"device,omitempty"`
	DeviceName string `json:"device_name,omitempty"`
	Text       string `json:"text"`
	OK         bool   `json:"ok,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Worker is an engine.AcousticModel backed by the Python worker.
type Worker struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	dir    string
	seq    int
	broken error
	log    *logger.Logger

	Device string
}

// Loader returns an engine.Loader that starts a worker for the spec.
func Loader(opts Options, log *logger.Logger) engine.Loader {
	return func(ctx context.Context, spec catalog.ModelSpec) (engine.AcousticModel, error) {
		return Start(ctx, opts, spec, log)
	}
}

// Start launches the worker and waits until the model is loaded.
func Start(ctx context.Context, opts Options, spec catalog.ModelSpec, log *logger.Logger) (*Worker, error) {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.Device == "" {
		opts.Device = "auto"
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 10 * time.Minute
	}

	dir, err := os.MkdirTemp(opts.TempDir, "diarscribe-nemo-")
	if err != nil {
		return nil, fmt.Errorf("create worker dir: %w", err)
	}
	script := filepath.Join(dir, "worker.py")
	if err := os.WriteFile(script, workerScript, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write worker script: %w", err)
	}

	log = log.WithComponent("nemo")
	cmd := newCommand(opts.Python, script,
		"--model", spec.Name,
		"--architecture", string(spec.Architecture),
		"--device", opts.Device,
	)
	cmd.Stderr = &lineLogger{log: log}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("start %s: %w", opts.Python, err)
	}

	w := &Worker{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReaderSize(stdout, 64*1024),
		dir:    dir,
		log:    log,
	}

	readyCtx, cancel := context.WithTimeout(ctx, opts.ReadyTimeout)
	defer cancel()

	resp, err := w.read(readyCtx)
	if err != nil {
		w.abort()
		return nil, fmt.Errorf("wait for model: %w", err)
	}
	if resp.Ready == nil || !*resp.Ready {
		w.abort()
		return nil, fmt.Errorf("model failed to load: %s", resp.Error)
	}

	w.Device = resp.Device
	if strings.HasPrefix(resp.Device, "cpu") {
		log.Warn("no GPU detected, running on CPU will be slow")
	} else {
		log.Info("using accelerator", logger.Fields("device", resp.Device, "name", resp.DeviceName))
	}
	return w, nil
}

// Transcribe hands the samples to the worker through a scratch file that is
// removed before returning.
func (w *Worker) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	w.mu.Lock()
	w.seq++
	path := filepath.Join(w.dir, fmt.Sprintf("segment-%06d.f32", w.seq))
	w.mu.Unlock()

	if err := writeSamples(path, samples); err != nil {
		return "", fmt.Errorf("write samples: %w", err)
	}
	defer os.Remove(path)

	resp, err := w.call(ctx, request{Op: "transcribe", Path: path})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Alive reports whether the worker process is still usable. A call whose
// context ends kills the worker, since its reply can no longer be matched.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.broken == nil
}

func (w *Worker) Release(ctx context.Context) error {
	_, err := w.call(ctx, request{Op: "release"})
	return err
}

// Close asks the worker to exit and removes its scratch directory.
func (w *Worker) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := w.call(ctx, request{Op: "shutdown"})
	w.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- w.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		w.cmd.Process.Kill()
		<-done
	}

	os.RemoveAll(w.dir)
	if err != nil && !errors.Is(err, errWorkerGone) {
		return err
	}
	return nil
}

var errWorkerGone = errors.New("nemo worker is not running")

var _ engine.Liveness = (*Worker)(nil)

func (w *Worker) call(ctx context.Context, req request) (*response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return nil, fmt.Errorf("%w: %v", errWorkerGone, w.broken)
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := w.stdin.Write(append(line, '\n')); err != nil {
		w.broken = err
		return nil, fmt.Errorf("send %s: %w", req.Op, err)
	}

	resp, err := w.read(ctx)
	if err != nil {
		w.broken = err
		w.kill()
		return nil, fmt.Errorf("%s: %w", req.Op, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s: %s", req.Op, resp.Error)
	}
	return resp, nil
}

// read waits for one response line or ctx.
func (w *Worker) read(ctx context.Context) (*response, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := w.stdout.ReadBytes('\n')
		ch <- result{line, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("worker exited: %w", r.err)
		}
		var resp response
		if err := json.Unmarshal(bytes.TrimSpace(r.line), &resp); err != nil {
			return nil, fmt.Errorf("bad worker reply %q: %w", r.line, err)
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *Worker) kill() {
	if w.cmd.Process != nil {
		w.cmd.Process.Kill()
	}
	if w.broken == nil {
		w.broken = errWorkerGone
	}
}

// abort tears down a worker that never became ready.
func (w *Worker) abort() {
	w.kill()
	w.stdin.Close()
	w.cmd.Wait()
	os.RemoveAll(w.dir)
}

func writeSamples(path string, samples []float32) error {
	buf := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}
	return os.WriteFile(path, buf, 0o600)
}

// lineLogger forwards worker stderr to the debug log line by line.
type lineLogger struct {
	log *logger.Logger
	buf []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(l.buf[:i])); line != "" {
			l.log.Debug(line)
		}
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}
