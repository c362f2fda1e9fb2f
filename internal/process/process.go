// Package process runs external tools (ffmpeg, python helpers, the batch
// binary itself) and captures their output.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Command describes a subprocess.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Env is appended to os.Environ.
	Env   []string
	Stdin io.Reader
	// Progress, when set, also receives stdout as it is written.
	Progress io.Writer
	// GracePeriod is the delay between SIGTERM and SIGKILL on cancel.
	// Defaults to 5 seconds.
	GracePeriod time.Duration
}

// Result holds the output of a finished subprocess.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Tail returns the last n non-empty lines of stderr, for error messages.
func (r *Result) Tail(n int) string {
	if r == nil {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(string(r.Stderr)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner runs a command to completion.
type Runner func(ctx context.Context, cmd Command) (*Result, error)

// Run executes cmd and waits for it. When ctx is cancelled the whole process
// group gets SIGTERM, then SIGKILL after the grace period.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	grace := cmd.GracePeriod
	if grace == 0 {
		grace = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	if cmd.Progress != nil {
		c.Stdout = io.MultiWriter(&stdout, cmd.Progress)
	}
	c.Stderr = &stderr
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("process: %s killed by context: %w", cmd.Binary, ctx.Err())
		}
		return result, fmt.Errorf("process: %s exit code %d: %w", cmd.Binary, result.ExitCode, err)
	}
	return result, nil
}
