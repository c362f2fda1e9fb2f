package process

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRun_CapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "echo out; echo err >&2"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.Tail(1) != "err" {
		t.Errorf("Tail(1) = %q", res.Tail(1))
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d", res.ExitCode)
	}
}

func TestRun_ProgressTee(t *testing.T) {
	requireShell(t)

	var progress bytes.Buffer
	res, err := Run(context.Background(), Command{
		Binary:   "sh",
		Args:     []string{"-c", "echo one; echo two"},
		Progress: &progress,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if progress.String() != "one\ntwo\n" {
		t.Errorf("progress = %q", progress.String())
	}
	if string(res.Stdout) != progress.String() {
		t.Errorf("stdout %q differs from progress %q", res.Stdout, progress.String())
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	requireShell(t)

	res, err := Run(context.Background(), Command{Binary: "sh", Args: []string{"-c", "exit 3"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Run(ctx, Command{Binary: "sh", Args: []string{"-c", "sleep 10"}, GracePeriod: time.Second})
	if err == nil {
		t.Fatal("expected error on cancel")
	}
	if !strings.Contains(err.Error(), "killed by context") {
		t.Errorf("error = %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancel did not stop the process in time")
	}
}

func TestRun_EnvAndDir(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	res, err := Run(context.Background(), Command{
		Binary: "sh",
		Args:   []string{"-c", "echo $FOO; pwd"},
		Dir:    dir,
		Env:    []string{"FOO=bar"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := string(res.Stdout)
	if !strings.Contains(out, "bar") || !strings.Contains(out, dir) {
		t.Errorf("stdout = %q", out)
	}
}

func TestRun_EmptyBinary(t *testing.T) {
	if _, err := Run(context.Background(), Command{}); err == nil {
		t.Error("expected error for empty binary")
	}
}
