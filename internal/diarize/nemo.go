package diarize

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leonardotrapani/diarscribe/internal/process"
)

//go:embed diarize.py
var diarizeScript []byte

// NeMoEngine runs NeMo's ClusteringDiarizer through a Python helper.
type NeMoEngine struct {
	Python string
	Device string
	run    process.Runner
}

func NewNeMoEngine(python, device string) *NeMoEngine {
	if python == "" {
		python = "python3"
	}
	return &NeMoEngine{Python: python, Device: device, run: process.Run}
}

func (e *NeMoEngine) Run(ctx context.Context, req Request) error {
	script := filepath.Join(req.OutDir, "diarize.py")
	if err := os.WriteFile(script, diarizeScript, 0o600); err != nil {
		return fmt.Errorf("write helper: %w", err)
	}

	args := []string{script,
		"--config", req.ConfigPath,
		"--manifest", req.ManifestPath,
		"--out-dir", req.OutDir,
	}
	if e.Device != "" && e.Device != "auto" {
		args = append(args, "--device", e.Device)
	}

	res, err := e.run(ctx, process.Command{Binary: e.Python, Args: args})
	if err != nil {
		if tail := res.Tail(5); tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}
