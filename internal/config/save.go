package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Save writes cfg to path as commented TOML, replacing the file atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(Render(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// Render formats cfg as the TOML document Save writes.
func Render(cfg *Config) string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format+"\n", args...) }

	w("# diarscribe configuration")
	w("# Changes are picked up by a running `diarscribe serve` without restart.")
	w("")
	w("[paths]")
	w("  audio_dir = %q          # Recordings to process (cleared on web upload)", cfg.Paths.AudioDir)
	w("  results_dir = %q      # Transcripts are written here", cfg.Paths.ResultsDir)
	w("  scratch_dir = %q           # Diarization workspaces (empty = system temp)", cfg.Paths.ScratchDir)
	w("")
	w("# Default model offered by the web form")
	w("[model]")
	w("  language = %q             # ru or en", cfg.Model.Language)
	w("  architecture = %q # transducer or ctc", cfg.Model.Architecture)
	w("  name = %q", cfg.Model.Name)
	w("")
	w("[engine]")
	w("  python = %q          # Interpreter with nemo_toolkit installed", cfg.Engine.Python)
	w("  device = %q            # auto, cpu, cuda or cuda:N", cfg.Engine.Device)
	w("  ffmpeg = %q           # Used for mp3/ogg and unreadable flac", cfg.Engine.FFmpeg)
	w("  ready_timeout = %q     # Maximum model load time", cfg.Engine.ReadyTimeout.String())
	w("  file_timeout = %q        # Per-file deadline (0s = none)", cfg.Engine.FileTimeout.String())
	w("")
	w("[diarization]")
	w("  config = %q # NeMo ClusteringDiarizer YAML", cfg.Diarization.Config)
	w("  python = %q                # Overrides engine.python for diarization", cfg.Diarization.Python)
	w("")
	w("[server]")
	w("  host = %q", cfg.Server.Host)
	w("  port = %d", cfg.Server.Port)
	w("  process_timeout = %q", cfg.Server.ProcessTimeout.String())
	w("  max_upload_mb = %d", cfg.Server.MaxUploadMB)
	w("")
	w("[logging]")
	w("  level = %q                # debug, info, warn, error", cfg.Logging.Level)
	w("  format = %q            # console or json", cfg.Logging.Format)
	return b.String()
}
