package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
		code   apperr.Code
	}{
		{"empty audio dir", func(c *Config) { c.Paths.AudioDir = "" }, "paths.audio_dir", apperr.CodeConfigInvalid},
		{"same dirs", func(c *Config) { c.Paths.ResultsDir = c.Paths.AudioDir }, "paths.results_dir", apperr.CodeConfigInvalid},
		{"bad language", func(c *Config) { c.Model.Language = "de" }, "language", apperr.CodeConfigInvalid},
		{"bad architecture", func(c *Config) { c.Model.Architecture = "rnn" }, "architecture", apperr.CodeConfigInvalid},
		{"model not in catalog", func(c *Config) { c.Model.Name = "stt_en_citrinet_256" }, "", apperr.CodeModelLoad},
		{"bad device", func(c *Config) { c.Engine.Device = "tpu" }, "engine.device", apperr.CodeConfigInvalid},
		{"bad cuda index", func(c *Config) { c.Engine.Device = "cuda:x" }, "engine.device", apperr.CodeConfigInvalid},
		{"zero ready timeout", func(c *Config) { c.Engine.ReadyTimeout = 0 }, "engine.ready_timeout", apperr.CodeConfigInvalid},
		{"negative file timeout", func(c *Config) { c.Engine.FileTimeout = -time.Second }, "engine.file_timeout", apperr.CodeConfigInvalid},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port", apperr.CodeConfigInvalid},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging", apperr.CodeConfigInvalid},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging", apperr.CodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !apperr.HasCode(err, tt.code) {
				t.Fatalf("Validate() = %v, want code %s", err, tt.code)
			}
			if tt.field == "" {
				return
			}
			appErr, _ := apperr.As(err)
			if appErr.Details["field"] != tt.field {
				t.Errorf("field = %v, want %s", appErr.Details["field"], tt.field)
			}
		})
	}
}

func TestConfig_Validate_AcceptsDevices(t *testing.T) {
	for _, d := range []string{"", "auto", "cpu", "cuda", "cuda:0", "cuda:12"} {
		cfg := DefaultConfig()
		cfg.Engine.Device = d
		if err := cfg.Validate(); err != nil {
			t.Errorf("device %q rejected: %v", d, err)
		}
	}
}

func TestConfig_Validate_EmptyModelName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Name = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty default model should be allowed: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diarscribe.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.AudioDir != "audio" || cfg.Server.Port != 5000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadExisting_Missing(t *testing.T) {
	_, err := LoadExisting(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), ErrConfigNotFound.Error()) {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diarscribe.toml")
	content := `
[model]
  language = "en"
  architecture = "ctc"
  name = "stt_en_conformer_ctc_large"

[engine]
  file_timeout = "90s"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.FileTimeout != 90*time.Second {
		t.Errorf("file_timeout = %v", cfg.Engine.FileTimeout)
	}
	if cfg.Engine.ReadyTimeout != 10*time.Minute || cfg.Engine.Python != "python3" {
		t.Errorf("defaults lost: %+v", cfg.Engine)
	}
	spec, err := cfg.ModelSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec != (catalog.ModelSpec{Language: catalog.English, Architecture: catalog.CTC, Name: "stt_en_conformer_ctc_large"}) {
		t.Errorf("ModelSpec = %+v", spec)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid toml", "[paths\naudio_dir = ", "failed to parse"},
		{"unknown key", "[paths]\nmusic_dir = \"x\"\n", "unknown keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "diarscribe.toml")
			os.WriteFile(path, []byte(tt.content), 0o644)

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diarscribe.toml")
	os.WriteFile(path, []byte("[engine]\n  python = \"/usr/bin/python3\"\n"), 0o644)

	t.Setenv(EnvPython, "/opt/nemo/bin/python")
	t.Setenv(EnvDevice, "cpu")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.Python != "/opt/nemo/bin/python" || cfg.Engine.Device != "cpu" || cfg.Logging.Level != "debug" {
		t.Errorf("env not applied: engine=%+v logging=%+v", cfg.Engine, cfg.Logging)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvFFmpeg, "")
	os.Unsetenv(EnvFFmpeg)
	t.Cleanup(func() { os.Unsetenv(EnvFFmpeg) })

	os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvFFmpeg+"=/opt/ffmpeg/bin/ffmpeg\n"), 0o644)

	cfg, err := Load(filepath.Join(dir, "diarscribe.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("ffmpeg = %q, want value from .env", cfg.Engine.FFmpeg)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "diarscribe.toml")

	cfg := DefaultConfig()
	cfg.Model = ModelConfig{Language: "en", Architecture: "transducer", Name: "stt_en_contextnet_512"}
	cfg.Engine.FileTimeout = 15 * time.Minute
	cfg.Diarization.Python = "/venv/bin/python"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
	if got.DiarizationPython() != "/venv/bin/python" {
		t.Errorf("DiarizationPython = %q", got.DiarizationPython())
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.ScratchDir = "/scratch"

	opts := cfg.ToEngineOptions()
	if opts.Python != "python3" || opts.Device != "auto" || opts.TempDir != "/scratch" || opts.ReadyTimeout != 10*time.Minute {
		t.Errorf("ToEngineOptions = %+v", opts)
	}

	if got := cfg.DiarizationPython(); got != "python3" {
		t.Errorf("DiarizationPython = %q, want engine python", got)
	}

	logCfg := cfg.ToLoggerConfig()
	if logCfg.Level != "info" || logCfg.Format != "console" || logCfg.Output != "stderr" {
		t.Errorf("ToLoggerConfig = %+v", logCfg)
	}
}

func TestConfig_ModelSpecInfersArchitecture(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = ModelConfig{Language: "en", Name: "stt_en_fastconformer_transducer_large"}

	spec, err := cfg.ModelSpec()
	if err != nil {
		t.Fatal(err)
	}
	if spec.Architecture != catalog.Transducer {
		t.Errorf("architecture = %s, want transducer", spec.Architecture)
	}
}

func TestManager_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diarscribe.toml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	changed := make(chan *Config, 4)
	m.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer m.Stop()

	updated := DefaultConfig()
	updated.Model = ModelConfig{Language: "en", Architecture: "ctc", Name: "stt_en_citrinet_512"}
	if err := Save(path, updated); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.Model.Name != "stt_en_citrinet_512" {
			t.Errorf("reloaded model = %q", c.Model.Name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	if got := m.GetConfig().Model.Name; got != "stt_en_citrinet_512" {
		t.Errorf("GetConfig model = %q", got)
	}
}

func TestManager_InvalidReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diarscribe.toml")
	Save(path, DefaultConfig())

	m, err := NewManager(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	os.WriteFile(path, []byte("[server]\n  port = -1\n"), 0o644)
	m.reload()

	if m.GetConfig().Server.Port != 5000 {
		t.Errorf("invalid reload replaced config: port = %d", m.GetConfig().Server.Port)
	}
}

func TestManager_GetConfigReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "diarscribe.toml"), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	c := m.GetConfig()
	c.Server.Port = 1
	if m.GetConfig().Server.Port == 1 {
		t.Error("GetConfig should return a copy")
	}
}
