package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// environment overrides
const (
	EnvPython    = "DIARSCRIBE_PYTHON"
	EnvDevice    = "DIARSCRIBE_DEVICE"
	EnvFFmpeg    = "DIARSCRIBE_FFMPEG"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

var ErrConfigNotFound = errors.New("config not found")

// LoadEnv reads a .env file when one exists. Variables already set in the
// process environment are not overwritten.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// Load reads the config file at path on top of DefaultConfig. A missing file
// is not an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := LoadEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg.applyEnv()
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadExisting is Load for callers that need the file to be present.
func LoadExisting(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s (run diarscribe configure)", ErrConfigNotFound, path)
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPython); v != "" {
		c.Engine.Python = v
	}
	if v := os.Getenv(EnvDevice); v != "" {
		c.Engine.Device = v
	}
	if v := os.Getenv(EnvFFmpeg); v != "" {
		c.Engine.FFmpeg = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
}
