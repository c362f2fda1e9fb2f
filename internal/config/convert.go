package config

import (
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/engine/nemo"
	"github.com/leonardotrapani/diarscribe/internal/logger"
)

func (c *Config) ToLoggerConfig() logger.Config {
	cfg := logger.Config{Level: c.Logging.Level, Format: c.Logging.Format}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ToEngineOptions() nemo.Options {
	return nemo.Options{
		Python:       c.Engine.Python,
		Device:       c.Engine.Device,
		ReadyTimeout: c.Engine.ReadyTimeout,
		TempDir:      c.Paths.ScratchDir,
	}
}

// DiarizationPython returns the interpreter for the diarizer run.
func (c *Config) DiarizationPython() string {
	if c.Diarization.Python != "" {
		return c.Diarization.Python
	}
	return c.Engine.Python
}

// ModelSpec parses the default model selection. An empty architecture is
// inferred from the model name.
func (c *Config) ModelSpec() (catalog.ModelSpec, error) {
	lang, err := catalog.ParseLanguage(c.Model.Language)
	if err != nil {
		return catalog.ModelSpec{}, err
	}
	arch := catalog.InferArchitecture(c.Model.Name)
	if c.Model.Architecture != "" {
		if arch, err = catalog.ParseArchitecture(c.Model.Architecture); err != nil {
			return catalog.ModelSpec{}, err
		}
	}
	return catalog.ModelSpec{Language: lang, Architecture: arch, Name: c.Model.Name}, nil
}
