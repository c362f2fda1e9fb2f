package config

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Paths.AudioDir == "" {
		return apperr.ConfigInvalid("paths.audio_dir", "empty")
	}
	if c.Paths.ResultsDir == "" {
		return apperr.ConfigInvalid("paths.results_dir", "empty")
	}
	if c.Paths.AudioDir == c.Paths.ResultsDir {
		return apperr.ConfigInvalid("paths.results_dir", "must differ from paths.audio_dir")
	}

	if err := c.validateModel(); err != nil {
		return err
	}

	if c.Engine.Python == "" {
		return apperr.ConfigInvalid("engine.python", "empty")
	}
	if c.Engine.FFmpeg == "" {
		return apperr.ConfigInvalid("engine.ffmpeg", "empty")
	}
	if !validDevice(c.Engine.Device) {
		return apperr.ConfigInvalid("engine.device", fmt.Sprintf("%q (must be auto, cpu, cuda or cuda:N)", c.Engine.Device))
	}
	if c.Engine.ReadyTimeout <= 0 {
		return apperr.ConfigInvalid("engine.ready_timeout", c.Engine.ReadyTimeout.String())
	}
	if c.Engine.FileTimeout < 0 {
		return apperr.ConfigInvalid("engine.file_timeout", c.Engine.FileTimeout.String())
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperr.ConfigInvalid("server.port", fmt.Sprintf("%d", c.Server.Port))
	}
	if c.Server.ProcessTimeout <= 0 {
		return apperr.ConfigInvalid("server.process_timeout", c.Server.ProcessTimeout.String())
	}
	if c.Server.MaxUploadMB <= 0 {
		return apperr.ConfigInvalid("server.max_upload_mb", fmt.Sprintf("%d", c.Server.MaxUploadMB))
	}

	logCfg := c.ToLoggerConfig()
	if err := logCfg.Validate(); err != nil {
		return apperr.ConfigInvalid("logging", err.Error())
	}
	return nil
}

// validateModel checks the default model triple against the catalog. An
// empty name leaves the choice to the caller.
func (c *Config) validateModel() error {
	if strings.TrimSpace(c.Model.Name) == "" {
		return nil
	}
	spec, err := c.ModelSpec()
	if err != nil {
		return err
	}
	return catalog.Validate(spec)
}

func validDevice(d string) bool {
	switch d {
	case "", "auto", "cpu", "cuda":
		return true
	}
	if idx, ok := strings.CutPrefix(d, "cuda:"); ok && idx != "" {
		return strings.Trim(idx, "0123456789") == ""
	}
	return false
}
