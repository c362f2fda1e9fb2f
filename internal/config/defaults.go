package config

import "time"

// DefaultPath is used when --config is not given.
const DefaultPath = "diarscribe.toml"

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			AudioDir:   "audio",
			ResultsDir: "results",
		},
		Model: ModelConfig{
			Language:     "ru",
			Architecture: "transducer",
			Name:         "stt_ru_conformer_transducer_large",
		},
		Engine: EngineConfig{
			Python:       "python3",
			Device:       "auto",
			FFmpeg:       "ffmpeg",
			ReadyTimeout: 10 * time.Minute,
			FileTimeout:  0,
		},
		Diarization: DiarizationConfig{
			Config: "diarizer_config.yaml",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			ProcessTimeout: 2 * time.Hour,
			MaxUploadMB:    1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
