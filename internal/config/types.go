package config

import "time"

type Config struct {
	Paths       PathsConfig       `toml:"paths"`
	Model       ModelConfig       `toml:"model"`
	Engine      EngineConfig      `toml:"engine"`
	Diarization DiarizationConfig `toml:"diarization"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// PathsConfig holds the working directories. Relative paths resolve against
// the current directory.
type PathsConfig struct {
	AudioDir   string `toml:"audio_dir"`
	ResultsDir string `toml:"results_dir"`
	// ScratchDir holds per-call diarization workspaces (empty = system temp)
	ScratchDir string `toml:"scratch_dir"`
}

// ModelConfig is the default model selection offered by the web form and the
// configure wizard. The batch command takes its model from flags.
type ModelConfig struct {
	Language     string `toml:"language"`
	Architecture string `toml:"architecture"`
	Name         string `toml:"name"`
}

type EngineConfig struct {
	Python       string        `toml:"python"`
	Device       string        `toml:"device"` // "auto", "cpu", "cuda" or "cuda:N"
	FFmpeg       string        `toml:"ffmpeg"`
	ReadyTimeout time.Duration `toml:"ready_timeout"`
	FileTimeout  time.Duration `toml:"file_timeout"` // 0 disables the per-file deadline
}

type DiarizationConfig struct {
	Config string `toml:"config"`
	// Python overrides engine.python for the diarizer run
	Python string `toml:"python"`
}

type ServerConfig struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	ProcessTimeout time.Duration `toml:"process_timeout"`
	MaxUploadMB    int64         `toml:"max_upload_mb"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}
