package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/config"
)

func formatModelLabel(cfg *config.Config) string {
	if cfg.Model.Name == "" {
		return "Model (not set)"
	}
	return fmt.Sprintf("Model (%s)", cfg.Model.Name)
}

func formatEngineLabel(cfg *config.Config) string {
	device := cfg.Engine.Device
	if device == "" {
		device = "auto"
	}
	return fmt.Sprintf("Engine (%s, %s)", cfg.Engine.Python, device)
}

func formatDiarizationLabel(cfg *config.Config) string {
	return fmt.Sprintf("Diarization (%s)", cfg.Diarization.Config)
}

func formatPathsLabel(cfg *config.Config) string {
	return fmt.Sprintf("Directories (%s → %s)", cfg.Paths.AudioDir, cfg.Paths.ResultsDir)
}

func formatServerLabel(cfg *config.Config) string {
	return fmt.Sprintf("Web server (%s:%d)", cfg.Server.Host, cfg.Server.Port)
}

func languageOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(catalog.Languages))
	for _, l := range catalog.Languages {
		opts = append(opts, huh.NewOption(l.Name(), string(l)))
	}
	return opts
}

func architectureOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("Transducer (RNN-T)", string(catalog.Transducer)),
		huh.NewOption("CTC", string(catalog.CTC)),
	}
}

func modelOptions(lang catalog.Language, arch catalog.Architecture) []huh.Option[string] {
	names := catalog.Models(lang, arch)
	opts := make([]huh.Option[string], 0, len(names))
	for _, n := range names {
		opts = append(opts, huh.NewOption(n, n))
	}
	return opts
}

func hasOption(opts []huh.Option[string], value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return errors.New("use a duration like 90s, 30m or 2h")
	}
	if d < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func validatePositiveDuration(s string) error {
	if err := validateDuration(s); err != nil {
		return err
	}
	if d, _ := time.ParseDuration(strings.TrimSpace(s)); d == 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return errors.New("must be a number between 1 and 65535")
	}
	return nil
}

// Summary renders cfg for the save confirmation.
func Summary(cfg *config.Config) string {
	var b strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", StyleLabel.Render(label), value)
	}

	b.WriteString(StyleHeader.Render("Configuration Summary"))
	b.WriteString("\n")
	line("Model:", fmt.Sprintf("%s (%s, %s)", cfg.Model.Name, cfg.Model.Language, cfg.Model.Architecture))
	line("Python:", cfg.Engine.Python)
	line("Device:", cfg.Engine.Device)
	if cfg.Engine.FileTimeout > 0 {
		line("File timeout:", cfg.Engine.FileTimeout.String())
	}
	line("Diarizer:", cfg.Diarization.Config)
	line("Audio:", cfg.Paths.AudioDir)
	line("Results:", cfg.Paths.ResultsDir)
	line("Server:", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	return strings.TrimRight(b.String(), "\n")
}
