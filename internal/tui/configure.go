package tui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionModel       ConfigSection = "model"
	SectionEngine      ConfigSection = "engine"
	SectionDiarization ConfigSection = "diarization"
	SectionPaths       ConfigSection = "paths"
	SectionServer      ConfigSection = "server"
	SectionSaveExit    ConfigSection = "save_exit"
	SectionDiscardExit ConfigSection = "discard_exit"
)

// Run starts the configuration menu on a copy of cfg.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := config.DefaultConfig()
	if existing != nil {
		c := *existing
		cfg = &c
	}

	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionModel:
			_ = editModel(cfg)

		case SectionEngine:
			_ = editEngine(cfg)

		case SectionDiarization:
			_ = editDiarization(cfg)

		case SectionPaths:
			_ = editPaths(cfg)

		case SectionServer:
			_ = editServer(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatModelLabel(cfg), SectionModel),
		huh.NewOption(formatEngineLabel(cfg), SectionEngine),
		huh.NewOption(formatDiarizationLabel(cfg), SectionDiarization),
		huh.NewOption(formatPathsLabel(cfg), SectionPaths),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// editModel picks language, then architecture, then a model from the catalog.
func editModel(cfg *config.Config) error {
	lang := cfg.Model.Language
	if lang == "" {
		lang = string(catalog.Russian)
	}
	arch := cfg.Model.Architecture
	if arch == "" {
		arch = string(catalog.Transducer)
	}

	first := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language").
				Options(languageOptions()...).
				Value(&lang),
			huh.NewSelect[string]().
				Title("Decoder architecture").
				Description("Transducer models are usually more accurate, CTC models are faster").
				Options(architectureOptions()...).
				Value(&arch),
		),
	).WithTheme(getTheme())
	if err := first.Run(); err != nil {
		return err
	}

	options := modelOptions(catalog.Language(lang), catalog.Architecture(arch))
	if len(options) == 0 {
		return fmt.Errorf("no %s models for %s", arch, lang)
	}
	name := cfg.Model.Name
	if !hasOption(options, name) {
		name = options[0].Value
	}

	second := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model").
				Description(fmt.Sprintf("%d checkpoint(s) available", len(options))).
				Options(options...).
				Height(12).
				Value(&name),
		),
	).WithTheme(getTheme())
	if err := second.Run(); err != nil {
		return err
	}

	cfg.Model = config.ModelConfig{Language: lang, Architecture: arch, Name: name}
	return nil
}

func editEngine(cfg *config.Config) error {
	python := cfg.Engine.Python
	device := cfg.Engine.Device
	if device == "" {
		device = "auto"
	}
	ffmpeg := cfg.Engine.FFmpeg
	fileTimeout := cfg.Engine.FileTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Python interpreter").
				Description("Must have nemo_toolkit[asr] installed").
				Value(&python).
				Validate(notEmpty),
			huh.NewSelect[string]().
				Title("Device").
				Options(
					huh.NewOption("Auto (GPU when available)", "auto"),
					huh.NewOption("GPU (cuda)", "cuda"),
					huh.NewOption("CPU", "cpu"),
				).
				Value(&device),
			huh.NewInput().
				Title("ffmpeg binary").
				Value(&ffmpeg).
				Validate(notEmpty),
			huh.NewInput().
				Title("Per-file timeout").
				Description("Go duration, e.g. 30m. 0s disables the deadline").
				Value(&fileTimeout).
				Validate(validateDuration),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Engine.Python = python
	cfg.Engine.Device = device
	cfg.Engine.FFmpeg = ffmpeg
	cfg.Engine.FileTimeout, _ = time.ParseDuration(fileTimeout)
	return nil
}

func editDiarization(cfg *config.Config) error {
	path := cfg.Diarization.Config
	python := cfg.Diarization.Python

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Diarizer config").
				Description("NeMo ClusteringDiarizer YAML used by --diarization").
				Value(&path).
				Validate(notEmpty),
			huh.NewInput().
				Title("Python for diarization").
				Description("Empty uses the engine interpreter").
				Placeholder(cfg.Engine.Python).
				Value(&python),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		fmt.Println(StyleWarning.Render("  warning: " + path + " does not exist yet"))
	}
	cfg.Diarization.Config = path
	cfg.Diarization.Python = python
	return nil
}

func editPaths(cfg *config.Config) error {
	audioDir := cfg.Paths.AudioDir
	resultsDir := cfg.Paths.ResultsDir
	scratchDir := cfg.Paths.ScratchDir

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Audio directory").Value(&audioDir).Validate(notEmpty),
			huh.NewInput().Title("Results directory").Value(&resultsDir).Validate(notEmpty),
			huh.NewInput().
				Title("Scratch directory").
				Description("Empty uses the system temp directory").
				Value(&scratchDir),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Paths = config.PathsConfig{AudioDir: audioDir, ResultsDir: resultsDir, ScratchDir: scratchDir}
	return nil
}

func editServer(cfg *config.Config) error {
	host := cfg.Server.Host
	port := strconv.Itoa(cfg.Server.Port)
	timeout := cfg.Server.ProcessTimeout.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Listen host").Value(&host),
			huh.NewInput().Title("Port").Value(&port).Validate(validatePort),
			huh.NewInput().
				Title("Processing timeout").
				Description("Upper bound for one web-triggered batch").
				Value(&timeout).
				Validate(validatePositiveDuration),
		),
	).WithTheme(getTheme())
	if err := form.Run(); err != nil {
		return err
	}

	cfg.Server.Host = host
	cfg.Server.Port, _ = strconv.Atoi(port)
	cfg.Server.ProcessTimeout, _ = time.ParseDuration(timeout)
	return nil
}

func showSummary(cfg *config.Config) (bool, error) {
	fmt.Println()
	fmt.Println(Summary(cfg))
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}

func getTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Focused.Base = lipgloss.NewStyle().BorderForeground(ColorPrimary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(ColorSecondary)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(ColorText)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(ColorMuted)
	t.Blurred.Description = lipgloss.NewStyle().Foreground(ColorSubtle)

	return t
}
