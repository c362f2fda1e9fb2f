package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leonardotrapani/diarscribe/internal/apperr"
	"github.com/leonardotrapani/diarscribe/internal/audio"
	"github.com/leonardotrapani/diarscribe/internal/batch"
	"github.com/leonardotrapani/diarscribe/internal/catalog"
	"github.com/leonardotrapani/diarscribe/internal/config"
	"github.com/leonardotrapani/diarscribe/internal/deps"
	"github.com/leonardotrapani/diarscribe/internal/diarize"
	"github.com/leonardotrapani/diarscribe/internal/engine"
	"github.com/leonardotrapani/diarscribe/internal/engine/nemo"
	"github.com/leonardotrapani/diarscribe/internal/logger"
	"github.com/leonardotrapani/diarscribe/internal/results"
	"github.com/leonardotrapani/diarscribe/internal/tui"
	"github.com/leonardotrapani/diarscribe/internal/web"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	flags      batchFlags
)

var rootCmd = &cobra.Command{
	Use:   "diarscribe",
	Short: "Transcribe a directory of recordings, optionally split by speaker",
	Long: `Transcribes every recording in the audio directory with a NeMo ASR
checkpoint and writes <name>.txt to the results directory. With
--diarization each file also gets <name>-diarization.txt with one
line per speaker turn.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd.Context(), configPath, flags)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to diarscribe.toml")
	registerBatchFlags(rootCmd, &flags)

	rootCmd.AddCommand(
		serveCmd(),
		configureCmd(),
		modelsCmd(),
		doctorCmd(),
	)
}

// batchFlags mirrors the command line of one batch run. The web server
// builds the same arguments when it re-invokes the binary.
type batchFlags struct {
	language    string
	modelName   string
	transducer  bool
	ctc         bool
	diarization bool
}

func registerBatchFlags(cmd *cobra.Command, f *batchFlags) {
	cmd.Flags().StringVar(&f.language, "language", string(catalog.Russian), "recording language: ru, en")
	cmd.Flags().StringVar(&f.modelName, "model_name", "", "pretrained checkpoint name (see diarscribe models)")
	cmd.Flags().BoolVar(&f.transducer, "transducer", false, "use a transducer checkpoint")
	cmd.Flags().BoolVar(&f.ctc, "ctc", false, "use a CTC checkpoint")
	cmd.Flags().BoolVar(&f.diarization, "diarization", false, "also write a per-speaker transcript")

	_ = cmd.MarkFlagRequired("model_name")
	cmd.MarkFlagsMutuallyExclusive("transducer", "ctc")
	cmd.MarkFlagsOneRequired("transducer", "ctc")
}

// spec resolves the flags against the catalog without loading anything.
func (f batchFlags) spec() (catalog.ModelSpec, error) {
	lang, err := catalog.ParseLanguage(f.language)
	if err != nil {
		return catalog.ModelSpec{}, err
	}

	var arch catalog.Architecture
	switch {
	case f.transducer && f.ctc:
		return catalog.ModelSpec{}, apperr.ConfigInvalid("model_type", "--transducer and --ctc are mutually exclusive")
	case f.transducer:
		arch = catalog.Transducer
	case f.ctc:
		arch = catalog.CTC
	default:
		return catalog.ModelSpec{}, apperr.ConfigInvalid("model_type", "one of --transducer or --ctc is required")
	}

	spec := catalog.ModelSpec{Language: lang, Architecture: arch, Name: f.modelName}
	if err := catalog.Validate(spec); err != nil {
		return catalog.ModelSpec{}, err
	}
	return spec, nil
}

func runBatch(ctx context.Context, path string, f batchFlags) error {
	spec, err := f.spec()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	log := logger.New(cfg.ToLoggerConfig(), "diarscribe")

	if err := ensureDirs(cfg); err != nil {
		return err
	}

	var diarizer batch.Diarizer
	if f.diarization {
		adapter := diarize.NewAdapter(
			diarize.NewNeMoEngine(cfg.DiarizationPython(), cfg.Engine.Device),
			cfg.Diarization.Config,
			cfg.Paths.ScratchDir,
			log,
		)
		if err := adapter.CheckConfig(); err != nil {
			return err
		}
		diarizer = adapter
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.New(ctx, spec, nemo.Loader(cfg.ToEngineOptions(), log), log)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", spec.Name, err)
	}
	defer eng.Close()

	report, err := batch.New(batch.Options{
		InputDir:    cfg.Paths.AudioDir,
		Results:     results.NewStore(cfg.Paths.ResultsDir),
		Normalizer:  audio.NewNormalizer(cfg.Engine.FFmpeg, log),
		Engine:      eng,
		Diarizer:    diarizer,
		FileTimeout: cfg.Engine.FileTimeout,
		Progress:    os.Stdout,
		Log:         log,
	}).Run(ctx)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	fmt.Println(tui.RenderReport(report))
	return batchOutcome(report)
}

// batchOutcome turns a report into the process exit status. Partial
// failures still exit 0 so callers pick up the transcripts that were written.
func batchOutcome(r *batch.Report) error {
	if r.Found > 0 && r.Processed == 0 {
		return fmt.Errorf("all %d file(s) failed", r.Found)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func ensureDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.Paths.AudioDir, cfg.Paths.ResultsDir} {
		if err := results.NewStore(dir).Ensure(); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web uploader",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
}

func runServe(ctx context.Context, path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	log := logger.New(cfg.ToLoggerConfig(), "diarscribe")

	if err := ensureDirs(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := config.NewManager(path, log)
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	m.OnChange(func(c *config.Config) {
		if err := ensureDirs(c); err != nil {
			log.Warn("reloaded config has unusable directories", logger.ErrorFields("ensure_dirs", err))
		}
	})
	if err := m.StartWatching(ctx); err != nil {
		log.Warn("config hot reload disabled", logger.ErrorFields("watch", err))
	}
	defer m.Stop()

	srv, err := web.New(web.Options{Config: m.GetConfig, ConfigPath: path}, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Serving on http://%s\n", srv.Addr())

	<-ctx.Done()
	return srv.Stop(context.Background())
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(configPath)
		},
	}
}

func runConfigure(path string) error {
	existing, err := config.LoadExisting(path)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		existing = nil
	}

	result, err := tui.Run(existing)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(path, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(tui.StyleSuccess.Render("Configuration saved to " + path))
	fmt.Println()
	fmt.Println("Next Steps:")
	fmt.Printf("1. Put recordings into %s/\n", result.Config.Paths.AudioDir)
	fmt.Printf("2. Run: diarscribe --%s --model_name %s\n", result.Config.Model.Architecture, result.Config.Model.Name)
	fmt.Println("3. Or start the uploader: diarscribe serve")
	return nil
}

func modelsCmd() *cobra.Command {
	var langFilter string
	var archFilter string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List supported pretrained checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(langFilter, archFilter)
		},
	}

	cmd.Flags().StringVar(&langFilter, "language", "", "filter by language: ru, en")
	cmd.Flags().StringVar(&archFilter, "architecture", "", "filter by architecture: transducer, ctc")

	return cmd
}

func runModels(langFilter, archFilter string) error {
	var lang catalog.Language
	if langFilter != "" {
		l, err := catalog.ParseLanguage(langFilter)
		if err != nil {
			return err
		}
		lang = l
	}

	var arch catalog.Architecture
	if archFilter != "" {
		a, err := catalog.ParseArchitecture(archFilter)
		if err != nil {
			return err
		}
		arch = a
	}

	fmt.Println(tui.RenderCatalog(lang, arch))
	return nil
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools the pipeline depends on",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(configPath)
		},
	}
}

func runDoctor(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	statuses := doctorChecks(cfg)
	fmt.Println(tui.RenderDoctor(statuses))

	if _, err := os.Stat(cfg.Diarization.Config); err != nil {
		fmt.Println(tui.StyleWarning.Render("diarizer config " + cfg.Diarization.Config + " not found, --diarization will fail"))
	}

	for _, s := range statuses {
		if !s.Installed {
			return fmt.Errorf("%s is missing", s.Name)
		}
	}
	return nil
}

func doctorChecks(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{
		deps.CheckFFmpeg(cfg.Engine.FFmpeg),
		deps.CheckPython(cfg.Engine.Python),
		deps.CheckPythonModule(cfg.Engine.Python, "nemo"),
	}
	if py := cfg.DiarizationPython(); py != cfg.Engine.Python {
		statuses = append(statuses, deps.CheckPythonModule(py, "nemo"))
	}
	return statuses
}
