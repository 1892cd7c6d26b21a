package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"multi-transcriber/internal/config"
	"multi-transcriber/internal/diagnostics"
	"multi-transcriber/internal/diarize"
	"multi-transcriber/internal/download"
	"multi-transcriber/internal/history"
	"multi-transcriber/internal/jobs"
	"multi-transcriber/internal/logging"
	"multi-transcriber/internal/media"
	"multi-transcriber/internal/recognize"
	"multi-transcriber/internal/registry"
	"multi-transcriber/internal/telemetry"
	"multi-transcriber/internal/transcribe"
)

const serviceName = "multi-transcriber"

// New builds the application with frontend assets served from disk.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application from the config file named by
// TRANSCRIBER_CONFIG (defaults when unset) and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	cfg, err := config.Load(os.Getenv("TRANSCRIBER_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := ensureLocalBinOnPATH(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	logger, closeLog, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	slog.SetDefault(logger)

	app := &App{
		Config:  cfg,
		Jobs:    jobs.NewManager(),
		Logger:  logger,
		assets:  assets,
		checker: diagnostics.NewChecker(),
		events:  jobs.NewEventBus(1000),
		closers: []func(context.Context) error{func(context.Context) error { return closeLog() }},
	}
	app.Registry = registry.New(app.onFileChanged)
	app.events.Subscribe(app.emitRuntimeEvent)

	store := config.NewJSONStore(filepath.Join(cfg.DataDir, "settings.json"), config.DefaultSettings(cfg))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings, err = app.normalizeSettings(settings); err != nil {
		logger.Warn("stored settings rejected, using defaults", slog.String("error", err.Error()))
		settings = config.DefaultSettings(cfg)
	}
	app.Store = store
	app.Settings = settings

	ctx := context.Background()
	metrics, err := telemetry.Setup(ctx, serviceName, cfg.MetricsBind, logger)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	app.closers = append(app.closers, metrics.Shutdown)
	if app.Instruments, err = telemetry.NewInstruments(metrics.Meter()); err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	runs, err := history.Open(ctx, cfg.HistoryPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	app.History = runs
	app.closers = append(app.closers, func(context.Context) error { return runs.Close() })

	pipeline, err := NewPipeline(cfg, logger, app.Instruments)
	if err != nil {
		return nil, err
	}
	app.Pipeline = pipeline
	app.Downloader = download.New(cfg.Tools.YtDlp, cfg.ScratchDir,
		download.WithLogger(logger),
		download.WithInstruments(app.Instruments),
	)

	app.Diagnostics = app.checker.Run(cfg, settings)
	logger.Info("application started",
		slog.String("backend", cfg.Recognizer.Backend),
		slog.String("model", settings.Model),
		slog.Bool("diagnostics_failed", app.Diagnostics.HasFailures),
	)
	return app, nil
}

// NewPipeline assembles the transcription pipeline for cfg.
func NewPipeline(cfg config.Config, logger *slog.Logger, inst *telemetry.Instruments) (*transcribe.Pipeline, error) {
	loader, err := recognize.NewLoader(cfg)
	if err != nil {
		return nil, fmt.Errorf("create recognizer: %w", err)
	}
	taggers, err := diarize.NewFactory(cfg.Diarization)
	if err != nil {
		return nil, fmt.Errorf("create speaker tagger: %w", err)
	}
	transcoder := media.NewTranscoder(cfg.Tools.FFmpeg, cfg.AudioExtensions)

	return transcribe.New(cfg, transcoder, loader, taggers,
		transcribe.WithLogger(logger),
		transcribe.WithInstruments(inst),
	), nil
}
