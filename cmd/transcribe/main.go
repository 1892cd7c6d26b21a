package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"multi-transcriber/internal/batch"
	"multi-transcriber/internal/bootstrap"
	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/registry"
	"multi-transcriber/internal/transcribe"
)

// mediaPipeline is the part of *transcribe.Pipeline the CLI drives.
type mediaPipeline interface {
	batch.Transcriber
	Supports(path string) bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var (
		configPath string
		model      string
		language   string
		translate  bool
		diarize    bool
		runBatch   bool
	)

	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	fs.StringVar(&model, "model", "", "Model identifier (defaults to default_model)")
	fs.StringVar(&language, "language", "auto", "Spoken language code or auto")
	fs.BoolVar(&translate, "translate", false, "Translate to English instead of transcribing")
	fs.BoolVar(&diarize, "diarize", false, "Prefix lines with speaker labels")
	fs.BoolVar(&runBatch, "batch", false, "Transcribe every file argument sequentially")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: transcribe [flags] FILE...")
		return 2
	}

	pipeline, err := bootstrap.NewPipeline(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to build pipeline", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.DefaultSettings(cfg)
	settings.Language = language
	settings.Diarization = diarize
	if model != "" {
		settings.Model = model
	}

	if runBatch {
		return batchFiles(ctx, pipeline, logger, settings, fs.Args(), stdout, stderr)
	}
	return transcribeFiles(ctx, pipeline, settings, translate, fs.Args(), stdout, stderr)
}

// transcribeFiles prints each transcript to stdout and each failure to
// stderr. It returns the process exit code.
func transcribeFiles(ctx context.Context, pipeline mediaPipeline, settings domain.Settings, translate bool, paths []string, stdout, stderr io.Writer) int {
	failed := 0
	for _, path := range paths {
		res, err := pipeline.Run(ctx, transcribe.Request{
			InputPath: path,
			Language:  settings.Language,
			Translate: translate,
			Diarize:   settings.Diarization,
			Model:     settings.Model,
			Device:    settings.Device,
		}, nil)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %s\n", path, transcribe.StatusMessage(err))
			failed++
			continue
		}
		fmt.Fprintln(stdout, res.Text)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// batchFiles registers paths and runs them through the batch runner,
// printing one outcome line per file. It returns the process exit code.
func batchFiles(ctx context.Context, pipeline mediaPipeline, logger *slog.Logger, settings domain.Settings, paths []string, stdout, stderr io.Writer) int {
	files := registry.New(nil)
	for _, path := range paths {
		if !pipeline.Supports(path) {
			fmt.Fprintf(stderr, "%s: unsupported file format\n", path)
			continue
		}
		files.Add(path)
	}

	outcomes, err := batch.New(pipeline, batch.WithLogger(logger)).Run(ctx, files, settings)

	code := 0
	for _, entry := range files.List() {
		o, ok := outcomes[entry.Path]
		if !ok {
			fmt.Fprintf(stdout, "%s\t%s\n", entry.Path, entry.Status.Label())
			code = 1
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", entry.Path, o.Message)
		if !o.OK {
			code = 1
		}
	}
	if err != nil || files.Len() < len(paths) {
		code = 1
	}
	return code
}
