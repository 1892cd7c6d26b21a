// Package batch runs the transcription pipeline over every pending file,
// one at a time.
package batch

import (
	"context"
	"log/slog"

	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/telemetry"
	"multi-transcriber/internal/transcribe"
)

// DoneMessage is the outcome message recorded for a successful file.
const DoneMessage = "Transcription done"

// Transcriber runs one file. *transcribe.Pipeline satisfies it.
type Transcriber interface {
	Run(ctx context.Context, req transcribe.Request, onProgress transcribe.ProgressFunc) (transcribe.Result, error)
}

// Files is the registry surface the runner needs.
type Files interface {
	Pending() []domain.FileEntry
	SetStatus(path string, status domain.FileStatus, message string) (bool, error)
}

// Outcome is the result for one file.
type Outcome struct {
	Path    string               `json:"path"`
	OK      bool                 `json:"ok"`
	Message string               `json:"message"`
	Kind    transcribe.ErrorKind `json:"kind,omitempty"`
	Result  transcribe.Result    `json:"result"`
}

// Runner processes pending files sequentially.
type Runner struct {
	pipeline    Transcriber
	logger      *slog.Logger
	instruments *telemetry.Instruments
	onProgress  func(path string, percent int)
	onOutcome   func(Outcome)
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger batch progress is reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInstruments records one batch-file metric per outcome.
func WithInstruments(inst *telemetry.Instruments) Option {
	return func(r *Runner) { r.instruments = inst }
}

// WithProgress forwards per-file pipeline progress.
func WithProgress(fn func(path string, percent int)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithOutcome is called after each file reaches a terminal status.
func WithOutcome(fn func(Outcome)) Option {
	return func(r *Runner) { r.onOutcome = fn }
}

// New creates a runner over pipeline.
func New(pipeline Transcriber, opts ...Option) *Runner {
	r := &Runner{
		pipeline: pipeline,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run transcribes every file that is not_started when Run begins, using
// settings for model, device, language, and diarization. A failed file is
// marked error and the run continues. Cancellation stops the run after the
// current file; files not yet reached stay not_started and ctx.Err() is
// returned with the outcomes collected so far. A run in which every file
// finished returns nil even if ctx was cancelled afterwards.
func (r *Runner) Run(ctx context.Context, files Files, settings domain.Settings) (map[string]Outcome, error) {
	pending := files.Pending()
	outcomes := make(map[string]Outcome, len(pending))
	r.logger.Info("batch started", slog.Int("files", len(pending)))

	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			r.logger.Info("batch cancelled", slog.Int("processed", len(outcomes)), slog.Int("files", len(pending)))
			return outcomes, err
		}

		outcome := r.runOne(ctx, files, entry.Path, settings)
		outcomes[entry.Path] = outcome
		r.instruments.BatchFile(context.WithoutCancel(ctx), outcomeLabel(outcome))
		if r.onOutcome != nil {
			r.onOutcome(outcome)
		}
		if outcome.Kind == transcribe.KindCancelled && ctx.Err() != nil {
			r.logger.Info("batch cancelled", slog.Int("processed", len(outcomes)), slog.Int("files", len(pending)))
			return outcomes, ctx.Err()
		}
	}

	failed := 0
	for _, o := range outcomes {
		if !o.OK {
			failed++
		}
	}
	r.logger.Info("batch finished", slog.Int("files", len(outcomes)), slog.Int("failed", failed))
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, files Files, path string, settings domain.Settings) Outcome {
	if _, err := files.SetStatus(path, domain.FileStatusInProgress, ""); err != nil {
		r.logger.Warn("batch status update failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	req := transcribe.Request{
		InputPath: path,
		Language:  settings.Language,
		Diarize:   settings.Diarization,
		Model:     settings.Model,
		Device:    settings.Device,
	}
	res, err := r.pipeline.Run(ctx, req, func(percent int) {
		if r.onProgress != nil {
			r.onProgress(path, percent)
		}
	})

	outcome := Outcome{Path: path, Result: res}
	status := domain.FileStatusDone
	if err != nil {
		status = domain.FileStatusError
		outcome.Kind = transcribe.KindOf(err)
		outcome.Message = transcribe.StatusMessage(err)
	} else {
		outcome.OK = true
		outcome.Message = DoneMessage
	}
	if _, err := files.SetStatus(path, status, outcome.Message); err != nil {
		r.logger.Warn("batch status update failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return outcome
}

func outcomeLabel(o Outcome) string {
	if o.OK {
		return "success"
	}
	return string(o.Kind)
}
