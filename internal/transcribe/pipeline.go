// Package transcribe runs one media file through normalization,
// recognition, optional speaker tagging, and transcript assembly.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"multi-transcriber/internal/config"
	"multi-transcriber/internal/diarize"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/media"
	"multi-transcriber/internal/recognize"
	"multi-transcriber/internal/telemetry"
	"multi-transcriber/internal/transcript"
)

// Progress checkpoints reported during a run.
const (
	ProgressStarted   = 10
	ProgressExtracted = 30
	ProgressLoaded    = 40
	ProgressRecognize = 60
	ProgressDiarized  = 70
	ProgressDone      = 100
)

// Request is one immutable unit of work.
type Request struct {
	InputPath string
	Language  string
	Translate bool
	Diarize   bool
	Model     string
	Device    string
}

// Mode maps the translate flag to the recognition task.
func (r Request) Mode() domain.Mode {
	if r.Translate {
		return domain.ModeTranslate
	}
	return domain.ModeTranscribe
}

// Result is the outcome of a successful run.
type Result struct {
	InputPath string               `json:"inputPath"`
	Mode      domain.Mode          `json:"mode"`
	Model     string               `json:"model"`
	Text      string               `json:"text"`
	Segments  []transcript.Segment `json:"segments"`
	Labels    []string             `json:"labels,omitempty"`
	Elapsed   time.Duration        `json:"elapsed"`
}

// ProgressFunc receives integer percentages in [0, 100].
type ProgressFunc func(percent int)

// MediaProcessor produces the audio the recognizer and tagger consume.
type MediaProcessor interface {
	Normalize(ctx context.Context, path, workDir string) (string, error)
	Slice(ctx context.Context, path string, start, end float64, workDir string) (string, error)
}

// Pipeline orchestrates one file at a time. It holds no per-run state and
// may be shared by concurrent callers.
type Pipeline struct {
	supported    []string
	validModels  []string
	defaultModel string
	device       string
	scratchDir   string

	media   MediaProcessor
	loader  recognize.Loader
	taggers diarize.Factory

	logger      *slog.Logger
	instruments *telemetry.Instruments
	now         func() time.Time
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInstruments records run outcomes on inst.
func WithInstruments(inst *telemetry.Instruments) Option {
	return func(p *Pipeline) { p.instruments = inst }
}

// New wires a pipeline from configuration and its collaborators.
func New(cfg config.Config, mp MediaProcessor, loader recognize.Loader, taggers diarize.Factory, opts ...Option) *Pipeline {
	if taggers == nil {
		taggers = func() diarize.Tagger { return diarize.NewRandomTagger() }
	}
	p := &Pipeline{
		supported:    config.NormalizeExtensions(cfg.SupportedExtensions),
		validModels:  append([]string(nil), cfg.ValidModels...),
		defaultModel: cfg.DefaultModel,
		device:       cfg.Device,
		scratchDir:   cfg.ScratchDir,
		media:        mp,
		loader:       loader,
		taggers:      taggers,
		logger:       slog.Default(),
		now:          time.Now,
		mkdirTemp:    os.MkdirTemp,
		removeAll:    os.RemoveAll,
		stat:         os.Stat,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Supports reports whether path carries a supported media extension.
func (p *Pipeline) Supports(path string) bool {
	return lo.Contains(p.supported, strings.ToLower(filepath.Ext(path)))
}

// Run executes the full pipeline for req. Progress is reported in
// non-decreasing order and reaches ProgressDone only on success. Every
// temporary file created by the run is removed before Run returns.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress ProgressFunc) (res Result, err error) {
	started := p.now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &PipelineError{
				Kind:    KindUnknown,
				Path:    req.InputPath,
				Stage:   "running",
				Message: fmt.Sprintf("unexpected failure: %v", r),
			}
		}
		p.finish(ctx, req, started, err)
	}()

	res, err = p.run(ctx, req, &progressTracker{fn: onProgress})
	if err == nil {
		res.Elapsed = p.now().Sub(started)
	}
	return res, err
}

// Update is one message on the channel returned by Start.
type Update struct {
	Progress int
	Done     bool
	Result   Result
	Err      error
}

// Start runs req in a new goroutine. The channel carries progress updates
// followed by exactly one Done update, then closes.
func (p *Pipeline) Start(ctx context.Context, req Request) <-chan Update {
	// Progress has a bounded number of checkpoints so the send below never blocks.
	updates := make(chan Update, 8)
	go func() {
		defer close(updates)
		res, err := p.Run(ctx, req, func(percent int) {
			updates <- Update{Progress: percent}
		})
		updates <- Update{Done: true, Result: res, Err: err}
	}()
	return updates
}

func (p *Pipeline) run(ctx context.Context, req Request, progress *progressTracker) (Result, error) {
	path := strings.TrimSpace(req.InputPath)
	if path == "" {
		return Result{}, p.fail(req, StageValidating, KindUnsupportedFormat, "input media path is required", nil)
	}
	if !p.Supports(path) {
		msg := fmt.Sprintf("unsupported file format %q", filepath.Ext(path))
		return Result{}, p.fail(req, StageValidating, KindUnsupportedFormat, msg, nil)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, p.fail(req, StageValidating, KindCancelled, "cancelled", err)
	}
	progress.report(ProgressStarted)

	if _, err := p.stat(path); err != nil {
		msg := fmt.Sprintf("cannot access input media: %s", path)
		return Result{}, p.fail(req, StageNormalizing, KindExtraction, msg, err)
	}

	workDir, err := p.mkdirTemp(p.scratchDir, "transcribe-*")
	if err != nil {
		return Result{}, p.fail(req, StageNormalizing, KindUnknown, "failed to create temporary workspace", err)
	}
	defer func() {
		if err := p.removeAll(workDir); err != nil {
			p.logger.Warn("temporary workspace cleanup failed",
				slog.String("path", path),
				slog.String("dir", workDir),
				slog.String("error", err.Error()))
		}
	}()

	audioPath, err := p.media.Normalize(ctx, path, workDir)
	if err != nil {
		return Result{}, p.fail(req, StageNormalizing, KindExtraction, "audio extraction failed", err)
	}
	progress.report(ProgressExtracted)

	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = p.defaultModel
	}
	if !lo.Contains(p.validModels, modelID) {
		msg := fmt.Sprintf("invalid model %q", modelID)
		return Result{}, p.fail(req, StageLoading, KindInvalidModel, msg, recognize.ErrInvalidModel)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, p.fail(req, StageLoading, KindCancelled, "cancelled", err)
	}

	device := strings.TrimSpace(req.Device)
	if device == "" {
		device = p.device
	}
	model, err := p.loader.Load(ctx, modelID, device)
	if err != nil {
		kind := KindModelLoad
		if errors.Is(err, recognize.ErrInvalidModel) {
			kind = KindInvalidModel
		}
		return Result{}, p.fail(req, StageLoading, kind, err.Error(), err)
	}
	progress.report(ProgressLoaded)

	segments, err := model.Transcribe(ctx, audioPath, recognize.Options{
		Language: req.Language,
		Mode:     req.Mode(),
		WorkDir:  workDir,
	})
	if err != nil {
		return Result{}, p.fail(req, StageRecognizing, KindRecognition, "speech recognition failed", err)
	}
	progress.report(ProgressRecognize)

	var labels []string
	if req.Diarize {
		labels, err = p.diarize(ctx, audioPath, segments, workDir)
		if err != nil {
			kind := KindOf(err)
			if kind == KindModelLoad || kind == KindInvalidModel {
				kind = KindUnknown
			}
			return Result{}, p.fail(req, StageDiarizing, kind, "speaker tagging failed", err)
		}
		progress.report(ProgressDiarized)
	}

	text, err := transcript.Assemble(segments, labels)
	if err != nil {
		return Result{}, p.fail(req, StageAssembling, KindUnknown, "transcript assembly failed", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, p.fail(req, StageAssembling, KindCancelled, "cancelled", err)
	}
	progress.report(ProgressDone)

	return Result{
		InputPath: path,
		Mode:      req.Mode(),
		Model:     modelID,
		Text:      text,
		Segments:  segments,
		Labels:    labels,
	}, nil
}

// diarize slices every segment out of audioPath and tags it. Each slice is
// deleted as soon as it has been tagged. Any failure aborts the file.
func (p *Pipeline) diarize(ctx context.Context, audioPath string, segments []transcript.Segment, workDir string) ([]string, error) {
	tagger := p.taggers()
	labels := make([]string, 0, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, end := sliceRange(seg)
		slicePath, err := p.media.Slice(ctx, audioPath, start, end, workDir)
		if err != nil {
			return nil, fmt.Errorf("slice segment %d: %w", i, err)
		}
		label, err := tagger.Tag(ctx, slicePath)
		if rmErr := p.removeAll(slicePath); rmErr != nil {
			p.logger.Warn("segment slice cleanup failed",
				slog.String("slice", slicePath),
				slog.String("error", rmErr.Error()))
		}
		if err != nil {
			return nil, fmt.Errorf("tag segment %d: %w", i, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// minSliceSeconds is the shortest span cut for tagging. Recognizers emit
// zero-length segments at their timestamp granularity.
const minSliceSeconds = 0.1

// sliceRange returns the span to cut for seg, widening empty or inverted
// spans to minSliceSeconds.
func sliceRange(seg transcript.Segment) (float64, float64) {
	start := math.Max(seg.Start, 0)
	end := seg.End
	if end-start < minSliceSeconds {
		end = start + minSliceSeconds
	}
	return start, end
}

// fail builds a PipelineError, promoting context errors to KindCancelled.
func (p *Pipeline) fail(req Request, stage string, kind ErrorKind, message string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCancelled
		message = "cancelled"
	} else if err != nil && message != err.Error() {
		message = fmt.Sprintf("%s: %v", message, err)
	}

	pe := &PipelineError{
		Kind:    kind,
		Path:    req.InputPath,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
	var extractErr *media.ExtractionError
	if errors.As(err, &extractErr) {
		pe.CommandLog = extractErr.CommandLog
	}
	return pe
}

func (p *Pipeline) finish(ctx context.Context, req Request, started time.Time, err error) {
	elapsed := p.now().Sub(started)
	mode := string(req.Mode())
	if err == nil {
		p.logger.Info("transcription finished",
			slog.String("path", req.InputPath),
			slog.String("mode", mode),
			slog.Duration("elapsed", elapsed))
		p.instruments.PipelineRun(ctx, mode, "success", elapsed)
		return
	}

	kind := KindOf(err)
	attrs := []any{
		slog.String("path", req.InputPath),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stage", pe.Stage))
		if pe.CommandLog.Command != "" {
			attrs = append(attrs, slog.String("stderr", pe.CommandLog.Stderr))
		}
	}
	if kind == KindCancelled {
		p.logger.Info("transcription cancelled", attrs...)
	} else {
		p.logger.Error("transcription failed", attrs...)
	}
	// Detach from ctx so cancelled runs are still counted.
	p.instruments.PipelineRun(context.WithoutCancel(ctx), mode, string(kind), elapsed)
}

type progressTracker struct {
	fn   ProgressFunc
	last int
}

func (t *progressTracker) report(percent int) {
	if t.fn == nil || percent <= t.last {
		return
	}
	t.last = percent
	t.fn(percent)
}
