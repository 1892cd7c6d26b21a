package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"multi-transcriber/internal/batch"
	"multi-transcriber/internal/config"
	"multi-transcriber/internal/diagnostics"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/download"
	"multi-transcriber/internal/history"
	"multi-transcriber/internal/jobs"
	"multi-transcriber/internal/registry"
	"multi-transcriber/internal/telemetry"
	"multi-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// ErrBatchDisabled is returned by RunBatch when batch_processing is off.
var ErrBatchDisabled = errors.New("batch processing is disabled in the configuration")

const shutdownGrace = 10 * time.Second

// App wires configuration, jobs, pipeline, and UI runtime callbacks.
type App struct {
	Config      config.Config
	Settings    domain.Settings
	Store       config.Store
	Jobs        *jobs.Manager
	Registry    *registry.Registry
	Pipeline    pipelineRunner
	Downloader  urlDownloader
	History     historyStore
	Logger      *slog.Logger
	Instruments *telemetry.Instruments
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	closers     []func(context.Context) error

	mu         sync.Mutex
	events     *jobs.EventBus
	runtimeCtx context.Context
	results    map[resultKey]string
	workers    sync.WaitGroup
}

type resultKey struct {
	path string
	mode domain.Mode
}

// pipelineRunner isolates the transcription pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req transcribe.Request, onProgress transcribe.ProgressFunc) (transcribe.Result, error)
	Supports(path string) bool
}

type urlDownloader interface {
	Download(ctx context.Context, rawURL string, progress func(float64)) (string, error)
}

type historyStore interface {
	Append(ctx context.Context, r history.Record) error
	Latest(ctx context.Context, path string, mode domain.Mode) (history.Record, bool, error)
	List(ctx context.Context, path string, limit int) ([]history.Record, error)
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Multi Transcriber",
		Width:       1280,
		Height:      820,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown:  a.Shutdown,
		Bind:        []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// Shutdown cancels live jobs, waits briefly for their cleanup, persists
// settings, and releases resources.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = nil
	settings := a.Settings
	a.mu.Unlock()

	a.Jobs.CancelAll()
	done := make(chan struct{})
	go func() {
		a.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		a.logger().Warn("jobs still running at shutdown")
	}

	if a.Store != nil {
		if err := a.Store.Save(settings); err != nil {
			a.logger().Error("save settings on shutdown failed", slog.String("error", err.Error()))
		}
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](closeCtx); err != nil {
			a.logger().Warn("shutdown close failed", slog.String("error", err.Error()))
		}
	}
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reruns dependency checks against current settings.
func (a *App) RefreshDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	settings := a.Settings
	a.mu.Unlock()
	return a.refreshDiagnostics(settings)
}

func (a *App) refreshDiagnostics(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(a.Config, settings)
	}
	return a.Diagnostics
}

// GetSettings returns the active user preferences.
func (a *App) GetSettings() domain.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings
}

// SaveSettings validates and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized, err := a.normalizeSettings(settings)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	a.mu.Unlock()
	a.refreshDiagnostics(normalized)

	return normalized, nil
}

// ValidModels lists the model identifiers offered in settings.
func (a *App) ValidModels() []string {
	return append([]string(nil), a.Config.ValidModels...)
}

// BatchEnabled reports whether the batch button should be shown.
func (a *App) BatchEnabled() bool {
	return a.Config.BatchProcessing
}

// PickInputFiles opens a native multi-select dialog and adds the chosen
// files to the registry.
func (a *App) PickInputFiles() ([]domain.FileEntry, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media files",
		Filters: mediaDialogFilter(a.Config.SupportedExtensions),
	})
	if err != nil {
		return nil, err
	}
	return a.AddFiles(paths), nil
}

// PickOutputDirectory opens a native directory picker for transcript exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// AddFiles registers supported files and returns their entries. Dropped or
// picked files with an unsupported extension are skipped.
func (a *App) AddFiles(paths []string) []domain.FileEntry {
	out := make([]domain.FileEntry, 0, len(paths))
	for _, raw := range paths {
		path := strings.TrimSpace(raw)
		if path == "" {
			continue
		}
		if !a.Pipeline.Supports(path) {
			a.logger().Warn("skipping unsupported file", slog.String("path", path))
			continue
		}
		entry, _ := a.Registry.Add(path)
		out = append(out, entry)
	}
	return out
}

// Files returns every registered file in insertion order.
func (a *App) Files() []domain.FileEntry {
	return a.Registry.List()
}

// ClearFiles empties the file table and returns how many entries were
// removed. It is refused while a transcription or batch is running.
func (a *App) ClearFiles() (int, error) {
	if a.Jobs.IsRunning(domain.JobKindTranscription) {
		return 0, jobs.ErrJobAlreadyRunning
	}
	n := a.Registry.Len()
	a.Registry.Clear()
	return n, nil
}

// StartTranscription runs the pipeline for path in the background. Only
// one transcription or batch may be live at a time.
func (a *App) StartTranscription(path string, translate bool) (domain.Job, error) {
	settings := a.GetSettings()
	entry, _ := a.Registry.Add(path)

	job, ctx, err := a.Jobs.Start(a.baseContext(), domain.JobKindTranscription, entry.Path)
	if err != nil {
		return domain.Job{}, err
	}
	if a.Store != nil {
		if err := a.Store.Save(settings); err != nil {
			a.logger().Warn("save settings failed", slog.String("error", err.Error()))
		}
	}

	req := transcribe.Request{
		InputPath: entry.Path,
		Language:  settings.Language,
		Translate: translate,
		Diarize:   settings.Diarization,
		Model:     settings.Model,
		Device:    settings.Device,
	}
	a.setFileStatus(entry.Path, domain.FileStatusInProgress, "")
	a.publishStatus(job, domain.JobStatusRunning, "Transcription started")

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.runTranscriptionJob(ctx, job, req)
	}()
	return job, nil
}

// CancelTranscription cancels the live transcription or batch, if any.
func (a *App) CancelTranscription() error {
	return a.Jobs.Cancel(domain.JobKindTranscription)
}

// RunBatch transcribes every not_started file sequentially in the
// background with the current settings.
func (a *App) RunBatch() (domain.Job, error) {
	if !a.Config.BatchProcessing {
		return domain.Job{}, ErrBatchDisabled
	}
	settings := a.GetSettings()

	job, ctx, err := a.Jobs.Start(a.baseContext(), domain.JobKindTranscription, "batch")
	if err != nil {
		return domain.Job{}, err
	}
	a.publishStatus(job, domain.JobStatusRunning, "Batch started")

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.runBatchJob(ctx, job, settings)
	}()
	return job, nil
}

// DownloadURL fetches rawURL in the background and registers the file.
func (a *App) DownloadURL(rawURL string) (domain.Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !download.IsValidURL(rawURL) {
		return domain.Job{}, fmt.Errorf("invalid URL: %q", rawURL)
	}

	job, ctx, err := a.Jobs.Start(a.baseContext(), domain.JobKindDownload, rawURL)
	if err != nil {
		return domain.Job{}, err
	}
	a.publishStatus(job, domain.JobStatusRunning, "Download started")

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		a.runDownloadJob(ctx, job, rawURL)
	}()
	return job, nil
}

// CancelDownload cancels the live download, if any.
func (a *App) CancelDownload() error {
	return a.Jobs.Cancel(domain.JobKindDownload)
}

// CurrentJob returns the latest job of kind ("transcription" or "download").
func (a *App) CurrentJob(kind domain.JobKind) domain.Job {
	return a.Jobs.Current(kind)
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// TranscriptFor returns the latest successful output for path, either the
// transcription or the translation.
func (a *App) TranscriptFor(path string, translate bool) (string, error) {
	key := resultKey{path: registry.Canonical(path), mode: modeOf(translate)}

	a.mu.Lock()
	text, ok := a.results[key]
	a.mu.Unlock()
	if ok || a.History == nil {
		return text, nil
	}

	rec, found, err := a.History.Latest(a.baseContext(), key.path, key.mode)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if !found {
		return "", nil
	}
	return rec.Text, nil
}

// RunHistory returns up to limit past runs for path, newest first.
func (a *App) RunHistory(path string, limit int) ([]history.Record, error) {
	if a.History == nil {
		return nil, nil
	}
	records, err := a.History.List(a.baseContext(), registry.Canonical(path), limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

// ExportTranscript writes the latest output for path into the configured
// output directory and returns the written file.
func (a *App) ExportTranscript(path string, translate bool) (string, error) {
	text, err := a.TranscriptFor(path, translate)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no transcript available for %s", path)
	}

	outputDir := a.GetSettings().OutputDir
	if strings.TrimSpace(outputDir) == "" {
		return "", fmt.Errorf("output directory is not configured")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	target := filepath.Join(outputDir, transcriptFileName(path, modeOf(translate)))
	if err := os.WriteFile(target, []byte(text+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return target, nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		target = a.GetSettings().OutputDir
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// LogoPath returns the bundled logo image, or "" when it is missing.
func (a *App) LogoPath() string {
	path, err := ResourcePath(logoResource)
	if err != nil {
		return ""
	}
	return path
}

// runTranscriptionJob executes the pipeline and maps its outcome to the
// registry, history, and job events.
func (a *App) runTranscriptionJob(ctx context.Context, job domain.Job, req transcribe.Request) {
	started := time.Now()
	result, err := a.Pipeline.Run(ctx, req, func(percent int) {
		a.publishEvent(jobs.Event{
			JobID:    job.ID,
			Kind:     job.Kind,
			Type:     jobs.EventTypeProgress,
			Path:     req.InputPath,
			Mode:     req.Mode(),
			Progress: float64(percent),
		})
	})

	a.recordOutcome(req.InputPath, req.Mode(), req.Model, started, result, err)
	if err != nil {
		status := jobStatusFor(err)
		a.setFileStatus(req.InputPath, domain.FileStatusError, transcribe.StatusMessage(err))
		a.publishFailure(job, req.InputPath, err)
		a.publishStatus(job, status, "Transcription "+string(status))
		_ = a.Jobs.Finish(job, status)
		return
	}

	a.setFileStatus(req.InputPath, domain.FileStatusDone, batch.DoneMessage)
	a.publishEvent(jobs.Event{
		JobID:  job.ID,
		Kind:   job.Kind,
		Type:   jobs.EventTypeResult,
		Status: domain.JobStatusDone,
		Path:   req.InputPath,
		Mode:   result.Mode,
		Text:   result.Text,
	})
	a.publishStatus(job, domain.JobStatusDone, "Transcription done")
	_ = a.Jobs.Finish(job, domain.JobStatusDone)
}

// runBatchJob transcribes every pending file. The batch occupies the
// transcription slot until the last file finishes or the job is cancelled.
func (a *App) runBatchJob(ctx context.Context, job domain.Job, settings domain.Settings) {
	runner := batch.New(a.batchTranscriber(),
		batch.WithLogger(a.logger()),
		batch.WithInstruments(a.Instruments),
		batch.WithProgress(func(path string, percent int) {
			a.publishEvent(jobs.Event{
				JobID:    job.ID,
				Kind:     job.Kind,
				Type:     jobs.EventTypeProgress,
				Path:     path,
				Progress: float64(percent),
			})
		}),
		batch.WithOutcome(func(o batch.Outcome) {
			if o.OK {
				a.publishEvent(jobs.Event{
					JobID:  job.ID,
					Kind:   job.Kind,
					Type:   jobs.EventTypeResult,
					Status: domain.JobStatusDone,
					Path:   o.Path,
					Mode:   o.Result.Mode,
					Text:   o.Result.Text,
				})
				return
			}
			a.publishEvent(jobs.Event{
				JobID:     job.ID,
				Kind:      job.Kind,
				Type:      jobs.EventTypeError,
				Status:    domain.JobStatusFailed,
				Path:      o.Path,
				Message:   o.Message,
				ErrorKind: string(o.Kind),
			})
		}),
	)

	outcomes, err := runner.Run(ctx, a.Registry, settings)
	if err != nil {
		a.publishStatus(job, domain.JobStatusCancelled, "Batch cancelled")
		_ = a.Jobs.Finish(job, domain.JobStatusCancelled)
		return
	}

	failed := lo.CountBy(lo.Values(outcomes), func(o batch.Outcome) bool { return !o.OK })
	a.publishStatus(job, domain.JobStatusDone,
		fmt.Sprintf("Batch done: %d file(s), %d failed", len(outcomes), failed))
	_ = a.Jobs.Finish(job, domain.JobStatusDone)
}

// batchTranscriber wraps the pipeline so batch runs land in history and
// the results cache like single runs do.
func (a *App) batchTranscriber() batch.Transcriber {
	return recordingTranscriber{app: a}
}

type recordingTranscriber struct {
	app *App
}

func (r recordingTranscriber) Run(ctx context.Context, req transcribe.Request, onProgress transcribe.ProgressFunc) (transcribe.Result, error) {
	started := time.Now()
	result, err := r.app.Pipeline.Run(ctx, req, onProgress)
	r.app.recordOutcome(req.InputPath, req.Mode(), req.Model, started, result, err)
	return result, err
}

func (a *App) runDownloadJob(ctx context.Context, job domain.Job, rawURL string) {
	path, err := a.Downloader.Download(ctx, rawURL, func(pct float64) {
		a.publishEvent(jobs.Event{
			JobID:    job.ID,
			Kind:     job.Kind,
			Type:     jobs.EventTypeProgress,
			Progress: pct,
		})
	})
	if err != nil {
		status := jobStatusFor(err)
		a.publishFailure(job, "", err)
		a.publishStatus(job, status, "Download "+string(status))
		_ = a.Jobs.Finish(job, status)
		return
	}

	entry, _ := a.Registry.Add(path)
	a.publishEvent(jobs.Event{
		JobID:   job.ID,
		Kind:    job.Kind,
		Type:    jobs.EventTypeResult,
		Status:  domain.JobStatusDone,
		Path:    entry.Path,
		Message: "Downloaded " + entry.Name,
	})
	a.publishStatus(job, domain.JobStatusDone, "Download done")
	_ = a.Jobs.Finish(job, domain.JobStatusDone)
}

// recordOutcome keeps the latest text per path and mode and appends the
// run to history.
func (a *App) recordOutcome(path string, mode domain.Mode, model string, started time.Time, result transcribe.Result, err error) {
	rec := history.Record{
		Path:       path,
		Mode:       mode,
		Model:      lo.Ternary(result.Model != "", result.Model, model),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		rec.Status = history.StatusError
		rec.Message = transcribe.StatusMessage(err)
	} else {
		rec.Status = history.StatusDone
		rec.Text = result.Text

		a.mu.Lock()
		if a.results == nil {
			a.results = make(map[resultKey]string)
		}
		a.results[resultKey{path: path, mode: mode}] = result.Text
		a.mu.Unlock()
	}

	if a.History == nil {
		return
	}
	if err := a.History.Append(context.WithoutCancel(a.baseContext()), rec); err != nil {
		a.logger().Warn("history append failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (a *App) setFileStatus(path string, status domain.FileStatus, message string) {
	if _, err := a.Registry.SetStatus(path, status, message); err != nil {
		a.logger().Warn("file status update failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// onFileChanged forwards registry changes to the UI.
func (a *App) onFileChanged(entry domain.FileEntry) {
	a.publishEvent(jobs.Event{
		Type:       jobs.EventTypeFile,
		Path:       entry.Path,
		FileStatus: entry.Status,
		Message:    entry.Message,
	})
}

// publishFailure sends an error event carrying the failed command, if any.
func (a *App) publishFailure(job domain.Job, path string, err error) {
	event := jobs.Event{
		JobID:     job.ID,
		Kind:      job.Kind,
		Type:      jobs.EventTypeError,
		Status:    jobStatusFor(err),
		Path:      path,
		Message:   transcribe.StatusMessage(err),
		ErrorKind: string(transcribe.KindOf(err)),
	}
	var pipelineErr *transcribe.PipelineError
	if errors.As(err, &pipelineErr) && pipelineErr.CommandLog.Command != "" {
		event.Command = pipelineErr.CommandLog.Command
		event.ExitCode = pipelineErr.CommandLog.ExitCode
		event.Stderr = pipelineErr.CommandLog.Stderr
	}
	a.publishEvent(event)
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(job domain.Job, status domain.JobStatus, message string) {
	a.publishEvent(jobs.Event{
		JobID:   job.ID,
		Kind:    job.Kind,
		Type:    jobs.EventTypeStatus,
		Status:  status,
		Path:    lo.Ternary(job.Kind == domain.JobKindTranscription && job.Target != "batch", job.Target, ""),
		Message: message,
	})
}

// publishEvent stores event history; subscribers push it to the UI.
func (a *App) publishEvent(event jobs.Event) {
	if a.events == nil {
		return
	}
	a.events.Publish(event)
}

// emitRuntimeEvent forwards a published event to the Wails frontend.
func (a *App) emitRuntimeEvent(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", event)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

func (a *App) baseContext() context.Context {
	return context.Background()
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// normalizeSettings trims user input and rejects models outside the allow-list.
func (a *App) normalizeSettings(settings domain.Settings) (domain.Settings, error) {
	settings.Model = strings.TrimSpace(settings.Model)
	settings.Device = strings.TrimSpace(settings.Device)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	if settings.Language == "" {
		settings.Language = "auto"
	}
	if settings.Device == "" {
		settings.Device = a.Config.Device
	}
	if settings.Model == "" {
		settings.Model = a.Config.DefaultModel
	}
	if !a.Config.IsValidModel(settings.Model) {
		return domain.Settings{}, fmt.Errorf("invalid model %q", settings.Model)
	}
	return settings, nil
}

func jobStatusFor(err error) domain.JobStatus {
	if transcribe.KindOf(err) == transcribe.KindCancelled {
		return domain.JobStatusCancelled
	}
	return domain.JobStatusFailed
}

func modeOf(translate bool) domain.Mode {
	if translate {
		return domain.ModeTranslate
	}
	return domain.ModeTranscribe
}

// transcriptFileName builds the export file name from the input media name.
func transcriptFileName(inputPath string, mode domain.Mode) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "transcript"
	}
	if mode == domain.ModeTranslate {
		name += ".translation"
	}
	return name + ".txt"
}

func mediaDialogFilter(exts []string) []wailsruntime.FileFilter {
	patterns := lo.Map(exts, func(ext string, _ int) string { return "*" + ext })
	return []wailsruntime.FileFilter{
		{DisplayName: "Media files", Pattern: strings.Join(patterns, ";")},
		{DisplayName: "All files", Pattern: "*"},
	}
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
