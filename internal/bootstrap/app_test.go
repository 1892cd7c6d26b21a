package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"multi-transcriber/internal/command"
	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/history"
	"multi-transcriber/internal/jobs"
	"multi-transcriber/internal/registry"
	"multi-transcriber/internal/transcribe"
)

// fakeStore keeps the last saved settings in memory.
type fakeStore struct {
	mu       sync.Mutex
	settings domain.Settings
	saves    int
}

func (s *fakeStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *fakeStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saves++
	return nil
}

// fakePipeline allows injecting custom run behavior per test.
type fakePipeline struct {
	run func(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

func (p *fakePipeline) Run(ctx context.Context, req transcribe.Request, onProgress transcribe.ProgressFunc) (transcribe.Result, error) {
	if onProgress != nil {
		onProgress(transcribe.ProgressStarted)
	}
	if p.run == nil {
		return transcribe.Result{InputPath: req.InputPath, Mode: req.Mode()}, nil
	}
	return p.run(ctx, req)
}

func (p *fakePipeline) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav") || strings.EqualFold(filepath.Ext(path), ".mp4")
}

type fakeDownloader struct {
	path string
	err  error
}

func (d *fakeDownloader) Download(ctx context.Context, rawURL string, progress func(float64)) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	progress(100)
	return d.path, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
}

func (h *fakeHistory) Append(_ context.Context, r history.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *fakeHistory) Latest(_ context.Context, path string, mode domain.Mode) (history.Record, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.records) - 1; i >= 0; i-- {
		r := h.records[i]
		if r.Path == path && r.Mode == mode && r.Status == history.StatusDone {
			return r, true, nil
		}
	}
	return history.Record{}, false, nil
}

func (h *fakeHistory) List(_ context.Context, path string, limit int) ([]history.Record, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []history.Record
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		if h.records[i].Path == path {
			out = append(out, h.records[i])
		}
	}
	return out, nil
}

func (h *fakeHistory) all() []history.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]history.Record(nil), h.records...)
}

func newTestApp(t *testing.T, pipeline pipelineRunner) (*App, *fakeHistory) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	runs := &fakeHistory{}
	app := &App{
		Config: cfg,
		Settings: domain.Settings{
			Model:       cfg.DefaultModel,
			Device:      "cpu",
			Language:    "auto",
			Diarization: false,
			OutputDir:   t.TempDir(),
		},
		Store:    &fakeStore{},
		Jobs:     jobs.NewManager(),
		Pipeline: pipeline,
		History:  runs,
		events:   jobs.NewEventBus(100),
	}
	app.Registry = registry.New(app.onFileChanged)
	return app, runs
}

func mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func waitForStatus(t *testing.T, app *App, kind domain.JobKind, want domain.JobStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.CurrentJob(kind).Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s status = %s, want %s", kind, app.CurrentJob(kind).Status, want)
}

func eventsOfType(app *App, typ jobs.EventType) []jobs.Event {
	var out []jobs.Event
	for _, e := range app.JobEvents(0) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// TestStartTranscriptionEnforcesSingleRunningJob checks single-job guard and
// that the slot stays busy until the cancelled job finishes.
func TestStartTranscriptionEnforcesSingleRunningJob(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		<-ctx.Done()
		return transcribe.Result{}, &transcribe.PipelineError{Kind: transcribe.KindCancelled, Path: req.InputPath, Message: "cancelled", Err: ctx.Err()}
	}})
	first := mediaFile(t, "a.wav")

	if _, err := app.StartTranscription(first, false); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := app.StartTranscription(mediaFile(t, "b.wav"), false); !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		t.Fatalf("second start err = %v, want ErrJobAlreadyRunning", err)
	}
	if _, err := app.RunBatch(); err == nil {
		t.Fatal("batch should not start while a transcription runs")
	}

	if err := app.CancelTranscription(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitForStatus(t, app, domain.JobKindTranscription, domain.JobStatusCancelled)

	entry, ok := app.Registry.Find(first)
	if !ok || entry.Status != domain.FileStatusError || entry.Message != "Cancelled" {
		t.Fatalf("entry = %+v", entry)
	}
}

// TestStartTranscriptionSuccessRecordsResult checks registry, events,
// cached transcript, and history after a successful run.
func TestStartTranscriptionSuccessRecordsResult(t *testing.T) {
	app, runs := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		return transcribe.Result{InputPath: req.InputPath, Mode: req.Mode(), Model: req.Model, Text: "hola"}, nil
	}})
	path := mediaFile(t, "talk.wav")

	if _, err := app.StartTranscription(path, true); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForStatus(t, app, domain.JobKindTranscription, domain.JobStatusDone)

	entry, _ := app.Registry.Find(path)
	if entry.Status != domain.FileStatusDone {
		t.Fatalf("status = %s, want done", entry.Status)
	}
	results := eventsOfType(app, jobs.EventTypeResult)
	if len(results) != 1 || results[0].Text != "hola" || results[0].Mode != domain.ModeTranslate {
		t.Fatalf("result events = %+v", results)
	}
	if len(eventsOfType(app, jobs.EventTypeProgress)) == 0 {
		t.Fatal("expected progress events")
	}

	text, err := app.TranscriptFor(path, true)
	if err != nil || text != "hola" {
		t.Fatalf("TranscriptFor = %q, %v", text, err)
	}
	if text, _ := app.TranscriptFor(path, false); text != "" {
		t.Fatalf("transcription slot should be empty, got %q", text)
	}

	recs := runs.all()
	if len(recs) != 1 || recs[0].Status != history.StatusDone || recs[0].Mode != domain.ModeTranslate {
		t.Fatalf("history = %+v", recs)
	}
}

// TestStartTranscriptionFailurePublishesCommand checks that failure events
// carry the error kind and the failed command.
func TestStartTranscriptionFailurePublishesCommand(t *testing.T) {
	app, runs := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		return transcribe.Result{}, &transcribe.PipelineError{
			Kind:       transcribe.KindExtraction,
			Path:       req.InputPath,
			Stage:      transcribe.StageNormalizing,
			Message:    "ffmpeg failed",
			CommandLog: command.Log{Command: "ffmpeg -i in.mp4", ExitCode: 1, Stderr: "bad input"},
		}
	}})
	path := mediaFile(t, "clip.mp4")

	if _, err := app.StartTranscription(path, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForStatus(t, app, domain.JobKindTranscription, domain.JobStatusFailed)

	errs := eventsOfType(app, jobs.EventTypeError)
	if len(errs) != 1 {
		t.Fatalf("error events = %+v", errs)
	}
	got := errs[0]
	if got.ErrorKind != string(transcribe.KindExtraction) || got.Command != "ffmpeg -i in.mp4" || got.ExitCode != 1 || got.Stderr != "bad input" {
		t.Fatalf("error event = %+v", got)
	}

	entry, _ := app.Registry.Find(path)
	if entry.Status != domain.FileStatusError || !strings.HasPrefix(entry.Message, "Error: ") {
		t.Fatalf("entry = %+v", entry)
	}
	if recs := runs.all(); len(recs) != 1 || recs[0].Status != history.StatusError {
		t.Fatalf("history = %+v", recs)
	}
}

// TestRunBatchDisabled checks the config gate.
func TestRunBatchDisabled(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	app.Config.BatchProcessing = false

	if _, err := app.RunBatch(); !errors.Is(err, ErrBatchDisabled) {
		t.Fatalf("err = %v, want ErrBatchDisabled", err)
	}
}

// TestRunBatchProcessesPendingFiles checks that a batch continues past a
// failing file and marks each file.
func TestRunBatchProcessesPendingFiles(t *testing.T) {
	app, runs := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		if strings.Contains(req.InputPath, "bad") {
			return transcribe.Result{}, &transcribe.PipelineError{Kind: transcribe.KindRecognition, Path: req.InputPath, Message: "boom"}
		}
		return transcribe.Result{InputPath: req.InputPath, Mode: req.Mode(), Text: "ok"}, nil
	}})
	app.Config.BatchProcessing = true
	added := app.AddFiles([]string{mediaFile(t, "bad.wav"), mediaFile(t, "good.wav")})
	if len(added) != 2 {
		t.Fatalf("added = %+v", added)
	}

	if _, err := app.RunBatch(); err != nil {
		t.Fatalf("run batch: %v", err)
	}
	waitForStatus(t, app, domain.JobKindTranscription, domain.JobStatusDone)

	files := app.Files()
	if files[0].Status != domain.FileStatusError || files[1].Status != domain.FileStatusDone {
		t.Fatalf("files = %+v", files)
	}
	if len(runs.all()) != 2 {
		t.Fatalf("history = %+v", runs.all())
	}
	if text, _ := app.TranscriptFor(files[1].Path, false); text != "ok" {
		t.Fatalf("TranscriptFor = %q", text)
	}
}

// TestAddFilesSkipsUnsupportedAndDuplicates checks registry idempotence.
func TestAddFilesSkipsUnsupportedAndDuplicates(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	wav := mediaFile(t, "a.WAV")

	got := app.AddFiles([]string{wav, mediaFile(t, "notes.txt"), wav, "  "})
	if len(got) != 2 {
		t.Fatalf("AddFiles returned %d entries, want 2", len(got))
	}
	if n := len(app.Files()); n != 1 {
		t.Fatalf("registry has %d files, want 1", n)
	}
}

// TestDownloadURL checks URL validation and registration of the result.
func TestDownloadURL(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	downloaded := mediaFile(t, "video.mp4")
	app.Downloader = &fakeDownloader{path: downloaded}

	if _, err := app.DownloadURL("not a url"); err == nil {
		t.Fatal("expected invalid URL error")
	}

	if _, err := app.DownloadURL("https://example.com/watch?v=1"); err != nil {
		t.Fatalf("download: %v", err)
	}
	waitForStatus(t, app, domain.JobKindDownload, domain.JobStatusDone)

	entry, ok := app.Registry.Find(downloaded)
	if !ok || entry.Status != domain.FileStatusNotStarted {
		t.Fatalf("entry = %+v, ok = %v", entry, ok)
	}
}

// TestDownloadURLFailure checks that a failed download marks the job failed.
func TestDownloadURLFailure(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	app.Downloader = &fakeDownloader{err: errors.New("network down")}

	if _, err := app.DownloadURL("https://example.com/x"); err != nil {
		t.Fatalf("download: %v", err)
	}
	waitForStatus(t, app, domain.JobKindDownload, domain.JobStatusFailed)
	if app.Registry.Len() != 0 {
		t.Fatal("failed download should not register a file")
	}
}

// TestSaveSettingsRejectsUnknownModel checks allow-list validation.
func TestSaveSettingsRejectsUnknownModel(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})

	if _, err := app.SaveSettings(domain.Settings{Model: "gigantic"}); err == nil {
		t.Fatal("expected invalid model error")
	}

	saved, err := app.SaveSettings(domain.Settings{Model: " small ", OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Model != "small" || saved.Language != "auto" || saved.Device != app.Config.Device {
		t.Fatalf("saved = %+v", saved)
	}
}

// TestExportTranscriptWritesFile checks export naming per mode.
func TestExportTranscriptWritesFile(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	path := mediaFile(t, "meeting.mp4")

	if _, err := app.ExportTranscript(path, false); err == nil {
		t.Fatal("expected error without a transcript")
	}

	app.recordOutcome(path, domain.ModeTranslate, "base", time.Now(), transcribe.Result{Text: "hello"}, nil)
	target, err := app.ExportTranscript(path, true)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if filepath.Base(target) != "meeting.translation.txt" {
		t.Fatalf("target = %s", target)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "hello\n" {
		t.Fatalf("content = %q, %v", data, err)
	}
}

// TestInstallOrFixOutputDirCreatesDirectory checks the directory fix.
func TestInstallOrFixOutputDirCreatesDirectory(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	app.Settings.OutputDir = filepath.Join(t.TempDir(), "nested", "out")

	if _, err := app.InstallOrFixDiagnostic("output_dir"); err != nil {
		t.Fatalf("fix: %v", err)
	}
	if info, err := os.Stat(app.Settings.OutputDir); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
	if _, err := app.InstallOrFixDiagnostic("bogus"); err == nil {
		t.Fatal("expected unsupported item error")
	}
}

// TestResourcePathUsesEnvDir checks the resource override directory.
func TestResourcePathUsesEnvDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "resources"), 0o755); err != nil {
		t.Fatal(err)
	}
	logo := filepath.Join(dir, logoResource)
	if err := os.WriteFile(logo, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRANSCRIBER_RESOURCE_DIR", dir)

	got, err := ResourcePath(logoResource)
	if err != nil || got != logo {
		t.Fatalf("ResourcePath = %q, %v", got, err)
	}
	if _, err := ResourcePath("resources/missing.png"); err == nil {
		t.Fatal("expected missing resource error")
	}
}

// TestDownloadURLToFileReportsProgress checks streaming download and
// temp-file handling.
func TestDownloadURLToFileReportsProgress(t *testing.T) {
	body := strings.Repeat("x", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "models", "ggml-tiny.bin")
	var last float64
	if err := downloadURLToFile(context.Background(), dest, server.URL+"/model", func(p float64) { last = p }); err != nil {
		t.Fatalf("download: %v", err)
	}
	if last != 100 {
		t.Fatalf("last progress = %v, want 100", last)
	}
	if data, err := os.ReadFile(dest); err != nil || len(data) != len(body) {
		t.Fatalf("downloaded %d bytes, err %v", len(data), err)
	}

	missing := filepath.Join(t.TempDir(), "missing.bin")
	if err := downloadURLToFile(context.Background(), missing, server.URL+"/missing", nil); err == nil {
		t.Fatal("expected HTTP status error")
	}
	if _, err := os.Stat(missing + ".download"); !os.IsNotExist(err) {
		t.Fatal("temp file should not remain after failure")
	}
}

// TestTranscriptFileName checks fallback naming for unusual inputs.
func TestTranscriptFileName(t *testing.T) {
	cases := map[string]string{
		"/tmp/a/talk.mp3": "talk.txt",
		"/tmp/.mp3":       "transcript.txt",
	}
	for in, want := range cases {
		if got := transcriptFileName(in, domain.ModeTranscribe); got != want {
			t.Errorf("transcriptFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRunHistoryListsNewestFirst checks per-file history lookup.
func TestRunHistoryListsNewestFirst(t *testing.T) {
	app, _ := newTestApp(t, &fakePipeline{})
	path := mediaFile(t, "talk.wav")
	other := mediaFile(t, "other.wav")

	app.recordOutcome(path, domain.ModeTranscribe, "base", time.Now(), transcribe.Result{Text: "first"}, nil)
	app.recordOutcome(other, domain.ModeTranscribe, "base", time.Now(), transcribe.Result{Text: "elsewhere"}, nil)
	app.recordOutcome(path, domain.ModeTranslate, "base", time.Now(), transcribe.Result{}, errors.New("boom"))

	records, err := app.RunHistory(path, 10)
	if err != nil {
		t.Fatalf("RunHistory() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2", records)
	}
	if records[0].Status != history.StatusError || records[1].Text != "first" {
		t.Fatalf("records not newest first: %+v", records)
	}
}

// TestClearFilesRefusedWhileRunning checks the file table is only cleared
// when no transcription is live.
func TestClearFilesRefusedWhileRunning(t *testing.T) {
	release := make(chan struct{})
	app, _ := newTestApp(t, &fakePipeline{run: func(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
		<-release
		return transcribe.Result{InputPath: req.InputPath, Mode: req.Mode()}, nil
	}})
	app.AddFiles([]string{mediaFile(t, "a.wav"), mediaFile(t, "b.wav")})

	if _, err := app.StartTranscription(app.Files()[0].Path, false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := app.ClearFiles(); !errors.Is(err, jobs.ErrJobAlreadyRunning) {
		t.Fatalf("ClearFiles() err = %v, want ErrJobAlreadyRunning", err)
	}

	close(release)
	waitForStatus(t, app, domain.JobKindTranscription, domain.JobStatusDone)
	n, err := app.ClearFiles()
	if err != nil || n != 2 {
		t.Fatalf("ClearFiles() = %d, %v, want 2", n, err)
	}
	if len(app.Files()) != 0 {
		t.Fatalf("files = %+v, want none", app.Files())
	}
}
