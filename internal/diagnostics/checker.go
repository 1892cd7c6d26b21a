package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/recognize"
)

// Checker validates external tools, the selected model, and working
// directories.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	tempDir    func() string
	now        func() time.Time
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		tempDir:    os.TempDir,
		now:        time.Now,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(cfg config.Config, settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", cfg.Tools.FFmpeg, domain.DiagnosticStatusFail,
			"Install ffmpeg; video files and speaker tagging need it."),
		c.checkRecognizer(cfg),
		c.checkTool("yt-dlp", cfg.Tools.YtDlp, domain.DiagnosticStatusWarn,
			"Install yt-dlp to enable downloading media from a URL."),
		c.checkModel(cfg, settings.Model),
		c.checkWritableDir("scratch_dir", "Scratch directory", lo.Ternary(cfg.ScratchDir != "", cfg.ScratchDir, c.tempDir())),
		c.checkWritableDir("output_dir", "Output directory", settings.OutputDir),
	}

	hasFailures := lo.SomeBy(items, func(item domain.DiagnosticItem) bool {
		return item.Status == domain.DiagnosticStatusFail
	})

	return domain.DiagnosticReport{
		GeneratedAt: c.now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies a CLI executable is resolvable. missing is the status
// reported when it is not.
func (c *Checker) checkTool(id, command string, missing domain.DiagnosticStatus, hint string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "tool_" + id, Name: id}
	if strings.TrimSpace(command) == "" {
		item.Status = missing
		item.Message = fmt.Sprintf("No command configured for %s.", id)
		item.Hint = hint
		return item
	}

	path, err := c.lookPath(command)
	if err != nil {
		item.Status = missing
		item.Message = fmt.Sprintf("Tool not found in PATH: %s", command)
		item.Hint = hint
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

func (c *Checker) checkRecognizer(cfg config.Config) domain.DiagnosticItem {
	switch cfg.Recognizer.Backend {
	case "openai":
		item := domain.DiagnosticItem{ID: "recognizer", Name: "OpenAI API key"}
		if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
			item.Status = domain.DiagnosticStatusFail
			item.Message = "OpenAI backend selected but no API key is configured."
			item.Hint = "Set TRANSCRIBER_OPENAI_API_KEY or openai.api_key in the config file."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = "API key configured."
		return item
	default:
		backend, err := recognize.NewWhisperCPP(cfg.Recognizer)
		if err != nil {
			return domain.DiagnosticItem{
				ID:      "recognizer",
				Name:    "whisper.cpp",
				Status:  domain.DiagnosticStatusFail,
				Message: err.Error(),
				Hint:    "Set recognizer.command to the whisper.cpp CLI, e.g. whisper-cli.",
			}
		}
		item := c.checkTool("whisper", backend.Executable(), domain.DiagnosticStatusFail,
			"Build whisper.cpp and put whisper-cli on PATH, or set recognizer.command.")
		item.ID = "recognizer"
		item.Name = "whisper.cpp"
		return item
	}
}

// checkModel validates the selected model against the allow-list and, for
// the whisper.cpp backend, that its weights are present.
func (c *Checker) checkModel(cfg config.Config, modelID string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: "model", Name: "Model"}
	if modelID == "" {
		modelID = cfg.DefaultModel
	}

	if !cfg.IsValidModel(modelID) {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Model %q is not one of: %s", modelID, strings.Join(cfg.ValidModels, ", "))
		item.Hint = "Pick a model from the list in settings."
		return item
	}
	if cfg.Recognizer.Backend == "openai" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Model %q is served by the OpenAI API.", modelID)
		return item
	}

	entry, ok := recognize.LookupModel(modelID)
	if !ok {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("No whisper.cpp weights are known for model %q.", modelID)
		return item
	}

	path := filepath.Join(cfg.Recognizer.ModelDir, entry.FileName)
	info, err := c.stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		item.Status = domain.DiagnosticStatusFail
		if err != nil && !IsNotExist(err) {
			item.Message = fmt.Sprintf("Cannot access model file: %s", path)
		} else {
			item.Message = fmt.Sprintf("Model file missing: %s", path)
		}
		item.Hint = "Download the model from the model list or place the ggml file in the model directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Model file found: %s", path)
	return item
}

// checkWritableDir validates directory existence and write access.
func (c *Checker) checkWritableDir(id, name, dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{ID: id, Name: name}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is empty.", name)
		item.Hint = "Set a writable directory in settings."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
	tempDir func() string,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		tempDir:    tempDir,
		now:        time.Now,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
