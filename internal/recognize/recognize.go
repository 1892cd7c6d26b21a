// Package recognize is the boundary to the speech-recognition model.
package recognize

import (
	"context"
	"errors"
	"fmt"

	"multi-transcriber/internal/config"
	"multi-transcriber/internal/domain"
	"multi-transcriber/internal/transcript"
)

// ErrInvalidModel is returned for model identifiers outside the allow-list.
var ErrInvalidModel = errors.New("invalid model")

// ModelLoadError reports an allow-listed model that could not be loaded.
type ModelLoadError struct {
	ModelID string
	Device  string
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s on %s: %v", e.ModelID, e.Device, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Options selects language and task for one recognition call. An empty
// or "auto" language asks the model to detect it.
type Options struct {
	Language string
	Mode     domain.Mode
	// WorkDir holds backend scratch files. Empty means the system temp dir.
	WorkDir string
}

// Model is a loaded recognition model.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error)
}

// Loader resolves a model identifier to a usable handle for a device.
type Loader interface {
	Load(ctx context.Context, modelID, device string) (Model, error)
}

// NewLoader builds the backend selected in cfg.
func NewLoader(cfg config.Config) (Loader, error) {
	switch cfg.Recognizer.Backend {
	case "whispercpp":
		return NewWhisperCPP(cfg.Recognizer)
	case "openai":
		return NewOpenAI(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Recognizer.Backend)
	}
}

func isAutoLanguage(lang string) bool {
	return lang == "" || lang == "auto"
}
