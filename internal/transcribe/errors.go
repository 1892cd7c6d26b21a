package transcribe

import (
	"context"
	"errors"
	"fmt"

	"multi-transcriber/internal/command"
	"multi-transcriber/internal/download"
	"multi-transcriber/internal/media"
	"multi-transcriber/internal/recognize"
)

// ErrorKind classifies a failed run for status reporting.
type ErrorKind string

const (
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindInvalidModel      ErrorKind = "invalid_model"
	KindModelLoad         ErrorKind = "model_load"
	KindExtraction        ErrorKind = "extraction"
	KindRecognition       ErrorKind = "recognition"
	KindDownload          ErrorKind = "download"
	KindCancelled         ErrorKind = "cancelled"
	KindUnknown           ErrorKind = "unknown"
)

// Stage names reported in PipelineError.
const (
	StageValidating  = "validating"
	StageNormalizing = "normalizing"
	StageLoading     = "loading_model"
	StageRecognizing = "recognizing"
	StageDiarizing   = "diarizing"
	StageAssembling  = "assembling"
)

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Kind       ErrorKind   `json:"kind"`
	Path       string      `json:"path"`
	Stage      string      `json:"stage"`
	Message    string      `json:"message"`
	CommandLog command.Log `json:"commandLog"`
	Err        error       `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf classifies err. It returns "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) && pe.Kind != "" {
		return pe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	if errors.Is(err, recognize.ErrInvalidModel) {
		return KindInvalidModel
	}
	var loadErr *recognize.ModelLoadError
	if errors.As(err, &loadErr) {
		return KindModelLoad
	}
	var extractErr *media.ExtractionError
	if errors.As(err, &extractErr) {
		return KindExtraction
	}
	var dlErr *download.Error
	if errors.As(err, &dlErr) {
		return KindDownload
	}
	return KindUnknown
}

// StatusMessage renders err as the short per-file message shown next to a
// file in error state.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case KindModelLoad:
			return "Model loading error: " + pe.Message
		case KindCancelled:
			return "Cancelled"
		}
		return "Error: " + pe.Message
	}
	if KindOf(err) == KindCancelled {
		return "Cancelled"
	}
	return "Error: " + err.Error()
}
