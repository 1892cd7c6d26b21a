package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"multi-transcriber/internal/jobs"
	"multi-transcriber/internal/recognize"
)

const modelDownloadTimeout = 2 * time.Hour

// GetModels returns the configured models with their local download state.
func (a *App) GetModels() []recognize.ModelOption {
	return recognize.Models(a.Config.ValidModels, a.Config.Recognizer.ModelDir)
}

// DownloadModel fetches the ggml weights for modelID into the model
// directory. Progress is pushed as events with the model id in Path.
func (a *App) DownloadModel(modelID string) (recognize.ModelOption, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return recognize.ModelOption{}, fmt.Errorf("model id is required")
	}
	if !a.Config.IsValidModel(id) {
		return recognize.ModelOption{}, fmt.Errorf("model %q is not in the configured list", id)
	}

	model, found := recognize.LookupModel(id)
	if !found {
		return recognize.ModelOption{}, fmt.Errorf("unknown model id: %s", id)
	}
	if strings.TrimSpace(a.Config.Recognizer.ModelDir) == "" {
		return recognize.ModelOption{}, fmt.Errorf("model directory is not configured")
	}

	dest := filepath.Join(a.Config.Recognizer.ModelDir, model.FileName)
	ctx, cancel := context.WithTimeout(a.baseContext(), modelDownloadTimeout)
	defer cancel()

	a.logger().Info("model download started", slog.String("model", id), slog.String("url", model.URL))
	err := downloadURLToFile(ctx, dest, model.URL, func(pct float64) {
		a.publishEvent(jobs.Event{
			Type:     jobs.EventTypeProgress,
			Path:     id,
			Progress: pct,
			Message:  "Downloading model " + model.Name,
		})
	})
	if err != nil {
		a.logger().Error("model download failed", slog.String("model", id), slog.String("error", err.Error()))
		return recognize.ModelOption{}, fmt.Errorf("download model %s: %w", id, err)
	}

	model.Downloaded = true
	model.LocalPath = dest
	a.RefreshDiagnostics()
	return model, nil
}
