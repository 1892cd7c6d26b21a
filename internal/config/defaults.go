package config

import (
	"os"
	"path/filepath"

	"multi-transcriber/internal/domain"
)

// DefaultSettings returns first-launch user preferences derived from cfg.
func DefaultSettings(cfg Config) domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		Model:       cfg.DefaultModel,
		Device:      cfg.Device,
		Language:    "auto",
		Diarization: true,
		OutputDir:   filepath.Join(homeDir, "Documents", "Transcripts"),
	}
}
