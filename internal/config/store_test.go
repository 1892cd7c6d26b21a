package config

import (
	"os"
	"path/filepath"
	"testing"

	"multi-transcriber/internal/domain"
)

// TestDefaultSettings verifies preferences derive from the config document.
func TestDefaultSettings(t *testing.T) {
	cfg := Default()
	got := DefaultSettings(cfg)
	if got.Language != "auto" {
		t.Fatalf("language = %q, want auto", got.Language)
	}
	if got.Model != cfg.DefaultModel {
		t.Fatalf("model = %q, want %q", got.Model, cfg.DefaultModel)
	}
	if got.Device != cfg.Device {
		t.Fatalf("device = %q, want %q", got.Device, cfg.Device)
	}
	if !got.Diarization {
		t.Fatal("expected diarization enabled by default")
	}
	if got.OutputDir == "" {
		t.Fatal("expected non-empty output dir")
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	defaults := domain.Settings{Model: "base", Language: "auto"}
	store := NewJSONStore(path, defaults)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != defaults {
		t.Fatalf("settings = %+v, want %+v", got, defaults)
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted preference fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path, domain.Settings{})
	want := domain.Settings{
		Model:       "small",
		Device:      "cuda",
		Language:    "en",
		Diarization: false,
		OutputDir:   "/out",
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadKeepsDefaultsForAbsentFields checks partial files.
func TestJSONStoreLoadKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"model":"tiny"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path, domain.Settings{Model: "base", Device: "cpu", Diarization: true})
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Model != "tiny" || got.Device != "cpu" || !got.Diarization {
		t.Fatalf("settings = %+v", got)
	}
}

// TestJSONStoreLoadInvalidJSON checks parse error handling.
func TestJSONStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path, domain.Settings{})
	if _, err := store.Load(); err == nil {
		t.Fatal("expected json parse error")
	}
}

// TestJSONStoreSaveReplacesFileInPlace checks that repeated saves leave only
// the settings file behind.
func TestJSONStoreSaveReplacesFileInPlace(t *testing.T) {
	dir := t.TempDir()
	store := NewJSONStore(filepath.Join(dir, "settings.json"), domain.Settings{})

	for _, model := range []string{"tiny", "base"} {
		if err := store.Save(domain.Settings{Model: model}); err != nil {
			t.Fatalf("Save(%s) error = %v", model, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.json" {
		t.Fatalf("dir entries = %v, want only settings.json", entries)
	}
	got, _ := store.Load()
	if got.Model != "base" {
		t.Fatalf("model = %q, want base", got.Model)
	}
}
