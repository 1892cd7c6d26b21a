package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultModel != "base" {
		t.Fatalf("default model = %q, want base", cfg.DefaultModel)
	}
	if cfg.BatchProcessing {
		t.Fatal("expected batch processing disabled by default")
	}
	if len(cfg.ValidModels) != 6 {
		t.Fatalf("valid models = %v", cfg.ValidModels)
	}
}

func TestLoadYAMLDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcriber.yaml")
	doc := `
device: cuda
supported_extensions: [".MP3", "wav", ".wav"]
default_model: small
valid_models: [tiny, small]
batch_processing: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "cuda" {
		t.Fatalf("device = %q, want cuda", cfg.Device)
	}
	if !cfg.BatchProcessing {
		t.Fatal("expected batch processing enabled")
	}
	want := []string{".mp3", ".wav"}
	if len(cfg.SupportedExtensions) != len(want) {
		t.Fatalf("extensions = %v, want %v", cfg.SupportedExtensions, want)
	}
	for i := range want {
		if cfg.SupportedExtensions[i] != want[i] {
			t.Fatalf("extensions = %v, want %v", cfg.SupportedExtensions, want)
		}
	}
	if cfg.Recognizer.Command != "whisper-cli" {
		t.Fatalf("expected default recognizer command to survive, got %q", cfg.Recognizer.Command)
	}
}

func TestLoadRejectsDefaultModelOutsideAllowList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcriber.yaml")
	if err := os.WriteFile(path, []byte("default_model: huge\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRANSCRIBER_DEVICE", "cuda")
	t.Setenv("TRANSCRIBER_VALID_MODELS", "tiny, base")
	t.Setenv("TRANSCRIBER_BATCH_PROCESSING", "true")
	t.Setenv("TRANSCRIBER_RECOGNIZER_THREADS", "8")
	t.Setenv("TRANSCRIBER_DIARIZATION_STRATEGY", "cluster")
	t.Setenv("TRANSCRIBER_DIARIZATION_CLUSTER_THRESHOLD", "0.3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Device != "cuda" {
		t.Fatalf("expected device override")
	}
	if len(cfg.ValidModels) != 2 || cfg.ValidModels[1] != "base" {
		t.Fatalf("expected valid models override, got %v", cfg.ValidModels)
	}
	if !cfg.BatchProcessing {
		t.Fatal("expected batch processing override")
	}
	if cfg.Recognizer.Threads != 8 {
		t.Fatalf("expected threads 8, got %d", cfg.Recognizer.Threads)
	}
	if cfg.Diarization.Strategy != "cluster" || cfg.Diarization.ClusterThreshold != 0.3 {
		t.Fatalf("expected diarization overrides, got %+v", cfg.Diarization)
	}
}

func TestOpenAIBackendRequiresKey(t *testing.T) {
	t.Setenv("TRANSCRIBER_RECOGNIZER_BACKEND", "openai")
	if _, err := Load(""); err == nil {
		t.Fatal("expected api key validation error")
	}

	t.Setenv("TRANSCRIBER_OPENAI_API_KEY", "sk-test")
	if _, err := Load(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
