package diarize

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"multi-transcriber/internal/config"
)

// TestRandomTaggerFormat checks the Speaker_XXXX label shape.
func TestRandomTaggerFormat(t *testing.T) {
	tagger := NewRandomTagger()
	pattern := regexp.MustCompile(`^Speaker_[0-9A-F]{4}$`)
	for i := 0; i < 20; i++ {
		label, err := tagger.Tag(context.Background(), "/tmp/seg.wav")
		if err != nil {
			t.Fatalf("Tag() error = %v", err)
		}
		if !pattern.MatchString(label) {
			t.Fatalf("label = %q", label)
		}
	}
}

// TestRandomTaggerCancelled checks context handling.
func TestRandomTaggerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRandomTagger().Tag(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

// TestClusterTaggerGroupsSimilarSlices checks label reuse within a file.
func TestClusterTaggerGroupsSimilarSlices(t *testing.T) {
	dir := t.TempDir()
	low := filepath.Join(dir, "low.wav")
	lowAgain := filepath.Join(dir, "low2.wav")
	high := filepath.Join(dir, "high.wav")
	writeTone(t, low, 120, 0.3)
	writeTone(t, lowAgain, 125, 0.3)
	writeTone(t, high, 3000, 0.9)

	tagger := NewClusterTagger(0.02)
	labels := make([]string, 0, 3)
	for _, path := range []string{low, high, lowAgain} {
		label, err := tagger.Tag(context.Background(), path)
		if err != nil {
			t.Fatalf("Tag(%s) error = %v", path, err)
		}
		labels = append(labels, label)
	}

	if labels[0] != "Speaker_1" || labels[1] != "Speaker_2" {
		t.Fatalf("labels = %v", labels)
	}
	if labels[2] != labels[0] {
		t.Fatalf("similar slice got %q, want %q", labels[2], labels[0])
	}
}

// TestClusterTaggerLabelsSilence checks that silent slices get a label
// instead of an error.
func TestClusterTaggerLabelsSilence(t *testing.T) {
	dir := t.TempDir()
	silent := filepath.Join(dir, "silent.wav")
	voice := filepath.Join(dir, "voice.wav")
	writeTone(t, silent, 0, 0)
	writeTone(t, voice, 200, 0.5)

	tagger := NewClusterTagger(0.02)
	first, err := tagger.Tag(context.Background(), silent)
	if err != nil {
		t.Fatalf("Tag(silent) error = %v", err)
	}
	if first != "Speaker_1" {
		t.Fatalf("first silent label = %q, want Speaker_1", first)
	}

	spoken, err := tagger.Tag(context.Background(), voice)
	if err != nil {
		t.Fatalf("Tag(voice) error = %v", err)
	}
	again, err := tagger.Tag(context.Background(), silent)
	if err != nil {
		t.Fatalf("Tag(silent) error = %v", err)
	}
	if again != spoken {
		t.Fatalf("silent after speech = %q, want previous speaker %q", again, spoken)
	}
}

// TestClusterTaggerLabelsEmptySlice checks a slice with no samples.
func TestClusterTaggerLabelsEmptySlice(t *testing.T) {
	tagger := NewClusterTagger(0.02)
	tagger.features = func(string) ([]float64, error) { return nil, errNoSignal }

	label, err := tagger.Tag(context.Background(), "empty.wav")
	if err != nil || label != "Speaker_1" {
		t.Fatalf("Tag() = %q, %v, want Speaker_1", label, err)
	}

	tagger.features = func(string) ([]float64, error) { return nil, errors.New("invalid wav header") }
	if _, err := tagger.Tag(context.Background(), "broken.wav"); err == nil {
		t.Fatal("expected error for unreadable slice")
	}
}

// TestNewFactory checks strategy selection.
func TestNewFactory(t *testing.T) {
	f, err := NewFactory(config.DiarizationConfig{Strategy: "cluster", ClusterThreshold: 0.2})
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	if _, ok := f().(*ClusterTagger); !ok {
		t.Fatalf("tagger type = %T, want *ClusterTagger", f())
	}
	if a, b := f(), f(); a == b {
		t.Fatal("factory must create a fresh tagger per call")
	}

	if _, err := NewFactory(config.DiarizationConfig{Strategy: "pyannote"}); err == nil {
		t.Fatal("expected unknown strategy error")
	}
}

// TestCosineDistance checks identical and orthogonal vectors.
func TestCosineDistance(t *testing.T) {
	if d := cosineDistance([]float64{1, 2}, []float64{2, 4}); math.Abs(d) > 1e-9 {
		t.Fatalf("parallel distance = %v, want 0", d)
	}
	if d := cosineDistance([]float64{1, 0}, []float64{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Fatalf("orthogonal distance = %v, want 1", d)
	}
}

// writeTone writes one second of a 16 kHz mono sine wave.
func writeTone(t *testing.T, path string, freq, amp float64) {
	t.Helper()
	const rate = 16000
	data := make([]int, rate)
	for i := range data {
		data[i] = int(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: rate}, Data: data, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
