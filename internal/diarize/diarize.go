// Package diarize assigns speaker labels to per-segment audio slices.
package diarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"multi-transcriber/internal/config"
)

// Tagger labels one audio slice. Implementations may keep state across
// calls; a Tagger is used for the segments of a single file only.
type Tagger interface {
	Tag(ctx context.Context, slicePath string) (string, error)
}

// Factory creates a fresh Tagger for each file.
type Factory func() Tagger

// NewFactory returns the strategy selected in cfg.
func NewFactory(cfg config.DiarizationConfig) (Factory, error) {
	switch cfg.Strategy {
	case "", "random":
		return func() Tagger { return NewRandomTagger() }, nil
	case "cluster":
		threshold := cfg.ClusterThreshold
		return func() Tagger { return NewClusterTagger(threshold) }, nil
	default:
		return nil, fmt.Errorf("unknown diarization strategy %q", cfg.Strategy)
	}
}

// RandomTagger returns an unrelated short identifier for every slice. Two
// slices never share a label by anything but chance.
type RandomTagger struct {
	newID func() string
}

func NewRandomTagger() *RandomTagger {
	return &RandomTagger{newID: uuid.NewString}
}

func (r *RandomTagger) Tag(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := strings.ReplaceAll(r.newID(), "-", "")
	if len(id) > 4 {
		id = id[:4]
	}
	return "Speaker_" + strings.ToUpper(id), nil
}
