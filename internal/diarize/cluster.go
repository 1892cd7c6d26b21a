package diarize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/go-audio/wav"
)

// ClusterTagger groups slices by a coarse acoustic signature and reuses
// the label of the closest speaker seen earlier in the same file. It is a
// heuristic, not a speaker-embedding model.
type ClusterTagger struct {
	threshold float64
	features  func(path string) ([]float64, error)
	speakers  []speaker
	last      string
}

// errNoSignal marks a slice with no usable samples.
var errNoSignal = errors.New("slice has no signal")

type speaker struct {
	label    string
	centroid []float64
	count    int
}

// NewClusterTagger creates a tagger that starts a new speaker when the
// cosine distance to every known speaker is at least threshold.
func NewClusterTagger(threshold float64) *ClusterTagger {
	return &ClusterTagger{threshold: threshold, features: wavFeatures}
}

func (c *ClusterTagger) Tag(ctx context.Context, slicePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	vec, err := c.features(slicePath)
	if errors.Is(err, errNoSignal) {
		return c.unvoiced(), nil
	}
	if err != nil {
		return "", fmt.Errorf("extract features: %w", err)
	}

	best := -1
	bestDist := math.Inf(1)
	for i, sp := range c.speakers {
		if d := cosineDistance(vec, sp.centroid); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 && bestDist < c.threshold {
		sp := &c.speakers[best]
		sp.count++
		for i := range sp.centroid {
			sp.centroid[i] += (vec[i] - sp.centroid[i]) / float64(sp.count)
		}
		c.last = sp.label
		return sp.label, nil
	}

	return c.open(append([]float64(nil), vec...)), nil
}

// unvoiced labels a slice without features: it stays with the previous
// speaker, or opens the first one when none has been seen.
func (c *ClusterTagger) unvoiced() string {
	if c.last != "" {
		return c.last
	}
	return c.open(make([]float64, featureCount))
}

func (c *ClusterTagger) open(centroid []float64) string {
	label := "Speaker_" + strconv.Itoa(len(c.speakers)+1)
	c.speakers = append(c.speakers, speaker{label: label, centroid: centroid, count: 1})
	c.last = label
	return label
}

const featureCount = 4

// wavFeatures decodes a PCM WAV and returns [rms, zero-crossing rate,
// mean absolute amplitude, peak], all scaled to [0, 1].
func wavFeatures(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav header")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	if len(buf.Data) == 0 {
		return nil, errNoSignal
	}

	scale := math.Exp2(float64(dec.BitDepth) - 1)
	return signalFeatures(buf.Data, scale)
}

func signalFeatures(samples []int, scale float64) ([]float64, error) {
	var sumSq, sumAbs, peak float64
	crossings := 0
	for i, s := range samples {
		v := float64(s) / scale
		sumSq += v * v
		sumAbs += math.Abs(v)
		peak = math.Max(peak, math.Abs(v))
		if i > 0 && (samples[i-1] >= 0) != (s >= 0) {
			crossings++
		}
	}
	if peak == 0 {
		return nil, errNoSignal
	}

	n := float64(len(samples))
	return []float64{
		math.Sqrt(sumSq / n),
		float64(crossings) / n,
		sumAbs / n,
		peak,
	}, nil
}

func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
