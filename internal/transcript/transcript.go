// Package transcript turns recognition segments into the final text shown
// to the user.
package transcript

import (
	"fmt"
	"math"
	"strings"
)

// Segment is one utterance span produced by the recognizer. Times are in
// seconds from the start of the audio.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Line is a segment annotated with a speaker label.
type Line struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// String renders "[HH:MM:SS - HH:MM:SS] label: text".
func (l Line) String() string {
	return fmt.Sprintf("[%s - %s] %s: %s", l.Start, l.End, l.Label, l.Text)
}

// NewLine formats seg with label.
func NewLine(seg Segment, label string) Line {
	return Line{
		Start: FormatTimestamp(seg.Start),
		End:   FormatTimestamp(seg.End),
		Label: label,
		Text:  strings.TrimSpace(seg.Text),
	}
}

// FormatTimestamp renders seconds as zero-padded HH:MM:SS, truncating the
// fractional part. Hours are not capped at 24.
func FormatTimestamp(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int64(sec)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Assemble joins segments into transcript text. With nil labels each line
// is the trimmed segment text; otherwise each line carries timestamps and
// the label at the same index.
func Assemble(segments []Segment, labels []string) (string, error) {
	if labels == nil {
		return Plain(segments), nil
	}
	if len(labels) != len(segments) {
		return "", fmt.Errorf("label count %d does not match segment count %d", len(labels), len(segments))
	}

	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = NewLine(seg, labels[i]).String()
	}
	return strings.Join(lines, "\n"), nil
}

// Plain joins trimmed segment texts with newlines.
func Plain(segments []Segment) string {
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = strings.TrimSpace(seg.Text)
	}
	return strings.Join(lines, "\n")
}
