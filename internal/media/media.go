// Package media converts arbitrary input media into the canonical mono
// 16 kHz PCM waveform the recognizer expects, and cuts per-segment slices
// out of it.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"multi-transcriber/internal/command"
)

const (
	SampleRate = 16000
	Channels   = 1
)

// ExtractionError reports a transcoder failure during normalization or slicing.
type ExtractionError struct {
	Op         string      `json:"op"`
	Path       string      `json:"path"`
	Message    string      `json:"message"`
	CommandLog command.Log `json:"commandLog"`
	Err        error       `json:"-"`
}

// Error formats extraction failures for logs and UI.
func (e *ExtractionError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %s (exit=%d)", e.Op, e.Path, e.Message, e.CommandLog.ExitCode)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *ExtractionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transcoder drives ffmpeg for normalization and slicing.
type Transcoder struct {
	ffmpegPath      string
	runner          command.Runner
	audioExtensions []string
	probe           func(path string) (WAVInfo, error)
	onLog           func(command.Log)
}

// Option customizes a Transcoder.
type Option func(*Transcoder)

// WithRunner replaces the process runner.
func WithRunner(r command.Runner) Option {
	return func(t *Transcoder) { t.runner = r }
}

// WithProbe replaces the output validation step.
func WithProbe(probe func(path string) (WAVInfo, error)) Option {
	return func(t *Transcoder) { t.probe = probe }
}

// WithCommandLog registers a callback for every ffmpeg invocation.
func WithCommandLog(cb func(command.Log)) Option {
	return func(t *Transcoder) { t.onLog = cb }
}

// NewTranscoder builds a transcoder. audioExtensions lists the extensions
// passed through to the recognizer untouched.
func NewTranscoder(ffmpegPath string, audioExtensions []string, opts ...Option) *Transcoder {
	t := &Transcoder{
		ffmpegPath:      ffmpegPath,
		runner:          &command.ExecRunner{},
		audioExtensions: audioExtensions,
		probe:           ProbeWAV,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsAudio reports whether path already has a pass-through audio extension.
func (t *Transcoder) IsAudio(path string) bool {
	return lo.Contains(t.audioExtensions, strings.ToLower(filepath.Ext(path)))
}

// Normalize returns path unchanged when it is already audio, otherwise
// writes a fresh mono 16 kHz WAV into workDir and returns its path. The
// caller owns the produced file.
func (t *Transcoder) Normalize(ctx context.Context, path, workDir string) (string, error) {
	if t.IsAudio(path) {
		return path, nil
	}

	outPath := filepath.Join(workDir, "norm-"+uuid.NewString()+".wav")
	args := buildNormalizeArgs(path, outPath)
	if err := t.transcode(ctx, "normalize", path, outPath, args); err != nil {
		return "", err
	}
	return outPath, nil
}

// Slice cuts [start, end) seconds out of a normalized file into a fresh
// WAV in workDir. The caller owns the produced file.
func (t *Transcoder) Slice(ctx context.Context, path string, start, end float64, workDir string) (string, error) {
	if start < 0 || end <= start {
		return "", &ExtractionError{
			Op:      "slice",
			Path:    path,
			Message: fmt.Sprintf("invalid time range %.3f-%.3f", start, end),
		}
	}

	outPath := filepath.Join(workDir, "seg-"+uuid.NewString()+".wav")
	args := buildSliceArgs(path, outPath, start, end)
	if err := t.transcode(ctx, "slice", path, outPath, args); err != nil {
		return "", err
	}
	return outPath, nil
}

func (t *Transcoder) transcode(ctx context.Context, op, inPath, outPath string, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, runErr := t.runner.Run(ctx, t.ffmpegPath, args...)
	log := command.NewLog(t.ffmpegPath, args, res)
	if t.onLog != nil {
		t.onLog(log)
	}
	if runErr != nil {
		_ = os.Remove(outPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ExtractionError{
			Op:         op,
			Path:       inPath,
			Message:    "ffmpeg audio conversion failed",
			CommandLog: log,
			Err:        runErr,
		}
	}

	info, err := t.probe(outPath)
	if err != nil {
		_ = os.Remove(outPath)
		return &ExtractionError{
			Op:         op,
			Path:       inPath,
			Message:    "ffmpeg completed but output is not a readable wav file",
			CommandLog: log,
			Err:        err,
		}
	}
	if info.SampleRate != SampleRate || info.Channels != Channels {
		_ = os.Remove(outPath)
		return &ExtractionError{
			Op:         op,
			Path:       inPath,
			Message:    fmt.Sprintf("unexpected output format %d Hz/%d ch", info.SampleRate, info.Channels),
			CommandLog: log,
		}
	}
	return nil
}

// buildNormalizeArgs builds ffmpeg args for mono 16k PCM WAV output.
func buildNormalizeArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildSliceArgs builds ffmpeg args that trim one time range.
func buildSliceArgs(inputPath, outPath string, start, end float64) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-ss", formatSeconds(start),
		"-i", inputPath,
		"-t", formatSeconds(end - start),
		"-vn",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
