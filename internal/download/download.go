// Package download fetches remote media with yt-dlp.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"multi-transcriber/internal/command"
	"multi-transcriber/internal/telemetry"
)

// Error reports a failed download.
type Error struct {
	URL        string      `json:"url"`
	Message    string      `json:"message"`
	CommandLog command.Log `json:"commandLog"`
	Err        error       `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return "download error: " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsValidURL reports whether raw has both a scheme and a host.
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

var percentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// Downloader runs yt-dlp into a fresh directory per download. Downloaded
// files are kept; they become registry entries.
type Downloader struct {
	ytdlpPath   string
	outDir      string
	runner      command.LineRunner
	logger      *slog.Logger
	instruments *telemetry.Instruments
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
}

// Option customizes a Downloader.
type Option func(*Downloader)

func WithRunner(r command.LineRunner) Option {
	return func(d *Downloader) { d.runner = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithInstruments(inst *telemetry.Instruments) Option {
	return func(d *Downloader) { d.instruments = inst }
}

// New returns a downloader writing under outDir ("" means the OS temp dir).
func New(ytdlpPath, outDir string, opts ...Option) *Downloader {
	d := &Downloader{
		ytdlpPath: ytdlpPath,
		outDir:    outDir,
		runner:    &command.ExecRunner{},
		logger:    slog.Default(),
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		stat:      os.Stat,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Executable returns the configured yt-dlp command.
func (d *Downloader) Executable() string {
	return d.ytdlpPath
}

// Download fetches rawURL and returns the local file path. progress gets
// values in [0, 100] as yt-dlp reports them.
func (d *Downloader) Download(ctx context.Context, rawURL string, progress func(float64)) (string, error) {
	path, err := d.download(ctx, strings.TrimSpace(rawURL), progress)
	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "cancelled"
		}
		d.logger.Error("download failed", slog.String("url", rawURL), slog.String("error", err.Error()))
	} else {
		d.logger.Info("download finished", slog.String("url", rawURL), slog.String("path", path))
	}
	d.instruments.Download(context.WithoutCancel(ctx), outcome)
	return path, err
}

func (d *Downloader) download(ctx context.Context, rawURL string, progress func(float64)) (string, error) {
	if !IsValidURL(rawURL) {
		return "", &Error{URL: rawURL, Message: fmt.Sprintf("invalid URL %q", rawURL)}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := d.mkdirTemp(d.outDir, "download-*")
	if err != nil {
		return "", &Error{URL: rawURL, Message: "failed to create download directory", Err: err}
	}

	args := buildArgs(rawURL, dir)
	var printed string
	res, runErr := d.runner.RunLines(ctx, func(line string) {
		if pct, ok := parseProgress(line); ok {
			if progress != nil {
				progress(pct)
			}
			return
		}
		if !strings.HasPrefix(line, "[") {
			printed = line
		}
	}, d.ytdlpPath, args...)
	log := command.NewLog(d.ytdlpPath, args, res)

	if runErr != nil {
		_ = d.removeAll(dir)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &Error{URL: rawURL, Message: lastLine(res.Stderr, runErr.Error()), CommandLog: log, Err: runErr}
	}

	path := filepath.Clean(printed)
	if printed == "" || !strings.HasPrefix(path, filepath.Clean(dir)) {
		_ = d.removeAll(dir)
		return "", &Error{URL: rawURL, Message: "yt-dlp did not report a downloaded file", CommandLog: log}
	}
	if _, err := d.stat(path); err != nil {
		_ = d.removeAll(dir)
		return "", &Error{URL: rawURL, Message: "downloaded file is missing", CommandLog: log, Err: err}
	}
	if progress != nil {
		progress(100)
	}
	return path, nil
}

func buildArgs(rawURL, dir string) []string {
	return []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--progress",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		"--print", "after_move:filepath",
		rawURL,
	}
}

// parseProgress extracts the percentage from a yt-dlp progress line.
func parseProgress(line string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

func lastLine(s, fallback string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return fallback
	}
	return last
}
