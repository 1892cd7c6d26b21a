// Package logging opens the persisted, append-only application log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Open returns a text logger appending to path at level. Records are also
// written to each mirror. An empty path logs to stderr only. The returned
// close function releases the file.
func Open(path, level string, mirrors ...io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.TrimSpace(path) == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	var w io.Writer = f
	if len(mirrors) > 0 {
		w = io.MultiWriter(append([]io.Writer{f}, mirrors...)...)
	}
	return slog.New(slog.NewTextHandler(w, opts)), f.Close, nil
}

// ParseLevel maps debug, info, warn, and error to slog levels. Unknown
// values mean info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
