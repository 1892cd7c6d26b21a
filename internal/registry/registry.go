// Package registry tracks per-file processing status.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/samber/lo"

	"multi-transcriber/internal/domain"
)

// ErrInvalidTransition is returned when a status change breaks the
// not_started -> in_progress -> done|error lifecycle.
var ErrInvalidTransition = errors.New("invalid status transition")

// Registry holds one entry per canonical path in insertion order. It is
// safe for concurrent use; callbacks run outside the lock.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	entries  map[string]*domain.FileEntry
	onChange func(domain.FileEntry)
}

// New returns an empty registry. onChange, when set, receives a copy of
// every entry that is added or changes status.
func New(onChange func(domain.FileEntry)) *Registry {
	return &Registry{
		entries:  make(map[string]*domain.FileEntry),
		onChange: onChange,
	}
}

// Canonical returns the absolute, cleaned form of path used as the key.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Add creates a not_started entry for path. Adding a path that is already
// present returns the existing entry and false.
func (r *Registry) Add(path string) (domain.FileEntry, bool) {
	key := Canonical(path)

	r.mu.Lock()
	if existing, ok := r.entries[key]; ok {
		entry := *existing
		r.mu.Unlock()
		return entry, false
	}
	entry := &domain.FileEntry{
		Path:   key,
		Name:   filepath.Base(key),
		Status: domain.FileStatusNotStarted,
	}
	r.entries[key] = entry
	r.order = append(r.order, key)
	out := *entry
	r.mu.Unlock()

	r.notify(out)
	return out, true
}

// SetStatus moves the entry for path to status with an optional message.
// It reports false without error when no entry matches.
func (r *Registry) SetStatus(path string, status domain.FileStatus, message string) (bool, error) {
	key := Canonical(path)

	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return false, nil
	}
	if !validTransition(entry.Status, status) {
		from := entry.Status
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, from, status, key)
	}
	entry.Status = status
	entry.Message = message
	out := *entry
	r.mu.Unlock()

	r.notify(out)
	return true, nil
}

// Find returns the entry for path.
func (r *Registry) Find(path string) (domain.FileEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[Canonical(path)]
	if !ok {
		return domain.FileEntry{}, false
	}
	return *entry, true
}

// List returns all entries in insertion order.
func (r *Registry) List() []domain.FileEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(key string, _ int) domain.FileEntry {
		return *r.entries[key]
	})
}

// Pending returns the not_started entries in insertion order.
func (r *Registry) Pending() []domain.FileEntry {
	return lo.Filter(r.List(), func(e domain.FileEntry, _ int) bool {
		return e.Status == domain.FileStatusNotStarted
	})
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.entries = make(map[string]*domain.FileEntry)
}

func (r *Registry) notify(entry domain.FileEntry) {
	if r.onChange != nil {
		r.onChange(entry)
	}
}

// validTransition allows re-running finished entries but never resets one
// to not_started.
func validTransition(from, to domain.FileStatus) bool {
	switch to {
	case domain.FileStatusInProgress:
		return true
	case domain.FileStatusDone, domain.FileStatusError:
		return from == domain.FileStatusInProgress
	case domain.FileStatusNotStarted:
		return from == domain.FileStatusNotStarted
	default:
		return false
	}
}
