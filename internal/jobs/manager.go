package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"multi-transcriber/internal/domain"
)

// ErrJobAlreadyRunning is returned when a kind already has a live job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when cancel is requested for an idle kind.
var ErrNoRunningJob = errors.New("no running job")

// Manager allows at most one live job per kind.
type Manager struct {
	mu    sync.RWMutex
	slots map[domain.JobKind]*slot
	newID func() string
}

type slot struct {
	job    domain.Job
	cancel context.CancelFunc
}

// NewManager creates a manager with every kind idle.
func NewManager() *Manager {
	return &Manager{
		slots: make(map[domain.JobKind]*slot),
		newID: uuid.NewString,
	}
}

// Start reserves the slot for kind. The returned context is cancelled by
// Cancel, CancelAll, or parent.
func (m *Manager) Start(parent context.Context, kind domain.JobKind, target string) (domain.Job, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.slots[kind]; ok && s.job.Status == domain.JobStatusRunning {
		return domain.Job{}, nil, ErrJobAlreadyRunning
	}

	ctx, cancel := context.WithCancel(parent)
	job := domain.Job{
		ID:     m.newID(),
		Kind:   kind,
		Target: target,
		Status: domain.JobStatusRunning,
	}
	m.slots[kind] = &slot{job: job, cancel: cancel}
	return job, ctx, nil
}

// Finish records the terminal status of job and frees its slot. Finishing
// a job that is no longer current is ignored.
func (m *Manager) Finish(job domain.Job, status domain.JobStatus) error {
	if !isTerminal(status) {
		return fmt.Errorf("invalid terminal status: %s", status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[job.Kind]
	if !ok || s.job.ID != job.ID {
		return nil
	}
	s.cancel()
	s.job.Status = status
	return nil
}

// Current returns a snapshot of the latest job of kind.
func (m *Manager) Current(kind domain.JobKind) domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.slots[kind]; ok {
		return s.job
	}
	return domain.Job{Kind: kind, Status: domain.JobStatusIdle}
}

// IsRunning reports whether kind has a live job.
func (m *Manager) IsRunning(kind domain.JobKind) bool {
	return m.Current(kind).Status == domain.JobStatusRunning
}

// Cancel requests cancellation of the live job of kind. The slot stays
// taken until the job's owner calls Finish.
func (m *Manager) Cancel(kind domain.JobKind) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.slots[kind]
	if !ok || s.job.Status != domain.JobStatusRunning {
		return ErrNoRunningJob
	}
	s.cancel()
	return nil
}

// CancelAll requests cancellation of every live job.
func (m *Manager) CancelAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.slots {
		if s.job.Status == domain.JobStatusRunning {
			s.cancel()
		}
	}
}

func isTerminal(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusDone, domain.JobStatusFailed, domain.JobStatusCancelled:
		return true
	default:
		return false
	}
}
