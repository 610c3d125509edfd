package jobs

import (
	"errors"
	"fmt"
	"sync"

	"subtitle-burner/internal/domain"
)

// ErrJobAlreadyRunning is returned when submitting while a job is in flight.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoActiveJob is returned for terminal updates without an active job.
var ErrNoActiveJob = errors.New("no active job")

// Manager tracks the single allowed active job and its transitions. Stages
// only move forward; failed and ready are terminal and a new Start supersedes
// the finished job with a fresh one.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Start creates a new job and moves it to the audio extraction stage.
func (m *Manager) Start(jobID, inputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:        jobID,
		InputPath: inputPath,
		Status:    domain.JobStatusExtractingAudio,
	}
	return nil
}

// Transition validates and applies forward stage transitions.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Fail moves the active job to the terminal failed state, tagged with the
// stage that failed and its cause.
func (m *Manager) Fail(stage string, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isRunning(m.current.Status) {
		return ErrNoActiveJob
	}

	m.current.Status = domain.JobStatusFailed
	m.current.FailedStage = stage
	if cause != nil {
		m.current.Error = cause.Error()
	}
	return nil
}

// Complete moves the active job to ready, carrying the published result.
func (m *Manager) Complete(refID, resultPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.JobStatusMuxingSubtitles {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, domain.JobStatusReady)
	}

	m.current.Status = domain.JobStatusReady
	m.current.ResultRef = refID
	m.current.ResultPath = resultPath
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.JobStatusIdle}
}

// IsRunning reports whether the current state is an active stage.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

// isRunning checks if a status represents active pipeline execution.
func isRunning(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusExtractingAudio, domain.JobStatusAwaitingTranscription, domain.JobStatusMuxingSubtitles:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the forward-only job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle:
		return to == domain.JobStatusExtractingAudio
	case domain.JobStatusExtractingAudio:
		return to == domain.JobStatusAwaitingTranscription || to == domain.JobStatusFailed
	case domain.JobStatusAwaitingTranscription:
		return to == domain.JobStatusMuxingSubtitles || to == domain.JobStatusFailed
	case domain.JobStatusMuxingSubtitles:
		return to == domain.JobStatusReady || to == domain.JobStatusFailed
	case domain.JobStatusReady, domain.JobStatusFailed:
		return to == domain.JobStatusIdle
	default:
		return false
	}
}
