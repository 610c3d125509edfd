package jobs

import (
	"errors"
	"testing"

	"subtitle-burner/internal/domain"
)

// TestManagerLifecycle verifies normal progression to ready state.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("job-1", "/videos/clip.mp4"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}

	for _, status := range []domain.JobStatus{
		domain.JobStatusAwaitingTranscription,
		domain.JobStatusMuxingSubtitles,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	if err := m.Complete("ref-1", "/out/clip.subtitled.mp4"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	current := m.Current()
	if current.Status != domain.JobStatusReady {
		t.Fatalf("status = %s, want ready", current.Status)
	}
	if current.ResultRef != "ref-1" || current.ResultPath != "/out/clip.subtitled.mp4" {
		t.Fatalf("result payload = %+v", current)
	}
}

// TestManagerRejectsInvalidTransition checks forward-only constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "/videos/clip.mp4"); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Transition(domain.JobStatusMuxingSubtitles); err == nil {
		t.Fatal("expected invalid transition error (stage skip)")
	}
	if err := m.Transition(domain.JobStatusReady); err == nil {
		t.Fatal("expected invalid transition error (ready without mux)")
	}
}

// TestManagerFailTagsStage verifies terminal failure payload.
func TestManagerFailTagsStage(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "/videos/clip.mp4"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Transition(domain.JobStatusAwaitingTranscription); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if err := m.Fail("awaiting_transcription", errors.New("no subtitles in response")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	current := m.Current()
	if current.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", current.Status)
	}
	if current.FailedStage != "awaiting_transcription" {
		t.Fatalf("failed stage = %q", current.FailedStage)
	}
	if current.Error == "" {
		t.Fatal("expected cause message")
	}

	// Terminal: no further transitions.
	if err := m.Transition(domain.JobStatusMuxingSubtitles); err == nil {
		t.Fatal("expected terminal state to reject transitions")
	}
	if err := m.Fail("muxing_subtitles", errors.New("late")); !errors.Is(err, ErrNoActiveJob) {
		t.Fatalf("second fail error = %v, want ErrNoActiveJob", err)
	}
}

// TestManagerRejectsConcurrentStart checks the single-job guard.
func TestManagerRejectsConcurrentStart(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "/a.mp4"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("job-2", "/b.mp4"); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want ErrJobAlreadyRunning", err)
	}
}

// TestManagerStartSupersedesTerminalJob checks resubmission after failure.
func TestManagerStartSupersedesTerminalJob(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "/a.mp4"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Fail("extracting_audio", errors.New("engine unavailable")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if err := m.Start("job-2", "/b.mp4"); err != nil {
		t.Fatalf("restart after failure: %v", err)
	}

	current := m.Current()
	if current.ID != "job-2" || current.Status != domain.JobStatusExtractingAudio {
		t.Fatalf("superseded job = %+v", current)
	}
	if current.FailedStage != "" || current.Error != "" {
		t.Fatalf("stale failure payload carried over: %+v", current)
	}
}
