package session

import (
	"testing"
	"time"

	"medscribe/voice"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSessionLifecycle(t *testing.T) {
	m := newTestManager(t)

	s, err := m.CreateSession(Config{Mode: voice.CaptureDirect})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Status != StatusRecording {
		t.Errorf("status = %s, want recording", s.Status)
	}
	if !m.IsActive() {
		t.Error("manager must report an active session")
	}

	stopped, err := m.StopSession()
	if err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	if stopped.ID != s.ID {
		t.Errorf("stopped session %s, want %s", stopped.ID, s.ID)
	}
	if stopped.Status != StatusCompleted || stopped.EndTime == nil {
		t.Error("stopped session must be completed with an end time")
	}
	if m.IsActive() {
		t.Error("no session must remain active after stop")
	}

	// Завершённая сессия остаётся доступной для чтения
	if _, err := m.GetSession(s.ID); err != nil {
		t.Errorf("completed session must stay readable: %v", err)
	}
}

func TestSingleActiveSession(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.CreateSession(Config{Mode: voice.CaptureDirect}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := m.CreateSession(Config{Mode: voice.CaptureRelayed}); err == nil {
		t.Error("second concurrent session must be rejected")
	}

	if _, err := m.StopSession(); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	// После остановки можно открыть новую
	if _, err := m.CreateSession(Config{Mode: voice.CaptureRelayed}); err != nil {
		t.Errorf("new session after stop: %v", err)
	}
	m.StopSession()
}

func TestPauseResumeStatus(t *testing.T) {
	m := newTestManager(t)

	s, err := m.CreateSession(Config{Mode: voice.CaptureDirect})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer m.StopSession()

	if err := m.PauseSession(); err != nil {
		t.Fatalf("PauseSession: %v", err)
	}
	if s.Status != StatusPaused || !s.Pipeline.Paused() {
		t.Error("pause must update status and pipeline")
	}

	if err := m.ResumeSession(); err != nil {
		t.Fatalf("ResumeSession: %v", err)
	}
	if s.Status != StatusRecording || s.Pipeline.Paused() {
		t.Error("resume must update status and pipeline")
	}
}

func TestOperationsWithoutActiveSession(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.StopSession(); err == nil {
		t.Error("stop without active session must fail")
	}
	if err := m.PauseSession(); err == nil {
		t.Error("pause without active session must fail")
	}
	if err := m.ResumeSession(); err == nil {
		t.Error("resume without active session must fail")
	}
	if m.GetActiveSession() != nil {
		t.Error("no active session expected")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	m := newTestManager(t)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.CreateSession(Config{Mode: voice.CaptureDirect})
		if err != nil {
			t.Fatalf("CreateSession %d: %v", i, err)
		}
		ids = append(ids, s.ID)
		if _, err := m.StopSession(); err != nil {
			t.Fatalf("StopSession %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	sessions := m.ListSessions()
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	if sessions[0].ID != ids[2] {
		t.Error("newest session must come first")
	}
}

func TestRelayedModeConfig(t *testing.T) {
	m := newTestManager(t)

	s, err := m.CreateSession(Config{Mode: voice.CaptureRelayed})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer m.StopSession()

	if s.Mode != voice.CaptureRelayed {
		t.Errorf("session mode = %s, want relayed", s.Mode)
	}
}
