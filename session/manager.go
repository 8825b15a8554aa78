package session

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medscribe/voice"
)

// Manager управляет сессиями записи. Одновременно активна максимум
// одна сессия; завершённые остаются доступными для чтения.
type Manager struct {
	sessions map[string]*Session
	activeID string
	dataDir  string
	mu       sync.RWMutex
}

// NewManager создаёт менеджер сессий
func NewManager(dataDir string) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Manager{
		sessions: make(map[string]*Session),
		dataDir:  dataDir,
	}, nil
}

// CreateSession создаёт и запускает новую сессию записи
func (m *Manager) CreateSession(cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID != "" {
		return nil, fmt.Errorf("session already active: %s", m.activeID)
	}

	id := uuid.New().String()
	sessionDir := filepath.Join(m.dataDir, id)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	voiceCfg := voice.ConfigForMode(cfg.Mode)
	if cfg.SampleRate > 0 {
		voiceCfg.SampleRate = cfg.SampleRate
	}

	// Нейронный гейт подключается только если задана модель
	var gate *voice.NeuralGate
	if cfg.VADModel != "" {
		g, err := voice.NewNeuralGate(voice.DefaultNeuralGateConfig(cfg.VADModel))
		if err != nil {
			log.Printf("[Session] neural gate unavailable, using heuristic gate only: %v", err)
		} else {
			gate = g
		}
	}

	s := &Session{
		ID:        id,
		StartTime: time.Now(),
		Status:    StatusRecording,
		Mode:      voiceCfg.Mode,
		DataDir:   sessionDir,
		Pipeline:  NewPipeline(voiceCfg, gate),
	}

	if cfg.ArchiveMP3 {
		writer, err := NewMP3Writer(filepath.Join(sessionDir, "audio.mp3"), voiceCfg.SampleRate, 1)
		if err != nil {
			log.Printf("[Session] mp3 archive disabled: %v", err)
		} else {
			s.Audio = writer
		}
	}

	s.Pipeline.Start()
	m.sessions[id] = s
	m.activeID = id

	log.Printf("[Session] started %s (mode=%s)", id, s.Mode)
	return s, nil
}

// StopSession останавливает активную сессию и синхронно освобождает
// её состояние: конвейер, профили и историю
func (m *Manager) StopSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return nil, fmt.Errorf("no active session")
	}

	s := m.sessions[m.activeID]
	s.Pipeline.Close()
	if s.Audio != nil {
		if err := s.Audio.Close(); err != nil {
			log.Printf("[Session] mp3 close: %v", err)
		}
	}

	now := time.Now()
	s.EndTime = &now
	s.Status = StatusCompleted
	m.activeID = ""

	log.Printf("[Session] stopped %s (%d speakers, %d segments)",
		s.ID, len(s.Pipeline.Profiles()), len(s.Pipeline.Segments()))
	return s, nil
}

// PauseSession приостанавливает приём кадров без потери состояния
func (m *Manager) PauseSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return fmt.Errorf("no active session")
	}
	s := m.sessions[m.activeID]
	s.Pipeline.Pause()
	s.Status = StatusPaused
	return nil
}

// ResumeSession возобновляет приём кадров
func (m *Manager) ResumeSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		return fmt.Errorf("no active session")
	}
	s := m.sessions[m.activeID]
	s.Pipeline.Resume()
	s.Status = StatusRecording
	return nil
}

// GetSession возвращает сессию по ID
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	return s, nil
}

// GetActiveSession текущая активная сессия или nil
func (m *Manager) GetActiveSession() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.activeID == "" {
		return nil
	}
	return m.sessions[m.activeID]
}

// IsActive есть ли активная сессия
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID != ""
}

// ListSessions все сессии, новые первыми
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions
}
