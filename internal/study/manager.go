package study

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/vocabook/internal/domain"
	"github.com/ashureev/vocabook/internal/source"
)

// Key identifies a session: one per learner per browser tab.
type Key struct {
	LearnerID string
	TabID     string
}

// HistoryRecorder stores session starts.
type HistoryRecorder interface {
	RecordStudySession(ctx context.Context, rec *domain.StudySessionRecord) error
}

type managedSession struct {
	session  *Session
	lastSeen time.Time
}

// Manager holds the live sessions of all learners.
type Manager struct {
	mu      sync.RWMutex
	active  map[string]map[string]*managedSession
	src     source.Source
	shuffle Shuffler
	history HistoryRecorder
	now     func() time.Time
}

// NewManager creates a manager whose sessions read from src.
func NewManager(src source.Source, shuffle Shuffler) *Manager {
	return &Manager{
		active:  make(map[string]map[string]*managedSession),
		src:     src,
		shuffle: shuffle,
		now:     time.Now,
	}
}

// SetHistory makes Start record every successful session start.
func (m *Manager) SetHistory(h HistoryRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = h
}

// Start starts (or restarts) the session for key with cfg. A successful
// start is recorded in the history; a failure to record is only logged.
func (m *Manager) Start(ctx context.Context, key Key, cfg Config) (*Session, error) {
	s := m.GetOrCreate(key)
	if err := s.Start(ctx, cfg); err != nil {
		return s, err
	}

	m.mu.RLock()
	history := m.history
	m.mu.RUnlock()
	if history == nil {
		return s, nil
	}

	snap := s.Snapshot()
	rec := &domain.StudySessionRecord{
		LearnerID: key.LearnerID,
		TabID:     key.TabID,
		Kind:      snap.Kind.String(),
		DeckSize:  s.DeckSize(),
		StartedAt: m.now(),
	}
	for _, id := range snap.Selection.IDs() {
		rec.Sheets = append(rec.Sheets, string(id))
	}
	if err := history.RecordStudySession(ctx, rec); err != nil {
		slog.Warn("Failed to record study session", "user_id", key.LearnerID, "session_id", key.TabID, "error", err)
	}
	return s, nil
}

// Get returns the session for key and marks it used, or nil.
func (m *Manager) Get(key Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tabs, ok := m.active[key.LearnerID]; ok {
		if ms, ok := tabs[key.TabID]; ok {
			ms.lastSeen = m.now()
			return ms.session
		}
	}
	return nil
}

// GetOrCreate returns the session for key, creating an idle one if needed.
func (m *Manager) GetOrCreate(key Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs, ok := m.active[key.LearnerID]
	if !ok {
		tabs = make(map[string]*managedSession)
		m.active[key.LearnerID] = tabs
	}
	if ms, ok := tabs[key.TabID]; ok {
		ms.lastSeen = m.now()
		return ms.session
	}

	s := NewSession(m.src, m.shuffle)
	tabs[key.TabID] = &managedSession{session: s, lastSeen: m.now()}
	slog.Info("Study session created", "user_id", key.LearnerID, "session_id", key.TabID)
	return s
}

// Remove closes and drops the session for key. It reports whether a
// session existed.
func (m *Manager) Remove(key Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	tabs, ok := m.active[key.LearnerID]
	if !ok {
		return false
	}
	ms, ok := tabs[key.TabID]
	if !ok {
		return false
	}
	ms.session.Close()
	delete(tabs, key.TabID)
	if len(tabs) == 0 {
		delete(m.active, key.LearnerID)
	}
	slog.Info("Study session removed", "user_id", key.LearnerID, "session_id", key.TabID)
	return true
}

// EvictIdle closes and drops sessions unused for longer than ttl and
// returns their keys.
func (m *Manager) EvictIdle(ttl time.Duration) []Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := m.now().Add(-ttl)
	var evicted []Key
	for learnerID, tabs := range m.active {
		for tabID, ms := range tabs {
			if ms.lastSeen.After(threshold) {
				continue
			}
			ms.session.Close()
			delete(tabs, tabID)
			evicted = append(evicted, Key{LearnerID: learnerID, TabID: tabID})
		}
		if len(tabs) == 0 {
			delete(m.active, learnerID)
		}
	}
	return evicted
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tabs := range m.active {
		n += len(tabs)
	}
	return n
}
