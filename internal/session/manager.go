package session

import (
	"log/slog"
	"sync"
	"time"
)

// Manager owns all live sessions and guarantees per-session sequential
// dispatch: Acquire hands back the session together with a release func and
// holds a per-key mutex in between, so two messages for the same
// conversation never interleave. Different sessions proceed concurrently.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	clock    func() time.Time
	logger   *slog.Logger
}

type entry struct {
	mu   sync.Mutex
	sess *Session
}

func NewManager(clock func() time.Time, logger *slog.Logger) *Manager {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		clock:    clock,
		logger:   logger,
	}
}

// Acquire returns the session for id, creating it in the gathering state on
// first contact. The caller must invoke release when the turn is done.
func (m *Manager) Acquire(id string, user UserContext) (*Session, func()) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if !ok {
		now := m.clock()
		e = &entry{sess: &Session{
			ID:         id,
			State:      StateGathering,
			User:       user,
			CreatedAt:  now,
			LastActive: now,
		}}
		m.sessions[id] = e
		m.logger.Debug("session created", "session_id", id)
	}
	m.mu.Unlock()

	e.mu.Lock()
	e.sess.LastActive = m.clock()
	return e.sess, e.mu.Unlock
}

// Remove tears a session down. Safe to call while a turn is in flight: the
// in-flight turn keeps its pointer and finishes, the next Acquire starts
// fresh.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Debug("session removed", "session_id", id)
	}
}

// SweepIdle drops sessions idle longer than maxIdle and reports how many.
func (m *Manager) SweepIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := m.clock().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.sessions {
		if e.sess.LastActive.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("idle sessions swept", "count", removed)
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
