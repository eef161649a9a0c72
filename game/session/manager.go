package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidLevel    = errors.New("invalid level")
)

// Option configures a Manager
type Option func(*Manager)

// WithTickStep sets the simulation step of every session's runner
func WithTickStep(step time.Duration) Option {
	return func(m *Manager) {
		m.step = step
	}
}

// WithTimeLimit sets the limit used by levels that do not declare one
func WithTimeLimit(seconds float64) Option {
	return func(m *Manager) {
		m.timeLimit = seconds
	}
}

// WithLogger sets the parent logger; each session logs with its id and level
func WithLogger(logger log15.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager handles game session lifecycle
type Manager struct {
	sessions  map[string]*service.Session
	step      time.Duration
	timeLimit float64
	logger    log15.Logger
	mu        sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*service.Session),
		step:     engine.DefaultStep,
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session playing level. The session's runner is
// already running when Create returns.
func (m *Manager) Create(levelID string, level *engine.Level) (*service.Session, error) {
	if level == nil {
		return nil, fmt.Errorf("%w: level cannot be nil", ErrInvalidLevel)
	}

	var opts []engine.Option
	if level.TimeLimit <= 0 && m.timeLimit > 0 {
		opts = append(opts, engine.WithTimeLimit(m.timeLimit))
	}
	game, err := level.NewGame(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	width, height := game.Grid().Width(), game.Grid().Height()
	id := uuid.NewString()
	logger := m.logger.New("session", id, "level", levelID)
	runner := NewRunner(game, m.step, logger)

	now := time.Now()
	session := &service.Session{
		ID:             id,
		LevelID:        levelID,
		Level:          level,
		Runtime:        runner,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	runner.Start()
	logger.Info("session created", "width", width, "height", height)
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all active sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	sortSessions(result)
	return result
}

// Delete stops and removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	key := strings.ToLower(id)
	session, exists := m.sessions[key]
	if exists {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	session.Runtime.Stop()
	m.logger.Info("session deleted", "session", session.ID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	return nil
}

// LastAccessed returns the last access time of a session. Session values are
// shared, so readers outside the manager go through here.
func (m *Manager) LastAccessed(id string) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return time.Time{}, ErrSessionNotFound
	}
	return session.LastAccessedAt, nil
}

// CleanupExpiredSessions stops and removes sessions that haven't been
// accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var expired []*service.Session
	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		session.Runtime.Stop()
	}
	if len(expired) > 0 {
		m.logger.Info("expired sessions removed", "count", len(expired))
	}
	return len(expired)
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Runtime.Stop()
	}
}

func sortSessions(sessions []*service.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
