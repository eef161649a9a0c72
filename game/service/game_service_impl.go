package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/cattower/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrInvalidIntent   = errors.New("invalid intent")
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
	}
}

// CreateSession starts a session on levelID, or on the default level when
// levelID is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	var level *engine.Level
	if levelID != "" {
		var err error
		level, err = s.levels.LoadLevel(levelID)
		if err != nil {
			return nil, s.levelError(levelID, err)
		}
	} else {
		levelID, level = s.levels.GetDefault()
		if level == nil {
			return nil, fmt.Errorf("%w: no default level", ErrLevelNotFound)
		}
	}

	session, err := s.sessions.Create(levelID, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		result = append(result, s.sessionInfo(session))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// SendIntent parses and queues one intent. With wait set it blocks until the
// intent has been simulated and reports the resulting view and events.
func (s *gameServiceImpl) SendIntent(ctx context.Context, sessionID, intent string, wait bool) (*IntentResult, error) {
	in, err := engine.ParseIntent(intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}

	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	result := &IntentResult{Intent: in.String()}
	if err := session.Runtime.Submit(in); err != nil {
		view := session.Runtime.View()
		result.View = &view
		result.Message = err.Error()
		return result, nil
	}
	result.Accepted = true

	if !wait {
		view := session.Runtime.View()
		result.View = &view
		result.Message = "queued"
		return result, nil
	}

	view, events, err := session.Runtime.Settle(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for intent: %w", err)
	}
	result.View = &view
	result.Events = events
	result.Message = describe(view, events)
	return result, nil
}

// GetState returns the last published view of a session
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.View, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	view := session.Runtime.View()
	return &view, nil
}

// Watch subscribes o to every tick of a session. The observer runs on the
// session's driving goroutine and must not block.
func (s *gameServiceImpl) Watch(ctx context.Context, sessionID string, o engine.Observer) error {
	session, err := s.touch(sessionID)
	if err != nil {
		return err
	}
	session.Runtime.Subscribe(o)
	return nil
}

// ListLevels returns all available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// GetLevel loads a single level
func (s *gameServiceImpl) GetLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	level, err := s.levels.LoadLevel(levelID)
	if err != nil {
		return nil, s.levelError(levelID, err)
	}
	return level, nil
}

// touch fetches a session and refreshes its access time
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

// levelError lists the available ids when a level is missing
func (s *gameServiceImpl) levelError(levelID string, err error) error {
	if !strings.Contains(err.Error(), "not found") {
		return fmt.Errorf("failed to load level %s: %w", levelID, err)
	}
	levels, listErr := s.levels.ListLevels()
	if listErr != nil || len(levels) == 0 {
		return fmt.Errorf("%w: %q", ErrLevelNotFound, levelID)
	}
	ids := make([]string, 0, len(levels))
	for _, l := range levels {
		ids = append(ids, l.LevelID)
	}
	return fmt.Errorf("%w: %q (available: %s)", ErrLevelNotFound, levelID, strings.Join(ids, ", "))
}

// sessionInfo snapshots a session; a session deleted meanwhile reports its
// creation time as the last access
func (s *gameServiceImpl) sessionInfo(session *Session) *SessionInfo {
	view := session.Runtime.View()
	lastAccessed, err := s.sessions.LastAccessed(session.ID)
	if err != nil {
		lastAccessed = session.CreatedAt
	}
	info := &SessionInfo{
		ID:             session.ID,
		LevelID:        session.LevelID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: lastAccessed,
		View:           &view,
	}
	if session.Level != nil {
		info.LevelName = session.Level.Name
	}
	return info
}

// describe summarises what the settled intent did
func describe(view engine.View, events []engine.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Type {
		case engine.EventGoal:
			return fmt.Sprintf("Goal reached in %.2fs", view.LastRunTime)
		case engine.EventTimeExpired:
			return "Time expired, level reset"
		case engine.EventHazard:
			return "Hit a hazard, back to the last checkpoint"
		case engine.EventCheckpoint:
			return "Checkpoint reached"
		}
	}
	switch view.State {
	case engine.MainMenu:
		return "In the main menu, send 'play' to start"
	case engine.Win:
		return "Level complete, send 'restart' or 'menu'"
	case engine.Lose:
		return "Out of time, send 'restart' or 'menu'"
	}
	return fmt.Sprintf("At (%d,%d) facing %s", view.Entity.X, view.Entity.Y, view.Orientation)
}
