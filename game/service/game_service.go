package service

import (
	"context"
	"time"

	"github.com/wricardo/cattower/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SendIntent(ctx context.Context, sessionID, intent string, wait bool) (*IntentResult, error)
	GetState(ctx context.Context, sessionID string) (*engine.View, error)
	Watch(ctx context.Context, sessionID string, o engine.Observer) error

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	GetLevel(ctx context.Context, levelID string) (*engine.Level, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(levelID string, level *engine.Level) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	LastAccessed(id string) (time.Time, error)
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(id string) (*engine.Level, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() (string, *engine.Level)
}

// Runtime is the live game behind a session. It is driven on its own
// goroutine; every method is safe for concurrent use.
type Runtime interface {
	// Submit queues an intent for a later tick
	Submit(in engine.Intent) error
	// Steer queues interactive input, replacing a pending move with a newer one
	Steer(in engine.Intent) error
	// View returns the last published view
	View() engine.View
	// Settle waits until every queued intent has been simulated and returns
	// the view and the events published while waiting
	Settle(ctx context.Context) (engine.View, []engine.Event, error)
	// Subscribe registers an observer called after every tick
	Subscribe(o engine.Observer)
	// Stop halts the runtime; it is idempotent
	Stop()
}

// Session represents an active game session. LastAccessedAt is owned by the
// SessionManager; read it through SessionManager.LastAccessed.
type Session struct {
	ID             string
	LevelID        string
	Level          *engine.Level
	Runtime        Runtime
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
