package service

import (
	"time"

	"github.com/wricardo/cattower/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string       `json:"id"`
	LevelID        string       `json:"level_id"`
	LevelName      string       `json:"level_name"`
	CreatedAt      time.Time    `json:"created_at"`
	LastAccessedAt time.Time    `json:"last_accessed_at"`
	View           *engine.View `json:"view"`
}

// IntentResult is returned after an intent has been queued
type IntentResult struct {
	Accepted bool           `json:"accepted"`
	Intent   string         `json:"intent"`
	View     *engine.View   `json:"view"`
	Events   []engine.Event `json:"events,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string  `json:"filename"`
	LevelID     string  `json:"level_id"` // The identifier to use for session creation
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	TimeLimit   float64 `json:"time_limit"`
}
