package engine

// EventType names a signal emitted for audio/visual collaborators
type EventType string

const (
	EventMove         EventType = "move"
	EventHazard       EventType = "hazard_hit"
	EventCheckpoint   EventType = "checkpoint_reached"
	EventGoal         EventType = "goal_reached"
	EventTimeExpired  EventType = "time_expired"
	EventStateChanged EventType = "state_changed"
)

// Event is one signal produced during a tick
type Event struct {
	Type     EventType `json:"type"`
	Position Position  `json:"position"`
	State    GameState `json:"state"`
	Tick     uint64    `json:"tick"`
}

// Effect is a short-lived cosmetic marker left on a cell (hazard splash,
// checkpoint flash, goal burst). Effects are cleared by a level reset.
type Effect struct {
	Type      EventType `json:"type"`
	Cell      Position  `json:"cell"`
	Remaining float64   `json:"remaining"`
}

// EffectLifetime is how long an effect stays visible, in seconds
const EffectLifetime = 0.6
