package engine

import (
	"errors"
	"fmt"
)

// DefaultTimeLimit is the speedrun limit in seconds
const DefaultTimeLimit = 560.0

// Option configures a Game at construction
type Option func(*Game)

// WithTimeLimit overrides the speedrun limit. Non-positive values are ignored.
func WithTimeLimit(seconds float64) Option {
	return func(g *Game) {
		if seconds > 0 {
			g.timeLimit = seconds
		}
	}
}

// WithOrientation sets the entity's facing at level start
func WithOrientation(o Orientation) Option {
	return func(g *Game) {
		g.orientation = o
	}
}

// Game owns the live grid, both snapshots, the timer and the state machine.
// It is not safe for concurrent use; one goroutine drives it tick by tick.
type Game struct {
	grid        *Grid
	orientation Orientation
	entity      Position

	checkpoint Snapshot
	reset      Snapshot

	state     GameState
	timer     float64
	timeLimit float64
	lastRun   float64
	tick      uint64

	effects []Effect
	pending []Event
}

// NewGame builds a game around a copy of grid. The grid must hold exactly one
// Entity cell. The game starts in MainMenu.
func NewGame(grid *Grid, opts ...Option) (*Game, error) {
	if grid == nil {
		return nil, errors.New("grid cannot be nil")
	}
	switch n := grid.Count(Entity); {
	case n == 0:
		return nil, ErrMissingSpawn
	case n > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleSpawns, n)
	}

	g := &Game{
		grid:        grid.Clone(),
		orientation: orientationFor(Down),
		state:       MainMenu,
		timeLimit:   DefaultTimeLimit,
		effects:     make([]Effect, 0, 8),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.reset = newSnapshot(g.grid, g.orientation)
	g.checkpoint = newSnapshot(g.grid, g.orientation)
	g.relocate()
	return g, nil
}

// State returns the current game state
func (g *Game) State() GameState { return g.state }

// Timer returns elapsed play time in seconds
func (g *Game) Timer() float64 { return g.timer }

// TimeLimit returns the configured limit in seconds
func (g *Game) TimeLimit() float64 { return g.timeLimit }

// LastRunTime returns the timer value at the last win or loss
func (g *Game) LastRunTime() float64 { return g.lastRun }

// Orientation returns the entity's facing
func (g *Game) Orientation() Orientation { return g.orientation }

// EntityPosition returns the cell holding the controlled entity
func (g *Game) EntityPosition() Position { return g.entity }

// Ticks returns how many ticks have run
func (g *Game) Ticks() uint64 { return g.tick }

// Grid returns a copy of the live grid
func (g *Game) Grid() *Grid { return g.grid.Clone() }

// LevelStart returns a copy of the grid captured at load
func (g *Game) LevelStart() *Grid { return g.reset.grid.Clone() }

// Effects returns a copy of the active cosmetic effects
func (g *Game) Effects() []Effect {
	out := make([]Effect, len(g.effects))
	copy(out, g.effects)
	return out
}

// Apply handles a discrete action and reports whether it was accepted in the
// current state:
//
//	play    MainMenu         -> Playing
//	restart Playing|Win|Lose -> Playing   (level reset)
//	menu    Playing|Win|Lose -> MainMenu  (level reset)
//	reload  Playing          -> Playing   (checkpoint restore)
func (g *Game) Apply(a Action) bool {
	switch a {
	case ActionPlay:
		if g.state != MainMenu {
			return false
		}
		g.setState(Playing)
	case ActionRestart:
		if g.state == MainMenu {
			return false
		}
		g.ResetToLevelStart()
		g.setState(Playing)
	case ActionMenu:
		if g.state == MainMenu {
			return false
		}
		g.ResetToLevelStart()
		g.setState(MainMenu)
	case ActionReload:
		if g.state != Playing {
			return false
		}
		g.RestoreCheckpoint()
	default:
		return false
	}
	return true
}

// Move slides the entity in dir and applies the outcome of whatever stopped
// it. It is rejected (false, grid untouched) outside Playing. A slide that
// does not leave the starting cell only turns the entity.
func (g *Game) Move(dir Direction) (SlideResult, bool) {
	if g.state != Playing {
		return SlideResult{From: g.entity, Final: g.entity, Direction: dir}, false
	}

	g.orientation = orientationFor(dir)
	res := g.grid.Slide(g.entity, dir)
	if !res.Moved() {
		return res, true
	}

	g.entity = res.Final
	g.emit(EventMove, res.Final)
	g.resolve(res)
	return res, true
}

// resolve applies the blocking cell's effect exactly once
func (g *Game) resolve(res SlideResult) {
	hit := res.Final.Add(res.Direction.Delta())

	switch Classify(res.BlockedBy) {
	case OutcomeHazard:
		g.addEffect(EventHazard, hit)
		g.RestoreCheckpoint()
		g.emit(EventHazard, hit)
	case OutcomeCheckpoint:
		g.CaptureCheckpoint()
		g.addEffect(EventCheckpoint, hit)
		g.emit(EventCheckpoint, hit)
	case OutcomeGoal:
		g.lastRun = g.timer
		g.addEffect(EventGoal, hit)
		g.emit(EventGoal, hit)
		g.setState(Win)
	}
}

// Advance ages cosmetic effects and, while Playing, adds dt seconds to the
// timer. Reaching the limit moves the game to Lose and resets the level.
func (g *Game) Advance(dt float64) {
	if dt <= 0 {
		return
	}
	g.ageEffects(dt)

	if g.state != Playing {
		return
	}
	g.timer += dt
	if g.timer >= g.timeLimit {
		g.lastRun = g.timer
		g.emit(EventTimeExpired, g.entity)
		g.ResetToLevelStart()
		g.setState(Lose)
	}
}

// Tick runs one simulation step: every action in order, at most one movement
// intent, then the timer. It returns the events produced since the last drain.
func (g *Game) Tick(intents []Intent, dt float64) []Event {
	g.tick++

	moved := false
	for _, in := range intents {
		switch in.Kind {
		case IntentAction:
			g.Apply(in.Action)
		case IntentMove:
			if moved {
				continue
			}
			moved = true
			g.Move(in.Direction)
		}
	}

	g.Advance(dt)
	return g.DrainEvents()
}

// DrainEvents returns and clears pending events
func (g *Game) DrainEvents() []Event {
	if len(g.pending) == 0 {
		return nil
	}
	out := make([]Event, len(g.pending))
	copy(out, g.pending)
	g.pending = g.pending[:0]
	return out
}

func (g *Game) setState(s GameState) {
	if g.state == s {
		return
	}
	g.state = s
	g.emit(EventStateChanged, g.entity)
}

func (g *Game) emit(t EventType, p Position) {
	g.pending = append(g.pending, Event{Type: t, Position: p, State: g.state, Tick: g.tick})
}

func (g *Game) addEffect(t EventType, cell Position) {
	g.effects = append(g.effects, Effect{Type: t, Cell: cell, Remaining: EffectLifetime})
}

func (g *Game) ageEffects(dt float64) {
	live := g.effects[:0]
	for _, e := range g.effects {
		e.Remaining -= dt
		if e.Remaining > 0 {
			live = append(live, e)
		}
	}
	g.effects = live
}

// relocate refreshes the cached entity position after a whole-grid restore.
// Step and Slide keep it current otherwise.
func (g *Game) relocate() {
	if p, ok := g.grid.Locate(Entity); ok {
		g.entity = p
	}
}
