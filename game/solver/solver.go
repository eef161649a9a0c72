package solver

import (
	"errors"
	"fmt"

	"github.com/wricardo/cattower/game/engine"
)

// DefaultMaxStates bounds a search when no limit is given
const DefaultMaxStates = 200_000

var (
	ErrUnsolvable = errors.New("goal cannot be reached")
	ErrTooLarge   = errors.New("search limit reached")
)

// state is everything a run depends on: where the cat stands and where the
// last captured checkpoint put it. Orientation never affects a slide.
type state struct {
	pos        engine.Position
	checkpoint engine.Position
}

type node struct {
	state  state
	parent int
	intent engine.Intent
}

// Result is the shortest intent sequence from level start to the goal
type Result struct {
	Intents []engine.Intent
	// Explored counts distinct states visited
	Explored int
	// Checkpoints lists the checkpoint captures along the solution, in order
	Checkpoints []engine.Position
}

// Moves returns the intents as names ("left", "reload", ...)
func (r Result) Moves() []string {
	out := make([]string, len(r.Intents))
	for i, in := range r.Intents {
		out[i] = in.String()
	}
	return out
}

// Solver searches a level breadth-first over slides and checkpoint reloads.
// Hazards send the cat back to the checkpoint, so a state pairs the cat's
// cell with the checkpoint cell.
type Solver struct {
	base      *engine.Grid
	start     engine.Position
	maxStates int
}

// New prepares a solver for level. maxStates <= 0 uses DefaultMaxStates.
func New(level *engine.Level, maxStates int) (*Solver, error) {
	grid, err := level.Build()
	if err != nil {
		return nil, err
	}
	start, ok := grid.Locate(engine.Entity)
	if !ok {
		return nil, engine.ErrMissingSpawn
	}
	if err := grid.Set(start, engine.Empty); err != nil {
		return nil, err
	}
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	return &Solver{base: grid, start: start, maxStates: maxStates}, nil
}

// Solve returns a shortest solution. Slides and reloads both count as one
// intent.
func (s *Solver) Solve() (*Result, error) {
	scratch := s.base.Clone()
	origin := state{pos: s.start, checkpoint: s.start}

	nodes := []node{{state: origin, parent: -1}}
	seen := map[state]bool{origin: true}

	for head := 0; head < len(nodes); head++ {
		current := nodes[head]

		for _, dir := range engine.Directions {
			next, won, err := s.slide(scratch, current.state, dir)
			if err != nil {
				return nil, err
			}
			if won {
				nodes = append(nodes, node{state: next, parent: head, intent: engine.MoveIntent(dir)})
				return s.result(nodes, len(nodes)-1, len(seen)), nil
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			nodes = append(nodes, node{state: next, parent: head, intent: engine.MoveIntent(dir)})
		}

		reload := state{pos: current.state.checkpoint, checkpoint: current.state.checkpoint}
		if !seen[reload] {
			seen[reload] = true
			nodes = append(nodes, node{state: reload, parent: head, intent: engine.ActionIntent(engine.ActionReload)})
		}

		if len(seen) > s.maxStates {
			return nil, fmt.Errorf("%w: %d states", ErrTooLarge, len(seen))
		}
	}
	return nil, fmt.Errorf("%w after %d states", ErrUnsolvable, len(seen))
}

// slide plays one move on scratch, which holds the static cells only
func (s *Solver) slide(scratch *engine.Grid, from state, dir engine.Direction) (state, bool, error) {
	if err := scratch.Set(from.pos, engine.Entity); err != nil {
		return from, false, err
	}
	res := scratch.Slide(from.pos, dir)
	if err := scratch.Set(res.Final, engine.Empty); err != nil {
		return from, false, err
	}

	next := state{pos: res.Final, checkpoint: from.checkpoint}
	if !res.Moved() {
		return next, false, nil
	}
	switch engine.Classify(res.BlockedBy) {
	case engine.OutcomeHazard:
		next.pos = from.checkpoint
	case engine.OutcomeCheckpoint:
		next.checkpoint = res.Final
	case engine.OutcomeGoal:
		return next, true, nil
	}
	return next, false, nil
}

func (s *Solver) result(nodes []node, last, explored int) *Result {
	var path []node
	for i := last; nodes[i].parent >= 0; i = nodes[i].parent {
		path = append(path, nodes[i])
	}

	res := &Result{Explored: explored, Intents: make([]engine.Intent, 0, len(path))}
	checkpoint := s.start
	for i := len(path) - 1; i >= 0; i-- {
		res.Intents = append(res.Intents, path[i].intent)
		if cp := path[i].state.checkpoint; cp != checkpoint {
			res.Checkpoints = append(res.Checkpoints, cp)
			checkpoint = cp
		}
	}
	return res
}

// Solve is shorthand for New followed by Solver.Solve
func Solve(level *engine.Level, maxStates int) (*Result, error) {
	s, err := New(level, maxStates)
	if err != nil {
		return nil, err
	}
	return s.Solve()
}
