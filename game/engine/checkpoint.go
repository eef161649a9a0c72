package engine

// Snapshot is a value copy of the grid plus the entity's orientation
type Snapshot struct {
	grid        *Grid
	orientation Orientation
}

func newSnapshot(g *Grid, o Orientation) Snapshot {
	return Snapshot{grid: g.Clone(), orientation: o}
}

// Grid returns a copy of the captured grid
func (s Snapshot) Grid() *Grid {
	return s.grid.Clone()
}

// Orientation returns the captured orientation
func (s Snapshot) Orientation() Orientation {
	return s.orientation
}

// CaptureCheckpoint copies the live grid and orientation into the checkpoint
func (g *Game) CaptureCheckpoint() {
	// Same dimensions by construction; CopyFrom cannot fail here.
	_ = g.checkpoint.grid.CopyFrom(g.grid)
	g.checkpoint.orientation = g.orientation
}

// RestoreCheckpoint copies the checkpoint back into the live grid and orientation
func (g *Game) RestoreCheckpoint() {
	_ = g.grid.CopyFrom(g.checkpoint.grid)
	g.orientation = g.checkpoint.orientation
	g.relocate()
}

// ResetToLevelStart restores the live grid and the checkpoint from the level
// snapshot, then clears the timer and any cosmetic effects. The state is left
// for the caller to decide.
func (g *Game) ResetToLevelStart() {
	_ = g.grid.CopyFrom(g.reset.grid)
	_ = g.checkpoint.grid.CopyFrom(g.reset.grid)
	g.orientation = g.reset.orientation
	g.checkpoint.orientation = g.reset.orientation
	g.timer = 0
	g.effects = g.effects[:0]
	g.relocate()
}

// CheckpointSnapshot returns a copy of the current checkpoint
func (g *Game) CheckpointSnapshot() Snapshot {
	return newSnapshot(g.checkpoint.grid, g.checkpoint.orientation)
}
