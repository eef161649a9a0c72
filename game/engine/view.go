package engine

// View is the externally observable state published after each tick
type View struct {
	State       GameState   `json:"state"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Rows        []string    `json:"rows"`
	Cells       []CellKind  `json:"-"`
	Entity      Position    `json:"entity"`
	Orientation Orientation `json:"orientation"`
	Timer       float64     `json:"timer"`
	TimeLimit   float64     `json:"time_limit"`
	LastRunTime float64     `json:"last_run_time"`
	Progress    float64     `json:"progress"`
	Effects     []Effect    `json:"effects,omitempty"`
	Tick        uint64      `json:"tick"`
}

// At returns the kind at p in the published grid, Solid when out of range
func (v View) At(p Position) CellKind {
	if p.X < 0 || p.X >= v.Width || p.Y < 0 || p.Y >= v.Height || len(v.Cells) == 0 {
		return Solid
	}
	return v.Cells[p.Y*v.Width+p.X]
}

// View captures the current observable state
func (g *Game) View() View {
	progress := 0.0
	if g.grid.height > 0 {
		progress = float64(g.entity.Y) / float64(g.grid.height)
	}
	return View{
		State:       g.state,
		Width:       g.grid.width,
		Height:      g.grid.height,
		Rows:        g.grid.Rows(),
		Cells:       g.grid.Cells(),
		Entity:      g.entity,
		Orientation: g.orientation,
		Timer:       g.timer,
		TimeLimit:   g.timeLimit,
		LastRunTime: g.lastRun,
		Progress:    progress,
		Effects:     g.Effects(),
		Tick:        g.tick,
	}
}
