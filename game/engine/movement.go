package engine

// SlideResult describes where a slide came to rest and what stopped it
type SlideResult struct {
	From      Position  `json:"from"`
	Final     Position  `json:"final"`
	Direction Direction `json:"direction"`
	BlockedBy CellKind  `json:"blocked_by"`
	Distance  int       `json:"distance"`
}

// Moved reports whether the slide changed the entity's cell
func (r SlideResult) Moved() bool {
	return r.Distance > 0
}

// Step moves the entity at pos one cell by delta. It fails without touching
// the grid when the destination is out of range or not Empty, or when pos
// does not hold the entity. Static cells are never relocated.
func (g *Grid) Step(pos, delta Position) bool {
	if g.Get(pos) != Entity {
		return false
	}
	dest := pos.Add(delta)
	if !g.InBounds(dest) || g.Get(dest) != Empty {
		return false
	}
	g.cells[dest.Y*g.width+dest.X] = Entity
	g.cells[pos.Y*g.width+pos.X] = Empty
	return true
}

// Slide steps the entity at pos in dir until a step fails. BlockedBy is the
// kind of the cell just past Final; probes past the edge read as Solid.
func (g *Grid) Slide(pos Position, dir Direction) SlideResult {
	delta := dir.Delta()
	res := SlideResult{From: pos, Final: pos, Direction: dir}
	for g.Step(res.Final, delta) {
		res.Final = res.Final.Add(delta)
		res.Distance++
	}
	res.BlockedBy = g.Get(res.Final.Add(delta))
	return res
}
