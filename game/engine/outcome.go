package engine

// Outcome is the semantic effect of the cell that ended a slide
type Outcome uint8

const (
	// OutcomeNone covers walls, the boundary and the unreachable Empty case
	OutcomeNone Outcome = iota
	OutcomeHazard
	OutcomeCheckpoint
	OutcomeGoal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHazard:
		return "hazard"
	case OutcomeCheckpoint:
		return "checkpoint"
	case OutcomeGoal:
		return "goal"
	}
	return "none"
}

// Classify maps the blocking cell kind to its outcome
func Classify(kind CellKind) Outcome {
	switch kind {
	case Hazard:
		return OutcomeHazard
	case Checkpoint:
		return OutcomeCheckpoint
	case Goal:
		return OutcomeGoal
	}
	return OutcomeNone
}

// IsBlocking reports whether a cell of this kind stops a slide
func IsBlocking(kind CellKind) bool {
	return kind != Empty
}

var glyphs = [...]rune{
	Empty:      '.',
	Entity:     '@',
	Solid:      '#',
	Hazard:     '^',
	Checkpoint: 'C',
	Goal:       'G',
}

// Glyph returns the default layout character for a kind
func Glyph(kind CellKind) rune {
	if int(kind) < len(glyphs) {
		return glyphs[kind]
	}
	return '?'
}
