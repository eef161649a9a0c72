package engine

import (
	"math/rand"
	"testing"
)

func scenarioGrid(t *testing.T, top byte) *Grid {
	t.Helper()
	row0 := []byte(".....")
	row0[2] = top
	return buildGrid(t,
		string(row0),
		".....",
		"..@..",
		".....",
		".....",
	)
}

func TestStep_SwapsIntoEmptyCell(t *testing.T) {
	grid := buildGrid(t, "@..")

	if !grid.Step(Position{X: 0, Y: 0}, Right.Delta()) {
		t.Fatal("Expected step to succeed")
	}
	if grid.Get(Position{X: 0, Y: 0}) != Empty {
		t.Error("Expected origin to be empty after step")
	}
	if grid.Get(Position{X: 1, Y: 0}) != Entity {
		t.Error("Expected entity at destination")
	}
}

func TestStep_FailsWithoutMutation(t *testing.T) {
	tests := []struct {
		name  string
		row   string
		pos   Position
		delta Position
	}{
		{"into wall", "@#", Position{X: 0, Y: 0}, Right.Delta()},
		{"into hazard", "@^", Position{X: 0, Y: 0}, Right.Delta()},
		{"into checkpoint", "@C", Position{X: 0, Y: 0}, Right.Delta()},
		{"into goal", "@G", Position{X: 0, Y: 0}, Right.Delta()},
		{"past boundary", "@.", Position{X: 0, Y: 0}, Left.Delta()},
		{"static cell does not move", "@#.", Position{X: 1, Y: 0}, Right.Delta()},
		{"empty origin", "@..", Position{X: 1, Y: 0}, Right.Delta()},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			grid := buildGrid(t, test.row)
			before := grid.Clone()

			if grid.Step(test.pos, test.delta) {
				t.Error("Expected step to fail")
			}
			if !grid.Equal(before) {
				t.Error("Failed step must not modify the grid")
			}
		})
	}
}

func TestSlide_DirectionVectors(t *testing.T) {
	tests := []struct {
		dir      Direction
		expected Position
	}{
		{Up, Position{X: 2, Y: 0}},
		{Down, Position{X: 2, Y: 4}},
		{Left, Position{X: 0, Y: 2}},
		{Right, Position{X: 4, Y: 2}},
	}

	for _, test := range tests {
		t.Run(test.dir.String(), func(t *testing.T) {
			grid := scenarioGrid(t, '.')
			res := grid.Slide(Position{X: 2, Y: 2}, test.dir)

			if res.Final != test.expected {
				t.Errorf("Expected final (%d,%d), got (%d,%d)", test.expected.X, test.expected.Y, res.Final.X, res.Final.Y)
			}
			if res.BlockedBy != Solid {
				t.Errorf("Expected boundary to block as solid, got %s", res.BlockedBy)
			}
			if res.Distance != 2 {
				t.Errorf("Expected distance 2, got %d", res.Distance)
			}
			if grid.Get(test.expected) != Entity {
				t.Error("Expected entity at final position")
			}
		})
	}
}

func TestSlide_StopsBeforeWall(t *testing.T) {
	grid := scenarioGrid(t, '#')

	res := grid.Slide(Position{X: 2, Y: 2}, Up)
	if res.Final != (Position{X: 2, Y: 1}) {
		t.Errorf("Expected final (2,1), got (%d,%d)", res.Final.X, res.Final.Y)
	}
	if res.BlockedBy != Solid {
		t.Errorf("Expected blocked by solid, got %s", res.BlockedBy)
	}
}

func TestSlide_ReportsBlockingKind(t *testing.T) {
	tests := []struct {
		top      byte
		expected CellKind
	}{
		{'#', Solid},
		{'^', Hazard},
		{'C', Checkpoint},
		{'G', Goal},
	}

	for _, test := range tests {
		t.Run(test.expected.String(), func(t *testing.T) {
			grid := scenarioGrid(t, test.top)
			res := grid.Slide(Position{X: 2, Y: 2}, Up)
			if res.BlockedBy != test.expected {
				t.Errorf("Expected %s, got %s", test.expected, res.BlockedBy)
			}
			if grid.Get(Position{X: 2, Y: 0}) != test.expected {
				t.Error("Blocking cell must not be overwritten")
			}
		})
	}
}

func TestSlide_ZeroLengthIsIdempotent(t *testing.T) {
	grid := buildGrid(t,
		"#@.",
		"...",
	)
	start := Position{X: 1, Y: 0}

	first := grid.Slide(start, Left)
	if first.Moved() {
		t.Fatal("Expected zero-length slide")
	}
	second := grid.Slide(first.Final, Left)
	if first != second {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}

	up := grid.Slide(start, Up)
	if up.Moved() || up.BlockedBy != Solid {
		t.Errorf("Expected zero-length slide blocked by boundary, got %+v", up)
	}
}

func TestSlide_Deterministic(t *testing.T) {
	base := buildGrid(t,
		"#....^..",
		"..C.....",
		"....@..#",
		".#......",
		"......G.",
	)
	start, _ := base.Locate(Entity)

	for _, dir := range Directions {
		a := base.Clone()
		b := base.Clone()
		ra := a.Slide(start, dir)
		rb := b.Slide(start, dir)
		if ra != rb {
			t.Errorf("%s: results differ: %+v vs %+v", dir, ra, rb)
		}
		if !a.Equal(b) {
			t.Errorf("%s: grids differ after identical slides", dir)
		}
	}
}

func TestSlide_SingleOccupantInvariant(t *testing.T) {
	grid := buildGrid(t,
		"..#.....^.",
		"....C.....",
		"#.....#...",
		"...@......",
		".^....#..G",
		"......C...",
	)
	rng := rand.New(rand.NewSource(42))
	pos, _ := grid.Locate(Entity)

	for i := 0; i < 500; i++ {
		dir := Directions[rng.Intn(len(Directions))]
		if rng.Intn(3) == 0 {
			if grid.Step(pos, dir.Delta()) {
				pos = pos.Add(dir.Delta())
			}
		} else {
			pos = grid.Slide(pos, dir).Final
		}

		if n := grid.Count(Entity); n != 1 {
			t.Fatalf("Iteration %d: expected exactly one entity, got %d", i, n)
		}
		if grid.Get(pos) != Entity {
			t.Fatalf("Iteration %d: tracked position (%d,%d) lost the entity", i, pos.X, pos.Y)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		kind     CellKind
		expected Outcome
	}{
		{Empty, OutcomeNone},
		{Solid, OutcomeNone},
		{Entity, OutcomeNone},
		{Hazard, OutcomeHazard},
		{Checkpoint, OutcomeCheckpoint},
		{Goal, OutcomeGoal},
	}

	for _, test := range tests {
		if got := Classify(test.kind); got != test.expected {
			t.Errorf("Classify(%s): expected %s, got %s", test.kind, test.expected, got)
		}
	}
	if IsBlocking(Empty) {
		t.Error("Empty cells must not block")
	}
	if !IsBlocking(Hazard) {
		t.Error("Hazard cells must block")
	}
}
