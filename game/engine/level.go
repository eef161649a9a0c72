package engine

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/multierr"
)

var ErrEmptyLayout = errors.New("layout is empty")

// DefaultLegend maps layout characters to cell kinds
var DefaultLegend = map[rune]CellKind{
	'.': Empty,
	' ': Empty,
	'@': Entity,
	'#': Solid,
	'^': Hazard,
	'C': Checkpoint,
	'G': Goal,
}

// Level is the on-disk description of a map. Layout rows may be ragged; the
// grid is as wide as the longest row and short rows pad with Empty.
// Characters with no legend entry load as Empty.
type Level struct {
	Name        string            `json:"name" yaml:"name" jsonschema:"required"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Layout      []string          `json:"layout" yaml:"layout" jsonschema:"required,minItems=1"`
	Legend      map[string]string `json:"legend,omitempty" yaml:"legend,omitempty" jsonschema_description:"extra layout characters mapped to empty|entity|solid|hazard|checkpoint|goal"`
	TimeLimit   float64           `json:"time_limit,omitempty" yaml:"time_limit,omitempty" jsonschema:"minimum=0" jsonschema_description:"speedrun limit in seconds; 0 uses the default"`
	Orientation string            `json:"orientation,omitempty" yaml:"orientation,omitempty" jsonschema:"enum=up,enum=down,enum=left,enum=right"`
}

// legend merges the level's overrides over DefaultLegend
func (l *Level) legend() (map[rune]CellKind, error) {
	legend := make(map[rune]CellKind, len(DefaultLegend)+len(l.Legend))
	for r, k := range DefaultLegend {
		legend[r] = k
	}
	for key, value := range l.Legend {
		if utf8.RuneCountInString(key) != 1 {
			return nil, fmt.Errorf("legend key %q must be a single character", key)
		}
		kind, err := ParseCellKind(value)
		if err != nil {
			return nil, fmt.Errorf("legend[%q]: %w", key, err)
		}
		r, _ := utf8.DecodeRuneInString(key)
		legend[r] = kind
	}
	return legend, nil
}

// Build decodes the layout into a Grid. It fails when the layout is empty,
// the legend is malformed, or the spawn count is not exactly one.
func (l *Level) Build() (*Grid, error) {
	if len(l.Layout) == 0 {
		return nil, ErrEmptyLayout
	}
	legend, err := l.legend()
	if err != nil {
		return nil, err
	}

	width := 0
	for _, row := range l.Layout {
		if n := utf8.RuneCountInString(row); n > width {
			width = n
		}
	}
	grid, err := NewGrid(width, len(l.Layout))
	if err != nil {
		return nil, err
	}

	for y, row := range l.Layout {
		x := 0
		for _, r := range row {
			kind, ok := legend[r]
			if !ok {
				kind = Empty
			}
			grid.cells[y*width+x] = kind
			x++
		}
	}

	switch n := grid.Count(Entity); {
	case n == 0:
		return nil, ErrMissingSpawn
	case n > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleSpawns, n)
	}
	return grid, nil
}

// NewGame builds the level's grid and starts a game with its time limit and
// orientation. Later options override the level's own settings.
func (l *Level) NewGame(opts ...Option) (*Game, error) {
	grid, err := l.Build()
	if err != nil {
		return nil, fmt.Errorf("load level %q: %w", l.Name, err)
	}

	base := []Option{WithTimeLimit(l.TimeLimit)}
	if l.Orientation != "" {
		dir, err := ParseDirection(l.Orientation)
		if err != nil {
			return nil, fmt.Errorf("load level %q: %w", l.Name, err)
		}
		base = append(base, WithOrientation(orientationFor(dir)))
	}
	return NewGame(grid, append(base, opts...)...)
}

// ValidateLevel checks a level for every structural problem at once and
// returns them combined.
func ValidateLevel(l *Level) error {
	if l == nil {
		return errors.New("level validation: level cannot be nil")
	}

	var errs error
	if l.Name == "" {
		errs = multierr.Append(errs, errors.New("level validation: name is required"))
	}
	if l.TimeLimit < 0 {
		errs = multierr.Append(errs, fmt.Errorf("level validation: time_limit must be >= 0, got %g", l.TimeLimit))
	}
	if l.Orientation != "" {
		if _, err := ParseDirection(l.Orientation); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("level validation: orientation: %w", err))
		}
	}
	if len(l.Layout) == 0 {
		return multierr.Append(errs, fmt.Errorf("level validation: %w", ErrEmptyLayout))
	}

	grid, err := l.Build()
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("level validation: %w", err))
	}
	if grid.Count(Goal) == 0 {
		errs = multierr.Append(errs, errors.New("level validation: layout has no goal cell"))
	}
	return errs
}

// UnknownGlyphs returns the layout characters that have no legend entry and
// will therefore load as Empty.
func (l *Level) UnknownGlyphs() []rune {
	legend, err := l.legend()
	if err != nil {
		return nil
	}
	seen := make(map[rune]bool)
	var out []rune
	for _, row := range l.Layout {
		for _, r := range row {
			if _, ok := legend[r]; !ok && !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
