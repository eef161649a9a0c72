// Package validate checks level files before they are served. Each file is
// decoded, checked for every structural problem at once and, unless turned
// off, solved to prove the goal can be reached.
package validate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/solver"
)

// Options controls how deep a check goes
type Options struct {
	// SkipSolve leaves out the reachability search
	SkipSolve bool
	// MaxStates bounds the search; zero uses the solver default
	MaxStates int
}

// Result captures the outcome of validating a single file. Errors make the
// file invalid; Notes are informational.
type Result struct {
	File     string
	Level    *engine.Level
	Errors   []error
	Notes    []string
	Solution *solver.Result
}

// Valid reports whether the file had no errors
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// File loads and validates one level file
func File(path string, opts Options) Result {
	result := Result{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("failed to read file: %w", err))
		return result
	}

	level, err := config.DecodeLevel(filepath.Ext(path), data)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}
	result.Level = level

	if err := engine.ValidateLevel(level); err != nil {
		result.Errors = append(result.Errors, multierr.Errors(err)...)
		return result
	}

	grid, err := level.Build()
	if err != nil {
		result.Errors = append(result.Errors, err)
		return result
	}
	result.Notes = append(result.Notes,
		fmt.Sprintf("Name: %s", level.Name),
		fmt.Sprintf("Grid: %dx%d", grid.Width(), grid.Height()),
		fmt.Sprintf("Checkpoints: %d, hazards: %d, goals: %d", grid.Count(engine.Checkpoint), grid.Count(engine.Hazard), grid.Count(engine.Goal)),
	)
	if unknown := level.UnknownGlyphs(); len(unknown) > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("Characters loaded as empty: %q", string(unknown)))
	}

	if opts.SkipSolve {
		return result
	}
	solution, err := solver.Solve(level, opts.MaxStates)
	switch {
	case errors.Is(err, solver.ErrTooLarge):
		result.Notes = append(result.Notes, fmt.Sprintf("Reachability not proven: %v", err))
	case err != nil:
		result.Errors = append(result.Errors, err)
	default:
		result.Solution = solution
		result.Notes = append(result.Notes, fmt.Sprintf("Shortest route: %d intents (%s)", len(solution.Intents), strings.Join(solution.Moves(), " ")))
	}
	return result
}

// Files validates every path in order
func Files(paths []string, opts Options) []Result {
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		results = append(results, File(p, opts))
	}
	return results
}

// Dir validates every level file in dir, sorted by name
func Dir(dir string, opts Options) ([]Result, error) {
	var paths []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return Files(paths, opts), nil
}

// Report prints a concise report and returns whether every file was valid
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid() {
			fmt.Fprintln(w, "VALID")
			for _, note := range result.Notes {
				fmt.Fprintln(w, "  "+note)
			}
			continue
		}
		allValid = false
		fmt.Fprintln(w, "INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  - "+err.Error())
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No level files found")
	case allValid:
		fmt.Fprintf(w, "All %d levels are valid\n", len(results))
	default:
		fmt.Fprintln(w, "Some levels have errors")
	}
	return allValid
}
