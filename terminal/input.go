package terminal

import (
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/cattower/game/engine"
)

// Command is what a key press asks for
type Command struct {
	Intent engine.Intent
	Quit   bool
}

var keyDirections = map[tcell.Key]engine.Direction{
	tcell.KeyUp:    engine.Up,
	tcell.KeyDown:  engine.Down,
	tcell.KeyLeft:  engine.Left,
	tcell.KeyRight: engine.Right,
}

var runeDirections = map[rune]engine.Direction{
	'w': engine.Up,
	's': engine.Down,
	'a': engine.Left,
	'd': engine.Right,
}

// MapKey translates a key press given the current game state. Enter plays
// from the menu and restarts everywhere else. ok is false for keys with no
// binding.
func MapKey(ev *tcell.EventKey, state engine.GameState) (cmd Command, ok bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Quit: true}, true
	case tcell.KeyEnter:
		if state == engine.MainMenu {
			return Command{Intent: engine.ActionIntent(engine.ActionPlay)}, true
		}
		return Command{Intent: engine.ActionIntent(engine.ActionRestart)}, true
	case tcell.KeyRune:
		r := unicode.ToLower(ev.Rune())
		if d, found := runeDirections[r]; found {
			return Command{Intent: engine.MoveIntent(d)}, true
		}
		switch r {
		case 'r':
			return Command{Intent: engine.ActionIntent(engine.ActionReload)}, true
		case 'm':
			return Command{Intent: engine.ActionIntent(engine.ActionMenu)}, true
		case 'q':
			return Command{Quit: true}, true
		}
	default:
		if d, found := keyDirections[ev.Key()]; found {
			return Command{Intent: engine.MoveIntent(d)}, true
		}
	}
	return Command{}, false
}
