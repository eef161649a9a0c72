package terminal

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/cattower/game/engine"
)

const (
	// each grid cell is drawn two columns wide so the tower keeps its shape
	cellWidth = 2
	gridTop   = 2
)

var (
	styleDefault    = tcell.StyleDefault
	styleTitle      = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleHUD        = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleHUDWarning = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleOverlay    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	styleEntity     = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
)

var cellStyles = map[engine.CellKind]tcell.Style{
	engine.Empty:      tcell.StyleDefault.Foreground(tcell.ColorDimGray),
	engine.Solid:      tcell.StyleDefault.Foreground(tcell.ColorGray),
	engine.Hazard:     tcell.StyleDefault.Foreground(tcell.ColorRed),
	engine.Checkpoint: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	engine.Goal:       tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
}

var effectColors = map[engine.EventType]tcell.Color{
	engine.EventHazard:     tcell.ColorDarkRed,
	engine.EventCheckpoint: tcell.ColorOlive,
	engine.EventGoal:       tcell.ColorDarkGreen,
}

var cellRunes = map[engine.CellKind]rune{
	engine.Empty:      '·',
	engine.Solid:      '█',
	engine.Hazard:     '^',
	engine.Checkpoint: 'C',
	engine.Goal:       'G',
}

// orientation glyphs for the cat, indexed by facing
var entityRunes = [...]rune{
	engine.Up:    '▲',
	engine.Down:  '▼',
	engine.Left:  '◀',
	engine.Right: '▶',
}

// Renderer draws published views onto a tcell screen. It is an
// engine.Observer and is safe to call from the driving goroutine.
type Renderer struct {
	screen tcell.Screen
	title  string

	mu   sync.Mutex
	view engine.View
	seen bool
}

// NewRenderer draws onto screen with title in the header
func NewRenderer(screen tcell.Screen, title string) *Renderer {
	return &Renderer{screen: screen, title: title}
}

// Observe records the view and redraws when anything visible changed
func (r *Renderer) Observe(view engine.View, events []engine.Event) {
	r.mu.Lock()
	changed := !r.seen || len(events) > 0 || visibleChange(r.view, view)
	r.view = view
	r.seen = true
	r.mu.Unlock()

	if changed {
		r.Draw()
	}
}

// visibleChange ignores sub-tenth timer changes so idle frames are skipped
func visibleChange(a, b engine.View) bool {
	return a.State != b.State ||
		a.Entity != b.Entity ||
		a.Orientation != b.Orientation ||
		len(a.Effects) != len(b.Effects) ||
		int(a.Timer*10) != int(b.Timer*10)
}

// State returns the state of the last observed view
func (r *Renderer) State() engine.GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view.State
}

// Draw renders the last observed view
func (r *Renderer) Draw() {
	r.mu.Lock()
	view := r.view
	r.mu.Unlock()

	r.screen.Clear()
	width, height := r.screen.Size()

	drawText(r.screen, 0, 0, styleTitle, r.title)
	r.drawHUD(view)

	rows := height - gridTop - 1
	offset := cameraOffset(view, rows)
	r.drawGrid(view, offset, rows)
	r.drawOverlay(view, width, height)
	drawText(r.screen, 0, height-1, styleHUD, footer(view.State))

	r.screen.Show()
}

func (r *Renderer) drawHUD(view engine.View) {
	remaining := view.TimeLimit - view.Timer
	style := styleHUD
	if view.State == engine.Playing && remaining < 30 {
		style = styleHUDWarning
	}

	hud := fmt.Sprintf("Time %6.1fs / %.0fs   Height %3.0f%%", view.Timer, view.TimeLimit, (1-view.Progress)*100)
	if view.LastRunTime > 0 {
		hud += fmt.Sprintf("   Last run %.2fs", view.LastRunTime)
	}
	drawText(r.screen, 0, 1, style, hud)
}

// cameraOffset picks the first grid row to draw so the cat stays on screen
// when the tower is taller than the terminal
func cameraOffset(view engine.View, rows int) int {
	if rows <= 0 || view.Height <= rows {
		return 0
	}
	offset := view.Entity.Y - rows/2
	if offset < 0 {
		offset = 0
	}
	if limit := view.Height - rows; offset > limit {
		offset = limit
	}
	return offset
}

func (r *Renderer) drawGrid(view engine.View, offset, rows int) {
	effects := make(map[engine.Position]engine.EventType, len(view.Effects))
	for _, e := range view.Effects {
		effects[e.Cell] = e.Type
	}

	for sy := 0; sy < rows && offset+sy < view.Height; sy++ {
		y := offset + sy
		for x := 0; x < view.Width; x++ {
			p := engine.Position{X: x, Y: y}
			ch, style := cellGlyph(view, p)
			if t, ok := effects[p]; ok {
				style = style.Background(effectColors[t])
			}
			r.screen.SetContent(x*cellWidth, gridTop+sy, ch, nil, style)
			r.screen.SetContent(x*cellWidth+1, gridTop+sy, ' ', nil, style)
		}
	}
}

func cellGlyph(view engine.View, p engine.Position) (rune, tcell.Style) {
	kind := view.At(p)
	if kind == engine.Entity {
		return entityRunes[view.Orientation.Direction()], styleEntity
	}
	ch, ok := cellRunes[kind]
	if !ok {
		return engine.Glyph(kind), styleDefault
	}
	return ch, cellStyles[kind]
}

func (r *Renderer) drawOverlay(view engine.View, width, height int) {
	var lines []string
	switch view.State {
	case engine.MainMenu:
		lines = []string{"CAT TOWER", "", "Climb to the goal before time runs out", "Enter to play"}
	case engine.Win:
		lines = []string{"YOU MADE IT", "", fmt.Sprintf("Reached the top in %.2fs", view.LastRunTime), "Enter to climb again, m for menu"}
	case engine.Lose:
		lines = []string{"OUT OF TIME", "", "The tower has been reset", "Enter to try again, m for menu"}
	default:
		return
	}

	boxWidth := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > boxWidth {
			boxWidth = n
		}
	}
	boxWidth += 4
	x0 := (width - boxWidth) / 2
	y0 := (height - len(lines) - 2) / 2
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}

	for y := 0; y < len(lines)+2; y++ {
		for x := 0; x < boxWidth; x++ {
			r.screen.SetContent(x0+x, y0+y, ' ', nil, styleOverlay)
		}
	}
	for i, l := range lines {
		pad := (boxWidth - len([]rune(l))) / 2
		drawText(r.screen, x0+pad, y0+1+i, styleOverlay, l)
	}
}

func footer(state engine.GameState) string {
	switch state {
	case engine.Playing:
		return "WASD/arrows move  r checkpoint  Enter restart  m menu  Esc quit"
	case engine.MainMenu:
		return "Enter play  Esc quit"
	}
	return "Enter restart  m menu  Esc quit"
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, ch := range text {
		s.SetContent(x, y, ch, nil, style)
		x++
	}
}
