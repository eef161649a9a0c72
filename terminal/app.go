package terminal

import (
	"context"

	"github.com/gdamore/tcell/v2"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/engine"
)

// Runtime is the part of a session runtime the terminal needs
type Runtime interface {
	Steer(in engine.Intent) error
	View() engine.View
	Subscribe(o engine.Observer)
}

// App connects a tcell screen to a running game: key presses become
// intents and every published view is drawn.
type App struct {
	screen   tcell.Screen
	runtime  Runtime
	renderer *Renderer
	logger   log15.Logger
}

// NewApp subscribes a renderer for screen to runtime. The screen must
// already be initialised.
func NewApp(screen tcell.Screen, runtime Runtime, title string, logger log15.Logger) *App {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	a := &App{
		screen:   screen,
		runtime:  runtime,
		renderer: NewRenderer(screen, title),
		logger:   logger,
	}
	a.renderer.Observe(runtime.View(), nil)
	runtime.Subscribe(a.renderer)
	return a
}

// Renderer returns the app's renderer
func (a *App) Renderer() *Renderer {
	return a.renderer
}

// Run handles input until the player quits, the screen is finalised or ctx
// is cancelled
func (a *App) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	go func() {
		defer close(events)
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if a.handle(ev) {
				return nil
			}
		}
	}
}

// handle reports whether the app should stop
func (a *App) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		cmd, ok := MapKey(ev, a.renderer.State())
		if !ok {
			return false
		}
		if cmd.Quit {
			return true
		}
		if err := a.runtime.Steer(cmd.Intent); err != nil {
			a.logger.Warn("intent dropped", "intent", cmd.Intent, "err", err)
		}
	case *tcell.EventResize:
		a.screen.Sync()
		a.renderer.Draw()
	}
	return false
}
