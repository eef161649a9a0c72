package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/session"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestApp_PlaysWithKeys(t *testing.T) {
	screen := newScreen(t)

	game, err := config.BuiltinLevel().NewGame()
	if err != nil {
		t.Fatal(err)
	}
	runner := session.NewRunner(game, time.Millisecond, nil)
	runner.Start()
	t.Cleanup(runner.Stop)

	app := NewApp(screen, runner, "Cat Tower", nil)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	screen.PostEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	waitFor(t, "playing", func() bool { return app.Renderer().State() == engine.Playing })

	screen.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'a', tcell.ModNone))
	waitFor(t, "slide left", func() bool {
		return runner.View().Entity == engine.Position{X: 1, Y: 5}
	})

	screen.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("App did not quit on Escape")
	}
}

func TestApp_StopsOnCancel(t *testing.T) {
	screen := newScreen(t)

	game, err := config.BuiltinLevel().NewGame()
	if err != nil {
		t.Fatal(err)
	}
	runner := session.NewRunner(game, time.Millisecond, nil)
	app := NewApp(screen, runner, "Cat Tower", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("App did not stop on cancel")
	}
}

// queueRuntime records steered intents without simulating them
type queueRuntime struct {
	queue *engine.Queue
	view  engine.View
}

func (r *queueRuntime) Steer(in engine.Intent) error {
	if _, ok := r.queue.Coalesce(in); !ok {
		return session.ErrQueueFull
	}
	return nil
}

func (r *queueRuntime) View() engine.View           { return r.view }
func (r *queueRuntime) Subscribe(o engine.Observer) {}

func TestApp_HeldKeyDoesNotBuildBacklog(t *testing.T) {
	screen := newScreen(t)
	runtime := &queueRuntime{queue: engine.NewQueue(64), view: builtinView(t)}
	app := NewApp(screen, runtime, "Cat Tower", nil)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	// the simulation screen's event queue is small; retry until accepted
	post := func(key tcell.Key) {
		ev := tcell.NewEventKey(key, 0, tcell.ModNone)
		waitFor(t, "event queue space", func() bool { return screen.PostEvent(ev) == nil })
	}
	post(tcell.KeyEnter)
	for i := 0; i < 30; i++ {
		post(tcell.KeyLeft)
	}
	post(tcell.KeyUp)
	post(tcell.KeyEscape)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("App did not quit on Escape")
	}

	got := runtime.queue.Sample()
	want := []engine.Intent{engine.ActionIntent(engine.ActionPlay), engine.MoveIntent(engine.Up)}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected %v pending, got %v", want, got)
	}
	if runtime.queue.Len() != 0 {
		t.Errorf("Expected no backlog, got %d more intents", runtime.queue.Len())
	}
}
