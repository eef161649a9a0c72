package engine

import (
	"context"
	"sync"
	"time"
)

// DefaultStep is the fixed simulation step (~60 Hz)
const DefaultStep = 16670 * time.Microsecond

// InputSource is sampled once per tick
type InputSource interface {
	Sample() []Intent
}

// Observer receives the published view and the tick's events
type Observer interface {
	Observe(view View, events []Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(view View, events []Event)

// Observe calls f(view, events)
func (f ObserverFunc) Observe(view View, events []Event) { f(view, events) }

// Driver advances a Game at a fixed cadence. Advance is a simple gate: a
// tick runs only when at least Step has passed since the previous one, and
// the real elapsed time is handed to the game.
type Driver struct {
	game      *Game
	input     InputSource
	observers []Observer
	step      time.Duration
	last      time.Time
}

// NewDriver wires a game to its input and observers. A non-positive step
// falls back to DefaultStep.
func NewDriver(game *Game, input InputSource, step time.Duration, observers ...Observer) *Driver {
	if step <= 0 {
		step = DefaultStep
	}
	return &Driver{
		game:      game,
		input:     input,
		observers: observers,
		step:      step,
	}
}

// Step returns the fixed tick interval
func (d *Driver) Step() time.Duration { return d.step }

// Game returns the driven game
func (d *Driver) Game() *Game { return d.game }

// AddObserver registers another observer
func (d *Driver) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// Advance ticks once if the gate is open at now and reports whether it did.
// The first call always ticks with a dt of one step.
func (d *Driver) Advance(now time.Time) bool {
	if d.last.IsZero() {
		d.last = now.Add(-d.step)
	}
	elapsed := now.Sub(d.last)
	if elapsed < d.step {
		return false
	}
	d.last = now
	d.Tick(elapsed)
	return true
}

// Tick runs one step unconditionally: sample input, simulate, publish
func (d *Driver) Tick(dt time.Duration) {
	var intents []Intent
	if d.input != nil {
		intents = d.input.Sample()
	}
	events := d.game.Tick(intents, dt.Seconds())

	if len(d.observers) == 0 {
		return
	}
	view := d.game.View()
	for _, o := range d.observers {
		o.Observe(view, events)
	}
}

// Run calls Advance for every value received on clock until ctx is done or
// the clock channel closes. Run blocks; the game must not be touched from
// other goroutines while it is running.
func (d *Driver) Run(ctx context.Context, clock <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-clock:
			if !ok {
				return nil
			}
			d.Advance(now)
		}
	}
}

// Queue is a goroutine-safe FIFO InputSource. Each Sample pops intents up to
// and including the first movement intent, so queued moves play out one per
// tick while actions are never delayed behind each other.
type Queue struct {
	mu       sync.Mutex
	items    []Intent
	capacity int
}

// NewQueue creates a queue holding at most capacity pending intents
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{capacity: capacity, items: make([]Intent, 0, capacity)}
}

// Push enqueues an intent and reports false when the queue is full
func (q *Queue) Push(in Intent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, in)
	return true
}

// Coalesce enqueues in like Push, except that a move arriving while the
// newest pending intent is also a move replaces it. Held keys then steer the
// next tick instead of building a backlog. replaced reports an overwrite.
func (q *Queue) Coalesce(in Intent) (replaced, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n := len(q.items); in.Kind == IntentMove && n > 0 && q.items[n-1].Kind == IntentMove {
		q.items[n-1] = in
		return true, true
	}
	if len(q.items) >= q.capacity {
		return false, false
	}
	q.items = append(q.items, in)
	return false, true
}

// Len returns the number of pending intents
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Sample implements InputSource
func (q *Queue) Sample() []Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}

	n := len(q.items)
	for i, in := range q.items {
		if in.Kind == IntentMove {
			n = i + 1
			break
		}
	}
	out := make([]Intent, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return out
}
