package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/engine"
)

var (
	ErrRunnerStopped = errors.New("runner stopped")
	ErrQueueFull     = errors.New("intent queue full")
)

const (
	queueCapacity    = 64
	recentEventLimit = 256
)

// Runner drives one game on its own goroutine at a fixed step. Intents are
// queued from any goroutine and simulated on later ticks; every tick
// publishes a fresh View to subscribers.
type Runner struct {
	driver *engine.Driver
	queue  *engine.Queue
	logger log15.Logger

	mu          sync.RWMutex
	view        engine.View
	recent      []engine.Event
	subscribers []engine.Observer
	published   chan struct{}
	submitted   uint64
	applied     uint64
	batchStart  uint64

	// sampled is only touched by the driving goroutine
	sampled uint64

	ctx      context.Context
	cancel   context.CancelFunc
	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewRunner wraps game. The runner owns the game from here on; callers must
// not touch it directly.
func NewRunner(game *engine.Game, step time.Duration, logger log15.Logger) *Runner {
	if logger == nil {
		logger = discardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		queue:     engine.NewQueue(queueCapacity),
		logger:    logger,
		view:      game.View(),
		published: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.driver = engine.NewDriver(game, r, step, engine.ObserverFunc(r.publish))
	return r
}

// Start launches the driving goroutine. Calling it again, or after Stop, does
// nothing.
func (r *Runner) Start() {
	if r.ctx.Err() != nil || r.started.Swap(true) {
		return
	}
	go r.run()
}

// Stop cancels the driving goroutine and waits for it to exit
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		if r.started.Load() {
			<-r.done
		}
	})
}

// Done is closed once the driving goroutine has exited
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.driver.Step())
	defer ticker.Stop()

	r.logger.Debug("runner started", "step", r.driver.Step())
	err := r.driver.Run(r.ctx, ticker.C)
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("runner stopped", "err", err)
		return
	}
	r.logger.Debug("runner stopped")
}

// Submit queues an intent for a later tick
func (r *Runner) Submit(in engine.Intent) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.queue.Push(in) {
		return ErrQueueFull
	}
	if r.submitted == r.applied {
		r.batchStart = r.view.Tick
	}
	r.submitted++
	return nil
}

// Steer queues an intent for interactive input. A move submitted while the
// newest pending intent is a move replaces it, so key repeat never queues
// more than one move ahead of the simulation.
func (r *Runner) Steer(in engine.Intent) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	replaced, ok := r.queue.Coalesce(in)
	if !ok {
		return ErrQueueFull
	}
	if replaced {
		return nil
	}
	if r.submitted == r.applied {
		r.batchStart = r.view.Tick
	}
	r.submitted++
	return nil
}

// Sample implements engine.InputSource on the driving goroutine
func (r *Runner) Sample() []engine.Intent {
	intents := r.queue.Sample()
	r.sampled += uint64(len(intents))
	return intents
}

// View returns the last published view
func (r *Runner) View() engine.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Subscribe registers an observer called on the driving goroutine after
// every tick. Observers must not block.
func (r *Runner) Subscribe(o engine.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, o)
}

// Settle waits until every intent submitted before the call has been
// simulated, then returns the latest view and the events published since the
// oldest of those intents was queued.
func (r *Runner) Settle(ctx context.Context) (engine.View, []engine.Event, error) {
	r.mu.RLock()
	target := r.submitted
	startTick := r.batchStart
	r.mu.RUnlock()

	for {
		r.mu.RLock()
		view, applied, published := r.view, r.applied, r.published
		r.mu.RUnlock()

		if applied >= target {
			return view, r.eventsAfter(startTick), nil
		}

		select {
		case <-published:
		case <-r.ctx.Done():
			return view, r.eventsAfter(startTick), ErrRunnerStopped
		case <-ctx.Done():
			return view, nil, ctx.Err()
		}
	}
}

// publish records the tick's view and fans it out to subscribers
func (r *Runner) publish(view engine.View, events []engine.Event) {
	r.mu.Lock()
	r.view = view
	r.applied = r.sampled
	r.recent = append(r.recent, events...)
	if over := len(r.recent) - recentEventLimit; over > 0 {
		r.recent = append(r.recent[:0], r.recent[over:]...)
	}
	subscribers := make([]engine.Observer, len(r.subscribers))
	copy(subscribers, r.subscribers)
	close(r.published)
	r.published = make(chan struct{})
	r.mu.Unlock()

	for _, e := range events {
		switch e.Type {
		case engine.EventStateChanged:
			r.logger.Info("state changed", "state", e.State, "tick", e.Tick)
		case engine.EventMove:
		default:
			r.logger.Debug("game event", "type", e.Type, "x", e.Position.X, "y", e.Position.Y, "tick", e.Tick)
		}
	}

	for _, o := range subscribers {
		o.Observe(view, events)
	}
}

func (r *Runner) eventsAfter(tick uint64) []engine.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []engine.Event
	for _, e := range r.recent {
		if e.Tick > tick {
			out = append(out, e)
		}
	}
	return out
}

func discardLogger() log15.Logger {
	logger := log15.New()
	logger.SetHandler(log15.DiscardHandler())
	return logger
}
