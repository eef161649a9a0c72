package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/inconshreveable/log15/v3"

	"github.com/wricardo/cattower/game/engine"
)

// DefaultRate is the output sample rate
const DefaultRate = beep.SampleRate(44100)

// maxVoices caps overlapping cues so a burst of events cannot pile up
const maxVoices = 12

// Sound builds a fresh streamer at the given rate
type Sound func(rate beep.SampleRate) beep.Streamer

// Config selects the sounds a Soundboard plays
type Config struct {
	Rate   beep.SampleRate
	Volume float64
	// Cues play once per matching event
	Cues map[engine.EventType]Sound
	// Themes loop while the game is in a state; every state needs one
	Themes map[engine.GameState]Sound
}

// DefaultConfig returns the stock cue and theme tables
func DefaultConfig() Config {
	return Config{
		Rate:   DefaultRate,
		Volume: 0.6,
		Cues: map[engine.EventType]Sound{
			engine.EventMove: func(r beep.SampleRate) beep.Streamer {
				return Gain(Fade(Tone(330, 40*time.Millisecond, WaveSine, r), 40*time.Millisecond, 5*time.Millisecond, 20*time.Millisecond, r), 0.25)
			},
			engine.EventHazard: func(r beep.SampleRate) beep.Streamer {
				return Gain(Fade(Tone(110, 250*time.Millisecond, WaveSaw, r), 250*time.Millisecond, 5*time.Millisecond, 120*time.Millisecond, r), 0.5)
			},
			engine.EventCheckpoint: func(r beep.SampleRate) beep.Streamer {
				return beep.Mix(
					Gain(Fade(Tone(880, 300*time.Millisecond, WaveSine, r), 300*time.Millisecond, 5*time.Millisecond, 250*time.Millisecond, r), 0.5),
					Gain(Fade(Tone(1760, 300*time.Millisecond, WaveSine, r), 300*time.Millisecond, 5*time.Millisecond, 150*time.Millisecond, r), 0.2),
				)
			},
			engine.EventGoal: func(r beep.SampleRate) beep.Streamer {
				return beep.Seq(
					Gain(Fade(Tone(987.77, 120*time.Millisecond, WaveSquare, r), 120*time.Millisecond, 5*time.Millisecond, 40*time.Millisecond, r), 0.3),
					Gain(Fade(Tone(1318.51, 400*time.Millisecond, WaveSquare, r), 400*time.Millisecond, 5*time.Millisecond, 300*time.Millisecond, r), 0.3),
				)
			},
			engine.EventTimeExpired: func(r beep.SampleRate) beep.Streamer {
				return Gain(Fade(Tone(70, 600*time.Millisecond, WaveSquare, r), 600*time.Millisecond, 10*time.Millisecond, 400*time.Millisecond, r), 0.4)
			},
		},
		Themes: map[engine.GameState]Sound{
			engine.MainMenu: func(r beep.SampleRate) beep.Streamer {
				return Gain(Drone(220, WaveSine, r), 0.05)
			},
			engine.Playing: func(r beep.SampleRate) beep.Streamer {
				return beep.Mix(Gain(Drone(110, WaveSine, r), 0.06), Gain(Drone(165, WaveSine, r), 0.03))
			},
			engine.Win: func(r beep.SampleRate) beep.Streamer {
				return Gain(Drone(261.63, WaveSine, r), 0.05)
			},
			engine.Lose: func(r beep.SampleRate) beep.Streamer {
				return Gain(Drone(98, WaveSaw, r), 0.03)
			},
		},
	}
}

// Soundboard turns published views into sound. It is an engine.Observer:
// events trigger cues and state changes swap the looping theme.
type Soundboard struct {
	cfg    Config
	mixer  *beep.Mixer
	logger log15.Logger

	mu      sync.Mutex
	theme   *beep.Ctrl
	state   engine.GameState
	seen    bool
	started bool
}

// NewSoundboard checks cfg and returns an idle soundboard. Nothing is heard
// until Start.
func NewSoundboard(cfg Config, logger log15.Logger) (*Soundboard, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.Rate)
	}
	if cfg.Volume < 0 || cfg.Volume > 1 {
		return nil, fmt.Errorf("volume must be within [0,1], got %g", cfg.Volume)
	}
	for _, s := range engine.GameStates {
		if cfg.Themes[s] == nil {
			return nil, fmt.Errorf("no theme for state %s", s)
		}
	}
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Soundboard{cfg: cfg, mixer: &beep.Mixer{}, logger: logger}, nil
}

// Start opens the speaker and begins playback
func (s *Soundboard) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := speaker.Init(s.cfg.Rate, s.cfg.Rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(Gain(s.mixer, s.cfg.Volume))
	s.started = true
	s.logger.Debug("audio started", "rate", s.cfg.Rate)
	return nil
}

// Close silences everything and releases the speaker
func (s *Soundboard) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked(func() {
		if s.theme != nil {
			s.theme.Paused = true
		}
		s.mixer.Clear()
	})
	s.theme = nil
	s.seen = false
	if s.started {
		speaker.Close()
		s.started = false
	}
}

// Observe plays a cue for each event and switches theme on state changes
func (s *Soundboard) Observe(view engine.View, events []engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locked(func() {
		if !s.seen || view.State != s.state {
			s.switchTheme(view.State)
		}
		for _, e := range events {
			sound := s.cfg.Cues[e.Type]
			if sound == nil {
				continue
			}
			if s.mixer.Len() >= maxVoices {
				s.logger.Debug("cue dropped", "event", e.Type)
				continue
			}
			s.mixer.Add(sound(s.cfg.Rate))
		}
	})
}

// switchTheme must run with the mixer locked
func (s *Soundboard) switchTheme(state engine.GameState) {
	if s.theme != nil {
		// a nil streamer ends the Ctrl, so the mixer drops it on its next pass
		s.theme.Streamer = nil
	}
	s.theme = &beep.Ctrl{Streamer: s.cfg.Themes[state](s.cfg.Rate)}
	s.mixer.Add(s.theme)
	s.state = state
	s.seen = true
}

// locked runs fn holding the speaker lock once playback has started
func (s *Soundboard) locked(fn func()) {
	if s.started {
		speaker.Lock()
		defer speaker.Unlock()
	}
	fn()
}
