package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/wricardo/cattower/game/engine"
)

// Environment variables read by LoadSettings
const (
	EnvLevelDir     = "CAT_TOWER_LEVEL_DIR"
	EnvDefaultLevel = "CAT_TOWER_DEFAULT_LEVEL"
	EnvAddr         = "CAT_TOWER_ADDR"
	EnvTimeLimit    = "CAT_TOWER_TIME_LIMIT"
	EnvTickStep     = "CAT_TOWER_TICK"
	EnvSessionTTL   = "CAT_TOWER_SESSION_TTL"
	EnvDebug        = "CAT_TOWER_DEBUG"
	EnvNgrok        = "CAT_TOWER_NGROK"
	EnvNgrokDomain  = "CAT_TOWER_NGROK_DOMAIN"
)

// ngrok's own variable names, honoured for the auth token
var ngrokTokenEnv = []string{"NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"}

// Settings holds process-wide options. Values come from DefaultSettings,
// then the environment (and any .env files), then command-line flags.
type Settings struct {
	LevelDir     string
	DefaultLevel string
	Addr         string
	// TimeLimit applies to levels that do not set their own
	TimeLimit  float64
	TickStep   time.Duration
	SessionTTL time.Duration
	Debug      bool
	Tunnel     Tunnel
}

// Tunnel configures the optional public ngrok endpoint served next to the
// local listener
type Tunnel struct {
	Enabled   bool
	AuthToken string
	// Domain is a reserved ngrok domain; empty gets a random one
	Domain string
}

// DefaultSettings returns the built-in defaults
func DefaultSettings() Settings {
	return Settings{
		LevelDir:     "configs",
		DefaultLevel: DefaultLevelID,
		Addr:         ":8080",
		TimeLimit:    engine.DefaultTimeLimit,
		TickStep:     engine.DefaultStep,
		SessionTTL:   24 * time.Hour,
	}
}

// LoadSettings loads the given .env files (missing files are ignored) and
// overlays any CAT_TOWER_* variables on the defaults.
func LoadSettings(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	s := DefaultSettings()
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyEnv overlays variables found by lookup. Numeric values accept
// anything cast can coerce; durations also accept plain seconds.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLevelDir); ok && v != "" {
		s.LevelDir = v
	}
	if v, ok := lookup(EnvDefaultLevel); ok && v != "" {
		s.DefaultLevel = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		s.Addr = v
	}
	if v, ok := lookup(EnvTimeLimit); ok && v != "" {
		limit, err := cast.ToFloat64E(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeLimit, err)
		}
		s.TimeLimit = limit
	}
	if v, ok := lookup(EnvTickStep); ok && v != "" {
		step, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTickStep, err)
		}
		s.TickStep = step
	}
	if v, ok := lookup(EnvSessionTTL); ok && v != "" {
		ttl, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSessionTTL, err)
		}
		s.SessionTTL = ttl
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		debug, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		s.Debug = debug
	}
	if v, ok := lookup(EnvNgrok); ok && v != "" {
		enabled, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNgrok, err)
		}
		s.Tunnel.Enabled = enabled
	}
	if v, ok := lookup(EnvNgrokDomain); ok && v != "" {
		s.Tunnel.Domain = v
	}
	for _, key := range ngrokTokenEnv {
		if v, ok := lookup(key); ok && v != "" && s.Tunnel.AuthToken == "" {
			s.Tunnel.AuthToken = v
		}
	}
	return s.Validate()
}

// Validate rejects settings the engine cannot run with
func (s Settings) Validate() error {
	if s.TimeLimit <= 0 {
		return fmt.Errorf("time limit must be positive, got %g", s.TimeLimit)
	}
	if s.TickStep <= 0 {
		return fmt.Errorf("tick step must be positive, got %s", s.TickStep)
	}
	if s.LevelDir == "" {
		return errors.New("level directory is required")
	}
	if s.Tunnel.Enabled && s.Tunnel.AuthToken == "" {
		return fmt.Errorf("ngrok tunnel needs an auth token (%s)", ngrokTokenEnv[0])
	}
	return nil
}

// parseDuration accepts Go duration strings ("16ms") or bare seconds ("0.5")
func parseDuration(v string) (time.Duration, error) {
	if seconds, err := cast.ToFloat64E(v); err == nil {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	return cast.ToDurationE(v)
}
