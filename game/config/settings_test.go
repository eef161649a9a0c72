package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/cattower/game/engine"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.TimeLimit != engine.DefaultTimeLimit {
		t.Errorf("Expected default time limit, got %v", s.TimeLimit)
	}
	if s.TickStep != engine.DefaultStep {
		t.Errorf("Expected default step, got %v", s.TickStep)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Defaults must validate: %v", err)
	}
}

func TestSettings_ApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, s Settings)
		wantErr bool
	}{
		{
			name: "strings",
			env:  map[string]string{EnvLevelDir: "/levels", EnvDefaultLevel: "ledges", EnvAddr: ":9090"},
			check: func(t *testing.T, s Settings) {
				if s.LevelDir != "/levels" || s.DefaultLevel != "ledges" || s.Addr != ":9090" {
					t.Errorf("Unexpected settings %+v", s)
				}
			},
		},
		{
			name: "numbers and durations",
			env:  map[string]string{EnvTimeLimit: "120", EnvTickStep: "10ms", EnvSessionTTL: "3600", EnvDebug: "true"},
			check: func(t *testing.T, s Settings) {
				if s.TimeLimit != 120 {
					t.Errorf("Expected time limit 120, got %v", s.TimeLimit)
				}
				if s.TickStep != 10*time.Millisecond {
					t.Errorf("Expected 10ms step, got %v", s.TickStep)
				}
				if s.SessionTTL != time.Hour {
					t.Errorf("Expected 1h ttl, got %v", s.SessionTTL)
				}
				if !s.Debug {
					t.Error("Expected debug enabled")
				}
			},
		},
		{
			name: "empty values keep defaults",
			env:  map[string]string{EnvLevelDir: "", EnvTimeLimit: ""},
			check: func(t *testing.T, s Settings) {
				if s != DefaultSettings() {
					t.Errorf("Expected defaults, got %+v", s)
				}
			},
		},
		{
			name: "tunnel",
			env:  map[string]string{EnvNgrok: "1", "NGROK_AUTH_TOKEN": "secret", EnvNgrokDomain: "cat.ngrok.app"},
			check: func(t *testing.T, s Settings) {
				want := Tunnel{Enabled: true, AuthToken: "secret", Domain: "cat.ngrok.app"}
				if s.Tunnel != want {
					t.Errorf("Expected %+v, got %+v", want, s.Tunnel)
				}
			},
		},
		{
			name: "token without tunnel",
			env:  map[string]string{"NGROK_AUTHTOKEN": "secret"},
			check: func(t *testing.T, s Settings) {
				if s.Tunnel.Enabled || s.Tunnel.AuthToken != "secret" {
					t.Errorf("Expected token kept with tunnel off, got %+v", s.Tunnel)
				}
			},
		},
		{name: "tunnel without token", env: map[string]string{EnvNgrok: "true"}, wantErr: true},
		{name: "bad tunnel flag", env: map[string]string{EnvNgrok: "sometimes"}, wantErr: true},
		{name: "bad number", env: map[string]string{EnvTimeLimit: "soon"}, wantErr: true},
		{name: "non-positive limit", env: map[string]string{EnvTimeLimit: "0"}, wantErr: true},
		{name: "bad duration", env: map[string]string{EnvTickStep: "fast"}, wantErr: true},
		{name: "bad bool", env: map[string]string{EnvDebug: "maybe"}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := DefaultSettings()
			err := s.ApplyEnv(lookupFrom(test.env))
			if (err != nil) != test.wantErr {
				t.Fatalf("Expected error=%v, got %v", test.wantErr, err)
			}
			if test.check != nil {
				test.check(t, s)
			}
		})
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "CAT_TOWER_ADDR=:7070\nCAT_TOWER_TIME_LIMIT=42.5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvTimeLimit, "")
	os.Unsetenv(EnvAddr)
	os.Unsetenv(EnvTimeLimit)

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if s.Addr != ":7070" || s.TimeLimit != 42.5 {
		t.Errorf("Expected values from env file, got %+v", s)
	}
}

func TestLoadSettings_MissingFileIgnored(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Missing env file should be ignored, got %v", err)
	}
}
