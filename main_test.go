package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/cattower/game/config"
)

func TestConstants(t *testing.T) {
	if Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", Version)
	}
	if AppName != "Cat Tower" {
		t.Errorf("Expected app name Cat Tower, got %s", AppName)
	}
}

// run executes the command line and returns stdout and stderr
func run(t *testing.T, ctx context.Context, a *app, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a.stdout, a.stderr = &stdout, &stderr
	err := a.command().Run(ctx, append([]string{"cattower", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	return stdout.String(), stderr.String(), err
}

func TestSetup_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	env := "CAT_TOWER_ADDR=:9999\nCAT_TOWER_TICK=0.05\nCAT_TOWER_LEVEL_DIR=" + dir + "\n"
	if err := os.WriteFile(envFile, []byte(env), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"CAT_TOWER_ADDR", "CAT_TOWER_TICK", "CAT_TOWER_LEVEL_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	err := a.command().Run(context.Background(), []string{"cattower", "--env-file", envFile, "--addr", "127.0.0.1:7777", "--debug", "schema"})
	if err != nil {
		t.Fatal(err)
	}

	if a.settings.Addr != "127.0.0.1:7777" {
		t.Errorf("Expected flag to win for addr, got %s", a.settings.Addr)
	}
	if a.settings.TickStep != 50*time.Millisecond {
		t.Errorf("Expected tick from env file, got %s", a.settings.TickStep)
	}
	if a.settings.LevelDir != dir {
		t.Errorf("Expected level dir from env file, got %s", a.settings.LevelDir)
	}
	if !a.settings.Debug {
		t.Error("Expected debug from flag")
	}
}

func TestSetup_InvalidSettings(t *testing.T) {
	_, _, err := run(t, context.Background(), newApp(nil, nil), "--tick=-1s", "schema")
	if err == nil || !strings.Contains(err.Error(), "tick step") {
		t.Errorf("Expected tick validation error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug records to be filtered")
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("Expected logfmt info record, got %q", out)
	}

	buf.Reset()
	newLogger(&buf, true).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Expected debug records when debug is on")
	}
}

func TestSchemaCommand(t *testing.T) {
	stdout, _, err := run(t, context.Background(), newApp(nil, nil), "schema")
	if err != nil {
		t.Fatal(err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &schema); err != nil {
		t.Fatalf("Expected JSON schema, got %v", err)
	}
	if schema["title"] != "Cat Tower Level" {
		t.Errorf("Unexpected schema title %v", schema["title"])
	}
}

func TestValidateCommand(t *testing.T) {
	stdout, _, err := run(t, context.Background(), newApp(nil, nil), "--level-dir", "configs", "validate")
	if err != nil {
		t.Fatalf("Expected shipped levels to validate: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "levels are valid") {
		t.Errorf("Unexpected report:\n%s", stdout)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name": "bad", "layout": ["#G#", "###", "#@#"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = run(t, context.Background(), newApp(nil, nil), "validate", bad)
	if err == nil {
		t.Error("Expected validation failure")
	}
	if !strings.Contains(stdout, "goal cannot be reached") {
		t.Errorf("Expected unreachable goal in report:\n%s", stdout)
	}
}

func TestServeCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newApp(nil, nil)
	addrs := make(chan string, 1)
	a.onListen = func(addr string) { addrs <- addr }

	done := make(chan error, 1)
	go func() {
		_, _, err := run(t, ctx, a, "--level-dir", "configs", "--addr", "127.0.0.1:0", "serve")
		done <- err
	}()

	var addr string
	select {
	case addr = <-addrs:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected healthy server, got %d", resp.StatusCode)
	}

	body := strings.NewReader(`{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)
	resp, err = http.Post("http://"+addr+"/mcp", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	var rpc struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	json.NewDecoder(resp.Body).Decode(&rpc)
	resp.Body.Close()
	if len(rpc.Result.Tools) == 0 {
		t.Error("Expected MCP tools from /mcp")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not shut down")
	}
}

// localTunnel stands in for ngrok with a loopback listener
type localTunnel struct {
	net.Listener
}

func (l localTunnel) URL() string { return "http://" + l.Addr().String() }

func TestServeCommand_Tunnel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newApp(nil, nil)
	opened := make(chan tunnel, 1)
	a.openTunnel = func(ctx context.Context, cfg config.Tunnel) (tunnel, error) {
		if cfg.AuthToken != "token" || cfg.Domain != "cat.example" {
			return nil, fmt.Errorf("unexpected tunnel config %+v", cfg)
		}
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, err
		}
		tun := localTunnel{l}
		opened <- tun
		return tun, nil
	}

	done := make(chan error, 1)
	go func() {
		_, _, err := run(t, ctx, a, "--level-dir", "configs", "--addr", "127.0.0.1:0",
			"serve", "--ngrok", "--ngrok-auth", "token", "--ngrok-domain", "cat.example")
		done <- err
	}()

	var tun tunnel
	select {
	case tun = <-opened:
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("tunnel was not opened")
	}

	var resp *http.Response
	waitUntil(t, func() bool {
		var err error
		resp, err = http.Get(tun.URL() + "/api/levels")
		return err == nil
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected levels through the tunnel, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not shut down")
	}
	if _, err := http.Get(tun.URL() + "/health"); err == nil {
		t.Error("Expected the tunnel to close on shutdown")
	}
}

func TestServeCommand_TunnelErrors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		for _, key := range []string{"NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"} {
			t.Setenv(key, "")
		}
		a := newApp(nil, nil)
		a.openTunnel = func(context.Context, config.Tunnel) (tunnel, error) {
			t.Error("Tunnel opened without a token")
			return nil, errors.New("unreachable")
		}
		_, _, err := run(t, context.Background(), a, "--addr", "127.0.0.1:0", "serve", "--ngrok")
		if err == nil || !strings.Contains(err.Error(), "auth token") {
			t.Errorf("Expected auth token error, got %v", err)
		}
	})

	t.Run("open fails", func(t *testing.T) {
		a := newApp(nil, nil)
		a.openTunnel = func(context.Context, config.Tunnel) (tunnel, error) {
			return nil, errors.New("tunnel refused")
		}
		_, _, err := run(t, context.Background(), a, "--level-dir", "configs", "--addr", "127.0.0.1:0",
			"serve", "--ngrok", "--ngrok-auth", "token")
		if err == nil || !strings.Contains(err.Error(), "tunnel refused") {
			t.Errorf("Expected tunnel error, got %v", err)
		}
	})
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCleanupInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Second, time.Minute},
		{20 * time.Minute, 5 * time.Minute},
		{24 * time.Hour, time.Hour},
	}
	for _, test := range tests {
		if got := cleanupInterval(test.ttl); got != test.want {
			t.Errorf("cleanupInterval(%s) = %s, want %s", test.ttl, got, test.want)
		}
	}
}

func TestLoopback(t *testing.T) {
	tests := map[string]string{
		":8080":          "127.0.0.1:8080",
		"0.0.0.0:80":     "127.0.0.1:80",
		"[::]:9000":      "127.0.0.1:9000",
		"localhost:8080": "localhost:8080",
		"garbage":        "garbage",
	}
	for in, want := range tests {
		if got := loopback(in); got != want {
			t.Errorf("loopback(%q) = %q, want %q", in, got, want)
		}
	}
}
