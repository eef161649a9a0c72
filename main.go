// Command cattower runs the Cat Tower slide puzzle.
//
// Subcommands:
//
//	play      play a level in the terminal, with sound
//	serve     HTTP server with the REST API, WebSocket stream and /mcp endpoint (default),
//	          optionally also published through an ngrok tunnel
//	mcp       MCP stdio server backed by an existing API or an internal one
//	validate  check level files, including that the goal can be reached
//	schema    print the JSON schema for level files
//
// Settings come from the environment (CAT_TOWER_*), an optional .env file
// and the global flags, in increasing priority.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/inconshreveable/log15/v3"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/cattower/api"
	"github.com/wricardo/cattower/audio"
	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/service"
	"github.com/wricardo/cattower/game/session"
	"github.com/wricardo/cattower/terminal"
	"github.com/wricardo/cattower/transport/mcp"
	"github.com/wricardo/cattower/transport/websocket"
	"github.com/wricardo/cattower/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cat Tower"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).command().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares once the global flags are read
type app struct {
	stdout io.Writer
	stderr io.Writer

	settings config.Settings
	logger   log15.Logger
	logFile  *os.File

	// onListen is told the serve address once the listener is open
	onListen func(addr string)
	// openTunnel provides the public endpoint when the tunnel is enabled
	openTunnel tunnelOpener
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, openTunnel: openNgrok}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    "cattower",
		Usage:   "climb the tower before the timer runs out",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "environment file to load if present"},
			&cli.StringFlag{Name: "level-dir", Usage: "directory containing level files (" + config.EnvLevelDir + ")"},
			&cli.StringFlag{Name: "level", Usage: "default level id (" + config.EnvDefaultLevel + ")"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (" + config.EnvAddr + ")"},
			&cli.DurationFlag{Name: "tick", Usage: "simulation step (" + config.EnvTickStep + ")"},
			&cli.DurationFlag{Name: "session-ttl", Usage: "remove sessions idle for this long (" + config.EnvSessionTTL + ")"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging (" + config.EnvDebug + ")"},
			&cli.StringFlag{Name: "log-file", Usage: "append logs to this file instead of stderr"},
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			if a.logFile != nil {
				return a.logFile.Close()
			}
			return nil
		},
		Action: a.serve,
		Commands: []*cli.Command{
			{
				Name:      "play",
				Usage:     "play a level in the terminal",
				ArgsUsage: "[level-id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mute", Usage: "disable sound"},
				},
				Action: a.play,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP server with REST API, WebSocket and /mcp endpoint",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ngrok", Usage: "also serve through a public ngrok tunnel (" + config.EnvNgrok + ")"},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token (NGROK_AUTHTOKEN)"},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "reserved ngrok domain (" + config.EnvNgrokDomain + ")"},
				},
				Action: a.serve,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api", Usage: "use this running API instead of starting one"},
				},
				Action: a.mcpStdio,
			},
			{
				Name:      "validate",
				Usage:     "validate level files (defaults to every file in the level directory)",
				ArgsUsage: "[file...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "skip-solve", Usage: "only run structural checks"},
					&cli.IntFlag{Name: "max-states", Usage: "search limit per level (0 for the default)"},
				},
				Action: a.validate,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema for level files",
				Action: a.schema,
			},
		},
	}
}

// setup resolves settings and builds the root logger
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	settings, err := config.LoadSettings(cmd.String("env-file"))
	if err != nil {
		return ctx, err
	}
	if cmd.IsSet("level-dir") {
		settings.LevelDir = cmd.String("level-dir")
	}
	if cmd.IsSet("level") {
		settings.DefaultLevel = cmd.String("level")
	}
	if cmd.IsSet("addr") {
		settings.Addr = cmd.String("addr")
	}
	if cmd.IsSet("tick") {
		settings.TickStep = cmd.Duration("tick")
	}
	if cmd.IsSet("session-ttl") {
		settings.SessionTTL = cmd.Duration("session-ttl")
	}
	if cmd.IsSet("debug") {
		settings.Debug = cmd.Bool("debug")
	}
	if err := settings.Validate(); err != nil {
		return ctx, err
	}
	a.settings = settings

	out := a.stderr
	if path := cmd.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return ctx, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}
	a.logger = newLogger(out, settings.Debug)
	return ctx, nil
}

// newLogger writes logfmt records at info level, or debug when asked
func newLogger(w io.Writer, debug bool) log15.Logger {
	level := log15.LvlInfo
	if debug {
		level = log15.LvlDebug
	}
	logger := log15.New()
	logger.SetHandler(log15.LvlFilterHandler(level, log15.StreamHandler(w, log15.LogfmtFormat())))
	return logger
}

// services wires the level and session managers behind the game service
func (a *app) services(logger log15.Logger) (service.GameService, *config.Manager, *session.Manager, error) {
	levels, err := config.NewManager(a.settings.LevelDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create level manager: %w", err)
	}
	if id, _ := levels.GetDefault(); a.settings.DefaultLevel != "" && a.settings.DefaultLevel != id {
		if err := levels.SetDefault(a.settings.DefaultLevel); err != nil {
			logger.Warn("default level unavailable", "level", a.settings.DefaultLevel, "using", id, "err", err)
		}
	}

	sessions := session.NewManager(
		session.WithTickStep(a.settings.TickStep),
		session.WithTimeLimit(a.settings.TimeLimit),
		session.WithLogger(logger.New("component", "sessions")),
	)
	return service.NewGameService(sessions, levels), levels, sessions, nil
}

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("ngrok") {
		a.settings.Tunnel.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		a.settings.Tunnel.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		a.settings.Tunnel.Domain = cmd.String("ngrok-domain")
	}
	if err := a.settings.Validate(); err != nil {
		return err
	}

	gameService, _, sessions, err := a.services(a.logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	listener, err := net.Listen("tcp", a.settings.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.settings.Addr, err)
	}
	addr := listener.Addr().String()
	baseURL := "http://" + loopback(addr)

	var tun tunnel
	if a.settings.Tunnel.Enabled {
		if tun, err = a.openTunnel(ctx, a.settings.Tunnel); err != nil {
			listener.Close()
			return fmt.Errorf("start ngrok tunnel: %w", err)
		}
	}

	hub := websocket.NewHub(a.logger.New("component", "websocket"))
	go hub.Run(ctx)

	router := http.NewServeMux()
	router.Handle("/", api.NewServer(gameService, hub, a.logger.New("component", "api")))
	router.Handle("/mcp", mcp.NewClient(baseURL))

	httpServer := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go a.cleanupSessions(ctx, sessions)

	errc := make(chan error, 2)
	go func() {
		errc <- httpServer.Serve(listener)
	}()
	if tun != nil {
		// Shutdown closes the tunnel along with the local listener
		go func() {
			errc <- httpServer.Serve(tun)
		}()
		a.logger.Info("ngrok tunnel established", "url", tun.URL(), "mcp", tun.URL()+"/mcp")
	}

	a.logger.Info("HTTP server listening", "addr", addr, "version", Version)
	a.logger.Info("endpoints", "api", baseURL+"/api", "websocket", "ws://"+loopback(addr)+"/ws?session=<session_id>", "mcp", baseURL+"/mcp")
	if a.onListen != nil {
		a.onListen(addr)
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown", "err", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// cleanupSessions prunes idle sessions until ctx is done
func (a *app) cleanupSessions(ctx context.Context, sessions *session.Manager) {
	ticker := time.NewTicker(cleanupInterval(a.settings.SessionTTL))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.CleanupExpiredSessions(a.settings.SessionTTL); removed > 0 {
				a.logger.Info("cleaned up expired sessions", "count", removed)
			}
		}
	}
}

// cleanupInterval checks a few times per TTL, between once a minute and once
// an hour
func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		return time.Minute
	}
	if interval > time.Hour {
		return time.Hour
	}
	return interval
}

// loopback turns a listen address into one a local client can dial
func loopback(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// mcpStdio serves MCP over stdin/stdout. Tools call the REST API given by
// --api when it answers, otherwise an internal server on a loopback port.
func (a *app) mcpStdio(ctx context.Context, cmd *cli.Command) error {
	baseURL := strings.TrimRight(cmd.String("api"), "/")
	if baseURL != "" && !healthy(ctx, baseURL) {
		a.logger.Warn("external API not reachable, starting internal server", "api", baseURL)
		baseURL = ""
	}

	if baseURL == "" {
		gameService, _, sessions, err := a.services(a.logger)
		if err != nil {
			return err
		}
		defer sessions.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(a.logger.New("component", "websocket"))
		go hub.Run(ctx)

		internal := &http.Server{Handler: api.NewServer(gameService, hub, a.logger.New("component", "api"))}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("internal HTTP server", "err", err)
			}
		}()
		defer internal.Close()

		baseURL = "http://" + listener.Addr().String()
		a.logger.Info("internal HTTP server started", "addr", listener.Addr().String())
	}

	a.logger.Info("MCP stdio server ready", "api", baseURL)
	return mcp.NewClient(baseURL).ServeStdio()
}

func healthy(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (a *app) play(ctx context.Context, cmd *cli.Command) error {
	logger := a.logger
	if a.logFile == nil {
		// stderr belongs to the terminal UI
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}

	_, levels, sessions, err := a.services(logger)
	if err != nil {
		return err
	}
	defer sessions.Close()

	levelID, level := levels.GetDefault()
	if id := cmd.Args().First(); id != "" {
		if level, err = levels.LoadLevel(id); err != nil {
			return fmt.Errorf("load level %q: %w", id, err)
		}
		levelID = id
	}
	sess, err := sessions.Create(levelID, level)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	if !cmd.Bool("mute") {
		if board, err := startSound(logger); err != nil {
			logger.Warn("sound disabled", "err", err)
		} else {
			defer board.Close()
			sess.Runtime.Subscribe(board)
		}
	}

	title := fmt.Sprintf("%s - %s", AppName, level.Name)
	err = terminal.NewApp(screen, sess.Runtime, title, logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func startSound(logger log15.Logger) (*audio.Soundboard, error) {
	board, err := audio.NewSoundboard(audio.DefaultConfig(), logger.New("component", "audio"))
	if err != nil {
		return nil, err
	}
	if err := board.Start(); err != nil {
		return nil, err
	}
	return board, nil
}

func (a *app) validate(ctx context.Context, cmd *cli.Command) error {
	opts := validate.Options{
		SkipSolve: cmd.Bool("skip-solve"),
		MaxStates: int(cmd.Int("max-states")),
	}

	var results []validate.Result
	if files := cmd.Args().Slice(); len(files) > 0 {
		results = validate.Files(files, opts)
	} else {
		var err error
		if results, err = validate.Dir(a.settings.LevelDir, opts); err != nil {
			return err
		}
	}

	if !validate.Report(a.stdout, results) {
		return errors.New("validation failed")
	}
	return nil
}

func (a *app) schema(ctx context.Context, cmd *cli.Command) error {
	data, err := config.MarshalLevelSchema()
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(data)
	return err
}
