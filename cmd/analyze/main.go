// Command analyze prints a quick report for each level in a level
// directory: dimensions, cell counts, the shortest route to the goal and
// where it captures checkpoints. With --url it also replays each route
// against a running server to confirm the server agrees.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
	"github.com/wricardo/cattower/game/solver"
)

// maxBatch matches the server's per-request intent limit
const maxBatch = 50

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "report routes and layout stats for Cat Tower levels",
		ArgsUsage: "[level-id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: "configs", Usage: "level directory"},
			&cli.IntFlag{Name: "max-states", Usage: "search limit per level (0 for the default)"},
			&cli.StringFlag{Name: "url", Usage: "replay each route against the server at this base URL"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			levels, err := config.NewManager(cmd.String("dir"))
			if err != nil {
				return err
			}

			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				infos, err := levels.ListLevels()
				if err != nil {
					return err
				}
				for _, info := range infos {
					ids = append(ids, info.LevelID)
				}
			}
			if len(ids) == 0 {
				id, _ := levels.GetDefault()
				ids = append(ids, id)
			}

			var replayer *Client
			if url := cmd.String("url"); url != "" {
				replayer = NewClient(url)
			}

			failed := 0
			for _, id := range ids {
				fmt.Fprintf(out, "\n=== Analyzing %s ===\n", id)
				level, err := loadLevel(levels, id)
				if err != nil {
					fmt.Fprintf(out, "Error loading level: %v\n", err)
					failed++
					continue
				}
				res, ok := analyzeLevel(out, level, int(cmd.Int("max-states")))
				if !ok {
					failed++
					continue
				}
				if replayer != nil && res != nil {
					if err := replayer.Replay(ctx, id, res.Moves()); err != nil {
						fmt.Fprintf(out, "Replay failed: %v\n", err)
						failed++
						continue
					}
					fmt.Fprintln(out, "Replay: server reached the goal")
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d levels failed", failed, len(ids))
			}
			return nil
		},
	}
}

func loadLevel(levels *config.Manager, id string) (*engine.Level, error) {
	if id == config.BuiltinLevelID {
		return config.BuiltinLevel(), nil
	}
	return levels.LoadLevel(id)
}

// analyzeLevel prints the report for one level. It returns the route, which
// is nil when the search gave up, and false when the level is broken.
func analyzeLevel(out io.Writer, level *engine.Level, maxStates int) (*solver.Result, bool) {
	grid, err := level.Build()
	if err != nil {
		fmt.Fprintf(out, "Error building grid: %v\n", err)
		return nil, false
	}
	start, _ := grid.Locate(engine.Entity)
	goal, _ := grid.Locate(engine.Goal)

	fmt.Fprintf(out, "Name: %s\n", level.Name)
	fmt.Fprintf(out, "Grid: %d x %d\n", grid.Width(), grid.Height())
	limit := level.TimeLimit
	if limit <= 0 {
		limit = engine.DefaultTimeLimit
	}
	fmt.Fprintf(out, "Time limit: %.0fs\n", limit)
	fmt.Fprintf(out, "Start: (%d, %d)  Goal: (%d, %d)  Climb: %d rows\n", start.X, start.Y, goal.X, goal.Y, start.Y-goal.Y)
	fmt.Fprintf(out, "Checkpoints: %d  Hazards: %d\n", grid.Count(engine.Checkpoint), grid.Count(engine.Hazard))

	res, err := solver.Solve(level, maxStates)
	switch {
	case errors.Is(err, solver.ErrTooLarge):
		fmt.Fprintf(out, "WARNING: search gave up: %v\n", err)
		return nil, true
	case err != nil:
		fmt.Fprintf(out, "CRITICAL: %v\n", err)
		return nil, false
	}

	fmt.Fprintf(out, "Shortest route: %d intents, %d states explored\n", len(res.Intents), res.Explored)
	fmt.Fprintf(out, "  %s\n", strings.Join(res.Moves(), " "))
	for _, cp := range res.Checkpoints {
		fmt.Fprintf(out, "  checkpoint captured at (%d, %d)\n", cp.X, cp.Y)
	}
	return res, true
}

// Client drives a session over the REST API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient talks to the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Replay creates a session for levelID, plays the moves and checks that the
// session ends in the win state. The session is deleted afterwards.
func (c *Client) Replay(ctx context.Context, levelID string, moves []string) error {
	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"level_id": levelID}, &session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer c.do(context.Background(), http.MethodDelete, "/api/sessions/"+session.ID, nil, nil)

	intents := append([]string{"play"}, moves...)
	var batch struct {
		Requested int          `json:"requested"`
		Executed  int          `json:"executed"`
		View      *engine.View `json:"view"`
	}
	for len(intents) > 0 {
		n := min(len(intents), maxBatch)
		if err := c.do(ctx, http.MethodPost, "/api/sessions/"+session.ID+"/intents", map[string][]string{"intents": intents[:n]}, &batch); err != nil {
			return err
		}
		if batch.Executed < batch.Requested {
			return fmt.Errorf("server rejected intent %d of %d", batch.Executed, batch.Requested)
		}
		intents = intents[n:]
	}

	if batch.View == nil || batch.View.State != engine.Win {
		state := "unknown"
		if batch.View != nil {
			state = batch.View.State.String()
		}
		return fmt.Errorf("session ended in %s", state)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
