package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
)

const (
	serverName    = "Cat Tower"
	serverVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cat Tower - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide the cat (@) up the tower to the goal (G) before the timer runs out.
Each move slides until something blocks it.

AVAILABLE TOOLS:
- create_session: Start a new game on a level
- list_sessions: List active sessions
- game_state: Grid, timer and position of a session
- send_intent: Send one or more intents (up/down/left/right/play/restart/reload/menu)
- list_levels: List available levels
- describe_cell: What occupies a grid cell
- game_instructions: Full rules

A new session starts in the main menu: send "play" first.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_id": map[string]interface{}{
					"type":        "string",
					"description": "Level to play (see list_levels); the default level when omitted",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current state of a session: grid, entity, timer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_intent",
		Description: "Send an intent, or a list of intents run in order, and report the outcome",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "One of up, down, left, right, play, restart, reload, menu",
				},
				"intents": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Several intents to run in order; stops at the first rejected one",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Why you are making this move",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSendIntent)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what occupies the cell at (x, y); x grows right, y grows down",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x":          map[string]interface{}{"type": "number", "description": "Column"},
				"y":          map[string]interface{}{"type": "number", "description": "Row"},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of Cat Tower",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio serves the tools over stdin/stdout until the input closes
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

// ServeHTTP answers a single JSON-RPC message posted to the /mcp endpoint
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func requireSession(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	levelID, _ := args["level_id"].(string)

	body := map[string]string{}
	if levelID != "" {
		body["level_id"] = levelID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s (%s)\n\n%s\n\nSend \"play\" to start.",
		session.ID, session.LevelName, session.LevelID, formatView(session.View))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		state := "unknown"
		if s.View != nil {
			state = s.View.State.String()
		}
		fmt.Fprintf(&b, "- %s (Level: %s, State: %s, Created: %s)\n",
			s.ID, s.LevelID, state, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var view engine.View
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatView(&view)), nil
}

func (c *Client) handleSendIntent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	// reason is for the agent's benefit and is not forwarded

	var intents []string
	if raw, ok := args["intents"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				intents = append(intents, s)
			}
		}
	}
	if intent, _ := args["intent"].(string); intent != "" {
		intents = append([]string{intent}, intents...)
	}

	switch len(intents) {
	case 0:
		return mcp.NewToolResultError("intent or intents is required"), nil
	case 1:
		var result service.IntentResult
		body := map[string]interface{}{"intent": intents[0], "wait": true}
		if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/intent", sessionID), body, &result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatIntentResult(&result)), nil
	}

	var batch struct {
		Requested int                     `json:"requested"`
		Executed  int                     `json:"executed"`
		Results   []*service.IntentResult `json:"results"`
		View      *engine.View            `json:"view"`
	}
	body := map[string]interface{}{"intents": intents}
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/intents", sessionID), body, &batch); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBatch(batch.Requested, batch.Executed, batch.Results, batch.View)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                  `json:"count"`
		Levels []*service.LevelInfo `json:"levels"`
	}
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available Levels (%d):\n\n", response.Count)
	for _, l := range response.Levels {
		fmt.Fprintf(&b, "- %s: %s (%dx%d, %.0fs)", l.LevelID, l.Name, l.Width, l.Height, l.TimeLimit)
		if l.Description != "" {
			fmt.Fprintf(&b, " - %s", l.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}
	xf, okX := args["x"].(float64)
	yf, okY := args["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required numbers"), nil
	}
	x, y := int(xf), int(yf)

	var view engine.View
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	kind, ok := cellAt(&view, x, y)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Grid is %dx%d (x 0-%d, y 0-%d)",
			x, y, view.Width, view.Height, view.Width-1, view.Height-1)), nil
	}

	result := fmt.Sprintf("Cell (%d, %d): '%c' %s\n%s", x, y, engine.Glyph(kind), kind, describeKind(kind))
	return mcp.NewToolResultText(result), nil
}

// cellAt reads a cell kind back from the rendered rows of a view
func cellAt(view *engine.View, x, y int) (engine.CellKind, bool) {
	if y < 0 || y >= len(view.Rows) || x < 0 {
		return engine.Solid, false
	}
	row := []rune(view.Rows[y])
	if x >= len(row) {
		return engine.Solid, false
	}
	kind, ok := engine.DefaultLegend[row[x]]
	if !ok {
		kind = engine.Empty
	}
	return kind, true
}

func describeKind(kind engine.CellKind) string {
	switch kind {
	case engine.Entity:
		return "The cat, your current position."
	case engine.Solid:
		return "Wall. Slides stop in front of it."
	case engine.Hazard:
		return "Spikes. Sliding into them sends you back to the last checkpoint."
	case engine.Checkpoint:
		return "Checkpoint. Sliding into it moves you onto it and saves your progress."
	case engine.Goal:
		return "Goal. Sliding into it wins the level."
	}
	return "Empty space. Slides pass straight through."
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Cat Tower - Complete Instructions

GAME OBJECTIVE:
Guide the cat from its spawn to the goal at the top of the tower before the
timer reaches the level's time limit.

GRID LEGEND:
  @  the cat
  .  empty space
  #  wall
  ^  spikes (hazard)
  C  checkpoint
  G  goal
Coordinates are (x, y) with x growing right and y growing down; row 0 is the top.

MOVEMENT:
A move slides the cat in a straight line until the next cell is not empty.
It never stops halfway. What stopped it decides what happens:
  - wall or grid edge: the cat rests in front of it
  - spikes: the grid and facing are restored from the last checkpoint
  - checkpoint: the cat moves onto it and the checkpoint is saved
  - goal: the cat moves onto it and the level is won
A move into an adjacent blocker does nothing but turn the cat.

STATES AND INTENTS:
  main_menu  play starts the level and the timer
  playing    up, down, left, right move; reload returns to the level start
  win, lose  restart plays again, menu returns to the main menu
Running out of time resets the level and ends the run in lose.

TIPS:
  - Use describe_cell when unsure what a glyph is.
  - Send several moves at once with send_intent's intents list; the batch
    stops at the first rejected intent.
  - Checkpoints only save when you land on them, so plan hazard-adjacent
    routes from the last checkpoint you reached.`

// Formatting

func formatView(view *engine.View) string {
	if view == nil {
		return "No state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s | Cat: (%d,%d) facing %s | Timer: %.2f/%.0fs | Height: %.0f%%\n\n",
		view.State, view.Entity.X, view.Entity.Y, view.Orientation,
		view.Timer, view.TimeLimit, (1-view.Progress)*100)

	for _, row := range view.Rows {
		b.WriteString(row)
		b.WriteString("\n")
	}

	switch view.State {
	case engine.Win:
		fmt.Fprintf(&b, "\nLevel complete in %.2fs", view.LastRunTime)
	case engine.Lose:
		fmt.Fprintf(&b, "\nOut of time after %.2fs", view.LastRunTime)
	}
	return b.String()
}

func formatEvents(events []engine.Event) string {
	if len(events) == 0 {
		return ""
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		if e.Type == engine.EventStateChanged {
			names = append(names, fmt.Sprintf("%s(%s)", e.Type, e.State))
			continue
		}
		names = append(names, fmt.Sprintf("%s(%d,%d)", e.Type, e.Position.X, e.Position.Y))
	}
	return strings.Join(names, ", ")
}

func formatIntentResult(result *service.IntentResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "Intent %s: %s\n", result.Intent, result.Message)
	} else {
		fmt.Fprintf(&b, "Intent %s rejected: %s\n", result.Intent, result.Message)
	}
	if ev := formatEvents(result.Events); ev != "" {
		fmt.Fprintf(&b, "Events: %s\n", ev)
	}
	b.WriteString("\n")
	b.WriteString(formatView(result.View))
	return b.String()
}

func formatBatch(requested, executed int, results []*service.IntentResult, view *engine.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d of %d intents\n", executed, requested)
	for i, r := range results {
		status := "ok"
		if !r.Accepted {
			status = "rejected"
		}
		fmt.Fprintf(&b, "%d. %s [%s] %s", i+1, r.Intent, status, r.Message)
		if ev := formatEvents(r.Events); ev != "" {
			fmt.Fprintf(&b, " (%s)", ev)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(formatView(view))
	return b.String()
}
