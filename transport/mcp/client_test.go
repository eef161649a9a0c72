package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/cattower/api"
	"github.com/wricardo/cattower/game/config"
	"github.com/wricardo/cattower/game/engine"
	"github.com/wricardo/cattower/game/service"
	"github.com/wricardo/cattower/game/session"
	"github.com/wricardo/cattower/transport/websocket"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

// newStack serves the real API over httptest, backed by the builtin level
func newStack(t *testing.T) *Client {
	t.Helper()

	levels, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessions := session.NewManager(session.WithTickStep(time.Millisecond))
	t.Cleanup(sessions.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(nil)
	go hub.Run(ctx)

	ts := httptest.NewServer(api.NewServer(service.NewGameService(sessions, levels), hub, nil))
	t.Cleanup(ts.Close)
	return NewClient(ts.URL)
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "test-session"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]interface{}
	if err := client.apiCall(context.Background(), "GET", "/api/sessions/test-session", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["id"] != "test-session" {
		t.Errorf("Expected id test-session, got %v", response["id"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		if err := client.apiCall(context.Background(), "GET", "/api/levels", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})

	t.Run("error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found: x"})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/sessions/x", nil, nil)
		if err == nil || err.Error() != "session not found: x" {
			t.Errorf("Expected API error message, got %v", err)
		}
	})

	t.Run("plain status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/levels", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "500") {
			t.Errorf("Expected status in error, got %v", err)
		}
	})
}

func TestClient_createSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions" {
			t.Errorf("Expected POST /api/sessions, got %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["level_id"] != "ledges" {
			t.Errorf("Expected level_id ledges, got %q", body["level_id"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(service.SessionInfo{
			ID:        "test-session-123",
			LevelID:   "ledges",
			LevelName: "Ledges",
			View:      &engine.View{State: engine.MainMenu, Rows: []string{"G.@"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.handleCreateSession(context.Background(), callTool("create_session", map[string]interface{}{"level_id": "ledges"}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"test-session-123", "Ledges", "G.@", "play"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_requiresSession(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	ctx := context.Background()

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"game_state":    client.handleGameState,
		"send_intent":   client.handleSendIntent,
		"describe_cell": client.handleDescribeCell,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(ctx, callTool(name, map[string]interface{}{}))
			if err != nil {
				t.Fatal(err)
			}
			if !result.IsError || !strings.Contains(resultText(t, result), "session_id") {
				t.Errorf("Expected session_id error, got %+v", result)
			}
		})
	}
}

func TestFormatView(t *testing.T) {
	view := &engine.View{
		State:       engine.Playing,
		Rows:        []string{"#G#", "#.#", "#@#"},
		Entity:      engine.Position{X: 1, Y: 2},
		Orientation: engine.Orientation(engine.Up),
		Timer:       3.25,
		TimeLimit:   560,
		Progress:    2.0 / 3.0,
	}

	text := formatView(view)
	for _, want := range []string{"State: playing", "(1,2) facing up", "3.25/560s", "#G#\n#.#\n#@#"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %q", want, text)
		}
	}

	view.State = engine.Win
	view.LastRunTime = 12.5
	if text := formatView(view); !strings.Contains(text, "Level complete in 12.50s") {
		t.Errorf("Expected win line, got %q", text)
	}

	view.State = engine.Lose
	if text := formatView(view); !strings.Contains(text, "Out of time") {
		t.Errorf("Expected lose line, got %q", text)
	}

	if formatView(nil) != "No state available" {
		t.Error("Expected placeholder for nil view")
	}
}

func TestCellAt(t *testing.T) {
	view := &engine.View{Width: 4, Height: 2, Rows: []string{"#G^C", ".@x."}}

	tests := []struct {
		x, y int
		kind engine.CellKind
		ok   bool
	}{
		{0, 0, engine.Solid, true},
		{1, 0, engine.Goal, true},
		{2, 0, engine.Hazard, true},
		{3, 0, engine.Checkpoint, true},
		{1, 1, engine.Entity, true},
		{2, 1, engine.Empty, true},
		{4, 0, engine.Solid, false},
		{0, -1, engine.Solid, false},
		{0, 2, engine.Solid, false},
	}

	for _, test := range tests {
		kind, ok := cellAt(view, test.x, test.y)
		if kind != test.kind || ok != test.ok {
			t.Errorf("cellAt(%d,%d) = %s,%v want %s,%v", test.x, test.y, kind, ok, test.kind, test.ok)
		}
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callTool("game_instructions", nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{
		"Cat Tower - Complete Instructions",
		"GAME OBJECTIVE:",
		"GRID LEGEND:",
		"MOVEMENT:",
		"STATES AND INTENTS:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in instructions", want)
		}
	}
}

func TestClient_ServeHTTPRejectsGet(t *testing.T) {
	client := NewClient("http://localhost:8080")
	w := httptest.NewRecorder()
	client.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestClient_PlaysBuiltinLevel(t *testing.T) {
	client := newStack(t)
	ctx := context.Background()

	result, err := client.handleCreateSession(ctx, callTool("create_session", nil))
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("create_session failed: %s", text)
	}
	line := strings.SplitN(text, "\n", 2)[0]
	sessionID := strings.TrimPrefix(line, "Created session: ")

	result, _ = client.handleSendIntent(ctx, callTool("send_intent", map[string]interface{}{
		"session_id": sessionID,
		"intent":     "play",
	}))
	if text := resultText(t, result); result.IsError || !strings.Contains(text, "State: playing") {
		t.Fatalf("Expected playing after play, got: %s", text)
	}

	result, _ = client.handleSendIntent(ctx, callTool("send_intent", map[string]interface{}{
		"session_id": sessionID,
		"intents":    []interface{}{"left", "up", "right", "up", "left"},
		"reason":     "climb past the checkpoint to the goal",
	}))
	text = resultText(t, result)
	if result.IsError {
		t.Fatalf("send_intent failed: %s", text)
	}
	for _, want := range []string{"Executed 5 of 5", "checkpoint_reached", "goal_reached", "Level complete"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in batch result, got: %s", want, text)
		}
	}

	result, _ = client.handleDescribeCell(ctx, callTool("describe_cell", map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(1),
		"y":          float64(1),
	}))
	if text := resultText(t, result); !strings.Contains(text, "goal") {
		t.Errorf("Expected goal at (1,1), got: %s", text)
	}

	result, _ = client.handleDescribeCell(ctx, callTool("describe_cell", map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(40),
		"y":          float64(1),
	}))
	if !result.IsError {
		t.Error("Expected out of bounds error")
	}

	result, _ = client.handleListLevels(ctx, callTool("list_levels", nil))
	if text := resultText(t, result); !strings.Contains(text, "Available Levels") {
		t.Errorf("Unexpected level list: %s", text)
	}

	result, _ = client.handleListSessions(ctx, callTool("list_sessions", nil))
	if text := resultText(t, result); !strings.Contains(text, sessionID) || !strings.Contains(text, "win") {
		t.Errorf("Expected won session in list, got: %s", text)
	}

	result, _ = client.handleGameState(ctx, callTool("game_state", map[string]interface{}{"session_id": "missing"}))
	if !result.IsError {
		t.Error("Expected error for unknown session")
	}
}
