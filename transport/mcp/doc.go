// Package mcp exposes Cat Tower to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a request against the REST
// API, so an agent plays exactly the same sessions a browser or terminal
// would.
//
// MCP Tools:
//   - create_session: Start a session on a level
//   - list_sessions: List active sessions
//   - game_state: Rendered grid, entity, timer and state
//   - send_intent: One intent, or a list run in order
//   - describe_cell: What occupies a cell
//   - list_levels: Available levels
//   - game_instructions: Rules of the game
//
// Transport Modes:
//   - Stdio: ServeStdio for local MCP clients
//   - HTTP: Client implements http.Handler for a POST /mcp endpoint
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
package mcp
