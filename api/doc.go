// Package api provides the HTTP REST API for Cat Tower.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session, body {"level_id": "tower"} (optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Stop and remove a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Latest published view
//   - POST /api/sessions/{id}/intent - Send one intent, body {"intent": "up", "wait": true}
//   - POST /api/sessions/{id}/intents - Send several intents in order, body {"intents": ["play", "up"]}
//
// Intents are directions (up, down, left, right) or actions (play, restart,
// reload, menu). With wait (the default) the response carries the view and
// events after the intent has been simulated; otherwise it only confirms the
// intent was queued.
//
// Levels:
//   - GET /api/levels - List available levels
//   - GET /api/levels/{id} - Level definition
//   - GET /api/levels/schema - JSON schema for level files
//
// Streaming:
//   - GET /ws?session={id} - WebSocket stream of views and events; clients
//     may send {"intent": "..."} frames back
//
// Errors are returned as {"error": "message"}: 404 for unknown sessions or
// levels, 400 for malformed requests or intents, 409 when a session refuses
// an intent (stopped, or its queue is full).
package api
