// Package websocket streams Cat Tower sessions to browsers and other
// WebSocket clients.
//
// A central Hub tracks the connected clients of every session. Each session
// runtime is given one hub Observer, which forwards the published View and
// events of a tick as a JSON Message:
//
//	{"session_id": "...", "event": "state_update", "view": {...}, "events": [...]}
//
// Ticks without events or a state change are thinned out so idle sessions
// send a couple of frames a second rather than one per tick.
//
// Clients may send intents back on the same connection as {"intent": "up"};
// the hub hands them to the IntentFunc installed with SetIntentHandler and
// answers failures with an "error" frame.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	if o, fresh := hub.Attach(sessionID); fresh {
//		svc.Watch(ctx, sessionID, o)
//	}
//	hub.ServeWS(w, r, sessionID)
package websocket
