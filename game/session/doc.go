// Package session provides session management for Cat Tower.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - UUID session identifiers
//   - A Runner per session that drives its game at a fixed step
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the session registry. Runner owns one engine.Game and drives it
// on its own goroutine: intents are queued with Submit, every tick publishes
// a View to subscribers, and Settle waits for queued intents to be simulated.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//	defer manager.Close()
//
//	sess, err := manager.Create("tower", level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess.Runtime.Submit(engine.ActionIntent(engine.ActionPlay))
//	sess.Runtime.Submit(engine.MoveIntent(engine.Up))
//	view, events, err := sess.Runtime.Settle(ctx)
//
// Sessions live in memory only and are lost on restart.
package session
