// Package service provides the business logic layer for Cat Tower.
//
// Core Interfaces:
//
// GameService is the high-level API used by every transport. SessionManager
// stores sessions, LevelManager loads levels, and Runtime is the live,
// concurrently driven game behind each session.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns its own game, driven at a fixed step by its
// runtime; intents sent through the service are queued and simulated on the
// next ticks.
//
// Usage:
//
//	sessions := session.NewManager()
//	levels, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, levels)
//
//	info, err := svc.CreateSession(ctx, "tower")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc.SendIntent(ctx, info.ID, "play", false)
//	result, err := svc.SendIntent(ctx, info.ID, "up", true)
package service
