// Package engine provides the core simulation for the Cat Tower game.
//
// The engine package implements:
//   - A fixed-size cell grid with bounds-checked access
//   - Slide-until-blocked movement of the single controlled entity
//   - Classification of the blocking cell (hazard, checkpoint, goal, wall)
//   - Checkpoint and level-start snapshots
//   - The MainMenu / Playing / Win / Lose state machine and speedrun timer
//   - A fixed-step frame driver
//
// Core Types:
//
// Grid holds the cells. Game owns a Grid, its two snapshots and the state
// machine; it is driven one tick at a time by a Driver, which samples an
// InputSource and publishes a View plus Events to its Observers. Level is the
// file format a Grid is built from.
//
// Usage:
//
//	level := &engine.Level{
//		Name:   "tiny",
//		Layout: []string{"#####", "#@..G", "#####"},
//	}
//
//	game, err := level.NewGame(engine.WithTimeLimit(60))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	queue := engine.NewQueue(16)
//	driver := engine.NewDriver(game, queue, engine.DefaultStep)
//
//	queue.Push(engine.ActionIntent(engine.ActionPlay))
//	queue.Push(engine.MoveIntent(engine.Right))
//	driver.Tick(engine.DefaultStep)
//	driver.Tick(engine.DefaultStep)
//
// Game Rules:
//
// The entity slides until the next cell is not empty. Stopping against a
// hazard sends it back to the last checkpoint; stopping against a checkpoint
// records a new one; stopping against the goal wins. The level is lost when
// the timer reaches its limit.
package engine
