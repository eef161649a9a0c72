// Package config provides level and settings management for Cat Tower.
//
// The config package handles:
//   - Loading levels from JSON or YAML files
//   - Level validation on load
//   - Default level selection with a built-in fallback
//   - Level discovery and listing
//   - Process settings from the environment and .env files
//   - The JSON schema of the level format
//
// Level Format:
//
// Levels are stored as <id>.json, <id>.yaml or <id>.yml in the level
// directory. Each level defines:
//   - A layout of text rows using the legend ('.' empty, '@' spawn,
//     '#' solid, '^' hazard, 'C' checkpoint, 'G' goal)
//   - Optional legend overrides for extra characters
//   - An optional time limit and starting orientation
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific level
//	level, err := manager.LoadLevel("tower")
//
//	// Get the default level
//	id, level := manager.GetDefault()
//
//	// List available levels
//	levels, err := manager.ListLevels()
package config
