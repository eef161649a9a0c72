package config

import "github.com/wricardo/cattower/game/engine"

// BuiltinLevelID names the level used when the level directory has none
const BuiltinLevelID = "builtin"

// BuiltinLevel returns a small valid level
func BuiltinLevel() *engine.Level {
	return &engine.Level{
		Name:        "Builtin",
		Description: "Minimal climb used when no level files are available",
		Layout: []string{
			"########",
			"#G....^#",
			"#####.##",
			"#.....C#",
			"#.######",
			"#.....@#",
			"########",
		},
	}
}
