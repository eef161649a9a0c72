package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/wricardo/cattower/game/engine"
)

// LevelSchema reflects the JSON schema of a level file
func LevelSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(engine.Level))
	schema.Title = "Cat Tower Level"
	schema.Description = "Grid layout, legend and time limit for one level. " +
		"Default legend: '.' empty, '@' spawn, '#' solid, '^' hazard, 'C' checkpoint, 'G' goal."
	return schema
}

// MarshalLevelSchema renders LevelSchema as indented JSON
func MarshalLevelSchema() ([]byte, error) {
	data, err := json.MarshalIndent(LevelSchema(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
