package course

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/abhisek/coursetrack/internal/schemas"
)

// FixtureSchema describes a complete course definition file, including the
// answer key. It is what the devserver loads and what tests use as fixtures.
var FixtureSchema = &schemas.Schema{
	Name: "course-fixture",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"id", "modules"},
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "minLength": 1},
			"title": map[string]any{"type": "string"},
			"modules": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "lessons"},
					"properties": map[string]any{
						"id":    map[string]any{"type": "string", "minLength": 1},
						"title": map[string]any{"type": "string"},
						"lessons": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type":     "object",
								"required": []any{"id"},
								"properties": map[string]any{
									"id":               map[string]any{"type": "string", "minLength": 1},
									"title":            map[string]any{"type": "string"},
									"duration_minutes": map[string]any{"type": "integer", "minimum": 0},
								},
							},
						},
						"quiz": quizFixtureSchema(),
					},
				},
			},
		},
	},
}

func quizFixtureSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"id", "questions"},
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "minLength": 1},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"id", "options"},
					"properties": map[string]any{
						"id":   map[string]any{"type": "string", "minLength": 1},
						"text": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items": map[string]any{
								"type":     "object",
								"required": []any{"id"},
								"properties": map[string]any{
									"id":     map[string]any{"type": "string", "minLength": 1},
									"value":  map[string]any{"type": "string"},
									"answer": map[string]any{"type": "boolean"},
								},
							},
						},
					},
				},
			},
		},
	}
}

// Parse decodes and validates a course definition. Every module's quiz is
// considered resolved, since a fixture is a complete description.
func Parse(raw []byte) (*Course, error) {
	if err := schemas.Validate(FixtureSchema, raw); err != nil {
		return nil, fmt.Errorf("course fixture: %w", err)
	}

	var c Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode course fixture: %w", err)
	}
	for i := range c.Modules {
		c.Modules[i].QuizKnown = true
	}

	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads and parses a course definition file.
func LoadFile(path string) (*Course, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course fixture: %w", err)
	}
	return Parse(raw)
}
