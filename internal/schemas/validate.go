// Package schemas checks JSON payloads against JSON Schemas before they are
// decoded into domain types.
package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON Schema definition. It is compiled on first use; a
// Schema must not be copied after that.
type Schema struct {
	// Name identifies the schema in error messages. Kebab-case, e.g. "module-list".
	Name string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// Validate checks raw JSON against the schema.
// Returns nil if no schema is provided or validation passes.
func Validate(schema *Schema, raw []byte) error {
	if schema == nil {
		return nil
	}
	return schema.Validate(raw)
}

// Validate checks raw JSON against s.
func (s *Schema) Validate(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	sch, err := s.compile()
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", s.Name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema %q validation failed: %w", s.Name, err)
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		// AddResource wants the decoded form, so round-trip through JSON.
		def, err := json.Marshal(s.Definition)
		if err != nil {
			s.err = err
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
		if err != nil {
			s.err = err
			return
		}

		c := jsonschema.NewCompiler()
		url := "schema://" + s.Name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			s.err = err
			return
		}
		s.compiled, s.err = c.Compile(url)
	})
	return s.compiled, s.err
}

// ID is the schema fragment for identifiers, which backends send either
// as strings or as integers.
func ID() map[string]any {
	return map[string]any{
		"anyOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{"type": "integer"},
		},
	}
}
