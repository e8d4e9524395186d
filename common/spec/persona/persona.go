// Package persona defines the persona seed-pack file format.
//
// A seed pack is a YAML document describing personality profiles to load
// into the store at startup:
//
//	personas:
//	  - name: Friendly Teddy
//	    emotion: warm, comforting
//	    attitude: patient, encouraging
//	    opinions: Believes in kindness and reassurance.
//
// Documents are validated against an embedded JSON schema before use, so a
// malformed pack fails at startup rather than producing half-seeded rows.
package persona

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Persona is one profile entry in a seed pack.
type Persona struct {
	Name     string `yaml:"name"`
	Emotion  string `yaml:"emotion"`
	Attitude string `yaml:"attitude"`
	Opinions string `yaml:"opinions"`
}

// Pack is a parsed seed-pack document.
type Pack struct {
	Personas []Persona `yaml:"personas"`
}

// Parse decodes a seed-pack YAML document, validates it against the schema,
// and returns the typed Pack. It is the canonical entry point for loading
// seed packs.
func Parse(data []byte) (*Pack, error) {
	// Decode once into a generic tree for schema validation, then again
	// into the typed struct. The generic pass catches shape errors with
	// schema-quality messages before the typed decode runs.
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("persona pack parse: %w", err)
	}
	if err := Validate(tree); err != nil {
		return nil, err
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("persona pack decode: %w", err)
	}
	return &pack, nil
}
