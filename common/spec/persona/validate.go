package persona

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaJSON is the structural contract for seed-pack documents. Only name
// is required per persona; emotion, attitude, and opinions are free text
// with defaults applied downstream by the context builder.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["personas"],
  "additionalProperties": false,
  "properties": {
    "personas": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name":     {"type": "string", "minLength": 1},
          "emotion":  {"type": "string"},
          "attitude": {"type": "string"},
          "opinions": {"type": "string"}
        }
      }
    }
  }
}`

var packSchema = jsonschema.MustCompileString("persona-pack.schema.json", schemaJSON)

// Validate checks a decoded YAML tree against the seed-pack schema.
// It returns the first validation error encountered, or nil if valid.
func Validate(tree any) error {
	if err := packSchema.Validate(tree); err != nil {
		return fmt.Errorf("persona pack invalid: %w", err)
	}
	return nil
}
