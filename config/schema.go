package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for repoview.yml. The Extensions
// field is excluded so unknown sections are only checked by their owners.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		// Inline nested structs so the document has no $ref indirection.
		DoNotReference: true,
		Anonymous:      true,
		FieldNameTag:   "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "repoview Configuration"
	schema.Description = "Schema for repoview.yml / repoview.toml."

	return json.MarshalIndent(schema, "", "  ")
}
