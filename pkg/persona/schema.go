package persona

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// personaSchema constrains user-supplied persona files: both fields are
// required and non-empty, and unknown fields are rejected.
const personaSchema = `{
	"type": "object",
	"properties": {
		"key": {"type": "string", "minLength": 1},
		"system_prompt": {"type": "string", "minLength": 1}
	},
	"required": ["key", "system_prompt"],
	"additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(personaSchema)

// validatePersonaDocument validates raw persona JSON against the schema.
func validatePersonaDocument(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid persona document: %s", errs[0].String())
		}
		return fmt.Errorf("invalid persona document")
	}

	return nil
}
