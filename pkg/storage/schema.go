package storage

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const journeysSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "user_id", "crop_id", "status", "current_step_index", "steps"],
    "properties": {
      "id": { "type": "string", "minLength": 1 },
      "user_id": { "type": "string" },
      "crop_id": { "type": "string", "minLength": 1 },
      "crop_name": { "type": "string" },
      "status": { "enum": ["active", "completed", "failed"] },
      "current_step_index": { "type": "integer", "minimum": 0 },
      "health_score": { "type": "integer", "minimum": 0, "maximum": 100 },
      "run": { "type": "integer", "minimum": 0 },
      "steps": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["step_id", "verified"],
          "properties": {
            "step_id": { "type": "string" },
            "verified": { "type": "boolean" },
            "proof_image_url": { "type": "string" },
            "ai_feedback": { "type": "string" }
          }
        }
      }
    }
  }
}`

const ledgerSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["key", "user_id", "points", "eco_points"],
    "properties": {
      "key": { "type": "string", "minLength": 1 },
      "points": { "type": "integer", "minimum": 0 },
      "eco_points": { "type": "integer", "minimum": 0 }
    }
  }
}`

var (
	journeysSchemaLoader = gojsonschema.NewStringLoader(journeysSchemaJSON)
	ledgerSchemaLoader   = gojsonschema.NewStringLoader(ledgerSchemaJSON)
)

// validateDocument checks a stored JSON document against a schema.
func validateDocument(schema gojsonschema.JSONLoader, name string, data []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid %s document: %s", name, strings.Join(msgs, "; "))
}
