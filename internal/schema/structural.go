package schema

import (
	"encoding/json"
	"strings"

	nverrors "github.com/systmms/noctivault/internal/errors"
	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural JSON schema both document flavors are
// checked against before typed parsing. Semantic rules (supported platform,
// mutual exclusion of refs and mocks, version bounds) are enforced in code
// so they produce their dedicated error types.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["platform"],
  "properties": {
    "platform": {"type": "string"},
    "gcp_project_id": {"type": "string"},
    "project_id": {"type": "string"},
    "secret-mocks": {
      "type": "array",
      "items": {"$ref": "#/definitions/mockEntry"}
    },
    "secret-refs": {
      "type": "array",
      "items": {"$ref": "#/definitions/refEntry"}
    }
  },
  "definitions": {
    "mockEntry": {
      "type": "object",
      "required": ["name", "value", "version"],
      "properties": {
        "platform": {"type": "string"},
        "gcp_project_id": {"type": "string"},
        "project_id": {"type": "string"},
        "name": {"type": "string", "minLength": 1},
        "version": {"type": "integer"}
      }
    },
    "refEntry": {
      "type": "object",
      "oneOf": [
        {
          "required": ["key", "children"],
          "properties": {
            "key": {"type": "string"},
            "children": {
              "type": "array",
              "items": {"$ref": "#/definitions/refEntry"}
            }
          }
        },
        {
          "required": ["cast", "ref"],
          "properties": {
            "platform": {"type": "string"},
            "gcp_project_id": {"type": "string"},
            "project_id": {"type": "string"},
            "cast": {"type": "string"},
            "ref": {"type": "string", "minLength": 1},
            "version": {
              "oneOf": [
                {"type": "integer"},
                {"type": "string", "const": "latest"}
              ]
            },
            "type": {"type": "string", "enum": ["str", "int"]}
          },
          "not": {"required": ["key"]}
        }
      ]
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateStructure checks the parsed document against documentSchema.
func validateStructure(raw map[string]interface{}) error {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nverrors.SchemaValidationError{Message: "document is not representable as JSON: " + err.Error()}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nverrors.SchemaValidationError{Message: "structural validation error: " + err.Error()}
	}
	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return nverrors.SchemaValidationError{Message: strings.Join(messages, "; ")}
	}
	return nil
}
