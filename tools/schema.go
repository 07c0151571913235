package tools

import (
	"errors"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ErrInvalidParameters is returned when a tool call's parameters do not
// satisfy the tool's input schema.
var ErrInvalidParameters = errors.New("invalid parameters")

// ValidateParams checks params against a tool input schema: every required
// field must be present and every supplied field must match its declared JSON
// type. Fields not declared in the schema are rejected.
func ValidateParams(schema mcptypes.ToolInputSchema, params map[string]any) error {
	for _, req := range schema.Required {
		if _, ok := params[req]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidParameters, req)
		}
	}

	for name, value := range params {
		spec, declared := schema.Properties[name]
		if !declared {
			return fmt.Errorf("%w: unexpected field %q", ErrInvalidParameters, name)
		}
		specMap, ok := spec.(map[string]any)
		if !ok {
			continue
		}
		wantType, _ := specMap["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesJSONType(value, wantType) {
			return fmt.Errorf("%w: field %q expects %s, got %T",
				ErrInvalidParameters, name, wantType, value)
		}
	}
	return nil
}

// matchesJSONType checks a decoded JSON value against a schema type name.
// Numbers arrive as float64 from encoding/json, so "integer" accepts whole
// float64 values.
func matchesJSONType(value any, jsonType string) bool {
	switch jsonType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}
