package tools

import (
	"errors"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func TestValidateParams(t *testing.T) {
	schema := mcptypes.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"command": map[string]any{"type": "string"},
			"port":    map[string]any{"type": "integer"},
			"force":   map[string]any{"type": "boolean"},
			"plan":    map[string]any{"type": "object"},
		},
		Required: []string{"command"},
	}

	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{
			name:   "valid full set",
			params: map[string]any{"command": "ls", "port": float64(8080), "force": true},
		},
		{
			name:   "required only",
			params: map[string]any{"command": "ls"},
		},
		{
			name:    "missing required",
			params:  map[string]any{"port": float64(80)},
			wantErr: true,
		},
		{
			name:    "wrong type for string field",
			params:  map[string]any{"command": 42},
			wantErr: true,
		},
		{
			name:    "fractional value for integer field",
			params:  map[string]any{"command": "ls", "port": 80.5},
			wantErr: true,
		},
		{
			name:   "whole float accepted as integer",
			params: map[string]any{"command": "ls", "port": float64(80)},
		},
		{
			name:    "undeclared field",
			params:  map[string]any{"command": "ls", "bogus": "x"},
			wantErr: true,
		},
		{
			name:   "object field",
			params: map[string]any{"command": "ls", "plan": map[string]any{"a": "b"}},
		},
		{
			name:    "wrong type for object field",
			params:  map[string]any{"command": "ls", "plan": "not an object"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(schema, tt.params)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidParameters) {
					t.Errorf("error = %v, want ErrInvalidParameters", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
