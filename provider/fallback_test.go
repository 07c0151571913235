package provider

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
		wantNil bool
	}{
		{
			name:    "direct object",
			content: `{"type": "question", "content": "which port?"}`,
			wantKey: "type",
		},
		{
			name:    "json fence",
			content: "Here is my plan:\n```json\n{\"tool\": \"deploy_service\"}\n```\nDone.",
			wantKey: "tool",
		},
		{
			name:    "embedded braces",
			content: `Sure thing! {"name": "check_port", "arguments": {"port": 80}} — running now.`,
			wantKey: "name",
		},
		{
			name:    "plain text",
			content: "The deployment finished successfully.",
			wantNil: true,
		},
		{
			name:    "broken json",
			content: `{"name": "check_port", "arguments":`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := ExtractJSON(tt.content)
			if tt.wantNil {
				if obj != nil {
					t.Errorf("ExtractJSON = %v, want nil", obj)
				}
				return
			}
			if obj == nil {
				t.Fatal("ExtractJSON = nil")
			}
			if _, ok := obj[tt.wantKey]; !ok {
				t.Errorf("key %q missing from %v", tt.wantKey, obj)
			}
		})
	}
}

func TestExtractLegacyToolCall(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantName string
		wantNil  bool
	}{
		{
			name:     "name and arguments",
			content:  `{"name": "check_port", "arguments": {"port": 8080}}`,
			wantName: "check_port",
		},
		{
			name:     "tool and parameters aliases",
			content:  `{"tool": "deploy_service", "parameters": {"project_name": "redis"}}`,
			wantName: "deploy_service",
		},
		{
			name:     "fenced call",
			content:  "```json\n{\"name\": \"list_templates\", \"arguments\": {}}\n```",
			wantName: "list_templates",
		},
		{
			name:     "missing arguments defaults empty",
			content:  `{"name": "system_info"}`,
			wantName: "system_info",
		},
		{
			name:    "non-string name",
			content: `{"name": 42, "arguments": {}}`,
			wantNil: true,
		},
		{
			name:    "plain prose",
			content: "I will check the port first.",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := ExtractLegacyToolCall(tt.content)
			if tt.wantNil {
				if call != nil {
					t.Errorf("ExtractLegacyToolCall = %+v, want nil", call)
				}
				return
			}
			if call == nil {
				t.Fatal("ExtractLegacyToolCall = nil")
			}
			if call.Name != tt.wantName {
				t.Errorf("name = %q, want %q", call.Name, tt.wantName)
			}
			if call.Arguments == nil {
				t.Error("arguments nil, want at least an empty map")
			}
		})
	}
}

func TestCleanYAMLFence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "yaml fence",
			content: "```yaml\nservices:\n  redis:\n    image: redis:7\n```",
			want:    "services:\n  redis:\n    image: redis:7",
		},
		{
			name:    "yml fence",
			content: "```yml\nservices: {}\n```",
			want:    "services: {}",
		},
		{
			name:    "no fence passes through",
			content: "services:\n  redis:\n    image: redis:7",
			want:    "services:\n  redis:\n    image: redis:7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanYAMLFence(tt.content); got != tt.want {
				t.Errorf("CleanYAMLFence = %q, want %q", got, tt.want)
			}
		})
	}
}
