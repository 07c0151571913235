package provider

import (
	"encoding/json"
	"regexp"
	"strings"

	"dockhand/model"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	yamlFenceRe = regexp.MustCompile("(?s)```ya?ml\n(.*?)\n```")
)

// ExtractJSON recovers a JSON object from free text. Tried in order: direct
// parse, a ```json fenced block, then the span from the first '{' to the
// last '}'. Returns nil when nothing parses.
func ExtractJSON(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		return obj
	}

	if m := jsonFenceRe.FindStringSubmatch(content); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &obj); err == nil {
			return obj
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &obj); err == nil {
			return obj
		}
	}

	return nil
}

// ExtractLegacyToolCall recovers a tool call that the model emitted as plain
// JSON text instead of using the tools API. Accepts {"name": ...,
// "arguments": {...}} with "tool"/"parameters" as aliases. Returns nil when
// the content holds no such call.
func ExtractLegacyToolCall(content string) *model.ToolCall {
	obj := ExtractJSON(content)
	if obj == nil {
		return nil
	}

	name, _ := obj["name"].(string)
	if name == "" {
		name, _ = obj["tool"].(string)
	}
	if name == "" {
		return nil
	}

	args, _ := obj["arguments"].(map[string]any)
	if args == nil {
		args, _ = obj["parameters"].(map[string]any)
	}
	if args == nil {
		args = make(map[string]any)
	}

	return &model.ToolCall{Name: name, Arguments: args}
}

// CleanYAMLFence extracts YAML from a markdown fence if present, otherwise
// returns the content unchanged. Models wrap generated compose files in
// fences more often than not.
func CleanYAMLFence(content string) string {
	if m := yamlFenceRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}
