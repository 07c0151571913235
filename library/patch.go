package library

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPatchable is the override set accepted by templates that do not
// declare their own patchable fields.
var DefaultPatchable = []string{"password", "port", "data_path"}

// Patch applies overrides to a compose document, touching only the fields the
// template declares patchable. Override keys outside the patchable list are
// returned as warnings and left unapplied. All non-overridden structure is
// preserved, and applying the same overrides twice yields the same document
// as applying them once.
func Patch(composeYAML string, patchable []string, overrides map[string]string) (string, []string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(composeYAML), &doc); err != nil {
		return "", nil, fmt.Errorf("failed to parse compose document: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return "", nil, fmt.Errorf("compose document is empty")
	}
	root := doc.Content[0]

	allowed := make(map[string]bool, len(patchable))
	for _, f := range patchable {
		allowed[strings.ToLower(f)] = true
	}

	var warnings []string
	for key, value := range overrides {
		if !allowed[strings.ToLower(key)] {
			warnings = append(warnings, fmt.Sprintf("field %q is not patchable for this template", key))
			continue
		}
		applyOverride(root, strings.ToLower(key), value)
	}
	sort.Strings(warnings)

	var out strings.Builder
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", warnings, fmt.Errorf("failed to serialize compose document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", warnings, fmt.Errorf("failed to serialize compose document: %w", err)
	}
	return out.String(), warnings, nil
}

func applyOverride(root *yaml.Node, key, value string) {
	services := mapValue(root, "services")
	if services == nil || services.Kind != yaml.MappingNode {
		return
	}
	for i := 1; i < len(services.Content); i += 2 {
		service := services.Content[i]
		switch key {
		case "password":
			patchEnvironment(service, func(name string) bool {
				return strings.Contains(strings.ToUpper(name), "PASSWORD")
			}, value)
		case "port":
			// Host port is the segment before the container port:
			// "host:container" or "ip:host:container".
			patchBindings(mapValue(service, "ports"), func(parts []string) {
				parts[len(parts)-2] = value
			})
		case "data_path":
			// Host path leads the binding: "host:container[:mode]".
			patchBindings(mapValue(service, "volumes"), func(parts []string) {
				parts[0] = value
			})
		default:
			// Template-declared custom fields map onto environment
			// variables of the same name.
			patchEnvironment(service, func(name string) bool {
				return strings.EqualFold(name, key)
			}, value)
		}
	}
}

// patchEnvironment rewrites environment entries whose variable name satisfies
// match. Both mapping form (KEY: val) and sequence form (KEY=val) are
// handled.
func patchEnvironment(service *yaml.Node, match func(string) bool, value string) {
	env := mapValue(service, "environment")
	if env == nil {
		return
	}
	switch env.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(env.Content); i += 2 {
			if match(env.Content[i].Value) {
				setScalar(env.Content[i+1], value)
			}
		}
	case yaml.SequenceNode:
		for _, item := range env.Content {
			name, _, found := strings.Cut(item.Value, "=")
			if found && match(name) {
				setScalar(item, name+"="+value)
			}
		}
	}
}

// patchBindings rewrites colon-separated binding entries in a ports or
// volumes sequence. rewrite mutates the split segments in place.
func patchBindings(seq *yaml.Node, rewrite func(parts []string)) {
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return
	}
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			continue
		}
		parts := strings.Split(item.Value, ":")
		if len(parts) < 2 {
			continue
		}
		rewrite(parts)
		setScalar(item, strings.Join(parts, ":"))
	}
}

func setScalar(n *yaml.Node, value string) {
	n.SetString(value)
}

// mapValue returns the value node for key in a mapping node, or nil.
func mapValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
