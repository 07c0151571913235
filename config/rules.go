package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const defaultRules = `# Operator rules
#
# Free-form guidance appended to the assistant's system prompt.
# Edit this file and run /reload in the chat to pick up changes.
`

// Rules holds the operator's prompt customization text. It is loaded once at
// startup and re-read only on an explicit reload command.
type Rules struct {
	mu   sync.RWMutex
	path string
	text string
}

// LoadRules reads the rules file, creating a commented stub on first run.
func LoadRules() (*Rules, error) {
	return LoadRulesFromPath(GetRulesFilePath())
}

// LoadRulesFromPath reads operator rules from an explicit path.
func LoadRulesFromPath(path string) (*Rules, error) {
	r := &Rules{path: path}

	if !FileExists(path) {
		if err := EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultRules), 0600); err != nil {
			return nil, fmt.Errorf("failed to create rules file: %w", err)
		}
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the rules file from disk.
func (r *Rules) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	r.mu.Lock()
	r.text = string(data)
	r.mu.Unlock()
	return nil
}

// Text returns the current rules text.
func (r *Rules) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}
