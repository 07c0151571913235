package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := LoadRegistryFromPath(filepath.Join(t.TempDir(), "providers.toml"))
	if err != nil {
		t.Fatalf("LoadRegistryFromPath: %v", err)
	}
	return r
}

func TestRegistryAdd(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Add(Profile{Name: "local", Type: "ollama", Model: "llama3.1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// First profile becomes active automatically.
	current, err := r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Name != "local" {
		t.Errorf("current = %q, want %q", current.Name, "local")
	}

	if err := r.Add(Profile{Name: "local", Type: "ollama"}); !errors.Is(err, ErrDuplicateProvider) {
		t.Errorf("duplicate Add error = %v, want ErrDuplicateProvider", err)
	}
}

func TestRegistryCurrentEmpty(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Current(); !errors.Is(err, ErrNoActiveProvider) {
		t.Errorf("Current on empty registry = %v, want ErrNoActiveProvider", err)
	}
}

func TestRegistrySwitch(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"a", "b", "c"} {
		if err := r.Add(Profile{Name: name, Type: "ollama"}); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	if err := r.Switch("b"); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	current, err := r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Name != "b" {
		t.Errorf("current = %q, want %q", current.Name, "b")
	}

	// Exactly one profile is active after a switch.
	activeCount := 0
	for _, p := range r.List() {
		if p.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active profiles = %d, want 1", activeCount)
	}

	if err := r.Switch("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Switch(missing) = %v, want ErrProviderNotFound", err)
	}
	// A failed switch leaves the selection unchanged.
	current, _ = r.Current()
	if current.Name != "b" {
		t.Errorf("current after failed switch = %q, want %q", current.Name, "b")
	}
}

func TestRegistryPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.toml")

	r, err := LoadRegistryFromPath(path)
	if err != nil {
		t.Fatalf("LoadRegistryFromPath: %v", err)
	}
	if err := r.Add(Profile{Name: "cloud", Type: "anthropic", APIKey: "k", Model: "m"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reloaded, err := LoadRegistryFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	current, err := reloaded.Current()
	if err != nil {
		t.Fatalf("Current after reload: %v", err)
	}
	if current.Name != "cloud" || current.APIKey != "k" {
		t.Errorf("reloaded profile = %+v", current)
	}
}
