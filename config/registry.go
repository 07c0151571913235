package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Provider registry errors.
var (
	ErrDuplicateProvider = errors.New("provider already exists")
	ErrProviderNotFound  = errors.New("provider not found")
	ErrNoActiveProvider  = errors.New("no active provider configured")
)

// Profile is a named LLM endpoint configuration. Exactly one profile in the
// registry is active at any time.
type Profile struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"` // "openai", "anthropic", or "ollama"
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Active  bool   `toml:"active"`
}

type registryFile struct {
	Providers []Profile `toml:"providers"`
}

// Registry holds the named provider profiles and the active-provider
// selector. Mutations are atomic with respect to Current: a reader never
// observes zero or two active profiles once one has been activated.
type Registry struct {
	mu       sync.RWMutex
	path     string
	profiles []Profile
}

// LoadRegistry reads providers.toml from the config directory, returning an
// empty registry when the file does not exist yet.
func LoadRegistry() (*Registry, error) {
	return LoadRegistryFromPath(GetProvidersFilePath())
}

// LoadRegistryFromPath reads a provider registry from an explicit path.
func LoadRegistryFromPath(path string) (*Registry, error) {
	r := &Registry{path: path}

	if !FileExists(path) {
		return r, nil
	}

	var file registryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	r.profiles = file.Providers

	return r, nil
}

// Add registers a new profile. The first profile added becomes active.
// Fails with ErrDuplicateProvider when the name is already taken.
func (r *Registry) Add(p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.profiles {
		if existing.Name == p.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateProvider, p.Name)
		}
	}

	p.Active = len(r.profiles) == 0
	r.profiles = append(r.profiles, p)

	return r.save()
}

// Switch activates the named profile, deactivating the previous one in the
// same critical section. Fails with ErrProviderNotFound when absent.
func (r *Registry) Switch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := -1
	for i := range r.profiles {
		if r.profiles[i].Name == name {
			target = i
			break
		}
	}
	if target == -1 {
		return fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}

	for i := range r.profiles {
		r.profiles[i].Active = i == target
	}

	return r.save()
}

// Current returns the active profile, or ErrNoActiveProvider when the
// registry is empty or nothing is marked active.
func (r *Registry) Current() (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if p.Active {
			return p, nil
		}
	}
	return Profile{}, ErrNoActiveProvider
}

// List returns a copy of all profiles; the active one carries Active=true.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// save persists the registry. Callers hold the write lock.
func (r *Registry) save() error {
	if err := EnsureDir(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: contains API keys
	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create providers file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(registryFile{Providers: r.profiles}); err != nil {
		return fmt.Errorf("failed to encode providers: %w", err)
	}
	return nil
}
