// Package library manages the local cache of Docker Compose deployment
// templates and its remote git source. A template is a directory holding a
// docker-compose.yaml (or .yml) plus an optional patchable-field declaration.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dockhand/logging"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrTemplateNotFound is returned when no local template matches a service
// name even after refreshing from the remote source.
var ErrTemplateNotFound = errors.New("template not found")

var composeFileNames = []string{"docker-compose.yaml", "docker-compose.yml"}

// Template is a resolved deployment template. It is a value snapshot:
// refreshing the library afterwards does not mutate descriptors already
// handed out.
type Template struct {
	Name      string
	Path      string
	Compose   string
	Patchable []string
}

// Resolver finds templates in the local library, falling back to a single
// remote fetch-and-retry on a miss.
type Resolver struct {
	dir    string
	remote *Remote
}

func NewResolver(dir string, remote *Remote) *Resolver {
	return &Resolver{dir: dir, remote: remote}
}

// Dir returns the library directory path.
func (r *Resolver) Dir() string {
	return r.dir
}

// List returns the names of all available templates, sorted. A template is
// any directory directly under the library root that contains a compose file.
func (r *Resolver) List() []string {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if composeFilePath(filepath.Join(r.dir, e.Name())) != "" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Resolve looks up a template by service name: exact directory name first,
// then the best fuzzy match over available template names. On a miss the
// remote source is fetched once and the lookup retried before giving up with
// ErrTemplateNotFound.
func (r *Resolver) Resolve(ctx context.Context, serviceName string) (*Template, error) {
	if tpl := r.lookup(serviceName); tpl != nil {
		return tpl, nil
	}

	if r.remote != nil {
		logging.Named("library").Info("template missing locally, fetching remote",
			zap.String("service", serviceName))
		if err := r.remote.Sync(ctx); err != nil {
			logging.Named("library").Warn("remote fetch failed", zap.Error(err))
		} else if tpl := r.lookup(serviceName); tpl != nil {
			return tpl, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, serviceName)
}

// Refresh re-fetches the remote template source in full.
func (r *Resolver) Refresh(ctx context.Context) error {
	if r.remote == nil {
		return fmt.Errorf("no template remote configured")
	}
	return r.remote.Sync(ctx)
}

func (r *Resolver) lookup(serviceName string) *Template {
	name := strings.ToLower(strings.TrimSpace(serviceName))
	if name == "" {
		return nil
	}

	if tpl, err := r.load(name); err == nil {
		return tpl
	}

	available := r.List()
	matches := fuzzy.Find(name, available)
	if len(matches) == 0 {
		return nil
	}
	tpl, err := r.load(available[matches[0].Index])
	if err != nil {
		return nil
	}
	logging.Named("library").Debug("fuzzy-matched template",
		zap.String("service", serviceName), zap.String("template", tpl.Name))
	return tpl
}

func (r *Resolver) load(name string) (*Template, error) {
	dir := filepath.Join(r.dir, name)
	composePath := composeFilePath(dir)
	if composePath == "" {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	content, err := os.ReadFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return &Template{
		Name:      name,
		Path:      dir,
		Compose:   string(content),
		Patchable: loadPatchable(dir),
	}, nil
}

func composeFilePath(dir string) string {
	for _, fn := range composeFileNames {
		p := filepath.Join(dir, fn)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// loadPatchable reads the template's declared patchable fields from
// patchable.yaml. Templates without a declaration accept the default set.
func loadPatchable(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "patchable.yaml"))
	if err != nil {
		return append([]string(nil), DefaultPatchable...)
	}
	var fields []string
	if err := yaml.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return append([]string(nil), DefaultPatchable...)
	}
	return fields
}
