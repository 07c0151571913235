// Package tools defines the tool registry and executor: named, schema-typed
// operations the model can invoke, with parameter validation, a confirmation
// gate for destructive actions, and bounded execution time.
package tools

import (
	"context"
	"errors"
	"sort"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownTool is returned when a call names a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes a validated tool call and returns its textual output.
type Handler func(ctx context.Context, params map[string]any) (string, error)

// Descriptor declares a tool: its schema, whether invoking it needs explicit
// user approval, and the handler that performs the work.
type Descriptor struct {
	Name                 string
	Description          string
	Schema               mcptypes.ToolInputSchema
	RequiresConfirmation bool
	Handler              Handler
}

// Registry maps tool names to descriptors.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds a descriptor, replacing any previous tool of the same name.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Catalog returns the registered tools as MCP definitions for the provider
// request, sorted by name.
func (r *Registry) Catalog() []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcptypes.Tool, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, mcptypes.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Schema,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
