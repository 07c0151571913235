package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dockhand/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func echoSchema() mcptypes.ToolInputSchema {
	return mcptypes.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"text": map[string]any{"type": "string"},
		},
		Required: []string{"text"},
	}
}

func allowAll() Confirmer {
	return ConfirmerFunc(func(model.ToolCall, string) bool { return true })
}

func denyAll() Confirmer {
	return ConfirmerFunc(func(model.ToolCall, string) bool { return false })
}

func TestExecutorUnknownTool(t *testing.T) {
	e := NewExecutor(NewRegistry(), allowAll(), time.Second)

	_, err := e.Execute(context.Background(), model.ToolCall{Name: "nope"})
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("error = %v, want ErrUnknownTool", err)
	}
}

func TestExecutorInvalidParameters(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{
		Name:   "echo",
		Schema: echoSchema(),
		Handler: func(_ context.Context, params map[string]any) (string, error) {
			return params["text"].(string), nil
		},
	})
	e := NewExecutor(r, allowAll(), time.Second)

	_, err := e.Execute(context.Background(), model.ToolCall{Name: "echo", Arguments: map[string]any{}})
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("error = %v, want ErrInvalidParameters", err)
	}
}

func TestExecutorSuccess(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{
		Name:   "echo",
		Schema: echoSchema(),
		Handler: func(_ context.Context, params map[string]any) (string, error) {
			return params["text"].(string), nil
		},
	})
	e := NewExecutor(r, allowAll(), time.Second)

	result, err := e.Execute(context.Background(), model.ToolCall{
		Name: "echo", Arguments: map[string]any{"text": "hello"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Output != "hello" {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutorConfirmationGate(t *testing.T) {
	ran := false
	r := NewRegistry()
	r.Register(Descriptor{
		Name:                 "destructive",
		Schema:               mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		RequiresConfirmation: true,
		Handler: func(context.Context, map[string]any) (string, error) {
			ran = true
			return "done", nil
		},
	})
	e := NewExecutor(r, denyAll(), time.Second)

	result, err := e.Execute(context.Background(), model.ToolCall{Name: "destructive"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Declined {
		t.Error("result not marked declined")
	}
	if ran {
		t.Error("handler ran despite denied confirmation")
	}
	if got := result.Observation(); !strings.Contains(got, "denied") {
		t.Errorf("observation = %q, want denial text", got)
	}

	// Same tool with approval runs the handler.
	e = NewExecutor(r, allowAll(), time.Second)
	result, err = e.Execute(context.Background(), model.ToolCall{Name: "destructive"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || !ran {
		t.Errorf("approved call: result = %+v, ran = %v", result, ran)
	}
}

func TestExecutorNilConfirmerDeclines(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{
		Name:                 "gated",
		Schema:               mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		RequiresConfirmation: true,
		Handler: func(context.Context, map[string]any) (string, error) {
			t.Error("handler ran without a confirmer")
			return "", nil
		},
	})
	e := NewExecutor(r, nil, time.Second)

	result, err := e.Execute(context.Background(), model.ToolCall{Name: "gated"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Declined {
		t.Error("expected declined result with nil confirmer")
	}
}

func TestExecutorTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{
		Name:   "slow",
		Schema: mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "finished", nil
			}
		},
	})
	e := NewExecutor(r, allowAll(), 20*time.Millisecond)

	result, err := e.Execute(context.Background(), model.ToolCall{Name: "slow"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("timed-out call reported success")
	}
	if !strings.Contains(result.Err, "timed out") {
		t.Errorf("result error = %q, want timeout text", result.Err)
	}
}

func TestExecutorDispatchedToolSurvivesCancel(t *testing.T) {
	cancelled := make(chan struct{})
	r := NewRegistry()
	r.Register(Descriptor{
		Name:   "apply",
		Schema: mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			// Wait until the caller's context is gone, then make sure
			// our own is still alive.
			<-cancelled
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
				return "applied", nil
			}
		},
	})
	e := NewExecutor(r, allowAll(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var result *model.ToolResult
	var execErr error
	go func() {
		result, execErr = e.Execute(ctx, model.ToolCall{Name: "apply"})
		close(done)
	}()

	cancel()
	close(cancelled)
	<-done

	if execErr != nil {
		t.Fatalf("Execute: %v", execErr)
	}
	if !result.Success || result.Output != "applied" {
		t.Errorf("result = %+v, want completed run despite caller cancel", result)
	}
}

func TestExecutorHandlerFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(Descriptor{
		Name:   "fails",
		Schema: mcptypes.ToolInputSchema{Type: "object", Properties: map[string]any{}},
		Handler: func(context.Context, map[string]any) (string, error) {
			return "partial output", errors.New("exit status 1")
		},
	})
	e := NewExecutor(r, allowAll(), time.Second)

	result, err := e.Execute(context.Background(), model.ToolCall{Name: "fails"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("failed call reported success")
	}
	if result.Output != "partial output" {
		t.Errorf("output = %q, want captured partial output", result.Output)
	}
	obs := result.Observation()
	if !strings.Contains(obs, "Tool execution error") || !strings.Contains(obs, "partial output") {
		t.Errorf("observation = %q", obs)
	}
}

func TestRegistryCatalogSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(Descriptor{Name: name, Schema: mcptypes.ToolInputSchema{Type: "object"}})
	}

	catalog := r.Catalog()
	if len(catalog) != 3 {
		t.Fatalf("catalog size = %d, want 3", len(catalog))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if catalog[i].Name != want {
			t.Errorf("catalog[%d] = %q, want %q", i, catalog[i].Name, want)
		}
	}
}
