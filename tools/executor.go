package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dockhand/logging"
	"dockhand/model"

	"go.uber.org/zap"
)

// ErrToolTimeout is returned when a handler exceeds the execution deadline.
var ErrToolTimeout = errors.New("tool execution timed out")

// ExecutionError is a handler failure carrying any output the tool produced
// before failing.
type ExecutionError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Confirmer decides whether a confirmation-gated tool call may proceed. The
// terminal prompt implements this; tests substitute canned answers.
type Confirmer interface {
	Confirm(call model.ToolCall, description string) bool
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(call model.ToolCall, description string) bool

func (f ConfirmerFunc) Confirm(call model.ToolCall, description string) bool {
	return f(call, description)
}

// Executor validates and runs tool calls against a registry. It is
// side-effect free itself; all side effects belong to the handlers.
type Executor struct {
	registry  *Registry
	confirmer Confirmer
	timeout   time.Duration
}

func NewExecutor(registry *Registry, confirmer Confirmer, timeout time.Duration) *Executor {
	return &Executor{registry: registry, confirmer: confirmer, timeout: timeout}
}

// Execute runs one tool call through the full pipeline: lookup, parameter
// validation, confirmation gate, then the handler under a timeout.
//
// An error return means the call never ran (unknown tool, invalid
// parameters); the orchestrator feeds it back as an observation. Handler
// failures and timeouts are reported inside the ToolResult, as is an operator
// decline.
func (e *Executor) Execute(ctx context.Context, call model.ToolCall) (*model.ToolResult, error) {
	desc, ok := e.registry.Lookup(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	if err := ValidateParams(desc.Schema, call.Arguments); err != nil {
		return nil, fmt.Errorf("tool %s: %w", call.Name, err)
	}

	if desc.RequiresConfirmation {
		if e.confirmer == nil || !e.confirmer.Confirm(call, desc.Description) {
			logging.Named("tools").Info("tool call declined", zap.String("tool", call.Name))
			return &model.ToolResult{Declined: true}, nil
		}
	}

	// A dispatched tool runs to completion or its own timeout. Detaching
	// from the caller's context means a Ctrl-C mid-deployment cannot kill
	// docker compose halfway through applying.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	log := logging.Named("tools")
	log.Debug("executing tool", zap.String("tool", call.Name))
	start := time.Now()
	output, err := desc.Handler(runCtx, call.Arguments)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			log.Warn("tool timed out",
				zap.String("tool", call.Name), zap.Duration("elapsed", elapsed))
			return &model.ToolResult{
				Output: output,
				Err:    fmt.Sprintf("%v after %s", ErrToolTimeout, e.timeout),
			}, nil
		}
		execErr := &ExecutionError{Tool: call.Name, Output: output, Err: err}
		log.Warn("tool failed", zap.String("tool", call.Name), zap.Error(err))
		return &model.ToolResult{Output: output, Err: execErr.Error()}, nil
	}

	log.Debug("tool completed",
		zap.String("tool", call.Name), zap.Duration("elapsed", elapsed))
	return &model.ToolResult{Success: true, Output: output}, nil
}
