// Package agent runs the think-act-observe loop that turns a user
// instruction into tool calls against the local host and cluster.
package agent

import (
	"context"
	"fmt"
	"strings"

	"dockhand/config"
	"dockhand/library"
	"dockhand/logging"
	"dockhand/memory"
	"dockhand/model"
	"dockhand/provider"
	"dockhand/storage"
	"dockhand/sysinfo"
	"dockhand/tools"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// promptWindowTurns bounds how much history goes into each model request.
// The full history stays in the session file.
const promptWindowTurns = 40

// ProviderError is a failure talking to the model endpoint. It aborts the
// current turn instead of being fed back into the loop.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// LoopExceededError terminates a turn that ran out of steps. The partial plan
// and last observation are carried so the caller can show what was attempted.
type LoopExceededError struct {
	Plan            *model.Plan
	LastObservation string
	Steps           int
}

func (e *LoopExceededError) Error() string {
	return fmt.Sprintf("stopped after %d steps without completing the task", e.Steps)
}

// Memory is the slice of the memory store the orchestrator needs. Both
// methods degrade instead of failing.
type Memory interface {
	Record(ctx context.Context, text string, meta memory.Metadata)
	Query(ctx context.Context, text string, k int, threshold float64) []memory.Record
}

// Config wires an Orchestrator. Memory, Library, Rules and Sessions may be
// nil; the loop runs without them.
type Config struct {
	Provider model.Provider
	Registry *tools.Registry
	Executor *tools.Executor
	Memory   Memory
	Library  *library.Resolver
	Rules    *config.Rules
	Session  *storage.Session
	Sessions *storage.SessionStorage
	Settings *config.Settings

	// Stream receives reply chunks as they arrive, for display.
	Stream func(chunk string)

	// CollectInfo overrides host context collection; defaults to
	// sysinfo.Collect.
	CollectInfo func(ctx context.Context) string
}

// Orchestrator owns the loop state for one session. It is not safe for
// concurrent use; a session advances one turn at a time.
type Orchestrator struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config) *Orchestrator {
	if cfg.CollectInfo == nil {
		cfg.CollectInfo = sysinfo.Collect
	}
	if cfg.Stream == nil {
		cfg.Stream = func(string) {}
	}
	return &Orchestrator{cfg: cfg, log: logging.Named("agent")}
}

// Run executes one user instruction to completion.
//
// The loop is bounded by the configured step count. Tool failures, declined
// confirmations and unparsable replies all come back as observations for the
// next step; only provider failures and cancellation abort the turn. When
// the bound is hit the partial plan is returned inside a LoopExceededError.
func (o *Orchestrator) Run(ctx context.Context, instruction string) (*model.Plan, error) {
	plan := &model.Plan{Instruction: instruction}

	var memories []memory.Record
	if o.cfg.Memory != nil {
		memories = o.cfg.Memory.Query(ctx, instruction,
			o.cfg.Settings.MemoryTopK, o.cfg.Settings.MemoryThreshold)
	}
	template := o.matchTemplate(ctx, instruction)

	o.cfg.Session.Append(model.Turn{Role: model.RoleUser, Content: instruction})

	catalog := o.cfg.Registry.Catalog()
	maxSteps := o.cfg.Settings.MaxSteps

	for step := 1; step <= maxSteps; step++ {
		reply, call, err := o.think(ctx, memories, template, catalog)
		if err != nil {
			o.finish(ctx, plan)
			if ctx.Err() != nil {
				return plan, ctx.Err()
			}
			return plan, &ProviderError{Err: err}
		}

		o.cfg.Session.Append(model.Turn{
			Role: model.RoleAssistant, Content: reply, ToolCall: call,
		})

		if call == nil {
			if looksLikeToolCall(reply) {
				// The model tried to call a tool but produced
				// something unparsable. Feed the failure back and
				// let it correct itself.
				o.log.Debug("malformed tool call", zap.Int("step", step))
				o.observe(plan, &model.ToolCall{}, &model.ToolResult{
					Err: "could not parse a tool call from the reply; use the provided tool-calling interface instead of raw JSON",
				}, model.StepFailed)
				continue
			}
			plan.Final = reply
			plan.Completed = true
			o.finish(ctx, plan)
			return plan, nil
		}

		o.log.Info("executing tool call",
			zap.Int("step", step), zap.String("tool", call.Name))
		result, execErr := o.cfg.Executor.Execute(ctx, *call)
		if execErr != nil {
			// Unknown tool or invalid parameters: the model's mistake,
			// observed and counted against the step bound.
			result = &model.ToolResult{Err: execErr.Error()}
		}
		o.observe(plan, call, result, stepState(result))
	}

	o.finish(ctx, plan)
	return plan, &LoopExceededError{
		Plan:            plan,
		LastObservation: plan.LastObservation(),
		Steps:           maxSteps,
	}
}

// think runs one model call and returns the accumulated reply plus the first
// tool call, if any. Legacy JSON tool calls leaked into the text are
// recovered here.
func (o *Orchestrator) think(ctx context.Context, memories []memory.Record, template *library.Template, catalog []mcptypes.Tool) (string, *model.ToolCall, error) {
	systemPrompt := BuildSystemPrompt(PromptData{
		SystemInfo: o.cfg.CollectInfo(ctx),
		Rules:      o.rulesText(),
		Memories:   memories,
		Template:   template,
	})

	turns := append(
		[]model.Turn{{Role: model.RoleSystem, Content: systemPrompt}},
		o.cfg.Session.PromptWindow(promptWindowTurns)...,
	)

	var content strings.Builder
	var calls []model.ToolCall
	err := o.cfg.Provider.ChatWithTools(ctx, turns, catalog, func(chunk string, toolCalls []model.ToolCall) error {
		if chunk != "" {
			content.WriteString(chunk)
			o.cfg.Stream(chunk)
		}
		calls = append(calls, toolCalls...)
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	reply := content.String()
	if len(calls) > 0 {
		return reply, &calls[0], nil
	}
	if legacy := provider.ExtractLegacyToolCall(reply); legacy != nil {
		o.log.Debug("recovered legacy tool call", zap.String("tool", legacy.Name))
		return reply, legacy, nil
	}
	return reply, nil, nil
}

// observe records a step outcome in the plan and the session.
func (o *Orchestrator) observe(plan *model.Plan, call *model.ToolCall, result *model.ToolResult, state model.StepState) {
	plan.Steps = append(plan.Steps, model.PlanStep{
		Tool:      call.Name,
		Arguments: call.Arguments,
		State:     state,
		Result:    result,
	})
	o.cfg.Session.Append(model.Turn{
		Role:     model.RoleTool,
		Content:  result.Observation(),
		ToolCall: call,
		Result:   result,
	})
}

// finish persists the turn: session to disk, outcome to the memory store.
// Recording uses a background context so a cancelled turn is still recorded.
func (o *Orchestrator) finish(ctx context.Context, plan *model.Plan) {
	if o.cfg.Sessions != nil {
		if o.cfg.Session.Name == "" {
			o.cfg.Session.Name = storage.GenerateSessionName(plan.Instruction)
		}
		if err := o.cfg.Sessions.Save(o.cfg.Session); err != nil {
			o.log.Warn("failed to save session", zap.Error(err))
		}
	}
	if o.cfg.Memory == nil {
		return
	}

	text := plan.Instruction
	if plan.Final != "" {
		text += "\nResult: " + plan.Final
	} else if obs := plan.LastObservation(); obs != "" {
		text += "\nLast observation: " + obs
	}
	o.cfg.Memory.Record(context.WithoutCancel(ctx), text, memory.Metadata{
		Outcome: plan.Outcome(),
		Tags:    toolTags(plan),
	})
}

// matchTemplate looks for a library template named in the instruction, the
// way a deployment request usually carries the service name verbatim. A
// missing library or failed lookup just means no template context.
func (o *Orchestrator) matchTemplate(ctx context.Context, instruction string) *library.Template {
	if o.cfg.Library == nil {
		return nil
	}
	lower := strings.ToLower(instruction)
	for _, name := range o.cfg.Library.List() {
		if strings.Contains(lower, name) {
			tpl, err := o.cfg.Library.Resolve(ctx, name)
			if err != nil {
				o.log.Warn("template lookup failed",
					zap.String("template", name), zap.Error(err))
				return nil
			}
			return tpl
		}
	}
	return nil
}

func (o *Orchestrator) rulesText() string {
	if o.cfg.Rules == nil {
		return ""
	}
	return o.cfg.Rules.Text()
}

func stepState(result *model.ToolResult) model.StepState {
	switch {
	case result.Declined:
		return model.StepDeclined
	case result.Success:
		return model.StepDone
	default:
		return model.StepFailed
	}
}

// looksLikeToolCall reports whether a free-text reply appears to be a failed
// attempt at a JSON tool call.
func looksLikeToolCall(reply string) bool {
	obj := provider.ExtractJSON(reply)
	if obj == nil {
		return false
	}
	for _, key := range []string{"tool", "name", "arguments", "parameters"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func toolTags(plan *model.Plan) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, step := range plan.Steps {
		if step.Tool == "" || seen[step.Tool] {
			continue
		}
		seen[step.Tool] = true
		tags = append(tags, step.Tool)
	}
	return tags
}
