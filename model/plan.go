package model

// StepState tracks a planned tool call through its lifecycle.
type StepState string

const (
	StepPending  StepState = "pending"
	StepDeclined StepState = "declined"
	StepDone     StepState = "done"
	StepFailed   StepState = "failed"
)

// PlanStep is one executed (or attempted) tool call within a turn.
type PlanStep struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	State     StepState      `json:"state"`
	Result    *ToolResult    `json:"result,omitempty"`
}

// Plan is the transient record of what the orchestrator did during one user
// instruction. It is discarded after the turn; only its outcome is persisted
// to the session and memory store.
type Plan struct {
	Instruction string     `json:"instruction"`
	Steps       []PlanStep `json:"steps"`
	Final       string     `json:"final,omitempty"`
	Completed   bool       `json:"completed"`
}

// LastObservation returns the most recent step result text, or empty when no
// step has run.
func (p *Plan) LastObservation() string {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if p.Steps[i].Result != nil {
			return p.Steps[i].Result.Observation()
		}
	}
	return ""
}

// Outcome summarizes the plan for memory recording.
func (p *Plan) Outcome() string {
	if p.Completed {
		return "success"
	}
	return "incomplete"
}
