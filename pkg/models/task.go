package models

// PlanSource records whether a plan came from the LLM planner or from the
// deterministic fallback.
type PlanSource string

const (
	PlanSourcePlanned  PlanSource = "planned"
	PlanSourceFallback PlanSource = "fallback"
)

// Plan is an ordered sequence of actions produced once per task request.
// Plans handed to execution are always non-empty and schema-valid.
type Plan struct {
	Description string     `json:"description"`
	Source      PlanSource `json:"source"`
	Steps       []Action   `json:"steps"`
}

// TaskRequest asks for a free-text task to be planned and executed.
type TaskRequest struct {
	TaskDescription string            `json:"task_description"`
	TargetURL       string            `json:"target_url,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
	Context         map[string]string `json:"context,omitempty"`
	// KeepSession keeps an ephemeral session alive after the request so the
	// returned session id can be reused.
	KeepSession bool `json:"keep_session,omitempty"`
}

// ActionResult is the outcome of a single executed action.
type ActionResult struct {
	Success   bool   `json:"success"`
	Output    string `json:"output,omitempty"`
	Data      []byte `json:"data,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// StepResult is one step's outcome within a plan execution.
type StepResult struct {
	StepID  string     `json:"step_id"`
	Action  ActionType `json:"action"`
	Success bool       `json:"success"`
	Output  string     `json:"output,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// TaskResult aggregates a full plan execution. Success is true iff every step
// succeeded. Plan records the provenance so callers can distinguish degraded
// fallback responses from planned ones.
type TaskResult struct {
	TaskID      string       `json:"task_id"`
	SessionID   string       `json:"session_id"`
	Plan        PlanSource   `json:"plan"`
	Description string       `json:"description"`
	Success     bool         `json:"success"`
	Steps       []StepResult `json:"steps"`
	ElapsedMS   int64        `json:"elapsed_ms"`
}
