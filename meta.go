package stepwise

// TaskType is the reasoning service's classification of the objective.
type TaskType string

const (
	TaskTypeWebTask     TaskType = "web_task"
	TaskTypeExtractInfo TaskType = "extract_info"
	TaskTypeUnknown     TaskType = "unknown"
)

// Critique holds the reasoning service's self-critique of a plan.
type Critique struct {
	Assumptions  []string `json:"assumptions,omitempty"`
	Risks        []string `json:"risks,omitempty"`
	Unknowns     []string `json:"unknowns,omitempty"`
	SafetyChecks []string `json:"safety_checks,omitempty"`
	Questions    []string `json:"questions,omitempty"`
}

// Alternative is a sketched alternative approach to the objective. Alternatives
// are advisory, but the branch-step derivation converts them into contingency
// steps when the response supplies no explicit branch steps.
type Alternative struct {
	Title     string   `json:"title"`
	Rationale string   `json:"rationale,omitempty"`
	Steps     []string `json:"steps,omitempty"`
}

// PlannerMeta carries advisory planning context extracted from a reasoning
// response. None of it is executable; callers may surface it or feed it back
// into later calls.
type PlannerMeta struct {
	Critique       Critique      `json:"critique"`
	Alternatives   []Alternative `json:"alternatives,omitempty"`
	TaskType       TaskType      `json:"task_type,omitempty"`
	Summary        string        `json:"summary,omitempty"`
	Constraints    []string      `json:"constraints,omitempty"`
	SuccessSignals []string      `json:"success_signals,omitempty"`
}
