package stepwise

// StepStatus represents the execution status of a plan step. The engine only
// ever produces StepStatusPending; transitions are owned by the executor.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Phase distinguishes planning steps from acting steps.
type Phase string

const (
	PhasePlan Phase = "plan"
	PhaseAct  Phase = "act"
)

const (
	// MinStepAttempts and MaxStepAttempts bound the per-step retry budget.
	// The engine only clamps the budget; retry timing is owned by the executor.
	MinStepAttempts = 1
	MaxStepAttempts = 5
)

// PlanStep is a single planned unit of work. Steps are immutable from the
// engine's point of view: every normalization pass constructs fresh steps with
// fresh IDs, and Attempts/Status are mutated only by the external executor.
type PlanStep struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Status              StepStatus `json:"status"`
	Tool                string     `json:"tool"`
	ExpectedObservation string     `json:"expected_observation,omitempty"`
	SuccessCriteria     string     `json:"success_criteria,omitempty"`
	Phase               Phase      `json:"phase"`
	Priority            *float64   `json:"priority,omitempty"`

	// DependsOn holds flattened indices of steps that must complete first.
	// After normalization every entry is strictly lower than this step's own
	// index, so no cycles or forward references are representable.
	DependsOn []int `json:"depends_on,omitempty"`

	Attempts    int `json:"attempts"`
	MaxAttempts int `json:"max_attempts"`
}

// Goal is the top level of the optional goal > subgoal > step hierarchy.
type Goal struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	SuccessCriteria string    `json:"success_criteria,omitempty"`
	Priority        *float64  `json:"priority,omitempty"`
	DependsOn       []int     `json:"depends_on,omitempty"`
	Subgoals        []Subgoal `json:"subgoals"`
}

// Subgoal groups steps under a goal.
type Subgoal struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	SuccessCriteria string     `json:"success_criteria,omitempty"`
	Priority        *float64   `json:"priority,omitempty"`
	DependsOn       []int      `json:"depends_on,omitempty"`
	Steps           []PlanStep `json:"steps"`
}

// PlanSource marks the provenance of a plan.
type PlanSource string

const (
	// PlanSourceReasoning marks a plan derived from the reasoning service.
	PlanSourceReasoning PlanSource = "reasoning"
	// PlanSourceHeuristic marks a plan produced by the deterministic fallback.
	PlanSourceHeuristic PlanSource = "heuristic"
)

// DecisionAction is the engine's judgment of the single next action.
type DecisionAction string

const (
	ActionContinue  DecisionAction = "continue"
	ActionReplan    DecisionAction = "replan"
	ActionWaitHuman DecisionAction = "wait_human"
	ActionFinish    DecisionAction = "finish"
)

// validDecisionAction reports whether the given string is a known action.
func validDecisionAction(s string) bool {
	switch DecisionAction(s) {
	case ActionContinue, ActionReplan, ActionWaitHuman, ActionFinish:
		return true
	}
	return false
}

// AgentDecision is the engine's judgment of the next action. It is always
// derivable, even for an empty plan.
type AgentDecision struct {
	Action   DecisionAction `json:"action"`
	Reason   string         `json:"reason,omitempty"`
	ToolName string         `json:"tool_name,omitempty"`
}

// BuildMode selects what the Plan Builder constructs.
type BuildMode string

const (
	// ModePlan builds a full goal/subgoal/step plan for the objective.
	ModePlan BuildMode = "plan"
	// ModeBranch builds a short flat contingency plan for a named failed step.
	ModeBranch BuildMode = "branch"
)

// clampAttempts clamps a retry budget into [MinStepAttempts, MaxStepAttempts].
func clampAttempts(n int) int {
	if n < MinStepAttempts {
		return MinStepAttempts
	}
	if n > MaxStepAttempts {
		return MaxStepAttempts
	}
	return n
}
