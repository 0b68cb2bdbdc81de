package stepwise

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
)

// SelfCheckInput is the snapshot for a per-step self-check.
type SelfCheckInput struct {
	Objective string
	Memory    []string

	// Steps is the live plan snapshot.
	Steps []PlanStep

	// CurrentStep is the step that just executed.
	CurrentStep *PlanStep

	// Observation is what the executor observed for the current step.
	Observation string

	LastError string
	Context   map[string]any

	Model         string
	MaxSteps      int
	MaxAttempts   int
	CorrelationID string
}

// SelfCheckReport is the engine's assessment of the last executed step.
type SelfCheckReport struct {
	// Action is continue, replan or wait_human. It is only ever demoted from
	// replan to continue (when no replacement steps are usable), never
	// escalated to wait_human by the engine itself.
	Action DecisionAction

	// Steps is the replacement plan when Action is replan.
	Steps []PlanStep

	// Confidence is the service's self-reported confidence, clamped to [0, 100].
	Confidence int

	Evidence          []string
	MissingInfo       []string
	Blockers          []string
	Hypotheses        []string
	VerificationSteps []string

	// ToolSwitch suggests a different capability for the current step, if any.
	ToolSwitch string

	AbortSignals  []string
	FinishSignals []string

	Notes     string
	Questions []string
}

// selfCheckActionAllowed is the action set a self-check may return.
func selfCheckActionAllowed(action string) bool {
	switch DecisionAction(action) {
	case ActionContinue, ActionReplan, ActionWaitHuman:
		return true
	}
	return false
}

// SelfCheck runs a per-step self-assessment after a step executes. Any
// failure returns the conservative default: continue with the current plan.
func (e *Engine) SelfCheck(ctx context.Context, input *SelfCheckInput) *SelfCheckReport {
	keepGoing := &SelfCheckReport{Action: ActionContinue}
	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return keepGoing
	}

	cfg := e.normConfig(input.MaxSteps, input.MaxAttempts)

	var extra strings.Builder
	if input.CurrentStep != nil {
		fmt.Fprintf(&extra, "Step just executed: %s (tool: %s, attempts: %d/%d)\n",
			input.CurrentStep.Title, input.CurrentStep.Tool,
			input.CurrentStep.Attempts, input.CurrentStep.MaxAttempts)
	}
	if input.Observation != "" {
		fmt.Fprintf(&extra, "Observation: %s\n", input.Observation)
	}
	if input.LastError != "" {
		fmt.Fprintf(&extra, "Error: %s\n", input.LastError)
	}

	data := map[string]any{
		"Objective": input.Objective,
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(input.Steps),
		"Context":   formatContext(input.Context),
		"Extra":     strings.TrimRight(extra.String(), "\n"),
	}

	obj, err := e.generateJSON(ctx, callSelfCheck, input.Model, reviewTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("self-check failed, continuing", "error", err.Error())
		return keepGoing
	}

	report := &SelfCheckReport{
		Action:            ActionContinue,
		Evidence:          strsField(obj, "evidence"),
		MissingInfo:       strsField(obj, "missing_info", "missingInfo"),
		Blockers:          strsField(obj, "blockers"),
		Hypotheses:        strsField(obj, "hypotheses"),
		VerificationSteps: strsField(obj, "verification_steps", "verificationSteps"),
		ToolSwitch:        strings.TrimSpace(strField(obj, "tool_switch", "toolSwitch")),
		AbortSignals:      strsField(obj, "abort_signals", "abortSignals"),
		FinishSignals:     strsField(obj, "finish_signals", "finishSignals"),
		Notes:             strings.TrimSpace(strField(obj, "notes")),
		Questions:         strsField(obj, "questions"),
	}
	if confidence := numField(obj, "confidence"); confidence != nil {
		report.Confidence = clampPercent(*confidence)
	}

	action := strings.ToLower(strings.TrimSpace(strField(obj, "action")))
	if selfCheckActionAllowed(action) {
		report.Action = DecisionAction(action)
	}

	if report.Action == ActionReplan {
		report.Steps = replacementSteps(obj, cfg)
		if len(report.Steps) == 0 {
			report.Steps = alternativeBranchSteps(obj, cfg)
		}
		if len(report.Steps) == 0 {
			// A replan without replacement steps is demoted, never escalated.
			ctxlog.From(ctx).Debug("self-check suggested replan without steps, continuing")
			report.Action = ActionContinue
		}
	}

	return report
}
