package stepwise

import (
	"fmt"
	"strings"
)

// Summary renders the plan as a numbered outline suitable for prompts and
// human-readable checkpoints.
func (r *PlanResult) Summary() string {
	var summary strings.Builder
	for i, step := range r.Steps {
		summary.WriteString(fmt.Sprintf("%d. %s\n", i+1, step.Title))
	}
	return summary.String()
}

// ProgressSummary renders the completed portion of a plan snapshot. The
// executor owns step statuses; this helper just reads them back.
func ProgressSummary(steps []PlanStep) string {
	var summary strings.Builder
	var completed []PlanStep
	for _, step := range steps {
		if step.Status == StepStatusCompleted {
			completed = append(completed, step)
		}
	}

	if len(completed) == 0 {
		summary.WriteString("No steps completed yet.")
		return summary.String()
	}

	summary.WriteString("Completed steps:\n")
	for _, step := range completed {
		summary.WriteString(fmt.Sprintf("- %s\n", step.Title))
	}
	return summary.String()
}

// PendingSummary renders the steps still waiting to run.
func PendingSummary(steps []PlanStep) string {
	var summary strings.Builder
	for _, step := range steps {
		if step.Status == StepStatusPending || step.Status == StepStatusRunning {
			summary.WriteString(fmt.Sprintf("- %s (tool: %s)\n", step.Title, step.Tool))
		}
	}
	if summary.Len() == 0 {
		return "No steps remaining."
	}
	return summary.String()
}
