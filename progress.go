package stepwise

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise/audit"
)

// ProgressInput is the snapshot for a replan-on-progress review.
type ProgressInput struct {
	Objective string
	Memory    []string

	// Steps is the live plan snapshot, statuses and attempts as the executor
	// left them.
	Steps []PlanStep

	// Trigger labels what prompted the review (e.g. "step_completed",
	// "observation_mismatch").
	Trigger string

	// Signals carries arbitrary observed key/values for the reviewer.
	Signals map[string]any

	Context map[string]any

	Model         string
	MaxSteps      int
	MaxAttempts   int
	CorrelationID string
}

// ProgressReview is the outcome of a replan-on-progress review.
type ProgressReview struct {
	ShouldReplan bool
	Reason       string

	// Steps is the replacement plan; empty when ShouldReplan is false.
	Steps []PlanStep
}

// ReviewProgress asks the reasoning service whether observed progress
// warrants replacing the remaining plan. Any failure returns the
// conservative default: do not replan. A replan verdict that yields zero
// usable steps falls back to alternatives-derived steps; if those are empty
// too, the verdict is forced to false.
func (e *Engine) ReviewProgress(ctx context.Context, input *ProgressInput) *ProgressReview {
	noReplan := &ProgressReview{}
	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return noReplan
	}

	cfg := e.normConfig(input.MaxSteps, input.MaxAttempts)
	data := map[string]any{
		"Objective": input.Objective,
		"Trigger":   input.Trigger,
		"Signals":   formatContext(input.Signals),
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(input.Steps),
		"Context":   formatContext(input.Context),
	}

	obj, err := e.generateJSON(ctx, callProgressReview, input.Model, reviewTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("progress review failed, not replanning", "error", err.Error())
		return noReplan
	}

	shouldReplan, _ := boolField(obj, "should_replan", "shouldReplan")
	reason := strings.TrimSpace(strField(obj, "reason"))
	if !shouldReplan {
		return &ProgressReview{Reason: reason}
	}

	steps := replacementSteps(obj, cfg)
	if len(steps) == 0 {
		steps = alternativeBranchSteps(obj, cfg)
	}
	if len(steps) == 0 {
		// A replan verdict without a replacement plan is unusable.
		ctxlog.From(ctx).Debug("progress review suggested replan without steps, not replanning")
		return &ProgressReview{Reason: reason}
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "progress review replan",
		map[string]any{"trigger": input.Trigger, "steps": len(steps)})

	return &ProgressReview{
		ShouldReplan: true,
		Reason:       reason,
		Steps:        steps,
	}
}
