package stepwise

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise/audit"
)

// AdaptInput is the snapshot for a mid-run signal-driven adaptation.
type AdaptInput struct {
	Objective string
	Memory    []string

	// Steps is the live plan snapshot.
	Steps []PlanStep

	// Signals carries the mid-run observations that triggered the check,
	// e.g. {"page_changed": true, "captcha": "present"}.
	Signals map[string]any

	Context map[string]any

	Model         string
	MaxSteps      int
	MaxAttempts   int
	CorrelationID string
}

// AdaptReview is the outcome of a mid-run adaptation check.
type AdaptReview struct {
	ShouldAdapt bool
	Reason      string

	// Steps is the adapted plan; empty when ShouldAdapt is false.
	Steps []PlanStep
}

// Adapt decides whether mid-run signals require adapting the remaining plan.
// Identical failure semantics to the other controllers: conservative
// default, and an adapt verdict with no usable steps is forced to false.
func (e *Engine) Adapt(ctx context.Context, input *AdaptInput) *AdaptReview {
	noAdapt := &AdaptReview{}
	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return noAdapt
	}

	cfg := e.normConfig(input.MaxSteps, input.MaxAttempts)
	data := map[string]any{
		"Objective": input.Objective,
		"Trigger":   "mid_run_signals",
		"Signals":   formatContext(input.Signals),
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(input.Steps),
		"Context":   formatContext(input.Context),
	}

	obj, err := e.generateJSON(ctx, callAdapt, input.Model, reviewTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("mid-run adaptation failed, keeping plan", "error", err.Error())
		return noAdapt
	}

	shouldAdapt, _ := boolField(obj, "should_adapt", "shouldAdapt")
	reason := strings.TrimSpace(strField(obj, "reason"))
	if !shouldAdapt {
		return &AdaptReview{Reason: reason}
	}

	steps := replacementSteps(obj, cfg)
	if len(steps) == 0 {
		steps = alternativeBranchSteps(obj, cfg)
	}
	if len(steps) == 0 {
		ctxlog.From(ctx).Debug("mid-run adaptation suggested change without steps, keeping plan")
		return &AdaptReview{Reason: reason}
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "mid-run adaptation",
		map[string]any{"signals": len(input.Signals), "steps": len(steps)})

	return &AdaptReview{
		ShouldAdapt: true,
		Reason:      reason,
		Steps:       steps,
	}
}
