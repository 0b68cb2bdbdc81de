package stepwise

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise/audit"
)

// ResumeInput is the snapshot for a resume-from-pause review.
type ResumeInput struct {
	Objective string
	Memory    []string

	// Steps is the plan as it stood when execution paused.
	Steps []PlanStep

	// PausedFor describes why and how long the run was paused, if known.
	PausedFor string

	Context map[string]any

	Model         string
	MaxSteps      int
	MaxAttempts   int
	CorrelationID string
}

// ResumeReview is the outcome of a resume-from-pause review.
type ResumeReview struct {
	ShouldReplan bool
	Reason       string

	// Summary is an optional short recap of where the run stands.
	Summary string

	// Steps is the replacement plan; empty when ShouldReplan is false.
	Steps []PlanStep
}

// ReviewResume decides whether a paused run's remaining plan is still valid.
// The failure semantics match ReviewProgress: conservative default, and a
// replan verdict without usable steps is forced back to false.
func (e *Engine) ReviewResume(ctx context.Context, input *ResumeInput) *ResumeReview {
	noReplan := &ResumeReview{}
	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return noReplan
	}

	cfg := e.normConfig(input.MaxSteps, input.MaxAttempts)
	data := map[string]any{
		"Objective": input.Objective,
		"Trigger":   "resume_from_pause",
		"Signals":   "",
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(input.Steps),
		"Context":   formatContext(input.Context),
		"Extra":     pauseNote(input.PausedFor),
	}

	obj, err := e.generateJSON(ctx, callResumeReview, input.Model, reviewTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("resume review failed, not replanning", "error", err.Error())
		return noReplan
	}

	shouldReplan, _ := boolField(obj, "should_replan", "shouldReplan")
	review := &ResumeReview{
		Reason:  strings.TrimSpace(strField(obj, "reason")),
		Summary: strings.TrimSpace(strField(obj, "summary")),
	}
	if !shouldReplan {
		return review
	}

	steps := replacementSteps(obj, cfg)
	if len(steps) == 0 {
		steps = alternativeBranchSteps(obj, cfg)
	}
	if len(steps) == 0 {
		ctxlog.From(ctx).Debug("resume review suggested replan without steps, not replanning")
		return review
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "resume review replan",
		map[string]any{"steps": len(steps)})

	review.ShouldReplan = true
	review.Steps = steps
	return review
}

func pauseNote(pausedFor string) string {
	pausedFor = strings.TrimSpace(pausedFor)
	if pausedFor == "" {
		return "Execution paused and is now resuming."
	}
	return "Execution paused (" + pausedFor + ") and is now resuming."
}
