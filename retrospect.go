package stepwise

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise/audit"
)

// Retrospective reporters condense run history into reusable text. They are
// purely advisory: every failure, including a panicking audit sink, yields
// the reporter's null value and nothing else.

// RetrospectInput is the snapshot for a post-run self-improvement review.
type RetrospectInput struct {
	Objective string
	Memory    []string

	// Steps is the completed or aborted plan with final statuses.
	Steps []PlanStep

	// Verification is the outcome judgement, if one was obtained.
	Verification *Verification

	LastError string
	Context   map[string]any

	Model         string
	CorrelationID string
}

// Lessons is a lessons-learned record distilled from a finished run.
type Lessons struct {
	Summary         string   `json:"summary"`
	Mistakes        []string `json:"mistakes,omitempty"`
	Improvements    []string `json:"improvements,omitempty"`
	Guardrails      []string `json:"guardrails,omitempty"`
	ToolAdjustments []string `json:"tool_adjustments,omitempty"`
	Confidence      int      `json:"confidence"`
}

// Retrospect requests a lessons-learned record for a finished run. It
// returns nil on any failure.
func (e *Engine) Retrospect(ctx context.Context, input *RetrospectInput) (lessons *Lessons) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Warn("retrospect panicked", "recover", r)
			lessons = nil
		}
	}()

	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return nil
	}

	data := map[string]any{
		"Objective":    input.Objective,
		"Steps":        formatSteps(input.Steps),
		"Verification": verificationNote(input.Verification),
		"LastError":    input.LastError,
		"Memory":       formatMemory(input.Memory),
	}

	obj, err := e.generateJSON(ctx, callRetrospect, input.Model, retrospectTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("retrospect failed", "error", err.Error())
		return nil
	}

	summary := strings.TrimSpace(strField(obj, "summary"))
	if summary == "" {
		return nil
	}

	lessons = &Lessons{
		Summary:         summary,
		Mistakes:        strsField(obj, "mistakes"),
		Improvements:    strsField(obj, "improvements"),
		Guardrails:      strsField(obj, "guardrails"),
		ToolAdjustments: strsField(obj, "tool_adjustments", "toolAdjustments"),
	}
	if confidence := numField(obj, "confidence"); confidence != nil {
		lessons.Confidence = clampPercent(*confidence)
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "self-improvement summary",
		map[string]any{"mistakes": len(lessons.Mistakes), "improvements": len(lessons.Improvements)})

	return lessons
}

// MemoryInput is the snapshot for a memory summarization.
type MemoryInput struct {
	Objective string
	Memory    []string

	// History is the step history rendered as short entries, newest last.
	History []string

	Context map[string]any

	Model         string
	CorrelationID string
}

// SummarizeMemory condenses a long memory list into one text blob merging a
// prose summary with "Decisions:" and "Risks:" lines, suitable to replace
// the memory list in later calls. It returns "" on any failure.
func (e *Engine) SummarizeMemory(ctx context.Context, input *MemoryInput) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Warn("memory summary panicked", "recover", r)
			summary = ""
		}
	}()

	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return ""
	}

	data := map[string]any{
		"Objective": input.Objective,
		"Memory":    formatMemory(input.Memory),
		"History":   formatMemory(input.History),
		"Context":   formatContext(input.Context),
	}

	obj, err := e.generateJSON(ctx, callMemorySummary, input.Model, memorySummaryTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("memory summary failed", "error", err.Error())
		return ""
	}

	summary = strings.TrimSpace(strField(obj, "summary"))
	if summary == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(summary)
	if decisions := strsField(obj, "decisions"); len(decisions) > 0 {
		b.WriteString("\nDecisions: " + strings.Join(decisions, "; "))
	}
	if risks := strsField(obj, "risks"); len(risks) > 0 {
		b.WriteString("\nRisks: " + strings.Join(risks, "; "))
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "memory summary",
		map[string]any{"entries": len(input.Memory)})

	return b.String()
}

// CheckpointInput is the snapshot for a checkpoint brief.
type CheckpointInput struct {
	Objective string
	Memory    []string

	// Steps is the live plan snapshot.
	Steps []PlanStep

	Context map[string]any

	Model         string
	CorrelationID string
}

// Checkpoint is a short "what happens next" brief.
type Checkpoint struct {
	Summary     string   `json:"summary"`
	NextActions []string `json:"next_actions,omitempty"`
	Risks       []string `json:"risks,omitempty"`
}

// CheckpointBrief condenses the run state into a short forward-looking
// brief. It returns nil on any failure.
func (e *Engine) CheckpointBrief(ctx context.Context, input *CheckpointInput) (brief *Checkpoint) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Warn("checkpoint brief panicked", "recover", r)
			brief = nil
		}
	}()

	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return nil
	}

	data := map[string]any{
		"Objective": input.Objective,
		"Steps":     formatSteps(input.Steps),
		"Memory":    formatMemory(input.Memory),
		"Context":   formatContext(input.Context),
	}

	obj, err := e.generateJSON(ctx, callCheckpoint, input.Model, checkpointTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("checkpoint brief failed", "error", err.Error())
		return nil
	}

	summary := strings.TrimSpace(strField(obj, "summary"))
	if summary == "" {
		return nil
	}

	brief = &Checkpoint{
		Summary:     summary,
		NextActions: strsField(obj, "next_actions", "nextActions"),
		Risks:       strsField(obj, "risks"),
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "checkpoint brief",
		map[string]any{"next_actions": len(brief.NextActions)})

	return brief
}

func verificationNote(v *Verification) string {
	if v == nil {
		return "unverified"
	}
	note := string(v.Verdict)
	if len(v.Missing) > 0 {
		note += " (missing: " + strings.Join(v.Missing, "; ") + ")"
	}
	return note
}
