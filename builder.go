package stepwise

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise/audit"
)

// maxBranchSteps bounds the contingency plan derived alongside a main plan.
const maxBranchSteps = 4

// evaluationThreshold is the score below which a plan evaluation's revised
// steps replace the current plan.
const evaluationThreshold = 70

// BuildInput is the input for one plan-construction pass.
type BuildInput struct {
	// Objective is the natural-language goal. Required.
	Objective string

	// Memory is the rolling working memory, most recent entry last.
	Memory []string

	// Model overrides the engine's default reasoning model for this pass.
	Model string

	// Mode selects a full plan (ModePlan, the default) or a contingency plan
	// for a failed step (ModeBranch).
	Mode BuildMode

	// FailedStep names the failed step a ModeBranch pass recovers from.
	FailedStep string

	// PreviousPlan, LastError and Context give the reasoning service the
	// execution snapshot this pass replaces or reacts to.
	PreviousPlan []PlanStep
	LastError    string
	Context      map[string]any

	// Capabilities are the automation capabilities advertised to the planner.
	Capabilities []Capability

	// MaxSteps bounds the flattened plan; zero uses the engine default.
	MaxSteps int

	// MaxAttempts is the per-step retry budget; zero uses the engine default.
	// Always clamped into [MinStepAttempts, MaxStepAttempts].
	MaxAttempts int

	// CorrelationID tags audit events emitted during this pass.
	CorrelationID string
}

// PlanResult is the outcome of a plan-construction pass.
type PlanResult struct {
	Steps    []PlanStep    `json:"steps"`
	Decision AgentDecision `json:"decision"`

	// Source marks whether the plan came from the reasoning service or the
	// deterministic fallback.
	Source PlanSource `json:"source"`

	// Hierarchy is the goal/subgoal/step tree the steps were flattened from,
	// when the response supplied one.
	Hierarchy []Goal `json:"hierarchy,omitempty"`

	// Meta is advisory planning context; nil for heuristic plans.
	Meta *PlannerMeta `json:"meta,omitempty"`

	// BranchSteps is a short contingency plan (at most 4 steps).
	BranchSteps []PlanStep `json:"branch_steps,omitempty"`
}

// BuildPlan runs one full plan-construction pass. The reasoning service is
// asked for a structured plan; on transport or parse failure the
// deterministic heuristic plan is returned instead, marked with
// PlanSourceHeuristic. Every refinement stage after the initial request is
// independently best-effort: its failure leaves the plan exactly as it was
// before that stage, so quality degrades monotonically, never
// catastrophically.
//
// An error is returned only for caller misuse; reasoning-service failures
// never surface as errors.
func (e *Engine) BuildPlan(ctx context.Context, input *BuildInput) (*PlanResult, error) {
	if input == nil {
		return nil, goerr.Wrap(ErrNilInput, "BuildPlan")
	}
	if strings.TrimSpace(input.Objective) == "" {
		return nil, goerr.Wrap(ErrEmptyObjective, "BuildPlan")
	}

	logger := ctxlog.From(ctx)
	cfg := e.normConfig(input.MaxSteps, input.MaxAttempts)

	// The safety net is computed up front so the hard gates can return it
	// without further work.
	fallback := e.heuristicResult(input, cfg)

	mode := input.Mode
	if mode == "" {
		mode = ModePlan
	}

	// Hard gate: initial request + extraction. Any failure here means the
	// reasoning service is unusable for this pass.
	obj, err := e.requestPlan(ctx, input, mode, cfg)
	if err != nil {
		logger.Debug("plan request failed, falling back to heuristic plan", "error", err.Error())
		return fallback, nil
	}

	meta := decodeMeta(obj)

	goalSpecs := decodeGoalSpecs(firstValue(obj, "goals", "hierarchy"))
	flatSpecs := decodeStepSpecs(firstValue(obj, "steps", "plan"))

	// A flat-only plan is expanded into a hierarchy by a best-effort
	// secondary request.
	if mode == ModePlan && len(goalSpecs) == 0 && len(flatSpecs) > 0 {
		goalSpecs = e.expandHierarchy(ctx, input, flatSpecs, cfg)
	}

	// An existing hierarchy may be enriched; a structural change in the
	// enriched result discards it.
	if len(goalSpecs) > 0 {
		goalSpecs = e.enrichHierarchy(ctx, input, goalSpecs, cfg)
	}

	// Flatten. A hierarchy takes precedence over a directly-returned flat
	// list.
	var steps []PlanStep
	var hierarchy []Goal
	if len(goalSpecs) > 0 {
		steps, hierarchy = flattenHierarchy(goalSpecs, cfg)
	}
	if len(steps) == 0 {
		steps = normalizeSteps(flatSpecs, cfg)
		hierarchy = nil
	}
	if len(steps) == 0 {
		// The service answered but supplied no usable steps at all.
		logger.Debug("reasoning plan had no usable steps, falling back to heuristic plan")
		return fallback, nil
	}

	steps = e.dedupeSteps(ctx, input, steps, cfg)
	steps = e.repetitionGuard(ctx, input, steps, cfg)

	if mode == ModePlan {
		steps = e.evaluatePlan(ctx, input, steps, cfg)
		steps = e.optimizePlan(ctx, input, steps, cfg)
	}

	branchSteps := e.deriveBranchSteps(obj, meta, cfg)
	decision := e.normalizeDecision(obj["decision"], input)

	return &PlanResult{
		Steps:       steps,
		Decision:    decision,
		Source:      PlanSourceReasoning,
		Hierarchy:   hierarchy,
		Meta:        meta,
		BranchSteps: branchSteps,
	}, nil
}

// heuristicResult builds the deterministic fallback plan for the input.
func (e *Engine) heuristicResult(input *BuildInput, cfg normalizeConfig) *PlanResult {
	specs := heuristicStepSpecs(input.Objective, input.Memory, cfg.maxSteps)
	return &PlanResult{
		Steps:    normalizeSteps(specs, cfg),
		Decision: heuristicDecision(input.Objective, input.Memory, e.primaryTool),
		Source:   PlanSourceHeuristic,
	}
}

// requestPlan issues the initial structured-plan request for the pass.
func (e *Engine) requestPlan(ctx context.Context, input *BuildInput, mode BuildMode, cfg normalizeConfig) (map[string]any, error) {
	if mode == ModeBranch {
		data := map[string]any{
			"Objective":  input.Objective,
			"FailedStep": input.FailedStep,
			"LastError":  input.LastError,
			"Memory":     formatMemory(input.Memory),
			"Context":    formatContext(input.Context),
			"MaxSteps":   cfg.maxSteps,
		}
		return e.generateJSON(ctx, callBranch, input.Model, branchTmpl, data)
	}

	data := map[string]any{
		"Objective":    input.Objective,
		"Capabilities": formatCapabilities(input.Capabilities),
		"Memory":       formatMemory(input.Memory),
		"PreviousPlan": formatSteps(input.PreviousPlan),
		"LastError":    input.LastError,
		"Context":      formatContext(input.Context),
		"MaxSteps":     cfg.maxSteps,
	}
	if len(input.PreviousPlan) == 0 {
		data["PreviousPlan"] = ""
	}
	return e.generateJSON(ctx, callPlan, input.Model, planTmpl, data)
}

// expandHierarchy asks the reasoning service to group a flat step list into a
// hierarchy. Best-effort: any failure returns nil and the flat list stands.
func (e *Engine) expandHierarchy(ctx context.Context, input *BuildInput, flatSpecs []stepSpec, cfg normalizeConfig) []goalSpec {
	preview := normalizeSteps(flatSpecs, cfg)
	data := map[string]any{
		"Objective": input.Objective,
		"Steps":     formatSteps(preview),
	}

	obj, err := e.generateJSON(ctx, callHierarchyExpand, input.Model, hierarchyExpandTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("hierarchy expansion failed, keeping flat plan", "error", err.Error())
		e.emit(ctx, input.CorrelationID, audit.SeverityDebug, "hierarchy expansion failed",
			map[string]any{"error": err.Error()})
		return nil
	}

	goals := decodeGoalSpecs(firstValue(obj, "goals", "hierarchy"))
	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "hierarchy expansion",
		map[string]any{"goals": len(goals)})
	return goals
}

// enrichHierarchy asks the reasoning service to refine titles and criteria
// while preserving the hierarchy's structure. A result with a different
// goal or subgoal count is discarded and the prior hierarchy stands.
func (e *Engine) enrichHierarchy(ctx context.Context, input *BuildInput, goals []goalSpec, cfg normalizeConfig) []goalSpec {
	_, current := flattenHierarchy(goals, cfg)
	data := map[string]any{
		"Objective": input.Objective,
		"Hierarchy": formatHierarchy(current),
		"GoalCount": len(goals),
	}

	obj, err := e.generateJSON(ctx, callHierarchyEnrich, input.Model, hierarchyEnrichTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("hierarchy enrichment failed, keeping prior hierarchy", "error", err.Error())
		e.emit(ctx, input.CorrelationID, audit.SeverityDebug, "hierarchy enrichment failed",
			map[string]any{"error": err.Error()})
		return goals
	}

	enriched := decodeGoalSpecs(firstValue(obj, "goals", "hierarchy"))
	if !sameStructure(goals, enriched) {
		ctxlog.From(ctx).Debug("enriched hierarchy changed structure, keeping prior hierarchy")
		e.emit(ctx, input.CorrelationID, audit.SeverityDebug, "hierarchy enrichment discarded",
			map[string]any{"reason": "structure changed"})
		return goals
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "hierarchy enrichment",
		map[string]any{"goals": len(enriched)})
	return enriched
}

// sameStructure reports whether two hierarchies have identical goal and
// subgoal counts in order.
func sameStructure(a, b []goalSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].subgoals) != len(b[i].subgoals) {
			return false
		}
	}
	return true
}

// dedupeSteps is a best-effort refinement removing duplicate steps. Failure
// or an empty result keeps the prior steps.
func (e *Engine) dedupeSteps(ctx context.Context, input *BuildInput, steps []PlanStep, cfg normalizeConfig) []PlanStep {
	return e.refineSteps(ctx, input, callDedupe, stepsTmpl, "plan dedupe", steps, cfg)
}

// repetitionGuard is a best-effort refinement collapsing looping step runs.
func (e *Engine) repetitionGuard(ctx context.Context, input *BuildInput, steps []PlanStep, cfg normalizeConfig) []PlanStep {
	return e.refineSteps(ctx, input, callRepetitionGuard, stepsTmpl, "repetition guard", steps, cfg)
}

// optimizePlan is a best-effort refinement tightening the plan. It always
// runs after evaluation in ModePlan, regardless of the evaluation score.
func (e *Engine) optimizePlan(ctx context.Context, input *BuildInput, steps []PlanStep, cfg normalizeConfig) []PlanStep {
	return e.refineSteps(ctx, input, callOptimize, stepsTmpl, "plan optimization", steps, cfg)
}

// refineSteps runs one steps-in/steps-out refinement call. The central
// failure property lives here: any error or degenerate result returns the
// prior steps unchanged.
func (e *Engine) refineSteps(ctx context.Context, input *BuildInput, kind callKind, tmpl *template.Template, label string, steps []PlanStep, cfg normalizeConfig) []PlanStep {
	data := map[string]any{
		"Objective": input.Objective,
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(steps),
	}

	obj, err := e.generateJSON(ctx, kind, input.Model, tmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug(label+" failed, keeping prior steps", "error", err.Error())
		e.emit(ctx, input.CorrelationID, audit.SeverityDebug, label+" failed",
			map[string]any{"error": err.Error()})
		return steps
	}

	refined := normalizeSteps(decodeStepSpecs(firstValue(obj, "steps", "plan")), cfg)
	if len(refined) == 0 {
		ctxlog.From(ctx).Debug(label + " returned no steps, keeping prior steps")
		return steps
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, label,
		map[string]any{"before": len(steps), "after": len(refined)})
	return refined
}

// evaluatePlan scores the plan; a score below the threshold with a non-empty
// revision replaces the steps. Best-effort like every other refinement.
func (e *Engine) evaluatePlan(ctx context.Context, input *BuildInput, steps []PlanStep, cfg normalizeConfig) []PlanStep {
	data := map[string]any{
		"Objective": input.Objective,
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(steps),
	}

	obj, err := e.generateJSON(ctx, callEvaluate, input.Model, stepsTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("plan evaluation failed, keeping prior steps", "error", err.Error())
		e.emit(ctx, input.CorrelationID, audit.SeverityDebug, "plan evaluation failed",
			map[string]any{"error": err.Error()})
		return steps
	}

	score := numField(obj, "score")
	revised := normalizeSteps(decodeStepSpecs(firstValue(obj, "revised_steps", "steps")), cfg)

	meta := map[string]any{"revised": len(revised)}
	if score != nil {
		meta["score"] = *score
	}
	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "plan evaluation", meta)

	if score != nil && *score < evaluationThreshold && len(revised) > 0 {
		return revised
	}
	return steps
}

// deriveBranchSteps builds the contingency plan from the response's explicit
// branch steps, or from its flat step list, or deterministically from the
// meta alternatives. Note that the flat list is re-read here even when the
// main plan preferred a hierarchy.
func (e *Engine) deriveBranchSteps(obj map[string]any, meta *PlannerMeta, cfg normalizeConfig) []PlanStep {
	branchCfg := cfg
	branchCfg.maxSteps = maxBranchSteps

	specs := decodeStepSpecs(firstValue(obj, "branch_steps", "branchSteps"))
	if len(specs) == 0 {
		specs = decodeStepSpecs(firstValue(obj, "steps", "plan"))
	}
	if len(specs) == 0 && meta != nil {
		specs = alternativeSpecs(meta.Alternatives)
	}
	if len(specs) == 0 {
		return nil
	}
	return normalizeSteps(specs, branchCfg)
}

// alternativeSpecs deterministically converts meta alternatives into step
// specs: each alternative contributes its listed steps, or its own title
// when it lists none.
func alternativeSpecs(alternatives []Alternative) []stepSpec {
	var specs []stepSpec
	for _, alt := range alternatives {
		if len(alt.Steps) == 0 {
			if title := strings.TrimSpace(alt.Title); title != "" {
				specs = append(specs, stepSpec{title: title})
			}
			continue
		}
		for _, s := range alt.Steps {
			if title := strings.TrimSpace(s); title != "" {
				specs = append(specs, stepSpec{title: title})
			}
		}
	}
	return specs
}

// normalizeDecision converts the response's decision object into an
// AgentDecision, deriving one heuristically when it is absent or invalid.
func (e *Engine) normalizeDecision(v any, input *BuildInput) AgentDecision {
	m, ok := v.(map[string]any)
	if !ok {
		return heuristicDecision(input.Objective, input.Memory, e.primaryTool)
	}

	action := strings.ToLower(strings.TrimSpace(strField(m, "action")))
	if !validDecisionAction(action) {
		return heuristicDecision(input.Objective, input.Memory, e.primaryTool)
	}

	return AgentDecision{
		Action:   DecisionAction(action),
		Reason:   strings.TrimSpace(strField(m, "reason")),
		ToolName: strings.TrimSpace(strField(m, "tool_name", "toolName", "tool")),
	}
}

// decodeMeta extracts the advisory planner meta from a response object.
func decodeMeta(obj map[string]any) *PlannerMeta {
	meta := &PlannerMeta{
		TaskType:       TaskType(strings.TrimSpace(strField(obj, "task_type", "taskType"))),
		Summary:        strings.TrimSpace(strField(obj, "summary")),
		Constraints:    strsField(obj, "constraints"),
		SuccessSignals: strsField(obj, "success_signals", "successSignals"),
	}
	if meta.TaskType == "" {
		meta.TaskType = TaskTypeUnknown
	}

	if critique, ok := obj["critique"].(map[string]any); ok {
		meta.Critique = Critique{
			Assumptions:  strsField(critique, "assumptions"),
			Risks:        strsField(critique, "risks"),
			Unknowns:     strsField(critique, "unknowns"),
			SafetyChecks: strsField(critique, "safety_checks", "safetyChecks"),
			Questions:    strsField(critique, "questions"),
		}
	}

	for _, item := range listValue(obj["alternatives"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		meta.Alternatives = append(meta.Alternatives, Alternative{
			Title:     strings.TrimSpace(strField(m, "title", "name")),
			Rationale: strings.TrimSpace(strField(m, "rationale", "reason")),
			Steps:     strsField(m, "steps"),
		})
	}

	return meta
}

// strsField extracts a string list from loosely-typed JSON. Non-string
// entries are dropped.
func strsField(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		items, ok := m[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// firstValue returns the first present key's value.
func firstValue(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}

// Serialization

// planResultVersion tags serialized plan results for forward compatibility.
const planResultVersion = 1

type planResultData struct {
	Version int `json:"version"`
	PlanResult
}

// MarshalJSON implements json.Marshaler, embedding a version field.
func (r *PlanResult) MarshalJSON() ([]byte, error) {
	type alias PlanResult
	return json.Marshal(struct {
		Version int `json:"version"`
		*alias
	}{Version: planResultVersion, alias: (*alias)(r)})
}

// DecodePlanResult restores a serialized PlanResult, rejecting unknown
// versions.
func DecodePlanResult(data []byte) (*PlanResult, error) {
	var decoded planResultData
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal plan result")
	}
	if decoded.Version != planResultVersion {
		return nil, goerr.New("plan result version mismatch",
			goerr.V("expected", planResultVersion), goerr.V("actual", decoded.Version))
	}
	result := decoded.PlanResult
	return &result, nil
}
