package stepwise

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/plan_prompt.md
var planPromptTemplate string

//go:embed templates/branch_prompt.md
var branchPromptTemplate string

//go:embed templates/hierarchy_expand_prompt.md
var hierarchyExpandPromptTemplate string

//go:embed templates/hierarchy_enrich_prompt.md
var hierarchyEnrichPromptTemplate string

//go:embed templates/steps_prompt.md
var stepsPromptTemplate string

//go:embed templates/review_prompt.md
var reviewPromptTemplate string

//go:embed templates/retrospect_prompt.md
var retrospectPromptTemplate string

//go:embed templates/memory_summary_prompt.md
var memorySummaryPromptTemplate string

//go:embed templates/checkpoint_prompt.md
var checkpointPromptTemplate string

var (
	planTmpl            *template.Template
	branchTmpl          *template.Template
	hierarchyExpandTmpl *template.Template
	hierarchyEnrichTmpl *template.Template
	stepsTmpl           *template.Template
	reviewTmpl          *template.Template
	retrospectTmpl      *template.Template
	memorySummaryTmpl   *template.Template
	checkpointTmpl      *template.Template
)

func init() {
	planTmpl = template.Must(template.New("plan").Parse(planPromptTemplate))
	branchTmpl = template.Must(template.New("branch").Parse(branchPromptTemplate))
	hierarchyExpandTmpl = template.Must(template.New("hierarchy_expand").Parse(hierarchyExpandPromptTemplate))
	hierarchyEnrichTmpl = template.Must(template.New("hierarchy_enrich").Parse(hierarchyEnrichPromptTemplate))
	stepsTmpl = template.Must(template.New("steps").Parse(stepsPromptTemplate))
	reviewTmpl = template.Must(template.New("review").Parse(reviewPromptTemplate))
	retrospectTmpl = template.Must(template.New("retrospect").Parse(retrospectPromptTemplate))
	memorySummaryTmpl = template.Must(template.New("memory_summary").Parse(memorySummaryPromptTemplate))
	checkpointTmpl = template.Must(template.New("checkpoint").Parse(checkpointPromptTemplate))
}

// callKind identifies one kind of reasoning-service call. Every call shares
// the same shape: request, parse, normalize, fallback-on-failure.
type callKind string

const (
	callPlan            callKind = "plan"
	callBranch          callKind = "branch"
	callHierarchyExpand callKind = "hierarchy_expand"
	callHierarchyEnrich callKind = "hierarchy_enrich"
	callDedupe          callKind = "dedupe"
	callRepetitionGuard callKind = "repetition_guard"
	callEvaluate        callKind = "evaluate"
	callOptimize        callKind = "optimize"
	callProgressReview  callKind = "progress_review"
	callSelfCheck       callKind = "self_check"
	callResumeReview    callKind = "resume_review"
	callAdapt           callKind = "adapt"
	callVerify          callKind = "verify"
	callRetrospect      callKind = "retrospect"
	callMemorySummary   callKind = "memory_summary"
	callCheckpoint      callKind = "checkpoint"
)

// Response shapes advertised to the reasoning service. Each system
// instruction enumerates the exact keys the engine will read; extra keys are
// tolerated, missing ones are defaulted by the normalizer.

const stepShape = `{"title": "...", "tool": "capability name or none", "expected_observation": "...", "success_criteria": "...", "phase": "plan|act", "priority": 1, "dependsOn": [0], "max_attempts": 3}`

const metaShape = `"critique": {"assumptions": [], "risks": [], "unknowns": [], "safety_checks": [], "questions": []}, "alternatives": [{"title": "...", "rationale": "...", "steps": ["..."]}], "task_type": "web_task|extract_info", "summary": "...", "constraints": [], "success_signals": []`

const hierarchyShape = `{"goals": [{"title": "...", "success_criteria": "...", "priority": 1, "dependsOn": [], "subgoals": [{"title": "...", "success_criteria": "...", "dependsOn": [], "steps": [` + stepShape + `]}]}]}`

var callShapes = map[callKind]string{
	callPlan: `{"goals": [...as below], "steps": [` + stepShape + `], "branch_steps": [` + stepShape + `], "decision": {"action": "continue|replan|wait_human|finish", "reason": "...", "tool_name": "..."}, ` + metaShape + `}
Goals shape: ` + hierarchyShape,
	callBranch: `{"steps": [` + stepShape + `], "decision": {"action": "continue|replan|wait_human|finish", "reason": "...", "tool_name": "..."}, ` + metaShape + `}`,
	callHierarchyExpand: hierarchyShape,
	callHierarchyEnrich: hierarchyShape,
	callDedupe:          `{"steps": [` + stepShape + `]}`,
	callRepetitionGuard: `{"steps": [` + stepShape + `]}`,
	callEvaluate:        `{"score": 0-100, "comments": "...", "revised_steps": [` + stepShape + `]}`,
	callOptimize:        `{"steps": [` + stepShape + `]}`,
	callProgressReview:  `{"should_replan": true|false, "reason": "...", "steps": [` + stepShape + `], "goals": [...], "alternatives": [{"title": "...", "steps": ["..."]}]}`,
	callSelfCheck:       `{"action": "continue|replan|wait_human", "confidence": 0-100, "steps": [` + stepShape + `], "alternatives": [{"title": "...", "steps": ["..."]}], "evidence": [], "missing_info": [], "blockers": [], "hypotheses": [], "verification_steps": [], "tool_switch": "...", "abort_signals": [], "finish_signals": [], "notes": "...", "questions": []}`,
	callResumeReview:    `{"should_replan": true|false, "reason": "...", "summary": "...", "steps": [` + stepShape + `], "goals": [...], "alternatives": [{"title": "...", "steps": ["..."]}]}`,
	callAdapt:           `{"should_adapt": true|false, "reason": "...", "steps": [` + stepShape + `], "goals": [...], "alternatives": [{"title": "...", "steps": ["..."]}]}`,
	callVerify:          `{"verdict": "pass|partial|fail", "evidence": [], "missing": [], "follow_up": ["..."]}`,
	callRetrospect:      `{"summary": "...", "mistakes": [], "improvements": [], "guardrails": [], "tool_adjustments": [], "confidence": 0-100}`,
	callMemorySummary:   `{"summary": "...", "decisions": [], "risks": []}`,
	callCheckpoint:      `{"summary": "...", "next_actions": [], "risks": []}`,
}

// callPurposes is the one-line task statement in each system instruction.
var callPurposes = map[callKind]string{
	callPlan:            "Create a dependency-ordered step plan for the objective.",
	callBranch:          "Create a short contingency plan recovering from a failed step.",
	callHierarchyExpand: "Group an existing flat step list into a goal/subgoal/step hierarchy without adding or removing work.",
	callHierarchyEnrich: "Refine titles and criteria in a plan hierarchy while preserving its structure exactly.",
	callDedupe:          "Remove duplicate or redundant steps from the plan. Keep order and all distinct work.",
	callRepetitionGuard: "Detect and collapse runs of near-identical steps that indicate the plan is looping. Keep all distinct work.",
	callEvaluate:        "Score the plan from 0 to 100 for completeness, ordering and safety. If the score is below 70, also return a revised step list.",
	callOptimize:        "Reorder and tighten the plan so it reaches the objective in fewer, better-scoped steps.",
	callProgressReview:  "Decide whether observed progress warrants replacing the remaining plan.",
	callSelfCheck:       "Assess the last executed step and decide the single next action.",
	callResumeReview:    "The run is resuming after a pause. Decide whether the remaining plan is still valid.",
	callAdapt:           "Mid-run signals arrived. Decide whether the remaining plan must adapt to them.",
	callVerify:          "Judge whether the completed plan achieved the objective.",
	callRetrospect:      "Produce a lessons-learned record for this run.",
	callMemorySummary:   "Condense working memory into one reusable text block.",
	callCheckpoint:      "Produce a short checkpoint brief of what happens next.",
}

// systemInstruction builds the system prompt for a call: identity, task, and
// the exact response shape.
func systemInstruction(kind callKind) string {
	var b strings.Builder
	b.WriteString("You are the planning core of an autonomous task agent. ")
	b.WriteString(callPurposes[kind])
	b.WriteString("\nRespond with exactly one JSON value matching this shape, with no surrounding prose:\n")
	b.WriteString(callShapes[kind])
	return b.String()
}

// renderTemplate executes a prompt template into a string.
func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Prompt formatting helpers. These render engine state into the plain-text
// blocks the templates interpolate.

func formatMemory(memory []string) string {
	if len(memory) == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range memory {
		b.WriteString("- ")
		b.WriteString(entry)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSteps(steps []PlanStep) string {
	if len(steps) == 0 {
		return "(no steps)"
	}
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. [%s] %s (tool: %s", i, step.Status, step.Title, step.Tool)
		if len(step.DependsOn) > 0 {
			fmt.Fprintf(&b, ", dependsOn: %v", step.DependsOn)
		}
		if step.Attempts > 0 {
			fmt.Fprintf(&b, ", attempts: %d/%d", step.Attempts, step.MaxAttempts)
		}
		b.WriteString(")")
		if step.SuccessCriteria != "" {
			fmt.Fprintf(&b, " success: %s", step.SuccessCriteria)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatHierarchy(goals []Goal) string {
	var b strings.Builder
	for gi, goal := range goals {
		fmt.Fprintf(&b, "Goal %d: %s\n", gi+1, goal.Title)
		for si, sub := range goal.Subgoals {
			fmt.Fprintf(&b, "  Subgoal %d.%d: %s\n", gi+1, si+1, sub.Title)
			for _, step := range sub.Steps {
				fmt.Fprintf(&b, "    - %s (tool: %s)\n", step.Title, step.Tool)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCapabilities(caps []Capability) string {
	if len(caps) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range caps {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, ctx[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
