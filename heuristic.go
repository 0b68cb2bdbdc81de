package stepwise

import (
	"fmt"
	"strings"
)

// The heuristic fallback planner is the engine's no-further-dependency safety
// net: pure functions of the inputs, no external calls, always a non-empty
// result. It is invoked whenever the reasoning service is unreachable,
// returns a failure status, or its output fails extraction.

// heuristicStepSpecs produces a deterministic ordered step outline for the
// objective. Titles are generic but actionable; the normalizer turns them
// into canonical steps.
func heuristicStepSpecs(objective string, memory []string, maxSteps int) []stepSpec {
	objective = strings.TrimSpace(objective)
	if objective == "" {
		objective = "the requested task"
	}

	titles := []string{
		fmt.Sprintf("Review the objective: %s", objective),
		"Identify the starting point and required resources",
		fmt.Sprintf("Carry out the main action for: %s", objective),
		"Verify the outcome against the objective",
		"Summarize the result",
	}

	// Prior failures in memory warrant an explicit recovery step before the
	// main action.
	if hasFailureSignal(memory) {
		titles = append(titles[:2], append([]string{"Review the previous failure and adjust the approach"}, titles[2:]...)...)
	}

	if maxSteps > 0 && len(titles) > maxSteps {
		titles = titles[:maxSteps]
	}
	if len(titles) == 0 {
		titles = []string{fmt.Sprintf("Work toward: %s", objective)}
	}

	specs := make([]stepSpec, len(titles))
	for i, title := range titles {
		specs[i] = stepSpec{title: title}
		if i > 0 {
			specs[i].dependsOn = []depRef{{index: i - 1, byIndex: true}}
		}
	}
	return specs
}

// heuristicDecision derives a best-guess next action without the reasoning
// service. It is total: defined even for an empty objective or memory.
func heuristicDecision(objective string, memory []string, primaryTool string) AgentDecision {
	if strings.TrimSpace(objective) == "" {
		return AgentDecision{
			Action: ActionWaitHuman,
			Reason: "no objective was provided",
		}
	}

	if hasFailureSignal(memory) {
		return AgentDecision{
			Action:   ActionReplan,
			Reason:   "recent memory indicates a failure, the plan should be revised",
			ToolName: primaryTool,
		}
	}

	return AgentDecision{
		Action:   ActionContinue,
		Reason:   "proceed with the next pending step",
		ToolName: primaryTool,
	}
}

// hasFailureSignal reports whether the rolling memory mentions a recent
// failure. Only the most recent entries are considered so stale errors do not
// dominate the decision.
func hasFailureSignal(memory []string) bool {
	const window = 3
	start := len(memory) - window
	if start < 0 {
		start = 0
	}
	for _, entry := range memory[start:] {
		lower := strings.ToLower(entry)
		if strings.Contains(lower, "error") || strings.Contains(lower, "failed") || strings.Contains(lower, "failure") {
			return true
		}
	}
	return false
}
