package stepwise

// Adaptive controllers are advisory passes invoked during execution. All five
// share one shape: send the live plan snapshot plus a purpose-specific
// instruction to the reasoning service, parse a decision flag plus optional
// replacement steps, and normalize replacements through the step normalizer.
// Any failure yields the conservative default ("do not replan" / "continue").
// Unlike the Plan Builder, controllers never fall back to the heuristic
// planner: "no usable suggestion" is itself a valid non-error outcome.

// replacementSteps extracts and normalizes replacement steps from a
// controller response. A hierarchy is accepted and flattened; a flat list
// wins when both are present and non-empty.
func replacementSteps(obj map[string]any, cfg normalizeConfig) []PlanStep {
	if steps := normalizeSteps(decodeStepSpecs(firstValue(obj, "steps", "plan")), cfg); len(steps) > 0 {
		return steps
	}
	if goals := decodeGoalSpecs(firstValue(obj, "goals", "hierarchy")); len(goals) > 0 {
		steps, _ := flattenHierarchy(goals, cfg)
		return steps
	}
	return nil
}

// responseAlternatives decodes the alternatives list a controller response
// may carry alongside its steps.
func responseAlternatives(obj map[string]any) []Alternative {
	var alternatives []Alternative
	for _, item := range listValue(obj["alternatives"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		alternatives = append(alternatives, Alternative{
			Title:     strField(m, "title", "name"),
			Rationale: strField(m, "rationale", "reason"),
			Steps:     strsField(m, "steps"),
		})
	}
	return alternatives
}

// alternativeBranchSteps converts response alternatives into a bounded
// replacement plan, used when a replan verdict arrives with no usable steps.
func alternativeBranchSteps(obj map[string]any, cfg normalizeConfig) []PlanStep {
	specs := alternativeSpecs(responseAlternatives(obj))
	if len(specs) == 0 {
		return nil
	}
	branchCfg := cfg
	branchCfg.maxSteps = maxBranchSteps
	return normalizeSteps(specs, branchCfg)
}

// boolField extracts a boolean from loosely-typed JSON, also accepting the
// strings "true"/"false".
func boolField(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case bool:
			return v, true
		case string:
			switch v {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
	}
	return false, false
}

// clampPercent clamps a confidence-style value into [0, 100].
func clampPercent(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
