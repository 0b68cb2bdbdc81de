package stepwise

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// stepSpec is the loose, possibly incomplete step shape accepted from
// reasoning responses. Decoding is total: any JSON value becomes a stepSpec or
// is dropped, never an error.
type stepSpec struct {
	id          string
	title       string
	tool        string
	expected    string
	criteria    string
	phase       string
	priority    *float64
	dependsOn   []depRef
	maxAttempts *int
}

// depRef is a single unresolved dependsOn entry: either a flattened-order
// index or a sibling title/id.
type depRef struct {
	index   int
	name    string
	byIndex bool
}

// goalSpec and subgoalSpec mirror stepSpec for the hierarchy shape.
type goalSpec struct {
	title     string
	criteria  string
	priority  *float64
	dependsOn []depRef
	subgoals  []subgoalSpec
}

type subgoalSpec struct {
	title     string
	criteria  string
	priority  *float64
	dependsOn []depRef
	steps     []stepSpec
}

// decodeStepSpecs converts an arbitrary decoded JSON list into step specs.
// Entries may be objects with loosely-named fields or bare title strings;
// anything else is dropped.
func decodeStepSpecs(v any) []stepSpec {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	specs := make([]stepSpec, 0, len(items))
	for _, item := range items {
		if spec, ok := decodeStepSpec(item); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

func decodeStepSpec(v any) (stepSpec, bool) {
	switch t := v.(type) {
	case string:
		return stepSpec{title: strings.TrimSpace(t)}, true
	case map[string]any:
		spec := stepSpec{
			id:        strField(t, "id", "step_id"),
			title:     strField(t, "title", "name", "description", "step"),
			tool:      strField(t, "tool", "tool_name"),
			expected:  strField(t, "expected_observation", "expectedObservation", "expected"),
			criteria:  strField(t, "success_criteria", "successCriteria", "criteria"),
			phase:     strField(t, "phase"),
			priority:  numField(t, "priority"),
			dependsOn: depField(t, "depends_on", "dependsOn", "deps"),
		}
		if n := numField(t, "max_attempts", "maxAttempts"); n != nil {
			attempts := int(*n)
			spec.maxAttempts = &attempts
		}
		return spec, true
	default:
		return stepSpec{}, false
	}
}

// decodeGoalSpecs converts an arbitrary decoded JSON list into goal specs.
func decodeGoalSpecs(v any) []goalSpec {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	goals := make([]goalSpec, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		goal := goalSpec{
			title:     strField(m, "title", "name", "goal"),
			criteria:  strField(m, "success_criteria", "successCriteria", "criteria"),
			priority:  numField(m, "priority"),
			dependsOn: depField(m, "depends_on", "dependsOn", "deps"),
		}
		children, ok := anyField(m, "subgoals", "sub_goals", "children")
		if !ok {
			// A goal without subgoals still flattens: its steps (if any)
			// become a single implicit subgoal.
			if steps := decodeStepSpecs(mapValue(m, "steps")); len(steps) > 0 {
				goal.subgoals = []subgoalSpec{{title: goal.title, steps: steps}}
			}
			goals = append(goals, goal)
			continue
		}
		for _, child := range listValue(children) {
			cm, ok := child.(map[string]any)
			if !ok {
				continue
			}
			sub := subgoalSpec{
				title:     strField(cm, "title", "name", "subgoal"),
				criteria:  strField(cm, "success_criteria", "successCriteria", "criteria"),
				priority:  numField(cm, "priority"),
				dependsOn: depField(cm, "depends_on", "dependsOn", "deps"),
			}
			if steps, ok := anyField(cm, "steps", "children"); ok {
				sub.steps = decodeStepSpecs(steps)
			}
			goal.subgoals = append(goal.subgoals, sub)
		}
		goals = append(goals, goal)
	}
	return goals
}

// normalizeConfig carries the knobs every normalization pass needs.
type normalizeConfig struct {
	primaryTool string
	maxSteps    int
	maxAttempts int
}

// normalizeSteps converts step specs into canonical PlanSteps. A produced plan
// is never silently emptied by a single bad entry: missing titles get a
// generic default instead of dropping the step. Every call generates fresh
// IDs, even for logically identical input.
func normalizeSteps(specs []stepSpec, cfg normalizeConfig) []PlanStep {
	if cfg.maxSteps > 0 && len(specs) > cfg.maxSteps {
		specs = specs[:cfg.maxSteps]
	}

	steps := make([]PlanStep, 0, len(specs))
	byTitle := make(map[string]int, len(specs))
	byID := make(map[string]int, len(specs))

	for i, spec := range specs {
		step := canonicalStep(spec, i, cfg)
		step.DependsOn = resolveDeps(spec.dependsOn, i, byTitle, byID)
		steps = append(steps, step)

		if key := strings.ToLower(strings.TrimSpace(spec.title)); key != "" {
			if _, exists := byTitle[key]; !exists {
				byTitle[key] = i
			}
		}
		if spec.id != "" {
			if _, exists := byID[spec.id]; !exists {
				byID[spec.id] = i
			}
		}
	}

	return steps
}

// canonicalStep builds a single PlanStep from a spec, applying per-field
// defaulting. dependsOn is resolved by the caller.
func canonicalStep(spec stepSpec, index int, cfg normalizeConfig) PlanStep {
	title := strings.TrimSpace(spec.title)
	if title == "" {
		title = fmt.Sprintf("Step %d", index+1)
	}

	tool := strings.TrimSpace(spec.tool)
	switch strings.ToLower(tool) {
	case "none":
		tool = "none"
	case "":
		tool = cfg.primaryTool
	}

	phase := PhaseAct
	if strings.EqualFold(strings.TrimSpace(spec.phase), string(PhasePlan)) {
		phase = PhasePlan
	}

	maxAttempts := cfg.maxAttempts
	if spec.maxAttempts != nil {
		maxAttempts = *spec.maxAttempts
	}

	return PlanStep{
		ID:                  uuid.NewString(),
		Title:               title,
		Status:              StepStatusPending,
		Tool:                tool,
		ExpectedObservation: strings.TrimSpace(spec.expected),
		SuccessCriteria:     strings.TrimSpace(spec.criteria),
		Phase:               phase,
		Priority:            spec.priority,
		Attempts:            0,
		MaxAttempts:         clampAttempts(maxAttempts),
	}
}

// resolveDeps maps loose dependsOn references into flattened indices.
// Numeric entries are taken as flattened-order indices, string entries are
// resolved against sibling titles and ids. Only strictly-lower indices
// survive; unresolvable references are dropped, never reported.
func resolveDeps(refs []depRef, index int, byTitle, byID map[string]int) []int {
	if len(refs) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(refs))
	var deps []int
	add := func(dep int) {
		if dep >= 0 && dep < index && !seen[dep] {
			seen[dep] = true
			deps = append(deps, dep)
		}
	}

	for _, ref := range refs {
		if ref.byIndex {
			add(ref.index)
			continue
		}
		if dep, ok := byID[ref.name]; ok {
			add(dep)
			continue
		}
		if dep, ok := byTitle[strings.ToLower(strings.TrimSpace(ref.name))]; ok {
			add(dep)
		}
	}

	sort.Ints(deps)
	return deps
}

// flattenHierarchy flattens a goal > subgoal > step tree into an ordered,
// dependency-remapped step list plus a canonical hierarchy mirroring it.
// Flattening order is goal order, then subgoal order within each goal, then
// step order within each subgoal. Group-level dependsOn entries are rewritten
// as a dependency from the group's first step onto the referenced group's
// last step.
func flattenHierarchy(goals []goalSpec, cfg normalizeConfig) ([]PlanStep, []Goal) {
	var flat []PlanStep
	byTitle := make(map[string]int)
	byID := make(map[string]int)

	type subInfo struct {
		title    string
		criteria string
		priority *float64
		span     stepSpan
	}
	type goalInfo struct {
		title    string
		criteria string
		priority *float64
		deps     []int
		span     stepSpan
		subs     []subInfo
	}

	goalSpans := make([]stepSpan, 0, len(goals))
	goalTitles := make(map[string]int)
	subSpans := make([]stepSpan, 0)
	subTitles := make(map[string]int)
	infos := make([]goalInfo, 0, len(goals))

	for _, g := range goals {
		info := goalInfo{
			title:    groupTitle(g.title, "Goal", len(infos)),
			criteria: strings.TrimSpace(g.criteria),
			priority: g.priority,
		}
		goalFirst := len(flat)

		for _, sg := range g.subgoals {
			sub := subInfo{
				title:    groupTitle(sg.title, "Subgoal", len(info.subs)),
				criteria: strings.TrimSpace(sg.criteria),
				priority: sg.priority,
			}
			subFirst := len(flat)

			for _, spec := range sg.steps {
				if cfg.maxSteps > 0 && len(flat) >= cfg.maxSteps {
					break
				}
				index := len(flat)
				step := canonicalStep(spec, index, cfg)
				step.DependsOn = resolveDeps(spec.dependsOn, index, byTitle, byID)
				flat = append(flat, step)

				if key := strings.ToLower(strings.TrimSpace(spec.title)); key != "" {
					if _, exists := byTitle[key]; !exists {
						byTitle[key] = index
					}
				}
				if spec.id != "" {
					if _, exists := byID[spec.id]; !exists {
						byID[spec.id] = index
					}
				}
			}

			if len(flat) > subFirst {
				attachGroupDeps(flat, sg.dependsOn, subFirst, len(subSpans), subSpans, subTitles)
				subTitles[strings.ToLower(sub.title)] = len(subSpans)
				sub.span = stepSpan{first: subFirst, last: len(flat) - 1}
				subSpans = append(subSpans, sub.span)
				info.subs = append(info.subs, sub)
			}
		}

		if len(info.subs) > 0 {
			info.deps = groupRefs(g.dependsOn, len(goalSpans), goalTitles)
			attachGroupSpanDeps(flat, info.deps, goalFirst, goalSpans)
			goalTitles[strings.ToLower(info.title)] = len(goalSpans)
			info.span = stepSpan{first: goalFirst, last: len(flat) - 1}
			goalSpans = append(goalSpans, info.span)
			infos = append(infos, info)
		}
	}

	// Build the canonical hierarchy from the final flat list so group-level
	// dependency rewrites are reflected in both views.
	out := make([]Goal, 0, len(infos))
	for _, info := range infos {
		goal := Goal{
			ID:              uuid.NewString(),
			Title:           info.title,
			SuccessCriteria: info.criteria,
			Priority:        info.priority,
			DependsOn:       info.deps,
		}
		for _, sub := range info.subs {
			goal.Subgoals = append(goal.Subgoals, Subgoal{
				ID:              uuid.NewString(),
				Title:           sub.title,
				SuccessCriteria: sub.criteria,
				Priority:        sub.priority,
				Steps:           append([]PlanStep(nil), flat[sub.span.first:sub.span.last+1]...),
			})
		}
		out = append(out, goal)
	}

	return flat, out
}

func groupTitle(title, kind string, index int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprintf("%s %d", kind, index+1)
	}
	return title
}

// groupRefs resolves group-level dependsOn entries into group indices.
func groupRefs(refs []depRef, index int, byTitle map[string]int) []int {
	seen := make(map[int]bool, len(refs))
	var deps []int
	for _, ref := range refs {
		dep := -1
		if ref.byIndex {
			dep = ref.index
		} else if v, ok := byTitle[strings.ToLower(strings.TrimSpace(ref.name))]; ok {
			dep = v
		}
		if dep >= 0 && dep < index && !seen[dep] {
			seen[dep] = true
			deps = append(deps, dep)
		}
	}
	sort.Ints(deps)
	return deps
}

// stepSpan records the flattened index range a goal or subgoal occupies.
type stepSpan struct{ first, last int }

// attachGroupDeps resolves subgoal-level dependsOn and wires the group's first
// step to the last step of each referenced group.
func attachGroupDeps(flat []PlanStep, refs []depRef, first, index int, spans []stepSpan, byTitle map[string]int) {
	deps := groupRefs(refs, index, byTitle)
	attachSpans(flat, first, deps, spans)
}

// attachGroupSpanDeps wires already-resolved group indices the same way.
func attachGroupSpanDeps(flat []PlanStep, deps []int, first int, spans []stepSpan) {
	attachSpans(flat, first, deps, spans)
}

func attachSpans(flat []PlanStep, first int, deps []int, spans []stepSpan) {
	if first >= len(flat) || len(deps) == 0 {
		return
	}
	step := &flat[first]
	seen := make(map[int]bool, len(step.DependsOn))
	for _, d := range step.DependsOn {
		seen[d] = true
	}
	for _, dep := range deps {
		if dep < 0 || dep >= len(spans) {
			continue
		}
		last := spans[dep].last
		if last < first && !seen[last] {
			seen[last] = true
			step.DependsOn = append(step.DependsOn, last)
		}
	}
	sort.Ints(step.DependsOn)
}

// Loose-field helpers. All are total: a missing or wrong-typed field yields
// the zero value, never an error.

func strField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func numField(m map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			n := v
			return &n
		case int:
			n := float64(v)
			return &n
		}
	}
	return nil
}

func depField(m map[string]any, keys ...string) []depRef {
	for _, key := range keys {
		items, ok := m[key].([]any)
		if !ok {
			continue
		}
		refs := make([]depRef, 0, len(items))
		for _, item := range items {
			switch v := item.(type) {
			case float64:
				refs = append(refs, depRef{index: int(v), byIndex: true})
			case string:
				// Numeric strings count as indices too.
				var n int
				if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil && fmt.Sprintf("%d", n) == strings.TrimSpace(v) {
					refs = append(refs, depRef{index: n, byIndex: true})
				} else {
					refs = append(refs, depRef{name: v})
				}
			}
		}
		return refs
	}
	return nil
}

func anyField(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func mapValue(m map[string]any, key string) any {
	return m[key]
}

func listValue(v any) []any {
	items, _ := v.([]any)
	return items
}
