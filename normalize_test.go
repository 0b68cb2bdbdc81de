package stepwise_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise"
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	gt.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestNormalizeStepsDefaults(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)
	specs := stepwise.DecodeStepSpecs(decodeAny(t, `[
		"open the site",
		{"title": "log in", "tool": "none", "phase": "plan", "max_attempts": 99},
		{},
		{"name": "search", "tool": "search_api", "success_criteria": "results shown"}
	]`))
	steps := stepwise.NormalizeSteps(specs, cfg)
	gt.Equal(t, 4, len(steps))

	gt.Equal(t, "open the site", steps[0].Title)
	gt.Equal(t, "browser", steps[0].Tool)
	gt.Equal(t, stepwise.PhaseAct, steps[0].Phase)
	gt.Equal(t, stepwise.StepStatusPending, steps[0].Status)
	gt.Equal(t, 3, steps[0].MaxAttempts)
	gt.Equal(t, 0, steps[0].Attempts)

	gt.Equal(t, "none", steps[1].Tool)
	gt.Equal(t, stepwise.PhasePlan, steps[1].Phase)
	gt.Equal(t, stepwise.MaxStepAttempts, steps[1].MaxAttempts)

	// An empty object still yields a step with a generated title.
	gt.Equal(t, "Step 3", steps[2].Title)

	gt.Equal(t, "search", steps[3].Title)
	gt.Equal(t, "search_api", steps[3].Tool)
	gt.Equal(t, "results shown", steps[3].SuccessCriteria)

	for _, step := range steps {
		gt.Value(t, step.ID).NotEqual("")
	}
}

func TestNormalizeStepsFreshIDs(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)
	specs := stepwise.DecodeStepSpecs(decodeAny(t, `["a", "b"]`))

	first := stepwise.NormalizeSteps(specs, cfg)
	second := stepwise.NormalizeSteps(specs, cfg)

	ids := map[string]bool{}
	for _, s := range first {
		ids[s.ID] = true
	}
	for _, s := range second {
		gt.False(t, ids[s.ID])
	}
}

func TestNormalizeStepsDependsOn(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)

	t.Run("numeric and string references", func(t *testing.T) {
		specs := stepwise.DecodeStepSpecs(decodeAny(t, `[
			{"id": "s1", "title": "first"},
			{"title": "second", "dependsOn": [0]},
			{"title": "third", "dependsOn": ["s1", "second"]},
			{"title": "fourth", "dependsOn": ["1", "First"]}
		]`))
		steps := stepwise.NormalizeSteps(specs, cfg)
		gt.Equal(t, []int(nil), steps[0].DependsOn)
		gt.Equal(t, []int{0}, steps[1].DependsOn)
		gt.Equal(t, []int{0, 1}, steps[2].DependsOn)
		// "1" is a numeric string, "First" matches a title case-insensitively.
		gt.Equal(t, []int{0, 1}, steps[3].DependsOn)
	})

	t.Run("forward and self references dropped", func(t *testing.T) {
		specs := stepwise.DecodeStepSpecs(decodeAny(t, `[
			{"title": "a", "dependsOn": [0, 1, 2]},
			{"title": "b", "dependsOn": [1, 5, -1]},
			{"title": "c", "dependsOn": ["missing", 0, 0]}
		]`))
		steps := stepwise.NormalizeSteps(specs, cfg)
		gt.Equal(t, []int(nil), steps[0].DependsOn)
		gt.Equal(t, []int(nil), steps[1].DependsOn)
		gt.Equal(t, []int{0}, steps[2].DependsOn)
	})

	t.Run("sorted and deduplicated", func(t *testing.T) {
		specs := stepwise.DecodeStepSpecs(decodeAny(t, `[
			"a", "b", "c",
			{"title": "d", "dependsOn": [2, 0, 2, 1]}
		]`))
		steps := stepwise.NormalizeSteps(specs, cfg)
		gt.Equal(t, []int{0, 1, 2}, steps[3].DependsOn)
	})
}

func TestNormalizeStepsMaxSteps(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 2, 3)
	specs := stepwise.DecodeStepSpecs(decodeAny(t, `["a", "b", "c", "d"]`))
	steps := stepwise.NormalizeSteps(specs, cfg)
	gt.Equal(t, 2, len(steps))
	gt.Equal(t, "a", steps[0].Title)
	gt.Equal(t, "b", steps[1].Title)
}

func TestClampAttempts(t *testing.T) {
	gt.Equal(t, stepwise.MinStepAttempts, stepwise.ClampAttempts(0))
	gt.Equal(t, stepwise.MinStepAttempts, stepwise.ClampAttempts(-3))
	gt.Equal(t, 3, stepwise.ClampAttempts(3))
	gt.Equal(t, stepwise.MaxStepAttempts, stepwise.ClampAttempts(99))
}

func TestFlattenHierarchy(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)

	goals := stepwise.DecodeGoalSpecs(decodeAny(t, `[
		{
			"title": "Gather",
			"subgoals": [
				{"title": "Find sources", "steps": ["search the web", "open results"]},
				{"title": "Collect", "dependsOn": ["Find sources"], "steps": ["copy key facts"]}
			]
		},
		{
			"title": "Report",
			"dependsOn": ["Gather"],
			"subgoals": [
				{"title": "Write", "steps": ["draft summary", "review draft"]}
			]
		}
	]`))

	steps, hierarchy := stepwise.FlattenHierarchy(goals, cfg)
	gt.Equal(t, 5, len(steps))
	gt.Equal(t, "search the web", steps[0].Title)
	gt.Equal(t, "copy key facts", steps[2].Title)
	gt.Equal(t, "draft summary", steps[3].Title)

	// Subgoal "Collect" depends on "Find sources": its first step gains a
	// dependency on that subgoal's last step.
	gt.Equal(t, []int{1}, steps[2].DependsOn)
	// Goal "Report" depends on "Gather": same rewrite at the goal level.
	gt.Equal(t, []int{2}, steps[3].DependsOn)

	gt.Equal(t, 2, len(hierarchy))
	gt.Equal(t, "Gather", hierarchy[0].Title)
	gt.Equal(t, 2, len(hierarchy[0].Subgoals))
	gt.Equal(t, []int{0}, hierarchy[1].DependsOn)

	// The hierarchy view mirrors the flat list, including rewritten deps.
	gt.Equal(t, steps[3], hierarchy[1].Subgoals[0].Steps[0])
	gt.Equal(t, steps[2], hierarchy[0].Subgoals[1].Steps[0])
}

func TestFlattenHierarchyGoalWithoutSubgoals(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)
	goals := stepwise.DecodeGoalSpecs(decodeAny(t, `[
		{"title": "Direct", "steps": ["only step"]}
	]`))
	steps, hierarchy := stepwise.FlattenHierarchy(goals, cfg)
	gt.Equal(t, 1, len(steps))
	gt.Equal(t, "only step", steps[0].Title)
	gt.Equal(t, 1, len(hierarchy))
	gt.Equal(t, 1, len(hierarchy[0].Subgoals))
}

func TestFlattenHierarchyMaxSteps(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 3, 3)
	goals := stepwise.DecodeGoalSpecs(decodeAny(t, `[
		{"title": "G1", "subgoals": [{"title": "S1", "steps": ["a", "b", "c", "d"]}]},
		{"title": "G2", "subgoals": [{"title": "S2", "steps": ["e"]}]}
	]`))
	steps, hierarchy := stepwise.FlattenHierarchy(goals, cfg)
	gt.Equal(t, 3, len(steps))
	// The second goal contributed nothing and is dropped from the hierarchy.
	gt.Equal(t, 1, len(hierarchy))
}
