package stepwise_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise"
)

func TestHeuristicStepSpecs(t *testing.T) {
	cfg := stepwise.NewNormalizeConfig("browser", 20, 3)

	t.Run("clean memory yields the standard outline", func(t *testing.T) {
		specs := stepwise.HeuristicStepSpecs("buy a ticket", nil, 20)
		steps := stepwise.NormalizeSteps(specs, cfg)
		gt.Equal(t, 5, len(steps))
		gt.True(t, strings.Contains(steps[0].Title, "buy a ticket"))
		gt.True(t, strings.Contains(steps[2].Title, "buy a ticket"))

		// Each step depends on the previous one.
		for i := 1; i < len(steps); i++ {
			gt.Equal(t, []int{i - 1}, steps[i].DependsOn)
		}
	})

	t.Run("recent failure inserts a recovery step", func(t *testing.T) {
		memory := []string{"opened page", "clicked button", "error: timeout"}
		specs := stepwise.HeuristicStepSpecs("buy a ticket", memory, 20)
		steps := stepwise.NormalizeSteps(specs, cfg)
		gt.Equal(t, 6, len(steps))
		gt.True(t, strings.Contains(strings.ToLower(steps[2].Title), "failure"))
	})

	t.Run("stale failure is ignored", func(t *testing.T) {
		memory := []string{"error: timeout", "retried", "worked fine", "continuing"}
		specs := stepwise.HeuristicStepSpecs("buy a ticket", memory, 20)
		gt.Equal(t, 5, len(specs))
	})

	t.Run("maxSteps truncates", func(t *testing.T) {
		specs := stepwise.HeuristicStepSpecs("buy a ticket", nil, 2)
		gt.Equal(t, 2, len(specs))
	})

	t.Run("empty objective still plans", func(t *testing.T) {
		specs := stepwise.HeuristicStepSpecs("", nil, 20)
		gt.Value(t, len(specs)).NotEqual(0)
	})
}

func TestHeuristicDecision(t *testing.T) {
	t.Run("empty objective waits for a human", func(t *testing.T) {
		decision := stepwise.HeuristicDecision("", nil, "browser")
		gt.Equal(t, stepwise.ActionWaitHuman, decision.Action)
	})

	t.Run("recent failure replans", func(t *testing.T) {
		decision := stepwise.HeuristicDecision("task", []string{"step failed"}, "browser")
		gt.Equal(t, stepwise.ActionReplan, decision.Action)
		gt.Equal(t, "browser", decision.ToolName)
	})

	t.Run("otherwise continues", func(t *testing.T) {
		decision := stepwise.HeuristicDecision("task", []string{"all good"}, "browser")
		gt.Equal(t, stepwise.ActionContinue, decision.Action)
	})
}

func TestHasFailureSignal(t *testing.T) {
	gt.False(t, stepwise.HasFailureSignal(nil))
	gt.True(t, stepwise.HasFailureSignal([]string{"error: x"}))
	gt.True(t, stepwise.HasFailureSignal([]string{"a", "b", "operation failed"}))
	// Only the last three entries count.
	gt.False(t, stepwise.HasFailureSignal([]string{"error: x", "ok", "ok", "ok"}))
}
