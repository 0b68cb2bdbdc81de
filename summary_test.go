package stepwise_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise"
)

func TestPlanResultSummary(t *testing.T) {
	result := &stepwise.PlanResult{
		Steps: []stepwise.PlanStep{
			{Title: "open the site"},
			{Title: "log in"},
		},
	}
	gt.Equal(t, "1. open the site\n2. log in\n", result.Summary())
}

func TestProgressSummary(t *testing.T) {
	t.Run("nothing completed", func(t *testing.T) {
		steps := []stepwise.PlanStep{{Title: "a", Status: stepwise.StepStatusPending}}
		gt.Equal(t, "No steps completed yet.", stepwise.ProgressSummary(steps))
	})

	t.Run("completed listed", func(t *testing.T) {
		steps := []stepwise.PlanStep{
			{Title: "a", Status: stepwise.StepStatusCompleted},
			{Title: "b", Status: stepwise.StepStatusPending},
			{Title: "c", Status: stepwise.StepStatusCompleted},
		}
		gt.Equal(t, "Completed steps:\n- a\n- c\n", stepwise.ProgressSummary(steps))
	})
}

func TestPendingSummary(t *testing.T) {
	t.Run("all done", func(t *testing.T) {
		steps := []stepwise.PlanStep{{Title: "a", Status: stepwise.StepStatusCompleted}}
		gt.Equal(t, "No steps remaining.", stepwise.PendingSummary(steps))
	})

	t.Run("pending and running listed", func(t *testing.T) {
		steps := []stepwise.PlanStep{
			{Title: "a", Tool: "browser", Status: stepwise.StepStatusRunning},
			{Title: "b", Tool: "none", Status: stepwise.StepStatusPending},
			{Title: "c", Tool: "browser", Status: stepwise.StepStatusFailed},
		}
		gt.Equal(t, "- a (tool: browser)\n- b (tool: none)\n", stepwise.PendingSummary(steps))
	})
}
