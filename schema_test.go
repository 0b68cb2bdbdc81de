package stepwise_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/stepwise"
)

func TestValidateShape(t *testing.T) {
	t.Run("valid plan response", func(t *testing.T) {
		value := map[string]any{
			"steps":    []any{map[string]any{"title": "a"}},
			"decision": map[string]any{"action": "continue"},
		}
		gt.NoError(t, stepwise.ValidateShape(stepwise.CallPlan, value))
	})

	t.Run("wrong-typed field flagged", func(t *testing.T) {
		value := map[string]any{"steps": "not a list"}
		gt.Error(t, stepwise.ValidateShape(stepwise.CallPlan, value))
	})

	t.Run("unknown verdict flagged", func(t *testing.T) {
		value := map[string]any{"verdict": "maybe"}
		gt.Error(t, stepwise.ValidateShape(stepwise.CallVerify, value))
	})

	t.Run("extra keys tolerated", func(t *testing.T) {
		value := map[string]any{"verdict": "pass", "surplus": 1}
		gt.NoError(t, stepwise.ValidateShape(stepwise.CallVerify, value))
	})
}
