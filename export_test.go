package stepwise

// Exports for testing.

var (
	DecodeStepSpecs  = decodeStepSpecs
	DecodeGoalSpecs  = decodeGoalSpecs
	NormalizeSteps   = normalizeSteps
	FlattenHierarchy = flattenHierarchy

	HeuristicStepSpecs = heuristicStepSpecs
	HeuristicDecision  = heuristicDecision
	HasFailureSignal   = hasFailureSignal

	ClampAttempts = clampAttempts

	ValidateShape = validateShape
	CallPlan      = callPlan
	CallVerify    = callVerify
)

func NewNormalizeConfig(primaryTool string, maxSteps, maxAttempts int) normalizeConfig {
	return normalizeConfig{
		primaryTool: primaryTool,
		maxSteps:    maxSteps,
		maxAttempts: maxAttempts,
	}
}
