package stepwise

import (
	"context"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/stepwise/audit"
)

// Verdict is the overall outcome of a post-run verification.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictPartial Verdict = "partial"
	VerdictFail    Verdict = "fail"
)

func validVerdict(v Verdict) bool {
	switch v {
	case VerdictPass, VerdictPartial, VerdictFail:
		return true
	}
	return false
}

// VerifyInput is the snapshot for a post-run outcome verification.
type VerifyInput struct {
	Objective string
	Memory    []string

	// Steps is the executed plan with final statuses.
	Steps []PlanStep

	// Outcome is the executor's description of the final result.
	Outcome string

	Context map[string]any

	Model         string
	CorrelationID string
}

// Verification is the reasoning service's judgement of whether the run
// actually achieved the objective.
type Verification struct {
	Verdict  Verdict  `json:"verdict"`
	Evidence []string `json:"evidence,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	FollowUp []string `json:"follow_up,omitempty"`
}

// Verify asks the reasoning service to judge the run outcome. A nil result
// means verification could not be performed and the run is "unverified";
// callers must not treat it as a failing verdict.
func (e *Engine) Verify(ctx context.Context, input *VerifyInput) *Verification {
	if input == nil || strings.TrimSpace(input.Objective) == "" {
		return nil
	}

	data := map[string]any{
		"Objective": input.Objective,
		"Trigger":   "verify_outcome",
		"Signals":   "",
		"Memory":    formatMemory(input.Memory),
		"Steps":     formatSteps(input.Steps),
		"Context":   formatContext(input.Context),
		"Extra":     outcomeNote(input.Outcome),
	}

	obj, err := e.generateJSON(ctx, callVerify, input.Model, reviewTmpl, data)
	if err != nil {
		ctxlog.From(ctx).Debug("verification failed, outcome is unverified", "error", err.Error())
		return nil
	}

	verdict := Verdict(strings.ToLower(strings.TrimSpace(strField(obj, "verdict", "result"))))
	if !validVerdict(verdict) {
		ctxlog.From(ctx).Debug("verification returned unknown verdict, outcome is unverified",
			"verdict", string(verdict))
		return nil
	}

	e.emit(ctx, input.CorrelationID, audit.SeverityInfo, "verification verdict",
		map[string]any{"verdict": string(verdict)})

	return &Verification{
		Verdict:  verdict,
		Evidence: strsField(obj, "evidence"),
		Missing:  strsField(obj, "missing", "missing_info"),
		FollowUp: strsField(obj, "follow_up", "followUp"),
	}
}

func outcomeNote(outcome string) string {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return "No outcome description was recorded."
	}
	return "Reported outcome: " + outcome
}
