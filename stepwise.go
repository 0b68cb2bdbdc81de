// Package stepwise is an autonomous task-planning and execution-control
// engine. It delegates planning and judgment to an external reasoning
// service, converts the service's free-form output into validated,
// dependency-ordered step plans, and degrades to deterministic heuristics on
// any failure. The engine never executes steps itself: an external executor
// owns step status and retry timing, and resubmits plan snapshots for
// re-evaluation.
package stepwise

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise/audit"
)

const (
	// DefaultMaxSteps bounds a flattened plan when the caller does not.
	DefaultMaxSteps = 20
	// DefaultMaxAttempts is the per-step retry budget before clamping.
	DefaultMaxAttempts = 3
	// DefaultPrimaryTool is the capability a step defaults to when the
	// response names none.
	DefaultPrimaryTool = "browser"

	// defaultTemperature is the fixed low sampling temperature used for every
	// reasoning call.
	defaultTemperature = 0.2
)

// Engine is the core structure of the package. It is functionally pure given
// its inputs: entry points hold no shared mutable state and may be invoked
// concurrently for different plans.
type Engine struct {
	client      Client
	model       string
	sink        audit.Sink
	primaryTool string
	maxSteps    int
	maxAttempts int
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithModel sets the default reasoning model. Per-call model selection in the
// input structs overrides it.
func WithModel(model string) Option {
	return func(e *Engine) {
		e.model = model
	}
}

// WithAuditSink sets the best-effort audit sink. Sink failures are always
// swallowed; a nil sink disables auditing.
func WithAuditSink(sink audit.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithPrimaryTool sets the capability name a step defaults to.
func WithPrimaryTool(tool string) Option {
	return func(e *Engine) {
		e.primaryTool = tool
	}
}

// WithDefaultMaxSteps sets the plan bound used when an input leaves MaxSteps zero.
func WithDefaultMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithDefaultMaxAttempts sets the per-step retry budget used when an input
// leaves MaxAttempts zero. It is clamped into [MinStepAttempts, MaxStepAttempts].
func WithDefaultMaxAttempts(n int) Option {
	return func(e *Engine) {
		e.maxAttempts = clampAttempts(n)
	}
}

// New creates an Engine around a reasoning client.
func New(client Client, options ...Option) (*Engine, error) {
	if client == nil {
		return nil, goerr.Wrap(ErrNoClient, "stepwise.New")
	}

	e := &Engine{
		client:      client,
		primaryTool: DefaultPrimaryTool,
		maxSteps:    DefaultMaxSteps,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// normConfig builds the normalization knobs for one call, applying engine
// defaults where the input leaves zero values.
func (e *Engine) normConfig(maxSteps, maxAttempts int) normalizeConfig {
	if maxSteps <= 0 {
		maxSteps = e.maxSteps
	}
	if maxAttempts <= 0 {
		maxAttempts = e.maxAttempts
	}
	return normalizeConfig{
		primaryTool: e.primaryTool,
		maxSteps:    maxSteps,
		maxAttempts: clampAttempts(maxAttempts),
	}
}

// generateJSON performs one reasoning-service call: render the payload
// template, issue a single blocking request with a JSON content type and the
// call's system instruction, extract the first valid JSON value from the
// response, and decode it into a loose object. Transport failures and
// unparsable output both surface as an error here; every caller maps that
// error to its own defined fallback.
func (e *Engine) generateJSON(ctx context.Context, kind callKind, model string, tmpl *template.Template, data any) (map[string]any, error) {
	prompt, err := renderTemplate(tmpl, data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render prompt", goerr.V("call", string(kind)))
	}

	if model == "" {
		model = e.model
	}

	session, err := e.client.NewSession(ctx,
		WithSessionContentType(ContentTypeJSON),
		WithSessionSystemPrompt(systemInstruction(kind)),
		WithSessionModel(model),
		WithSessionTemperature(defaultTemperature),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create reasoning session", goerr.V("call", string(kind)))
	}

	resp, err := session.GenerateContent(ctx, Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "reasoning call failed", goerr.V("call", string(kind)))
	}
	if !resp.HasData() {
		return nil, goerr.Wrap(errNoResponse, "empty reasoning response", goerr.V("call", string(kind)))
	}

	raw, ok := ExtractJSON(strings.Join(resp.Texts, "\n"))
	if !ok {
		return nil, goerr.Wrap(errUnparsable, "reasoning response has no JSON", goerr.V("call", string(kind)))
	}

	obj, err := decodeLooseObject(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode reasoning response", goerr.V("call", string(kind)))
	}

	// Shape validation is advisory: the normalizer tolerates everything the
	// schema flags, so a mismatch is only logged.
	if err := validateShape(kind, anyValue(obj)); err != nil {
		ctxlog.From(ctx).Debug("reasoning response shape mismatch",
			"call", string(kind), "error", err.Error())
	}

	return obj, nil
}

// decodeLooseObject decodes extracted JSON into a string-keyed object. A
// top-level array is tolerated by wrapping it as {"steps": [...]} since every
// array-shaped response the engine sees is a step list.
func decodeLooseObject(raw json.RawMessage) (map[string]any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	switch t := value.(type) {
	case map[string]any:
		return t, nil
	case []any:
		return map[string]any{"steps": t}, nil
	default:
		return nil, errUnparsable
	}
}

// anyValue re-normalizes an object for schema validation.
func anyValue(obj map[string]any) any {
	return obj
}

// emit appends a best-effort audit event. Sink panics and errors are
// swallowed: auditing is never a source of planning failure.
func (e *Engine) emit(ctx context.Context, correlationID string, severity audit.Severity, message string, metadata map[string]any) {
	if e.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Debug("audit sink panicked", "recover", r)
		}
	}()

	event := audit.NewEvent(correlationID, severity, message, metadata)
	if err := e.sink.Emit(ctx, event); err != nil {
		ctxlog.From(ctx).Debug("audit sink emit failed", "error", err.Error())
	}
}
