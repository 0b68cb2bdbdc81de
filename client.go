package stepwise

import (
	"context"
	"log/slog"
)

// Client is the boundary to the external reasoning service. Implementations
// live under llm/ (openai, claude, gemini). The engine treats the service as
// unreliable: any error from NewSession or GenerateContent is converted to the
// calling stage's defined fallback and never propagated to the caller.
type Client interface {
	NewSession(ctx context.Context, options ...SessionOption) (Session, error)
}

// Session is a single blocking request/response exchange with the reasoning
// service. The engine never streams.
type Session interface {
	GenerateContent(ctx context.Context, input ...Input) (*Response, error)
}

// Response is the reasoning service's reply. The engine only consumes Texts;
// token counts are carried through for audit metadata.
type Response struct {
	Texts       []string
	InputToken  int
	OutputToken int
}

// HasData reports whether the response carries any text.
func (r *Response) HasData() bool {
	return r != nil && len(r.Texts) > 0
}

// Input is a prompt element sent to the reasoning service.
type Input interface {
	isInput() restrictedValue
	LogValue() slog.Value
	String() string
}

type restrictedValue struct{}

// Text is a text input as prompt.
// Usage:
// input := stepwise.Text("Hello, world!")
type Text string

func (t Text) isInput() restrictedValue {
	return restrictedValue{}
}

func (t Text) LogValue() slog.Value {
	return slog.StringValue(string(t))
}

func (t Text) String() string {
	return string(t)
}

// ContentType is the type of content to be generated by the reasoning service.
type ContentType string

const (
	// ContentTypeText is plain text response.
	ContentTypeText ContentType = "text"
	// ContentTypeJSON asks the service for a JSON response. Providers that
	// support a native JSON mode enable it; others rely on prompt instruction
	// plus the engine's extraction layer.
	ContentTypeJSON ContentType = "application/json"
)

// SessionConfig holds per-call configuration for a reasoning session.
type SessionConfig struct {
	systemPrompt string
	contentType  ContentType
	model        string
	temperature  *float64
}

// SystemPrompt returns the system instruction for the session.
func (c *SessionConfig) SystemPrompt() string { return c.systemPrompt }

// ContentType returns the requested response content type.
func (c *SessionConfig) ContentType() ContentType { return c.contentType }

// Model returns the model override for the session, or "" for the client default.
func (c *SessionConfig) Model() string { return c.model }

// Temperature returns the sampling temperature override, or nil for the client default.
func (c *SessionConfig) Temperature() *float64 { return c.temperature }

// NewSessionConfig creates a SessionConfig from options. Provider clients call
// this to interpret the options passed to NewSession.
func NewSessionConfig(options ...SessionOption) *SessionConfig {
	cfg := &SessionConfig{
		contentType: ContentTypeText,
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// SessionOption is a functional option for a reasoning session.
type SessionOption func(*SessionConfig)

// WithSessionSystemPrompt sets the system instruction for the session.
func WithSessionSystemPrompt(prompt string) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.systemPrompt = prompt
	}
}

// WithSessionContentType sets the response content type for the session.
func WithSessionContentType(contentType ContentType) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.contentType = contentType
	}
}

// WithSessionModel overrides the model for this session only.
func WithSessionModel(model string) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.model = model
	}
}

// WithSessionTemperature overrides the sampling temperature for this session only.
func WithSessionTemperature(temp float64) SessionOption {
	return func(cfg *SessionConfig) {
		cfg.temperature = &temp
	}
}

// Capability is a named automation capability the executor can perform, e.g. a
// browser action set discovered from an MCP server. The planner advertises
// capability names to the reasoning service; a step's Tool must be one of them
// or "none".
type Capability struct {
	Name        string
	Description string
}
