// Package claude provides a reasoning client backed by Anthropic's Claude API.
package claude

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise"
)

// jsonInstruction is appended to the system prompt when the session asks for
// JSON output. Claude has no native JSON response mode; the extraction layer
// on the engine side tolerates surrounding prose anyway.
const jsonInstruction = "Respond with a single valid JSON value and nothing else."

// Client is a client for the Claude API.
type Client struct {
	client       *anthropic.Client
	defaultModel string
	temperature  float64
	maxTokens    int64
}

var _ stepwise.Client = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model for the client.
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the default sampling temperature.
// Range: 0.0 to 1.0
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: 4096
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
	}
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	client := &Client{
		defaultModel: anthropic.ModelClaude3_5SonnetLatest,
		temperature:  0.2,
		maxTokens:    4096,
	}
	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.client = &newClient

	return client, nil
}

// NewSession creates a new session for the Claude API.
func (c *Client) NewSession(ctx context.Context, options ...stepwise.SessionOption) (stepwise.Session, error) {
	cfg := stepwise.NewSessionConfig(options...)

	model := c.defaultModel
	if cfg.Model() != "" {
		model = cfg.Model()
	}
	temperature := c.temperature
	if t := cfg.Temperature(); t != nil {
		temperature = *t
	}

	return &Session{
		client:      c.client,
		model:       model,
		temperature: temperature,
		maxTokens:   c.maxTokens,
		system:      systemBlocks(cfg),
	}, nil
}

// systemBlocks builds the system prompt blocks from the session config,
// appending the JSON instruction when a JSON response was requested.
func systemBlocks(cfg *stepwise.SessionConfig) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if prompt := cfg.SystemPrompt(); prompt != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: prompt})
	}
	if cfg.ContentType() == stepwise.ContentTypeJSON {
		blocks = append(blocks, anthropic.TextBlockParam{Text: jsonInstruction})
	}
	return blocks
}

// Session is a session for the Claude API. It keeps the message history so
// follow-up calls on the same session see prior exchanges.
type Session struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int64
	system      []anthropic.TextBlockParam
	messages    []anthropic.MessageParam
}

// GenerateContent sends the input as user messages and returns the reply.
func (s *Session) GenerateContent(ctx context.Context, input ...stepwise.Input) (*stepwise.Response, error) {
	for _, in := range input {
		switch v := in.(type) {
		case stepwise.Text:
			s.messages = append(s.messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(string(v)),
			))
		default:
			return nil, goerr.Wrap(stepwise.ErrInvalidInput, "unsupported input type")
		}
	}

	params := anthropic.MessageNewParams{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: anthropic.Float(s.temperature),
		System:      s.system,
		Messages:    s.messages,
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message")
	}

	s.messages = append(s.messages, resp.ToParam())

	response := &stepwise.Response{
		InputToken:  int(resp.Usage.InputTokens),
		OutputToken: int(resp.Usage.OutputTokens),
	}
	for _, content := range resp.Content {
		textBlock := content.AsResponseTextBlock()
		if textBlock.Type == "text" {
			response.Texts = append(response.Texts, textBlock.Text)
		}
	}

	return response, nil
}
