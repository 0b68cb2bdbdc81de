// Package openai provides a reasoning client backed by the OpenAI chat API.
package openai

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the model used when no override is given.
	DefaultModel = "gpt-4o"
)

// Client is a client for the OpenAI chat API.
type Client struct {
	client       *openai.Client
	defaultModel string
	temperature  float32
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
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = temp
	}
}

// New creates a new client for the OpenAI chat API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	client := &Client{
		defaultModel: DefaultModel,
		temperature:  0.2,
	}
	for _, option := range options {
		option(client)
	}

	client.client = openai.NewClient(apiKey)
	return client, nil
}

// NewSession creates a new session for the OpenAI chat API.
func (c *Client) NewSession(ctx context.Context, options ...stepwise.SessionOption) (stepwise.Session, error) {
	cfg := stepwise.NewSessionConfig(options...)

	model := c.defaultModel
	if cfg.Model() != "" {
		model = cfg.Model()
	}
	temperature := c.temperature
	if t := cfg.Temperature(); t != nil {
		temperature = float32(*t)
	}

	session := &Session{
		client:      c.client,
		model:       model,
		temperature: temperature,
	}
	if cfg.ContentType() == stepwise.ContentTypeJSON {
		session.responseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if prompt := cfg.SystemPrompt(); prompt != "" {
		session.messages = append(session.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt,
		})
	}

	return session, nil
}

// Session is a session for the OpenAI chat API. It keeps the message history
// so follow-up calls on the same session see prior exchanges.
type Session struct {
	client         *openai.Client
	model          string
	temperature    float32
	responseFormat *openai.ChatCompletionResponseFormat
	messages       []openai.ChatCompletionMessage
}

// GenerateContent sends the input as user messages and returns the reply.
func (s *Session) GenerateContent(ctx context.Context, input ...stepwise.Input) (*stepwise.Response, error) {
	for _, in := range input {
		switch v := in.(type) {
		case stepwise.Text:
			s.messages = append(s.messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: string(v),
			})
		default:
			return nil, goerr.Wrap(stepwise.ErrInvalidInput, "unsupported input type")
		}
	}

	req := openai.ChatCompletionRequest{
		Model:          s.model,
		Messages:       s.messages,
		Temperature:    s.temperature,
		ResponseFormat: s.responseFormat,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion")
	}

	response := &stepwise.Response{
		InputToken:  resp.Usage.PromptTokens,
		OutputToken: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) == 0 {
		return response, nil
	}

	message := resp.Choices[0].Message
	if message.Content != "" {
		response.Texts = append(response.Texts, message.Content)
		s.messages = append(s.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: message.Content,
		})
	}

	return response, nil
}
