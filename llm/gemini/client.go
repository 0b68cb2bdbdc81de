// Package gemini provides a reasoning client backed by Gemini on Vertex AI.
package gemini

import (
	"context"

	"cloud.google.com/go/vertexai/genai"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/stepwise"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the model used when no override is given.
	DefaultModel = "gemini-1.5-flash"
)

// Client is a client for Gemini models on Vertex AI.
type Client struct {
	client        *genai.Client
	defaultModel  string
	temperature   float32
	clientOptions []option.ClientOption
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

// WithGoogleCloudOptions passes options through to the underlying Vertex AI
// client, e.g. option.WithCredentialsFile.
func WithGoogleCloudOptions(options ...option.ClientOption) Option {
	return func(c *Client) {
		c.clientOptions = append(c.clientOptions, options...)
	}
}

// New creates a new client for Gemini on Vertex AI.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	if projectID == "" || location == "" {
		return nil, goerr.New("project ID and location are required",
			goerr.V("project_id", projectID), goerr.V("location", location))
	}

	client := &Client{
		defaultModel: DefaultModel,
		temperature:  0.2,
	}
	for _, option := range options {
		option(client)
	}

	genaiClient, err := genai.NewClient(ctx, projectID, location, client.clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Vertex AI client")
	}
	client.client = genaiClient

	return client, nil
}

// NewSession creates a new session for the Gemini API.
func (c *Client) NewSession(ctx context.Context, options ...stepwise.SessionOption) (stepwise.Session, error) {
	cfg := stepwise.NewSessionConfig(options...)

	modelName := c.defaultModel
	if cfg.Model() != "" {
		modelName = cfg.Model()
	}
	temperature := c.temperature
	if t := cfg.Temperature(); t != nil {
		temperature = float32(*t)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	if cfg.ContentType() == stepwise.ContentTypeJSON {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if prompt := cfg.SystemPrompt(); prompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(prompt)},
		}
	}

	return &Session{chat: model.StartChat()}, nil
}

// Session is a session for the Gemini API. The underlying chat keeps the
// message history across calls.
type Session struct {
	chat *genai.ChatSession
}

// GenerateContent sends the input as user parts and returns the reply.
func (s *Session) GenerateContent(ctx context.Context, input ...stepwise.Input) (*stepwise.Response, error) {
	var parts []genai.Part
	for _, in := range input {
		switch v := in.(type) {
		case stepwise.Text:
			parts = append(parts, genai.Text(string(v)))
		default:
			return nil, goerr.Wrap(stepwise.ErrInvalidInput, "unsupported input type")
		}
	}
	if len(parts) == 0 {
		return nil, goerr.Wrap(stepwise.ErrInvalidInput, "no input provided")
	}

	resp, err := s.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send message")
	}

	response := &stepwise.Response{}
	if resp.UsageMetadata != nil {
		response.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				response.Texts = append(response.Texts, string(text))
			}
		}
	}

	return response, nil
}
