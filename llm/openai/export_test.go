package openai

import "github.com/sashabaranov/go-openai"

// Accessors for testing.

func (s *Session) TestModel() string { return s.model }

func (s *Session) TestResponseFormat() *openai.ChatCompletionResponseFormat {
	return s.responseFormat
}

func (s *Session) TestMessages() []openai.ChatCompletionMessage { return s.messages }
