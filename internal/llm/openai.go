// Package llm talks to the external text-generation service.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const systemPrompt = "You are a helpful product recommendation assistant."

var (
	ErrMissingCredential = errors.New("text generation api key not configured")
	ErrEmptyResponse     = errors.New("text generation returned no content")
)

// contentGenerator is the part of a langchaingo model the client needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient generates text through an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	model contentGenerator
}

// NewOpenAIClient returns a client for cfg. Without an API key the client is
// still usable but every call fails with ErrMissingCredential.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return &OpenAIClient{}, nil
	}

	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIClient{model: model}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if c.model == nil {
		return "", ErrMissingCredential
	}

	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(schema.ChatMessageTypeHuman, prompt),
		},
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
