// Package ai provides the language-model surface used for candidate
// summaries and recruiter Q&A. The pipeline never depends on it; a
// disabled client answers every call with an error instead of guessing.
package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/talentgraph/talentgraph-go/internal/config"
)

// Provider identifies the configured model backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderNone   Provider = "none"
)

// Completer is the contract the summary and Q&A features program
// against. Both adapters satisfy it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client is the multi-provider language-model client.
type Client struct {
	provider     Provider
	openaiClient *openai.Client
	geminiClient *GeminiClient
	model        string
	logger       *slog.Logger
}

// NewClient builds a client from configuration. With provider "none" or
// a missing key the client is returned disabled rather than erroring, so
// commands that do not need it still start.
func NewClient(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	logger := slog.Default().With("component", "ai")

	switch Provider(cfg.Provider) {
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			logger.Warn("openai provider selected but no api key configured")
			return &Client{provider: ProviderNone, logger: logger}, nil
		}
		model := cfg.OpenAIModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		logger.Info("openai client initialized", "model", model)
		return &Client{
			provider:     ProviderOpenAI,
			openaiClient: openai.NewClient(cfg.OpenAIKey),
			model:        model,
			logger:       logger,
		}, nil

	case ProviderGemini:
		if cfg.GeminiKey == "" {
			logger.Warn("gemini provider selected but no api key configured")
			return &Client{provider: ProviderNone, logger: logger}, nil
		}
		gemini, err := NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return &Client{
			provider:     ProviderGemini,
			geminiClient: gemini,
			model:        gemini.model,
			logger:       logger,
		}, nil

	default:
		return &Client{provider: ProviderNone, logger: logger}, nil
	}
}

// Enabled reports whether a provider is configured and ready.
func (c *Client) Enabled() bool {
	return c.provider != ProviderNone
}

// ActiveProvider returns the configured provider.
func (c *Client) ActiveProvider() Provider {
	return c.provider
}

// Complete sends a prompt and returns the text response.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch c.provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt, nil)
	case ProviderGemini:
		return c.geminiClient.Complete(ctx, systemPrompt, userPrompt)
	default:
		return "", fmt.Errorf("no ai provider configured; set ai.provider and an api key")
	}
}

// CompleteJSON sends a prompt and requests a structured JSON response.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	switch c.provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, systemPrompt, userPrompt, &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		})
	case ProviderGemini:
		return c.geminiClient.CompleteJSON(ctx, systemPrompt, userPrompt)
	default:
		return "", fmt.Errorf("no ai provider configured; set ai.provider and an api key")
	}
}

func (c *Client) completeOpenAI(ctx context.Context, systemPrompt, userPrompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	resp, err := c.openaiClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: format,
		Temperature:    0.1,
		MaxTokens:      2000,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	response := resp.Choices[0].Message.Content
	c.logger.Debug("openai completion",
		"model", c.model,
		"prompt_length", len(userPrompt),
		"response_length", len(response),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return response, nil
}
