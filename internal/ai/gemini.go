package ai

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// GeminiClient wraps Google's Generative AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := slog.Default().With("component", "gemini", "model", model)
	logger.Info("gemini client initialized")
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Complete sends a prompt to Gemini and returns the text response.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, "")
}

// CompleteJSON sends a prompt and requests a JSON response via Gemini's
// native JSON mode.
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, "application/json")
}

func (c *GeminiClient) generate(ctx context.Context, systemPrompt, userPrompt, mimeType string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}

	temperature := float32(0.1)
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       &temperature,
		MaxOutputTokens:   2000,
	}
	if mimeType != "" {
		genConfig.ResponseMIMEType = mimeType
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), genConfig)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content parts")
	}

	text := candidate.Content.Parts[0].Text
	c.logger.Debug("gemini completion",
		"prompt_length", len(userPrompt),
		"response_length", len(text),
	)
	return text, nil
}
