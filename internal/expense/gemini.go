package expense

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiCompleter is a Completer backed by the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini client authenticated with apiKey.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrSemanticUnavailable
	}
	if model == "" {
		model = DefaultModelName
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiCompleter: create genai client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

// Model returns the model name requests are sent to.
func (g *GeminiCompleter) Model() string {
	return g.model
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		MaxOutputTokens:  1024,
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("GeminiCompleter.Complete: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("GeminiCompleter.Complete: empty response from model")
	}
	return text, nil
}
