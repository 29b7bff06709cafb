package gcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"google.golang.org/genai"
)

// GeminiClient is a model backend on the Gemini Developer API, authenticated
// with an API key instead of project credentials.
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
	temperature  float32
}

func NewGeminiClient(ctx context.Context, apiKey, defaultModel string, temperature float32) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewGeminiClient: api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, defaultModel: defaultModel, temperature: temperature}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	name := req.Model
	if name == "" {
		name = c.defaultModel
	}
	temp := c.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemPrompt}},
		},
	}
	if req.Format == models.FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, name, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", ClassifyError(fmt.Errorf("gemini generate content: %w", err))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", retry.Parse(ErrEmptyResponse)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", retry.Fatal(ErrBlocked)
	}
	if cand.Content == nil {
		return "", retry.Parse(ErrEmptyResponse)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", retry.Parse(ErrEmptyResponse)
	}
	return text, nil
}

// Close is a no-op; the Gemini API client holds no connections of its own.
func (c *GeminiClient) Close() error { return nil }
