package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// SystemPrompt is installed on every generative model used for QA work.
const SystemPrompt = "You are an expert at reading technical and academic documents and writing accurate question-answer pairs grounded strictly in their content. When asked for JSON you return only valid JSON."

// VertexClient is a model backend on Vertex AI Gemini.
type VertexClient struct {
	baseClient   *genai.Client
	defaultModel string
	temperature  float32
}

// NewVertexClient creates a Vertex AI backend for the given project.
func NewVertexClient(ctx context.Context, projectID, region, defaultModel string, temperature float32) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{
		baseClient:   baseClient,
		defaultModel: defaultModel,
		temperature:  temperature,
	}, nil
}

// generativeModel configures a model handle for one request. Handles are
// cheap and not shared between goroutines.
func (c *VertexClient) generativeModel(req models.CompletionRequest) *genai.GenerativeModel {
	name := req.Model
	if name == "" {
		name = c.defaultModel
	}
	model := c.baseClient.GenerativeModel(name)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](c.temperature),
	}
	if req.Format == models.FormatJSON {
		model.GenerationConfig.ResponseMIMEType = "application/json"
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model
}

// Complete sends one prompt and returns the concatenated text of the first candidate.
func (c *VertexClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	resp, err := c.generativeModel(req).GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", ClassifyError(fmt.Errorf("vertex generate content: %w", err))
	}
	return vertexText(resp)
}

func vertexText(resp *genai.GenerateContentResponse) (string, error) {
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
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", retry.Parse(ErrEmptyResponse)
	}
	return text, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
