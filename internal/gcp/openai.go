package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// DefaultOpenAIBaseURL points at DeepSeek, which speaks the OpenAI chat protocol.
const DefaultOpenAIBaseURL = "https://api.deepseek.com/v1"

// OpenAIClient is a model backend for any OpenAI-compatible chat completions API.
type OpenAIClient struct {
	hc           *http.Client
	url          string
	apiKey       string
	defaultModel string
	temperature  float32
}

func NewOpenAIClient(baseURL, apiKey, defaultModel string, temperature float32, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, retry.InvalidInput(errors.New("openai: missing api key"))
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		hc:           &http.Client{Timeout: timeout},
		url:          strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:       apiKey,
		defaultModel: defaultModel,
		temperature:  temperature,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// UpstreamError is a non-2xx answer from the chat completions endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("openai upstream %d: %s", e.Status, e.Body)
}

func (c *OpenAIClient) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: c.temperature,
	}
	if req.Format == models.FormatJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(&payload)
	if err != nil {
		return "", retry.InvalidInput(fmt.Errorf("encode request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", retry.InvalidInput(fmt.Errorf("new request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Transport failures and client timeouts are network class.
		return "", retry.Recoverable(fmt.Errorf("openai request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		upErr := &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(slurp))}
		if RecoverableStatus(resp.StatusCode) {
			return "", retry.Recoverable(upErr)
		}
		return "", retry.Fatal(upErr)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", retry.Parse(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", retry.Parse(ErrEmptyResponse)
	}
	if out.Choices[0].FinishReason == "content_filter" {
		return "", retry.Fatal(ErrBlocked)
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", retry.Parse(ErrEmptyResponse)
	}
	return text, nil
}

func (c *OpenAIClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}
