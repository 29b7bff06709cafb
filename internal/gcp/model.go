package gcp

import (
	"context"
	"fmt"
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// Model backends.
const (
	BackendVertex = "vertex"
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// ModelClient is implemented by every backend in this package.
type ModelClient interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
	Close() error
}

// ModelOptions selects and configures a backend.
type ModelOptions struct {
	Backend     string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	ProjectID   string
	Region      string
}

// NewModelClient builds the backend named in opts.
func NewModelClient(ctx context.Context, opts ModelOptions) (ModelClient, error) {
	switch opts.Backend {
	case BackendVertex:
		return NewVertexClient(ctx, opts.ProjectID, opts.Region, opts.Model, opts.Temperature)
	case BackendGemini:
		return NewGeminiClient(ctx, opts.APIKey, opts.Model, opts.Temperature)
	case BackendOpenAI, "":
		return NewOpenAIClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Temperature, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown model backend %q", opts.Backend)
	}
}
