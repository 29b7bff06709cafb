package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdfqaflow/internal/extract"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// FunctionConfig holds the environment configuration shared by the Cloud
// Functions.
type FunctionConfig struct {
	ProjectID        string
	Region           string
	OutputBucket     string
	OutputPrefix     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	Extractor        string
	CleanAnswers     bool
	Model            gcp.ModelOptions
	Run              RunConfig
}

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

// LoadFunctionConfig reads and validates the function environment.
func LoadFunctionConfig() (*FunctionConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}

	numQA, err := envInt("NUM_QA", 10)
	if err != nil {
		return nil, err
	}
	maxWorkers, err := envInt("MAX_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	answerWorkers, err := envInt("ANSWER_WORKERS", 10)
	if err != nil {
		return nil, err
	}
	retries, err := envInt("API_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	retryDelay, err := time.ParseDuration(gcp.GetEnv("RETRY_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("RETRY_DELAY must be a duration: %w", err)
	}
	temperature, err := strconv.ParseFloat(gcp.GetEnv("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a number: %w", err)
	}
	region := gcp.GetEnv("VERTEX_AI_REGION", "us-central1")

	cfg := &FunctionConfig{
		ProjectID:        projectID,
		Region:           region,
		OutputBucket:     outputBucket,
		OutputPrefix:     gcp.GetEnv("OUTPUT_PREFIX", "qa"),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "qa_documents"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", region),
		Extractor:        gcp.GetEnv("EXTRACTOR", extract.NamePDF),
		CleanAnswers:     gcp.GetEnv("CLEAN_ANSWERS", "false") == "true",
		Model: gcp.ModelOptions{
			Backend:     gcp.GetEnv("LLM_BACKEND", gcp.BackendVertex),
			Model:       gcp.GetEnv("MODEL_NAME", "gemini-1.5-pro"),
			APIKey:      gcp.GetEnv("LLM_API_KEY", ""),
			BaseURL:     gcp.GetEnv("LLM_BASE_URL", ""),
			Temperature: float32(temperature),
			ProjectID:   projectID,
			Region:      region,
		},
		Run: RunConfig{
			Mode:          models.Mode(gcp.GetEnv("QA_MODE", string(models.ModeNormal))),
			NumQA:         numQA,
			MaxWorkers:    maxWorkers,
			AnswerWorkers: answerWorkers,
			Retry:         retry.Policy{MaxAttempts: retries, Delay: retryDelay},
		},
	}
	cfg.Run.Model = cfg.Model.Model
	if err := cfg.Run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	return cfg, nil
}

// functionDeps are the clients a function keeps for its whole lifetime.
type functionDeps struct {
	cfg       *FunctionConfig
	storage   *storage.Client
	model     gcp.ModelClient
	ledger    *gcp.FirestoreLedger
	notifier  *gcp.WorkflowNotifier
	extractor extract.Extractor
}

func newFunctionDeps(ctx context.Context, cfg *FunctionConfig) (*functionDeps, error) {
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	model, err := gcp.NewModelClient(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	extractor, err := extract.New(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	deps := &functionDeps{
		cfg:       cfg,
		storage:   storageClient,
		model:     model,
		ledger:    gcp.NewFirestoreLedger(firestoreClient, cfg.CollectionName),
		extractor: extractor,
	}
	if cfg.WorkflowID != "" {
		deps.notifier, err = gcp.NewWorkflowNotifier(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		if err != nil {
			return nil, err
		}
	}
	return deps, nil
}

// orchestrator builds an orchestrator for one invocation.
func (d *functionDeps) orchestrator(extractor extract.Extractor, run RunConfig, logger *slog.Logger) *Orchestrator {
	generator := NewGenerator(d.model, GeneratorConfig{
		AnswerWorkers: run.AnswerWorkers,
		CleanAnswers:  d.cfg.CleanAnswers,
	}, logger)
	opts := []Option{WithLedger(d.ledger)}
	if d.notifier != nil {
		opts = append(opts, WithNotifier(d.notifier))
	}
	sink := gcp.NewGCSSink(d.storage, d.cfg.OutputBucket, d.cfg.OutputPrefix)
	return NewOrchestrator(extractor, generator, sink, run, logger, opts...)
}
