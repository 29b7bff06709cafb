package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// ErrBadRequest marks a batch request that cannot be served as sent.
var ErrBadRequest = errors.New("bad request")

// BatchFunction generates QA pairs for a list or prefix of gs:// PDFs.
type BatchFunction struct {
	deps *functionDeps
}

func NewBatchGenerator(ctx context.Context) (*BatchFunction, error) {
	cfg, err := LoadFunctionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	deps, err := newFunctionDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("Batch generator logic initialized.", "mode", cfg.Run.Mode, "backend", cfg.Model.Backend)
	return &BatchFunction{deps: deps}, nil
}

// Process runs one batch and returns its summary. Per-file failures are
// reported in the response, not as an error.
func (f *BatchFunction) Process(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error) {
	logCtx := slog.With("executionId", req.ExecutionID)

	run, err := applyBatchOverrides(f.deps.cfg.Run, req)
	if err != nil {
		return nil, err
	}

	uris, err := f.resolveInputs(ctx, req)
	if err != nil {
		logCtx.Error("Failed to resolve batch inputs", "error", err)
		return nil, err
	}
	if len(uris) == 0 {
		logCtx.Warn("No PDF files found for batch.")
	}
	logCtx.Info("Starting batch.", "fileCount", len(uris), "mode", run.Mode)

	tempDir, err := os.MkdirTemp("", "qa-batch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	extractor := &gcsExtractor{
		client:  f.deps.storage,
		inner:   f.deps.extractor,
		tempDir: tempDir,
		policy:  run.Retry,
		logger:  logCtx,
	}
	summary, err := f.deps.orchestrator(extractor, run, logCtx).Run(ctx, uris)
	if err != nil {
		return nil, err
	}

	artifacts := summary.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}
	return &models.BatchResponse{
		Status:      "success",
		RunID:       summary.RunID,
		Submitted:   summary.Submitted,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Artifacts:   artifacts,
		FailedFiles: FailedSourceNames(summary.Failures),
		ReportURI:   summary.ReportPath,
	}, nil
}

// applyBatchOverrides lets a request pick its own mode and pair count.
func applyBatchOverrides(run RunConfig, req *models.BatchRequest) (RunConfig, error) {
	if req.Mode != "" {
		run.Mode = req.Mode
	}
	if req.NumQA > 0 {
		run.NumQA = req.NumQA
	}
	if err := run.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return run, nil
}

func (f *BatchFunction) resolveInputs(ctx context.Context, req *models.BatchRequest) ([]string, error) {
	switch {
	case len(req.InputURIs) > 0:
		for _, uri := range req.InputURIs {
			if _, _, err := gcp.ParseGCSURI(uri); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
			}
		}
		return req.InputURIs, nil
	case req.InputPrefix != "":
		rest, ok := strings.CutPrefix(req.InputPrefix, "gs://")
		if !ok {
			return nil, fmt.Errorf("%w: inputPrefix must start with gs://", ErrBadRequest)
		}
		bucket, prefix, _ := strings.Cut(rest, "/")
		names, err := retry.Do(ctx, f.deps.cfg.Run.Retry, slog.Default(), "list", func(ctx context.Context) ([]string, error) {
			names, err := gcp.ListPDFObjects(ctx, f.deps.storage, bucket, prefix)
			return names, gcp.ClassifyError(err)
		})
		if err != nil {
			return nil, err
		}
		uris := make([]string, len(names))
		for i, n := range names {
			uris[i] = fmt.Sprintf("gs://%s/%s", bucket, n)
		}
		return uris, nil
	default:
		return nil, fmt.Errorf("%w: one of inputUris or inputPrefix is required", ErrBadRequest)
	}
}
