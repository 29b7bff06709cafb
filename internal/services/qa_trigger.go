package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/extract"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// QATriggerFunction generates QA pairs for a single PDF uploaded to a bucket.
type QATriggerFunction struct {
	deps *functionDeps
}

func NewQATrigger(ctx context.Context) (*QATriggerFunction, error) {
	cfg, err := LoadFunctionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	deps, err := newFunctionDeps(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("QA trigger logic initialized.", "mode", cfg.Run.Mode, "backend", cfg.Model.Backend, "outputBucket", cfg.OutputBucket)
	return &QATriggerFunction{deps: deps}, nil
}

// Process handles one object-finalized event. Non-PDF objects and files that
// already have a finished artifact are skipped.
func (f *QATriggerFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Object is not a PDF. Skipping.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	tempDir, err := os.MkdirTemp("", "qa-trigger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	localPath := filepath.Join(tempDir, path.Base(e.Name))
	if err := gcp.DownloadObject(ctx, f.deps.storage, e.Bucket, e.Name, localPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := extract.FileHash(localPath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.deps.ledger.FindDone(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", docID)
		return nil
	}

	orch := f.deps.orchestrator(f.deps.extractor, f.deps.cfg.Run, logCtx)
	summary, err := orch.Run(ctx, []string{localPath})
	if err != nil {
		logCtx.Error("Run could not start", "error", err)
		return err
	}
	if summary.Failed > 0 {
		reason := summary.Failures[0].Reason
		return fmt.Errorf("qa generation failed for gs://%s/%s: %s", e.Bucket, e.Name, reason)
	}
	logCtx.Info("QA generation complete.", "artifacts", summary.Artifacts, "pairs", summary.TotalPairs)
	return nil
}
