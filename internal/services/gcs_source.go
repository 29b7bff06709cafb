package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdfqaflow/internal/extract"
	"github.com/Lllllllleong/pdfqaflow/internal/gcp"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// gcsExtractor downloads a gs:// object into a scratch directory before
// handing it to a local extractor, so download failures surface as
// extraction failures of that one file.
type gcsExtractor struct {
	client  *storage.Client
	inner   extract.Extractor
	tempDir string
	policy  retry.Policy
	logger  *slog.Logger
	seq     atomic.Int64
}

func (e *gcsExtractor) Extract(ctx context.Context, uri string) (models.SourceFile, error) {
	bucket, object, err := gcp.ParseGCSURI(uri)
	if err != nil {
		return models.SourceFile{}, retry.InvalidInput(err)
	}

	// Each download gets its own subdirectory so equal base names never clash.
	dir := filepath.Join(e.tempDir, fmt.Sprintf("%04d", e.seq.Add(1)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to create download dir: %w", err)
	}
	localPath := filepath.Join(dir, path.Base(object))

	_, err = retry.Do(ctx, e.policy, e.logger.With("gcsBucket", bucket, "gcsObject", object), "download", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, gcp.ClassifyError(gcp.DownloadObject(ctx, e.client, bucket, object, localPath))
	})
	if err != nil {
		return models.SourceFile{}, err
	}
	defer os.Remove(localPath)

	src, err := e.inner.Extract(ctx, localPath)
	if err != nil {
		return models.SourceFile{}, err
	}
	src.Path = uri
	return src, nil
}
