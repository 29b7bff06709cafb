package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// FailureReportName is the report file written at the output root.
const FailureReportName = "failed_files.txt"

// WriteFailureReport flushes the names of failed sources, one per line. It
// writes nothing and returns "" when there are no failures.
func WriteFailureReport(ctx context.Context, sink Sink, failures []models.FailureRecord) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}
	names := FailedSourceNames(failures)
	data := []byte(strings.Join(names, "\n") + "\n")
	if err := sink.Replace(ctx, FailureReportName, data); err != nil {
		return "", fmt.Errorf("failed to write failure report: %w", err)
	}
	return sink.Location(FailureReportName), nil
}

// FailedSourceNames returns the failed source names sorted.
func FailedSourceNames(failures []models.FailureRecord) []string {
	names := make([]string, 0, len(failures))
	for _, f := range failures {
		names = append(names, f.Source)
	}
	sort.Strings(names)
	return names
}
