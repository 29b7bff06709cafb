package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFToTextExtractor shells out to poppler's pdftotext, which keeps column
// layout better than the pure-Go reader.
type PDFToTextExtractor struct {
	Binary string
}

func NewPDFToTextExtractor(binary string) *PDFToTextExtractor {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PDFToTextExtractor{Binary: binary}
}

func (e *PDFToTextExtractor) Extract(ctx context.Context, path string) (models.SourceFile, error) {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return models.SourceFile{}, fmt.Errorf("%s not found: install poppler-utils", e.Binary)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Binary, "-layout", "-enc", "UTF-8", path, "-")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("pdftotext failed on %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	// Page count is metadata only; a file pdfcpu cannot parse is still usable.
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		pageCount = 0
	}
	return finish(path, NamePDFToText, string(out), pageCount)
}
