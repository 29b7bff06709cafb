package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor validates a file with pdfcpu and reads its text layer with
// ledongthuc/pdf. No external binaries are needed.
type PDFExtractor struct {
	conf *model.Configuration
}

func NewPDFExtractor() *PDFExtractor {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return &PDFExtractor{conf: cfg}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (models.SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return models.SourceFile{}, err
	}
	if err := api.ValidateFile(path, e.conf); err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to validate PDF %s: %w", path, err)
	}
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to get page count: %w", err)
	}

	text, err := readText(path)
	if err != nil {
		return models.SourceFile{}, err
	}
	return finish(path, NamePDF, text, pageCount)
}

// readText concatenates the plain text of every page. The parser panics on
// some malformed content streams, so that is turned into an error.
func readText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text extraction panicked on %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
