// Package extract turns PDF files on disk into plain text for generation.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// Extractor names accepted by New.
const (
	NamePDF       = "pdf"
	NamePDFToText = "pdftotext"
)

// ErrEmptyText is returned when a document yields no usable text.
var ErrEmptyText = errors.New("no text extracted")

// Extractor reads one document from disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (models.SourceFile, error)
}

// New returns the extractor registered under name.
func New(name string) (Extractor, error) {
	switch name {
	case "", NamePDF:
		return NewPDFExtractor(), nil
	case NamePDFToText:
		return NewPDFToTextExtractor(""), nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// DiscoverPDFs lists the *.pdf files directly inside dir, sorted by name.
func DiscoverPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// FileHash returns the hex SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// finish fills the fields every extractor shares and rejects empty output.
func finish(path, extractor, text string, pageCount int) (models.SourceFile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.SourceFile{}, retry.InvalidInput(fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyText))
	}
	hash, err := FileHash(path)
	if err != nil {
		return models.SourceFile{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return models.SourceFile{
		Path: path,
		Name: filepath.Base(path),
		Text: text,
		Metadata: models.ExtractionMetadata{
			PageCount: pageCount,
			FileHash:  hash,
			Extractor: extractor,
			Chars:     len([]rune(text)),
		},
	}, nil
}
