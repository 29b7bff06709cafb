package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

const nameTimestampLayout = "20060102_150405"

// Writer persists generation results as uniquely named JSON artifacts.
type Writer struct {
	sink  Sink
	state *RunState
	now   func() time.Time
}

func NewWriter(sink Sink, state *RunState, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{sink: sink, state: state, now: now}
}

// Persist writes result under {mode}/ and returns the artifact's location.
// Failures are not retried.
func (w *Writer) Persist(ctx context.Context, result models.GenerationResult) (string, error) {
	at := w.now()
	if result.GeneratedAt.IsZero() {
		result.GeneratedAt = at
	}
	rel := path.Join(string(result.Mode), ArtifactName(result.Source, at, w.state.NextSequence()))

	data, err := EncodeArtifact(models.NewArtifact(result))
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %w", ErrPersistence, rel, err)
	}
	if err := w.sink.Put(ctx, rel, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPersistence, rel, err)
	}
	return w.sink.Location(rel), nil
}

// ArtifactName builds {stem}_{YYYYMMDD_HHMMSS}_{micros:06d}_{seq:04d}.json.
// Uniqueness rests on seq coming from one shared counter.
func ArtifactName(source string, at time.Time, seq int64) string {
	return fmt.Sprintf("%s_%s_%06d_%04d.json",
		sanitizeFileName(source),
		at.Format(nameTimestampLayout),
		at.Nanosecond()/int(time.Microsecond),
		seq,
	)
}

// EncodeArtifact renders an artifact as indented JSON with non-ASCII text kept as is.
func EncodeArtifact(a models.Artifact) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeArtifact parses an artifact previously written by EncodeArtifact.
func DecodeArtifact(data []byte) (models.Artifact, error) {
	var a models.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return models.Artifact{}, fmt.Errorf("invalid artifact: %w", err)
	}
	return a, nil
}

var unsafeNameChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// sanitizeFileName turns a source file name into a safe artifact name stem.
// Letters of any script are kept.
func sanitizeFileName(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	stem = unsafeNameChars.Replace(stem)
	stem = strings.Join(strings.Fields(stem), "_")
	stem = strings.Trim(stem, "._")

	const maxLength = 100
	if r := []rune(stem); len(r) > maxLength {
		stem = strings.Trim(string(r[:maxLength]), "._")
	}
	if stem == "" {
		return "document"
	}
	return stem
}
