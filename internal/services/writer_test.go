package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)

func fixedClock() time.Time { return fixedTime }

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "paper_20240309_140507_123456_0007.json", ArtifactName("paper.pdf", fixedTime, 7))
	assert.Equal(t, "量子计算_导论_20240309_140507_123456_0001.json", ArtifactName("量子计算 导论.pdf", fixedTime, 1))
	assert.Equal(t, "b_c_20240309_140507_123456_12345.json", ArtifactName("dir/b:c.PDF", fixedTime, 12345))
	assert.Equal(t, "document_20240309_140507_123456_0001.json", ArtifactName(".pdf", fixedTime, 1))
}

func TestSanitizeFileName_Truncates(t *testing.T) {
	long := strings.Repeat("x", 150) + ".pdf"
	assert.Len(t, sanitizeFileName(long), 100)
}

func TestWriter_ConcurrentNamesAreUnique(t *testing.T) {
	dir := t.TempDir()
	state := NewRunState(fixedTime)
	w := NewWriter(NewLocalSink(dir), state, fixedClock)

	const n = 1000
	locations := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locations[i], errs[i] = w.Persist(context.Background(), models.GenerationResult{
				Source: "same.pdf",
				Pairs:  []models.QAPair{{Question: "Q", Answer: "A"}},
				Mode:   models.ModePro,
			})
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[locations[i]], "duplicate location %s", locations[i])
		seen[locations[i]] = true
	}
	entries, err := os.ReadDir(filepath.Join(dir, "pro"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestWriter_PersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	state := NewRunState(fixedTime)
	w := NewWriter(NewLocalSink(dir), state, fixedClock)

	pairs := []models.QAPair{
		{Question: "什么是<注意力>?", Answer: "A & B", Type: "theory"},
		{Question: "Second?", Answer: "Two."},
		{Question: "Third?", Answer: "Three.", Type: "method"},
	}
	loc, err := w.Persist(context.Background(), models.GenerationResult{
		Source:   "论文.pdf",
		Metadata: models.ExtractionMetadata{PageCount: 3, Extractor: "pdf"},
		Pairs:    pairs,
		Mode:     models.ModeNormal,
		Model:    "deepseek-chat",
		RunID:    state.RunID,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "normal", "论文_20240309_140507_123456_0001.json"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "什么是<注意力>?", "non-ASCII and HTML characters are written as is")
	assert.NotContains(t, string(data), `"ocr"`)

	a, err := DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, "论文.pdf", a.Source)
	assert.Equal(t, 3, a.TotalQAPairs)
	assert.Equal(t, pairs, a.QAPairs)
	assert.Equal(t, "20240309_140507", a.GeneratedAt)
	assert.Equal(t, 3, a.Metadata.PageCount)
	assert.Equal(t, models.ModeNormal, a.Mode)
}

func TestWriter_EmptyPairsWriteEmptyArray(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(NewLocalSink(dir), NewRunState(fixedTime), fixedClock)

	loc, err := w.Persist(context.Background(), models.GenerationResult{Source: "x.pdf", Mode: models.ModeNormal})
	require.NoError(t, err)
	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"qa_pairs": []`)
}

type failingSink struct {
	LocalSink
	err error
}

func (s *failingSink) Put(ctx context.Context, relPath string, data []byte) error { return s.err }

func TestWriter_SinkFailure(t *testing.T) {
	w := NewWriter(&failingSink{err: errors.New("disk full")}, NewRunState(fixedTime), fixedClock)
	_, err := w.Persist(context.Background(), models.GenerationResult{Source: "x.pdf", Mode: models.ModeNormal})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestWriteFileAtomic_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one"), true))
	err := WriteFileAtomic(path, []byte("two"), true)
	assert.ErrorIs(t, err, ErrArtifactExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, WriteFileAtomic(path, []byte("three"), false))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "three", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestLocalSink_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewLocalSink(t.TempDir()).Put(ctx, "a.json", []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunState_Summary(t *testing.T) {
	s := NewRunState(fixedTime)
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, int64(1), s.NextSequence())
	assert.Equal(t, int64(2), s.NextSequence())

	s.AddSubmitted(3)
	s.RecordSuccess("a.json", 4)
	s.RecordSuccess("b.json", 6)
	s.RecordFailure(models.FailureRecord{Source: "c.pdf", Stage: models.StageExtract})

	sum := s.Summary()
	assert.Equal(t, 3, sum.Submitted)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 10, sum.TotalPairs)
	assert.ElementsMatch(t, []string{"a.json", "b.json"}, sum.Artifacts)
	assert.Len(t, s.Failures(), 1)
}
