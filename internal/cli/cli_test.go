package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/services"
)

func writeArtifact(t *testing.T, dir, name string, pairs []models.QAPair) string {
	t.Helper()
	a := models.NewArtifact(models.GenerationResult{
		Source:      name,
		Pairs:       pairs,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Mode:        models.ModeNormal,
		Model:       "test-model",
	})
	data, err := services.EncodeArtifact(a)
	require.NoError(t, err)
	path := filepath.Join(dir, "normal", name+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PDFQA_LOG_LEVEL", "error")
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := run(root, args, &errOut)
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "alpha", []models.QAPair{
		{Question: "What is alpha?", Answer: "The first letter."},
		{Question: "Why?", Answer: "Because it comes first."},
	})
	writeArtifact(t, dir, "beta", []models.QAPair{{Question: "What is beta?", Answer: "The second letter."}})

	out, err := execute(t, "stats", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Artifact Statistics")
	assert.Contains(t, out, "Question length")
	assert.Contains(t, out, "0-50")
}

func TestStatsCommand_Empty(t *testing.T) {
	_, err := execute(t, "stats", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no artifacts found")
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "doc", []models.QAPair{
		{Question: "Q?", Answer: "Sure. The answer is 42."},
	})
	writeArtifact(t, dir, "tidy", []models.QAPair{{Question: "Q?", Answer: "Already clean."}})

	out, err := execute(t, "clean", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 artifact(s) rewritten")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	a, err := services.DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", a.QAPairs[0].Answer)
}

func TestGenerateCommand_NoPDFs(t *testing.T) {
	t.Setenv("PDFQA_LLM_API_KEY", "sk-test")
	out, err := execute(t, "generate", "--pdf-dir", t.TempDir(), "--output-dir", t.TempDir())
	require.NoError(t, err)
	assert.NotContains(t, out, "Run Complete")
}

func TestGenerateCommand_InvalidFlags(t *testing.T) {
	_, err := execute(t, "generate", "--num-qa", "0", "--pdf-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NumQA")
}

func TestGenerateCommand_MissingDir(t *testing.T) {
	_, err := execute(t, "generate", "--pdf-dir", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestFormatRunSummary(t *testing.T) {
	var buf bytes.Buffer
	FormatRunSummary(&buf, &models.RunSummary{
		RunID:      "run-1",
		Submitted:  3,
		Succeeded:  2,
		Failed:     1,
		TotalPairs: 20,
		Failures:   []models.FailureRecord{{Source: "bad.pdf", Stage: models.StageExtract}},
		ReportPath: "output/failed_files.txt",
	})
	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "bad.pdf")
	assert.Contains(t, out, "failed_files.txt")
}
