package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

func TestDistribution(t *testing.T) {
	st := Distribution([]int{10, 60, 40, 3000, 150})
	assert.Equal(t, 5, st.Count)
	assert.Equal(t, 10, st.Min)
	assert.Equal(t, 3000, st.Max)
	assert.InDelta(t, 652.0, st.Mean, 0.001)
	assert.Equal(t, 60.0, st.Median)
	assert.Equal(t, 40, st.P25)
	assert.Equal(t, 150, st.P75)
	assert.Equal(t, []BucketCount{
		{Label: "0-50", Count: 2},
		{Label: "51-100", Count: 1},
		{Label: "101-200", Count: 1},
		{Label: "2000+", Count: 1},
	}, st.Buckets)
}

func TestDistribution_EvenAndSmall(t *testing.T) {
	st := Distribution([]int{4, 2})
	assert.Equal(t, 3.0, st.Median)
	assert.Equal(t, 2, st.P25)
	assert.Equal(t, 4, st.P75)

	assert.Equal(t, LengthStats{}, Distribution(nil))
}

func TestCollectStatistics(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string, a models.Artifact) {
		data, err := EncodeArtifact(a)
		require.NoError(t, err)
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	write("normal/a1.json", models.NewArtifact(models.GenerationResult{
		Source: "a.pdf",
		Pairs:  []models.QAPair{{Question: "什么?", Answer: "一二三"}},
	}))
	write("pro/a2.json", models.NewArtifact(models.GenerationResult{
		Source: "a.pdf",
		Pairs:  []models.QAPair{{Question: "Why?", Answer: "Because"}},
	}))
	write("pro/b.json", models.NewArtifact(models.GenerationResult{Source: "b.pdf"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pro", "bad.json"), []byte("not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failed_files.txt"), []byte("x.pdf\n"), 0o644))

	st, err := CollectStatistics(dir, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, 3, st.Artifacts)
	assert.Equal(t, 1, st.Skipped)
	assert.Equal(t, 2, st.TotalPairs)
	assert.Equal(t, 3, st.Questions.Min, "lengths count characters, not bytes")
	assert.Equal(t, 7, st.Answers.Max)
}

func TestFindArtifacts_MissingDir(t *testing.T) {
	_, err := FindArtifacts(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
