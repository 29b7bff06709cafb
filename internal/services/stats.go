package services

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// LengthBuckets are the inclusive upper bounds of the length histogram.
var LengthBuckets = []struct {
	Label string
	Max   int // -1 means unbounded
}{
	{"0-50", 50},
	{"51-100", 100},
	{"101-200", 200},
	{"201-500", 500},
	{"501-1000", 1000},
	{"1001-2000", 2000},
	{"2000+", -1},
}

// BucketCount is one histogram bar.
type BucketCount struct {
	Label string
	Count int
}

// LengthStats describes a distribution of text lengths in characters.
type LengthStats struct {
	Count   int
	Min     int
	Max     int
	Mean    float64
	Median  float64
	P25     int
	P75     int
	Buckets []BucketCount
}

// Statistics summarises a directory of artifacts.
type Statistics struct {
	Documents  int
	Artifacts  int
	Skipped    int
	TotalPairs int
	Questions  LengthStats
	Answers    LengthStats
}

// LoadedArtifact is an artifact read back from disk.
type LoadedArtifact struct {
	Path     string
	Artifact models.Artifact
}

// FindArtifacts lists the *.json files under dir, recursively, sorted.
func FindArtifacts(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") && !strings.HasPrefix(d.Name(), ".") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadArtifacts reads every artifact under dir. Unreadable files are logged
// and counted in skipped.
func LoadArtifacts(dir string, logger *slog.Logger) (loaded []LoadedArtifact, skipped int, err error) {
	files, err := FindArtifacts(dir)
	if err != nil {
		return nil, 0, err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Failed to read artifact.", "path", path, "error", err)
			skipped++
			continue
		}
		a, err := DecodeArtifact(data)
		if err != nil {
			logger.Warn("Failed to parse artifact.", "path", path, "error", err)
			skipped++
			continue
		}
		loaded = append(loaded, LoadedArtifact{Path: path, Artifact: a})
	}
	return loaded, skipped, nil
}

// CollectStatistics computes document counts and question/answer length
// distributions over the artifacts under dir.
func CollectStatistics(dir string, logger *slog.Logger) (*Statistics, error) {
	loaded, skipped, err := LoadArtifacts(dir, logger)
	if err != nil {
		return nil, err
	}

	docs := make(map[string]struct{})
	var qLens, aLens []int
	for _, l := range loaded {
		if l.Artifact.Source != "" {
			docs[l.Artifact.Source] = struct{}{}
		}
		for _, p := range l.Artifact.QAPairs {
			qLens = append(qLens, utf8.RuneCountInString(p.Question))
			aLens = append(aLens, utf8.RuneCountInString(p.Answer))
		}
	}

	return &Statistics{
		Documents:  len(docs),
		Artifacts:  len(loaded),
		Skipped:    skipped,
		TotalPairs: len(qLens),
		Questions:  Distribution(qLens),
		Answers:    Distribution(aLens),
	}, nil
}

// Distribution computes summary statistics for lengths.
func Distribution(lengths []int) LengthStats {
	n := len(lengths)
	if n == 0 {
		return LengthStats{}
	}
	sorted := make([]int, n)
	copy(sorted, lengths)
	sort.Ints(sorted)

	sum := 0
	for _, l := range sorted {
		sum += l
	}

	st := LengthStats{
		Count: n,
		Min:   sorted[0],
		Max:   sorted[n-1],
		Mean:  float64(sum) / float64(n),
		P25:   sorted[0],
		P75:   sorted[n-1],
	}
	if n%2 == 1 {
		st.Median = float64(sorted[n/2])
	} else {
		st.Median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	if n >= 4 {
		st.P25 = sorted[n/4]
		st.P75 = sorted[3*n/4]
	}

	counts := make([]int, len(LengthBuckets))
	for _, l := range sorted {
		for i, b := range LengthBuckets {
			if b.Max < 0 || l <= b.Max {
				counts[i]++
				break
			}
		}
	}
	for i, b := range LengthBuckets {
		if counts[i] > 0 {
			st.Buckets = append(st.Buckets, BucketCount{Label: b.Label, Count: counts[i]})
		}
	}
	return st
}
