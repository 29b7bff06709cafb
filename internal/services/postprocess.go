package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
)

// Conversational openers that precede the real answer.
var openers = []string{"好的", "当然", "sure", "okay", "certainly", "of course"}

// Phrases that betray a sentence about the source rather than the subject.
var leadInMarkers = []string{
	"文献", "严格基于", "提供", "以下",
	"provided document", "based strictly on", "following answer",
}

// Echoed question headers some models put before the answer.
var questionHeaders = []string{"### **问题：", "### 问题：", "问题：", "### **Question:", "### Question:", "Question:"}

const (
	leadInWindow   = 100
	maxLeadInStrip = 5
)

// CleanAnswer removes conversational lead-ins, a leading horizontal rule and
// an echoed question header from a model answer.
func CleanAnswer(answer string) string {
	a := strings.TrimSpace(answer)

	if hasAnyPrefixFold(a, openers) {
		if rest, ok := dropFirstSentence(a, "。", ". ", "!\n", "！"); ok {
			a = trimLead(rest)
		}
	}

	for i := 0; i < maxLeadInStrip; i++ {
		if strings.HasPrefix(a, "###") {
			break
		}
		head := strings.ToLower(firstRunes(a, leadInWindow))
		if !containsAny(head, leadInMarkers) {
			break
		}
		rest, ok := dropFirstSentence(a, "：", ":\n", ": ", "。", ". ")
		if !ok {
			break
		}
		a = trimLead(rest)
	}

	for _, h := range questionHeaders {
		if strings.HasPrefix(a, h) {
			if idx := strings.Index(a, "\n\n"); idx != -1 {
				a = trimLead(a[idx:])
			}
			break
		}
	}
	return a
}

// CleanPairs applies CleanAnswer to every pair and keeps pairs whose answer
// survives the clean-up.
func CleanPairs(pairs []models.QAPair) []models.QAPair {
	out := make([]models.QAPair, 0, len(pairs))
	for _, p := range pairs {
		cleaned := CleanAnswer(p.Answer)
		if cleaned == "" {
			cleaned = strings.TrimSpace(p.Answer)
		}
		p.Answer = cleaned
		out = append(out, p)
	}
	return out
}

// dropFirstSentence cuts a at the earliest of seps and returns what follows.
func dropFirstSentence(a string, seps ...string) (string, bool) {
	cut := -1
	width := 0
	for _, sep := range seps {
		if idx := strings.Index(a, sep); idx != -1 && (cut == -1 || idx < cut) {
			cut, width = idx, len(sep)
		}
	}
	if cut == -1 {
		return a, false
	}
	return a[cut+width:], true
}

func trimLead(a string) string {
	a = strings.TrimLeft(a, " \t\r\n")
	a = strings.TrimPrefix(a, "---")
	return strings.TrimLeft(a, " \t\r\n")
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefixFold(s string, prefixes []string) bool {
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// CleanArtifacts rewrites, in place, every artifact under dir whose answers
// change under CleanAnswer. It returns the number of files rewritten.
func CleanArtifacts(ctx context.Context, dir string, logger *slog.Logger) (int, error) {
	loaded, _, err := LoadArtifacts(dir, logger)
	if err != nil {
		return 0, err
	}

	rewritten := 0
	for _, l := range loaded {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}
		cleaned := CleanPairs(l.Artifact.QAPairs)
		if slices.Equal(cleaned, l.Artifact.QAPairs) {
			continue
		}
		l.Artifact.QAPairs = cleaned
		l.Artifact.TotalQAPairs = len(cleaned)
		data, err := EncodeArtifact(l.Artifact)
		if err != nil {
			return rewritten, fmt.Errorf("encode %s: %w", l.Path, err)
		}
		if err := WriteFileAtomic(l.Path, data, false); err != nil {
			return rewritten, err
		}
		logger.Info("Cleaned artifact.", "path", l.Path)
		rewritten++
	}
	return rewritten, nil
}
