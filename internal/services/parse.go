package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// extractJSONContent strips markdown fences and any prose around the first
// JSON value in a model response.
func extractJSONContent(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	start := strings.IndexAny(clean, "[{")
	if start < 0 {
		return clean
	}
	closer := byte('}')
	if clean[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(clean, closer)
	if end < start {
		return clean[start:]
	}
	return clean[start : end+1]
}

// decodeList accepts either a bare JSON array or an object holding the array
// under one of keys.
func decodeList(raw string, keys ...string) ([]json.RawMessage, error) {
	content := extractJSONContent(raw)
	if content == "" {
		return nil, fmt.Errorf("empty response")
	}

	var list []json.RawMessage
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &list); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, fmt.Errorf("field %q is not an array: %w", k, err)
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("response object has none of the fields %v", keys)
}

// ParsePairs turns a single-shot response into pairs, in response order.
// Entries with an empty question or answer are skipped.
func ParsePairs(raw string) ([]models.QAPair, error) {
	items, err := decodeList(raw, "qa_pairs", "pairs", "data")
	if err != nil {
		return nil, retry.Parse(fmt.Errorf("parse qa pairs: %w", err))
	}

	pairs := make([]models.QAPair, 0, len(items))
	for _, item := range items {
		var p models.QAPair
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		p.Question = strings.TrimSpace(p.Question)
		p.Answer = strings.TrimSpace(p.Answer)
		if p.Question == "" || p.Answer == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 {
		return nil, retry.Parse(ErrNoPairs)
	}
	return pairs, nil
}

// ParseQuestions turns a question-stage response into items indexed from 0
// in response order. Entries may be objects or plain strings.
func ParseQuestions(raw string) ([]models.QuestionItem, error) {
	items, err := decodeList(raw, "questions", "data")
	if err != nil {
		return nil, retry.Parse(fmt.Errorf("parse questions: %w", err))
	}

	questions := make([]models.QuestionItem, 0, len(items))
	for _, item := range items {
		var q models.QuestionItem
		if err := json.Unmarshal(item, &q); err != nil {
			var s string
			if json.Unmarshal(item, &s) != nil {
				continue
			}
			q.Text = s
		}
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		q.Type = normalizeQuestionType(q.Type)
		q.Index = len(questions)
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, retry.Parse(ErrNoQuestions)
	}
	return questions, nil
}

// normalizeQuestionType lower-cases a label and drops anything outside
// QuestionTypes.
func normalizeQuestionType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	for _, known := range QuestionTypes {
		if t == known {
			return t
		}
	}
	return ""
}

// refusalPhrases mark an answer the model declined to give.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
	"as an ai language model",
	"我无法回答",
	"作为一个人工智能",
}

// checkRefusal returns ErrRefusal as a fatal error when text looks like a refusal.
func checkRefusal(text string) error {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return retry.Fatal(fmt.Errorf("%w: matched %q", ErrRefusal, phrase))
		}
	}
	return nil
}
