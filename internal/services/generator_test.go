package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeModel answers JSON requests with questionsRaw (or pairsRaw) and text
// requests through answer, keyed by the question number found in the prompt.
type fakeModel struct {
	questionsRaw string
	pairsRaw     string
	answer       func(n int) (string, error)

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

var questionNumber = regexp.MustCompile(`Question (\d+)\?`)

func (m *fakeModel) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	m.calls.Add(1)
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		prev := m.maxInFlight.Load()
		if cur <= prev || m.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if req.Format == models.FormatJSON {
		if m.pairsRaw != "" {
			return m.pairsRaw, nil
		}
		return m.questionsRaw, nil
	}
	match := questionNumber.FindStringSubmatch(req.Prompt)
	if match == nil {
		return "", retry.Fatal(errors.New("no question in prompt"))
	}
	n, _ := strconv.Atoi(match[1])
	return m.answer(n)
}

func questionsJSON(n int) string {
	s := `{"questions":[`
	for i := 0; i < n; i++ {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"question":"Question %d?","type":"theory"}`, i)
	}
	return s + "]}"
}

func testRequest(mode models.Mode, n int) models.GenerationRequest {
	return models.GenerationRequest{
		Source:    models.SourceFile{Name: "paper.pdf", Text: "Some document text about systems."},
		Mode:      mode,
		PairCount: n,
		Model:     "test-model",
		Retry:     retry.Policy{MaxAttempts: 2, Delay: time.Millisecond},
	}
}

func TestGeneratePro_PreservesQuestionOrder(t *testing.T) {
	const n = 8
	model := &fakeModel{
		questionsRaw: questionsJSON(n),
		answer: func(i int) (string, error) {
			// Later questions finish first.
			time.Sleep(time.Duration(n-i) * 3 * time.Millisecond)
			return fmt.Sprintf("Answer %d", i), nil
		},
	}
	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 4}, discardLogger())

	var mu sync.Mutex
	var stages []string
	pairs, err := g.Generate(context.Background(), testRequest(models.ModePro, n), func(s string) {
		mu.Lock()
		stages = append(stages, s)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, pairs, n)
	for i, p := range pairs {
		assert.Equal(t, fmt.Sprintf("Question %d?", i), p.Question)
		assert.Equal(t, fmt.Sprintf("Answer %d", i), p.Answer)
		assert.Equal(t, "theory", p.Type)
	}
	assert.Equal(t, []string{models.StatusQuestions, models.StatusAnswers}, stages)
	assert.LessOrEqual(t, model.maxInFlight.Load(), int64(4))
}

func TestGeneratePro_DropsFailedAnswers(t *testing.T) {
	model := &fakeModel{
		questionsRaw: questionsJSON(5),
		answer: func(i int) (string, error) {
			if i == 1 || i == 3 {
				return "", retry.Fatal(errors.New("boom"))
			}
			return fmt.Sprintf("Answer %d", i), nil
		},
	}
	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 3}, discardLogger())

	pairs, err := g.Generate(context.Background(), testRequest(models.ModePro, 5), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, "Question 0?", pairs[0].Question)
	assert.Equal(t, "Question 2?", pairs[1].Question)
	assert.Equal(t, "Question 4?", pairs[2].Question)
}

func TestGeneratePro_AllAnswersFail(t *testing.T) {
	model := &fakeModel{
		questionsRaw: questionsJSON(3),
		answer: func(int) (string, error) {
			return "", retry.Recoverable(errors.New("503"))
		},
	}
	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 2}, discardLogger())

	_, err := g.Generate(context.Background(), testRequest(models.ModePro, 3), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllAnswersFailed)
	assert.True(t, retry.IsRetryable(err))
	// 1 question call plus 2 attempts for each of 3 answers.
	assert.Equal(t, int64(7), model.calls.Load())
}

func TestGeneratePro_RefusedAnswerIsDropped(t *testing.T) {
	model := &fakeModel{
		questionsRaw: questionsJSON(2),
		answer: func(i int) (string, error) {
			if i == 0 {
				return "I cannot answer that from this document.", nil
			}
			return "Answer 1", nil
		},
	}
	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 2}, discardLogger())

	pairs, err := g.Generate(context.Background(), testRequest(models.ModePro, 2), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "Answer 1", pairs[0].Answer)
	// The refusal is fatal, so it is not retried.
	assert.Equal(t, int64(3), model.calls.Load())
}

func TestGeneratePro_UnparseableQuestions(t *testing.T) {
	model := &fakeModel{questionsRaw: "not json at all"}
	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 2}, discardLogger())

	_, err := g.Generate(context.Background(), testRequest(models.ModePro, 2), nil)
	require.Error(t, err)
	assert.Equal(t, retry.KindParse, retry.KindOf(err))
}

func TestGenerateNormal(t *testing.T) {
	model := &fakeModel{
		pairsRaw: "```json\n" + `{"qa_pairs":[{"question":"What?","answer":"Sure. This."},{"question":"","answer":"x"},{"question":"Why?","answer":"Because."}]}` + "\n```",
	}
	g := NewGenerator(model, GeneratorConfig{CleanAnswers: true}, discardLogger())

	pairs, err := g.Generate(context.Background(), testRequest(models.ModeNormal, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.QAPair{
		{Question: "What?", Answer: "Sure. This."},
		{Question: "Why?", Answer: "Because."},
	}, pairs, "normal-mode answers are never cleaned")
	assert.Equal(t, int64(1), model.calls.Load())
}

func TestGenerateNormal_DefaultConfigKeepsAnswer(t *testing.T) {
	const answer = "该方法提供了更高的吞吐量。其代价是更高的延迟。"
	model := &fakeModel{pairsRaw: `{"qa_pairs":[{"question":"优点是什么?","answer":"` + answer + `"}]}`}
	g := NewGenerator(model, GeneratorConfig{}, discardLogger())

	pairs, err := g.Generate(context.Background(), testRequest(models.ModeNormal, 1), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, answer, pairs[0].Answer)
}

func TestGeneratePro_CleanAnswers(t *testing.T) {
	model := &fakeModel{
		questionsRaw: questionsJSON(2),
		answer:       func(i int) (string, error) { return fmt.Sprintf("Sure. Answer %d.", i), nil },
	}

	g := NewGenerator(model, GeneratorConfig{AnswerWorkers: 2, CleanAnswers: true}, discardLogger())
	pairs, err := g.Generate(context.Background(), testRequest(models.ModePro, 2), nil)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Answer 0.", pairs[0].Answer)

	g = NewGenerator(model, GeneratorConfig{AnswerWorkers: 2}, discardLogger())
	pairs, err = g.Generate(context.Background(), testRequest(models.ModePro, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, "Sure. Answer 0.", pairs[0].Answer)
}

func TestGenerateNormal_Refusal(t *testing.T) {
	model := &fakeModel{pairsRaw: "As an AI language model, I cannot help with that."}
	g := NewGenerator(model, GeneratorConfig{}, discardLogger())

	_, err := g.Generate(context.Background(), testRequest(models.ModeNormal, 3), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefusal)
	assert.False(t, retry.IsRetryable(err))
}

func TestGenerate_InvalidInput(t *testing.T) {
	g := NewGenerator(&fakeModel{}, GeneratorConfig{}, discardLogger())

	tests := []struct {
		name string
		mut  func(*models.GenerationRequest)
	}{
		{"empty text", func(r *models.GenerationRequest) { r.Source.Text = "   " }},
		{"zero pairs", func(r *models.GenerationRequest) { r.PairCount = 0 }},
		{"unknown mode", func(r *models.GenerationRequest) { r.Mode = "fast" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(models.ModeNormal, 2)
			tt.mut(&req)
			_, err := g.Generate(context.Background(), req, nil)
			require.Error(t, err)
			assert.Equal(t, retry.KindInvalidInput, retry.KindOf(err))
		})
	}
}
