package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"golang.org/x/sync/errgroup"
)

// ModelClient is the language-model collaborator used by the pipeline.
type ModelClient interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// StageFunc is told when a document enters a new pipeline status.
type StageFunc func(status string)

// GeneratorConfig holds the settings shared by every document of a run.
type GeneratorConfig struct {
	AnswerWorkers int
	// CleanAnswers strips lead-ins from pro-mode answers. Normal mode is
	// never cleaned.
	CleanAnswers bool
}

// Generator turns one document's text into question-answer pairs.
type Generator struct {
	client ModelClient
	cfg    GeneratorConfig
	logger *slog.Logger
}

func NewGenerator(client ModelClient, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if cfg.AnswerWorkers < 1 {
		cfg.AnswerWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// Generate runs the pipeline for req's mode. stage may be nil.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest, stage StageFunc) ([]models.QAPair, error) {
	if stage == nil {
		stage = func(string) {}
	}
	if strings.TrimSpace(req.Source.Text) == "" {
		return nil, retry.InvalidInput(errors.New("empty source text"))
	}
	if req.PairCount < 1 {
		return nil, retry.InvalidInput(fmt.Errorf("requested pair count must be positive, got %d", req.PairCount))
	}

	logCtx := g.logger.With("source", req.Source.Name, "mode", string(req.Mode))

	var (
		pairs []models.QAPair
		err   error
	)
	switch req.Mode {
	case models.ModeNormal:
		pairs, err = g.generateNormal(ctx, logCtx, req)
	case models.ModePro:
		pairs, err = g.generatePro(ctx, logCtx, req, stage)
	default:
		return nil, retry.InvalidInput(fmt.Errorf("unknown mode %q", req.Mode))
	}
	if err != nil {
		return nil, err
	}
	// Long pro-mode answers are the only ones with lead-ins worth stripping.
	if g.cfg.CleanAnswers && req.Mode == models.ModePro {
		pairs = CleanPairs(pairs)
	}
	return pairs, nil
}

// complete runs one model call under the request's retry policy.
func (g *Generator) complete(ctx context.Context, logCtx *slog.Logger, req models.GenerationRequest, op, prompt string, format models.CompletionFormat, check func(string) error) (string, error) {
	return retry.Do(ctx, req.Retry, logCtx, op, func(ctx context.Context) (string, error) {
		text, err := g.client.Complete(ctx, models.CompletionRequest{
			Prompt: prompt,
			Model:  req.Model,
			Format: format,
		})
		if err != nil {
			return "", err
		}
		if check != nil {
			if err := check(text); err != nil {
				return "", err
			}
		}
		return text, nil
	})
}

func (g *Generator) generateNormal(ctx context.Context, logCtx *slog.Logger, req models.GenerationRequest) ([]models.QAPair, error) {
	logCtx.Info("Requesting question-answer pairs.", "pairCount", req.PairCount)
	raw, err := g.complete(ctx, logCtx, req, "qa_pairs", normalPrompt(req.Source.Text, req.PairCount), models.FormatJSON, nil)
	if err != nil {
		return nil, err
	}

	pairs, err := ParsePairs(raw)
	if err != nil {
		if refusal := checkRefusal(raw); refusal != nil {
			return nil, refusal
		}
		logCtx.Error("Failed to parse model response.", "error", err, "responsePrefix", firstRunes(raw, 200))
		return nil, err
	}
	if len(pairs) != req.PairCount {
		logCtx.Info("Model returned a different number of pairs than requested.", "requested", req.PairCount, "received", len(pairs))
	}
	return pairs, nil
}

func (g *Generator) generatePro(ctx context.Context, logCtx *slog.Logger, req models.GenerationRequest, stage StageFunc) ([]models.QAPair, error) {
	stage(models.StatusQuestions)
	logCtx.Info("Starting question stage.", "questionCount", req.PairCount)
	raw, err := g.complete(ctx, logCtx, req, "questions", questionPrompt(req.Source.Text, req.PairCount), models.FormatJSON, nil)
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(raw)
	if err != nil {
		logCtx.Error("Failed to parse question list.", "error", err, "responsePrefix", firstRunes(raw, 200))
		return nil, err
	}

	stage(models.StatusAnswers)
	logCtx.Info("Starting answer stage.", "questionCount", len(questions), "answerWorkers", g.cfg.AnswerWorkers)

	// One slot per question; a nil slot is a dropped question.
	slots := make([]*string, len(questions))
	errs := make([]error, len(questions))

	var eg errgroup.Group
	eg.SetLimit(g.cfg.AnswerWorkers)
	for _, q := range questions {
		eg.Go(func() error {
			answer, err := g.complete(ctx, logCtx, req, fmt.Sprintf("answer[%d]", q.Index), answerPrompt(q.Text, req.Source.Text), models.FormatText, checkRefusal)
			if err != nil {
				errs[q.Index] = err
				logCtx.Warn("Answer call failed, dropping question.", "questionIndex", q.Index, "error", err)
				return nil
			}
			slots[q.Index] = &answer
			return nil
		})
	}
	_ = eg.Wait()

	pairs := make([]models.QAPair, 0, len(questions))
	for i, slot := range slots {
		if slot == nil {
			continue
		}
		pairs = append(pairs, models.QAPair{Question: questions[i].Text, Answer: *slot, Type: questions[i].Type})
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w (%d questions): %w", ErrAllAnswersFailed, len(questions), firstError(errs))
	}
	if dropped := len(questions) - len(pairs); dropped > 0 {
		logCtx.Warn("Some answers were dropped.", "dropped", dropped, "kept", len(pairs))
	}
	return pairs, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return errors.New("no answer produced")
}
