package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/Lllllllleong/pdfqaflow/internal/extract"
	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/Lllllllleong/pdfqaflow/internal/retry"
	"golang.org/x/sync/errgroup"
)

// Ledger receives per-document status changes. Its failures are logged and
// never affect a document's outcome.
type Ledger interface {
	Start(ctx context.Context, runID, source string) error
	SetStatus(ctx context.Context, runID, source, status, errDetails string) error
	Complete(ctx context.Context, runID, source, artifact string, meta models.ExtractionMetadata) error
}

// RunNotifier is told about a finished run.
type RunNotifier interface {
	RunCompleted(ctx context.Context, payload models.RunCompletedPayload) (string, error)
}

// RunConfig is the run-level configuration consumed by the orchestrator.
type RunConfig struct {
	Mode          models.Mode
	NumQA         int
	MaxWorkers    int
	AnswerWorkers int
	Retry         retry.Policy
	Model         string
}

// Validate reports configuration that must abort a run before any dispatch.
func (c RunConfig) Validate() error {
	var errs []error
	if !c.Mode.Valid() {
		errs = append(errs, fmt.Errorf("mode must be %q or %q, got %q", models.ModeNormal, models.ModePro, c.Mode))
	}
	if c.NumQA < 1 {
		errs = append(errs, fmt.Errorf("num_qa must be positive, got %d", c.NumQA))
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers))
	}
	if c.Mode == models.ModePro && c.AnswerWorkers < 1 {
		errs = append(errs, fmt.Errorf("answer_workers must be positive, got %d", c.AnswerWorkers))
	}
	if err := c.Retry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Orchestrator runs every input file through extraction, generation and
// persistence on a bounded worker pool.
type Orchestrator struct {
	extractor extract.Extractor
	generator *Generator
	sink      Sink
	cfg       RunConfig
	logger    *slog.Logger
	ledger    Ledger
	notifier  RunNotifier
	now       func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

func WithLedger(l Ledger) Option { return func(o *Orchestrator) { o.ledger = l } }

func WithNotifier(n RunNotifier) Option { return func(o *Orchestrator) { o.notifier = n } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func NewOrchestrator(extractor extract.Extractor, generator *Generator, sink Sink, cfg RunConfig, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		extractor: extractor,
		generator: generator,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes files and returns once each has exactly one terminal
// outcome. Only invalid configuration makes Run itself fail.
func (o *Orchestrator) Run(ctx context.Context, files []string) (*models.RunSummary, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	state := NewRunState(o.now())
	writer := NewWriter(o.sink, state, o.now)
	logCtx := o.logger.With("runId", state.RunID, "mode", string(o.cfg.Mode))
	logCtx.Info("Starting run.", "fileCount", len(files), "maxWorkers", o.cfg.MaxWorkers, "numQa", o.cfg.NumQA)

	state.AddSubmitted(len(files))
	var eg errgroup.Group
	eg.SetLimit(o.cfg.MaxWorkers)
	for _, file := range files {
		eg.Go(func() error {
			o.processFile(ctx, logCtx, state, writer, file)
			return nil
		})
	}
	_ = eg.Wait()

	summary := state.Summary()
	summary.Duration = o.now().Sub(state.StartedAt)

	// The report is flushed even if the run context is already done.
	reportCtx := context.WithoutCancel(ctx)
	reportPath, err := WriteFailureReport(reportCtx, o.sink, summary.Failures)
	if err != nil {
		logCtx.Error("Failed to write failure report.", "error", err)
	}
	summary.ReportPath = reportPath

	if summary.Failed > 0 {
		logCtx.Warn("Some files failed.", "failedFiles", FailedSourceNames(summary.Failures), "report", reportPath)
	}
	logCtx.Info("Run complete.",
		"submitted", summary.Submitted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"totalPairs", summary.TotalPairs,
		"duration", summary.Duration.String(),
	)

	if o.notifier != nil {
		o.notify(reportCtx, logCtx, summary)
	}
	return &summary, nil
}

func (o *Orchestrator) processFile(ctx context.Context, logCtx *slog.Logger, state *RunState, writer *Writer, file string) {
	name := filepath.Base(file)
	logCtx = logCtx.With("source", name)
	stage := models.StageExtract
	recorded := false
	failWith := func(err error) {
		recorded = true
		o.fail(ctx, logCtx, state, name, stage, err)
	}

	defer func() {
		if r := recover(); r != nil {
			if recorded {
				logCtx.Error("Panic after the file was recorded.", "panic", r)
				return
			}
			failWith(fmt.Errorf("panic while processing: %v", r))
		}
	}()

	o.ledgerCall(logCtx, "start", func() error { return o.ledger.Start(ctx, state.RunID, name) })
	o.setStatus(ctx, logCtx, state.RunID, name, models.StatusExtracting, "")
	logCtx.Info("Extracting text.")

	src, err := o.extractor.Extract(ctx, file)
	if err != nil {
		failWith(fmt.Errorf("%w: %w", ErrExtraction, err))
		return
	}

	stage = models.StageGenerate
	o.setStatus(ctx, logCtx, state.RunID, name, models.StatusGenerating, "")
	req := models.GenerationRequest{
		Source:    src,
		Mode:      o.cfg.Mode,
		PairCount: o.cfg.NumQA,
		Model:     o.cfg.Model,
		Retry:     o.cfg.Retry,
	}
	pairs, err := o.generator.Generate(ctx, req, func(status string) {
		o.setStatus(ctx, logCtx, state.RunID, name, status, "")
	})
	if err != nil {
		failWith(err)
		return
	}

	stage = models.StageWrite
	o.setStatus(ctx, logCtx, state.RunID, name, models.StatusWriting, "")
	location, err := writer.Persist(ctx, models.GenerationResult{
		Source:      name,
		Metadata:    src.Metadata,
		Pairs:       pairs,
		GeneratedAt: o.now(),
		Mode:        o.cfg.Mode,
		Model:       o.cfg.Model,
		RunID:       state.RunID,
	})
	if err != nil {
		failWith(err)
		return
	}

	recorded = true
	state.RecordSuccess(location, len(pairs))
	o.ledgerCall(logCtx, "complete", func() error {
		return o.ledger.Complete(ctx, state.RunID, name, location, src.Metadata)
	})
	logDocumentStats(logCtx, pairs, location)
}

func (o *Orchestrator) fail(ctx context.Context, logCtx *slog.Logger, state *RunState, name string, stage models.Stage, err error) {
	rec := models.FailureRecord{
		Source:    name,
		Stage:     stage,
		Reason:    err.Error(),
		Retryable: retry.IsRetryable(err),
		At:        o.now(),
	}
	state.RecordFailure(rec)
	logCtx.Error("File failed.", "stage", string(stage), "retryable", rec.Retryable, "error", err)
	o.setStatus(ctx, logCtx, state.RunID, name, models.StatusFailed, rec.Reason)
}

func (o *Orchestrator) setStatus(ctx context.Context, logCtx *slog.Logger, runID, name, status, details string) {
	o.ledgerCall(logCtx, "status "+status, func() error {
		return o.ledger.SetStatus(ctx, runID, name, status, details)
	})
}

func (o *Orchestrator) ledgerCall(logCtx *slog.Logger, what string, fn func() error) {
	if o.ledger == nil {
		return
	}
	if err := fn(); err != nil {
		logCtx.Warn("Ledger update failed.", "update", what, "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, logCtx *slog.Logger, summary models.RunSummary) {
	artifacts := summary.Artifacts
	if artifacts == nil {
		artifacts = []string{}
	}
	payload := models.RunCompletedPayload{
		RunID:       summary.RunID,
		Mode:        o.cfg.Mode,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Artifacts:   artifacts,
		FailedFiles: FailedSourceNames(summary.Failures),
	}
	execution, err := o.notifier.RunCompleted(ctx, payload)
	if err != nil {
		logCtx.Error("Failed to hand off run to workflow.", "error", err)
		return
	}
	logCtx.Info("Hand-off to workflow complete.", "execution", execution)
}

// logDocumentStats logs pair count and answer lengths in characters.
func logDocumentStats(logCtx *slog.Logger, pairs []models.QAPair, location string) {
	if len(pairs) == 0 {
		return
	}
	total, minLen, maxLen := 0, -1, 0
	for _, p := range pairs {
		n := utf8.RuneCountInString(p.Answer)
		total += n
		if minLen == -1 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	logCtx.Info("Document complete.",
		"artifact", location,
		"pairCount", len(pairs),
		"meanAnswerChars", total/len(pairs),
		"minAnswerChars", minLen,
		"maxAnswerChars", maxLen,
	)
}
