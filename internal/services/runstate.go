package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/models"
	"github.com/google/uuid"
)

// RunState is the only state shared between file workers of one run.
// Counters are atomic; the failure and artifact lists sit behind mu, which
// is never held across a blocking call.
type RunState struct {
	RunID     string
	StartedAt time.Time

	seq        atomic.Int64
	submitted  atomic.Int64
	succeeded  atomic.Int64
	failed     atomic.Int64
	totalPairs atomic.Int64

	mu        sync.Mutex
	failures  []models.FailureRecord
	artifacts []string
}

func NewRunState(now time.Time) *RunState {
	return &RunState{RunID: uuid.NewString(), StartedAt: now}
}

// NextSequence returns a run-wide, strictly increasing number starting at 1.
func (s *RunState) NextSequence() int64 {
	return s.seq.Add(1)
}

func (s *RunState) AddSubmitted(n int) {
	s.submitted.Add(int64(n))
}

func (s *RunState) RecordSuccess(location string, pairs int) {
	s.succeeded.Add(1)
	s.totalPairs.Add(int64(pairs))
	s.mu.Lock()
	s.artifacts = append(s.artifacts, location)
	s.mu.Unlock()
}

func (s *RunState) RecordFailure(rec models.FailureRecord) {
	s.failed.Add(1)
	s.mu.Lock()
	s.failures = append(s.failures, rec)
	s.mu.Unlock()
}

// Failures returns a copy of the failure list in append order.
func (s *RunState) Failures() []models.FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FailureRecord, len(s.failures))
	copy(out, s.failures)
	return out
}

// Summary snapshots the counters and lists.
func (s *RunState) Summary() models.RunSummary {
	s.mu.Lock()
	artifacts := make([]string, len(s.artifacts))
	copy(artifacts, s.artifacts)
	failures := make([]models.FailureRecord, len(s.failures))
	copy(failures, s.failures)
	s.mu.Unlock()

	return models.RunSummary{
		RunID:      s.RunID,
		Submitted:  int(s.submitted.Load()),
		Succeeded:  int(s.succeeded.Load()),
		Failed:     int(s.failed.Load()),
		TotalPairs: int(s.totalPairs.Load()),
		Artifacts:  artifacts,
		Failures:   failures,
	}
}
