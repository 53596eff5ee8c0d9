// Package review exposes the dashboard's read surface: the scored
// transaction table, the movable decision threshold with its confusion
// matrix, the quadrant views, and per-transaction explanations.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/fraudlens/fraudlens/internal/dataset"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/threshold"
)

// Session holds the current threshold and its derived evaluation over the
// immutable snapshot. Moving the threshold swaps in a freshly computed
// Evaluation; readers never observe a half-updated matrix.
type Session struct {
	snap *dataset.Snapshot

	mu   sync.RWMutex
	eval *threshold.Evaluation
}

// NewSession evaluates the snapshot at the initial threshold.
func NewSession(snap *dataset.Snapshot, initial float64) (*Session, error) {
	eval, err := threshold.Apply(snap, initial)
	if err != nil {
		return nil, err
	}
	return &Session{snap: snap, eval: eval}, nil
}

// Snapshot returns the dataset backing the session.
func (s *Session) Snapshot() *dataset.Snapshot {
	return s.snap
}

// Threshold returns the current decision threshold.
func (s *Session) Threshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eval.Threshold
}

// Evaluation returns the current evaluation.
func (s *Session) Evaluation() *threshold.Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eval
}

// SetThreshold re-evaluates the snapshot at t and installs the result.
// On error (out of range, degenerate matrix) the previous evaluation stays.
func (s *Session) SetThreshold(ctx context.Context, t float64) (*threshold.Evaluation, error) {
	start := time.Now()
	eval, err := threshold.Apply(s.snap, t)
	if err != nil {
		return nil, err
	}
	metrics.ThresholdEvaluationsTotal.Inc()
	metrics.ThresholdEvaluationDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	s.eval = eval
	s.mu.Unlock()

	logging.L(ctx).Info("threshold updated",
		"threshold", t,
		"tpr", eval.Matrix.TruePositiveRate,
		"fpr", eval.Matrix.FalsePositiveRate)
	return eval, nil
}

// Decision reports whether the row at index i is flagged under the current
// threshold.
func (s *Session) Decision(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.eval.Decisions) {
		return false
	}
	return s.eval.Decisions[i]
}
