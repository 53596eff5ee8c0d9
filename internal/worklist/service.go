package worklist

import (
	"context"
	"fmt"
	"time"

	"github.com/fraudlens/fraudlens/internal/dataset"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
)

// Service wraps a Store with dataset validation and instrumentation.
type Service struct {
	store Store
	snap  *dataset.Snapshot
}

// NewService creates a worklist service backed by the given store. The
// snapshot is consulted so dangling identifiers never enter a worklist.
func NewService(store Store, snap *dataset.Snapshot) *Service {
	return &Service{store: store, snap: snap}
}

// Add queues a transaction for review. Idempotent: re-adding is a no-op.
func (s *Service) Add(ctx context.Context, reviewer, txID string) error {
	if !s.snap.Has(txID) {
		return fmt.Errorf("%w: %q", ErrUnknownTransaction, txID)
	}
	inserted, err := s.store.Add(ctx, reviewer, txID)
	if err != nil {
		return fmt.Errorf("add to worklist: %w", err)
	}
	if inserted {
		metrics.WorklistOperationsTotal.WithLabelValues("add").Inc()
		logging.L(ctx).Info("transaction queued for review",
			"reviewer", reviewer, "transaction_id", txID)
	}
	return nil
}

// Resolve removes a pending entry and appends the decision to history.
// Returns ErrNotFound when the transaction isn't queued.
//
// The two writes are independent keys in the backing store. Removal happens
// first so the "at most one of {worklist, history}" invariant holds across
// a crash between them; a decision lost that way is treated as
// already-resolved rather than re-queued on a later read.
func (s *Service) Resolve(ctx context.Context, reviewer, txID string, fraud bool) (Decision, error) {
	removed, err := s.store.Remove(ctx, reviewer, txID)
	if err != nil {
		return Decision{}, fmt.Errorf("remove from worklist: %w", err)
	}
	if !removed {
		return Decision{}, fmt.Errorf("%w: %q", ErrNotFound, txID)
	}

	d := Decision{TransactionID: txID, Fraud: fraud, ResolvedAt: time.Now().UTC()}
	if err := s.store.AppendDecision(ctx, reviewer, d); err != nil {
		return Decision{}, fmt.Errorf("append decision: %w", err)
	}

	metrics.WorklistOperationsTotal.WithLabelValues("resolve").Inc()
	logging.L(ctx).Info("transaction resolved",
		"reviewer", reviewer, "transaction_id", txID, "fraud", fraud)
	return d, nil
}

// Pending returns the reviewer's queued transaction IDs in insertion order.
func (s *Service) Pending(ctx context.Context, reviewer string) ([]string, error) {
	return s.store.Pending(ctx, reviewer)
}

// PendingTransactions resolves the pending queue against the snapshot.
// Entries whose identifier no longer resolves are skipped.
func (s *Service) PendingTransactions(ctx context.Context, reviewer string) ([]dataset.Transaction, error) {
	ids, err := s.store.Pending(ctx, reviewer)
	if err != nil {
		return nil, err
	}
	out := make([]dataset.Transaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := s.snap.ByID(id); ok {
			out = append(out, tx)
		}
	}
	return out, nil
}

// History returns the reviewer's decisions in append order.
func (s *Service) History(ctx context.Context, reviewer string) ([]Decision, error) {
	return s.store.History(ctx, reviewer)
}
