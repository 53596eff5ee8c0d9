// Package worklist maintains each reviewer's queue of transactions awaiting
// a manual fraud decision, plus the append-only log of past decisions.
package worklist

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when resolving a transaction that isn't on
	// the reviewer's worklist. The upstream app ignored this case silently;
	// we surface it so the UI can tell the reviewer the entry is gone.
	ErrNotFound = errors.New("transaction not on worklist")
	// ErrUnknownTransaction is returned when queueing an identifier that
	// doesn't resolve in the scored dataset.
	ErrUnknownTransaction = errors.New("unknown transaction")
)

// Decision is one resolved worklist entry. History is append-only: entries
// are never rewritten or removed.
type Decision struct {
	TransactionID string    `json:"transactionId"`
	Fraud         bool      `json:"fraud"`
	ResolvedAt    time.Time `json:"resolvedAt"`
}

// Store persists per-reviewer worklist state. Each reviewer is one logical
// partition; implementations must serialize writes within a partition.
type Store interface {
	// Add queues a transaction. Adding an already-queued transaction is a
	// no-op; ok reports whether the entry was newly inserted.
	Add(ctx context.Context, reviewer, txID string) (ok bool, err error)
	// Remove deletes a pending entry; ok is false when it wasn't present.
	Remove(ctx context.Context, reviewer, txID string) (ok bool, err error)
	// Pending returns queued transaction IDs in insertion order.
	Pending(ctx context.Context, reviewer string) ([]string, error)
	// AppendDecision appends to the reviewer's decision history.
	AppendDecision(ctx context.Context, reviewer string, d Decision) error
	// History returns past decisions in append order.
	History(ctx context.Context, reviewer string) ([]Decision, error)
}
