// Package newsfeed implements in-app sharing between reviewers: one
// reviewer shares a transaction, the receiver sees it in their feed and
// either accepts it onto their worklist or dismisses it.
//
// Entry lifecycle: Unseen -> Seen -> {Accepted, Dismissed}. Unseen entries
// flip to seen in bulk when the receiver opens their feed. Accepted and
// dismissed entries are deleted, not archived.
package newsfeed

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotificationNotFound is returned for unknown notification IDs.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrDanglingReference is returned when a share or accept references a
	// transaction that doesn't resolve in the scored dataset.
	ErrDanglingReference = errors.New("notification references unknown transaction")
	// ErrSelfShare is returned when a reviewer shares with themselves.
	ErrSelfShare = errors.New("cannot share a transaction with yourself")
)

// TypeTransaction is the only notification type tag today. The column
// exists so the feed can carry other message kinds later.
const TypeTransaction = "transaction"

// Notification is one entry in a reviewer's feed.
type Notification struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Message       string    `json:"message"`
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	Unseen        bool      `json:"unseen"`
}

// Store persists notification feeds, one partition per receiver.
// Implementations must serialize writes within a partition: the sender's
// append and the receiver's bulk mark-seen must not interleave destructively.
type Store interface {
	Append(ctx context.Context, n *Notification) error
	// Feed returns the receiver's entries, newest first.
	Feed(ctx context.Context, receiver string) ([]*Notification, error)
	Get(ctx context.Context, receiver, id string) (*Notification, error)
	// MarkAllSeen flips every unseen entry for the receiver, returning how
	// many were flipped.
	MarkAllSeen(ctx context.Context, receiver string) (int, error)
	// Delete removes an entry; ok is false when it wasn't present.
	Delete(ctx context.Context, receiver, id string) (ok bool, err error)
	UnseenCount(ctx context.Context, receiver string) (int, error)
}
