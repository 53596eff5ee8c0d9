package newsfeed

import (
	"context"
	"fmt"
	"time"

	"github.com/fraudlens/fraudlens/internal/dataset"
	"github.com/fraudlens/fraudlens/internal/idgen"
	"github.com/fraudlens/fraudlens/internal/logging"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/worklist"
)

// Broadcast is called after a successful share so connected receivers get
// a live push. Implementations must not block.
type Broadcast func(n Notification)

// Service implements the sharing state machine on top of a Store.
type Service struct {
	store     Store
	snap      *dataset.Snapshot
	worklist  *worklist.Service
	broadcast Broadcast
}

// Option configures the service
type Option func(*Service)

// WithBroadcast wires a live push for new shares.
func WithBroadcast(b Broadcast) Option {
	return func(s *Service) { s.broadcast = b }
}

// NewService creates a newsfeed service. Accepting a notification queues
// its transaction on the receiver's worklist, hence the dependency.
func NewService(store Store, snap *dataset.Snapshot, wl *worklist.Service, opts ...Option) *Service {
	s := &Service{store: store, snap: snap, worklist: wl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Share creates an unseen notification in the receiver's feed. Retry-safe:
// a duplicate share produces a duplicate entry, never corrupt state.
func (s *Service) Share(ctx context.Context, sender, receiver, txID, message string) (*Notification, error) {
	if sender == receiver {
		return nil, ErrSelfShare
	}
	if !s.snap.Has(txID) {
		return nil, fmt.Errorf("%w: %q", ErrDanglingReference, txID)
	}

	n := &Notification{
		ID:            idgen.WithPrefix("ntf_"),
		Sender:        sender,
		Receiver:      receiver,
		Message:       message,
		TransactionID: txID,
		Type:          TypeTransaction,
		CreatedAt:     time.Now().UTC(),
		Unseen:        true,
	}
	if err := s.store.Append(ctx, n); err != nil {
		return nil, fmt.Errorf("append notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("shared").Inc()
	logging.L(ctx).Info("transaction shared",
		"sender", sender, "receiver", receiver, "transaction_id", txID)

	if s.broadcast != nil {
		s.broadcast(*n)
	}
	return n, nil
}

// OpenFeed returns the receiver's feed newest-first and flips all their
// unseen entries in one bulk transition. The returned entries reflect the
// pre-open unseen flags so the UI can highlight what's new.
func (s *Service) OpenFeed(ctx context.Context, receiver string) ([]*Notification, error) {
	feed, err := s.store.Feed(ctx, receiver)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	flipped, err := s.store.MarkAllSeen(ctx, receiver)
	if err != nil {
		return nil, fmt.Errorf("mark seen: %w", err)
	}
	if flipped > 0 {
		metrics.NotificationsTotal.WithLabelValues("seen").Add(float64(flipped))
	}
	return feed, nil
}

// UnseenCount returns the receiver's unseen entry count without opening
// the feed (no state transition).
func (s *Service) UnseenCount(ctx context.Context, receiver string) (int, error) {
	return s.store.UnseenCount(ctx, receiver)
}

// Accept converts a notification into a worklist entry and deletes it.
// Fails with ErrDanglingReference when the referenced transaction no longer
// resolves; the entry is left in place for the reviewer to dismiss.
func (s *Service) Accept(ctx context.Context, receiver, id string) error {
	n, err := s.store.Get(ctx, receiver, id)
	if err != nil {
		return err
	}
	if !s.snap.Has(n.TransactionID) {
		return fmt.Errorf("%w: %q", ErrDanglingReference, n.TransactionID)
	}

	if err := s.worklist.Add(ctx, receiver, n.TransactionID); err != nil {
		return fmt.Errorf("queue shared transaction: %w", err)
	}
	if _, err := s.store.Delete(ctx, receiver, id); err != nil {
		// Worklist add is idempotent, so a retry after this failure is safe.
		return fmt.Errorf("delete accepted notification: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("accepted").Inc()
	logging.L(ctx).Info("notification accepted",
		"receiver", receiver, "notification_id", id, "transaction_id", n.TransactionID)
	return nil
}

// Dismiss deletes a notification without touching the worklist.
func (s *Service) Dismiss(ctx context.Context, receiver, id string) error {
	deleted, err := s.store.Delete(ctx, receiver, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: %q", ErrNotificationNotFound, id)
	}
	metrics.NotificationsTotal.WithLabelValues("dismissed").Inc()
	return nil
}
