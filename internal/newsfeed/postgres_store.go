package newsfeed

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore implements Store using PostgreSQL. Feed partitions are
// keyed by receiver; every statement is scoped to one receiver so two
// reviewers' writes never contend.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed newsfeed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the newsfeed table
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS newsfeed (
			id              VARCHAR(36) PRIMARY KEY,
			sender          VARCHAR(255) NOT NULL,
			receiver        VARCHAR(255) NOT NULL,
			message         TEXT NOT NULL DEFAULT '',
			transaction_id  VARCHAR(64) NOT NULL,
			type            VARCHAR(30) NOT NULL DEFAULT 'transaction',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			unseen          BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE INDEX IF NOT EXISTS idx_newsfeed_receiver ON newsfeed(receiver, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_newsfeed_unseen ON newsfeed(receiver) WHERE unseen;
	`)
	return err
}

// Append adds an entry to the receiver's feed.
func (p *PostgresStore) Append(ctx context.Context, n *Notification) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO newsfeed (id, sender, receiver, message, transaction_id, type, created_at, unseen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.Sender, n.Receiver, n.Message, n.TransactionID, n.Type, n.CreatedAt, n.Unseen)
	return err
}

// Feed returns the receiver's entries, newest first.
func (p *PostgresStore) Feed(ctx context.Context, receiver string) ([]*Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, sender, receiver, message, transaction_id, type, created_at, unseen
		FROM newsfeed
		WHERE receiver = $1
		ORDER BY created_at DESC, id
	`, receiver)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feed []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.Sender, &n.Receiver, &n.Message,
			&n.TransactionID, &n.Type, &n.CreatedAt, &n.Unseen); err != nil {
			return nil, err
		}
		feed = append(feed, n)
	}
	return feed, rows.Err()
}

// Get retrieves one entry by ID.
func (p *PostgresStore) Get(ctx context.Context, receiver, id string) (*Notification, error) {
	n := &Notification{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, sender, receiver, message, transaction_id, type, created_at, unseen
		FROM newsfeed
		WHERE receiver = $1 AND id = $2
	`, receiver, id).Scan(&n.ID, &n.Sender, &n.Receiver, &n.Message,
		&n.TransactionID, &n.Type, &n.CreatedAt, &n.Unseen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkAllSeen flips every unseen entry for the receiver.
func (p *PostgresStore) MarkAllSeen(ctx context.Context, receiver string) (int, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE newsfeed SET unseen = FALSE WHERE receiver = $1 AND unseen
	`, receiver)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Delete removes an entry from the receiver's feed.
func (p *PostgresStore) Delete(ctx context.Context, receiver, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM newsfeed WHERE receiver = $1 AND id = $2
	`, receiver, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UnseenCount counts the receiver's unseen entries.
func (p *PostgresStore) UnseenCount(ctx context.Context, receiver string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM newsfeed WHERE receiver = $1 AND unseen
	`, receiver).Scan(&count)
	return count, err
}
