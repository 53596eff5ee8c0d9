package worklist

import (
	"context"
	"database/sql"
)

// PostgresStore implements Store using PostgreSQL. Reviewer partitions are
// row-scoped, so concurrent reviewers never contend on each other's state.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed worklist store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

// Migrate creates the worklist tables
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS worklist_pending (
			reviewer        VARCHAR(255) NOT NULL,
			transaction_id  VARCHAR(64) NOT NULL,
			added_at        TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (reviewer, transaction_id)
		);

		CREATE TABLE IF NOT EXISTS worklist_history (
			id              BIGSERIAL PRIMARY KEY,
			reviewer        VARCHAR(255) NOT NULL,
			transaction_id  VARCHAR(64) NOT NULL,
			decision        BOOLEAN NOT NULL,
			resolved_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_worklist_history_reviewer ON worklist_history(reviewer, id);
	`)
	return err
}

// Add queues a transaction; ON CONFLICT keeps it idempotent.
func (p *PostgresStore) Add(ctx context.Context, reviewer, txID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO worklist_pending (reviewer, transaction_id)
		VALUES ($1, $2)
		ON CONFLICT (reviewer, transaction_id) DO NOTHING
	`, reviewer, txID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remove deletes a pending entry.
func (p *PostgresStore) Remove(ctx context.Context, reviewer, txID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM worklist_pending WHERE reviewer = $1 AND transaction_id = $2
	`, reviewer, txID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Pending returns queued IDs in insertion order.
func (p *PostgresStore) Pending(ctx context.Context, reviewer string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT transaction_id FROM worklist_pending
		WHERE reviewer = $1
		ORDER BY added_at, transaction_id
	`, reviewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppendDecision appends to the reviewer's history.
func (p *PostgresStore) AppendDecision(ctx context.Context, reviewer string, d Decision) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO worklist_history (reviewer, transaction_id, decision, resolved_at)
		VALUES ($1, $2, $3, $4)
	`, reviewer, d.TransactionID, d.Fraud, d.ResolvedAt)
	return err
}

// History returns decisions in append order.
func (p *PostgresStore) History(ctx context.Context, reviewer string) ([]Decision, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT transaction_id, decision, resolved_at
		FROM worklist_history
		WHERE reviewer = $1
		ORDER BY id
	`, reviewer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.TransactionID, &d.Fraud, &d.ResolvedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
