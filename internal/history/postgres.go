package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createHistoryTable = `
CREATE TABLE IF NOT EXISTS tablewright_history (
	id             UUID PRIMARY KEY,
	connection_id  TEXT NOT NULL,
	schema_name    TEXT NOT NULL,
	sql            TEXT NOT NULL,
	status         TEXT NOT NULL,
	confirmed      BOOLEAN NOT NULL DEFAULT FALSE,
	dangerous_type TEXT NOT NULL DEFAULT '',
	error          TEXT NOT NULL DEFAULT '',
	executed_at    TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS tablewright_history_conn_idx
	ON tablewright_history (connection_id, executed_at DESC)`

// PostgresStore keeps history in a PostgreSQL table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and creates the history table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("history.dsn is required for the postgres backend")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}
	if _, err := pool.Exec(ctx, createHistoryTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	e = prepare(e)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tablewright_history
			(id, connection_id, schema_name, sql, status, confirmed, dangerous_type, error, executed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.ConnectionID, e.Schema, e.SQL, e.Status, e.Confirmed, e.DangerousType, e.Error, e.ExecutedAt, e.DurationMs)
	if err != nil {
		return fmt.Errorf("recording history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, connectionID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, connection_id, schema_name, sql, status, confirmed, dangerous_type, error, executed_at, duration_ms
		FROM tablewright_history
		WHERE ($1 = '' OR connection_id = $1)
		ORDER BY executed_at DESC`
	args := []any{connectionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.ConnectionID, &e.Schema, &e.SQL, &e.Status, &e.Confirmed,
			&e.DangerousType, &e.Error, &e.ExecutedAt, &e.DurationMs)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}
