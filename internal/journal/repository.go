package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists lookup entries.
type Repository interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// PostgresRepository stores lookup entries in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the balance_lookups table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS balance_lookups (
        id UUID PRIMARY KEY,
        address TEXT NOT NULL,
        outcome TEXT NOT NULL,
        block_number BIGINT NOT NULL DEFAULT 0,
        duration_ms BIGINT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL
    )`)
	if err != nil {
		return fmt.Errorf("create balance_lookups: %w", err)
	}
	return nil
}

// Record inserts a lookup entry.
func (r *PostgresRepository) Record(ctx context.Context, entry Entry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO balance_lookups (id, address, outcome, block_number, duration_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		id, entry.Address, entry.Outcome, int64(entry.BlockNumber), entry.Duration.Milliseconds(), entry.CreatedAt.UTC())
	return err
}

// Recent returns the latest entries, newest first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, address, outcome, block_number, duration_ms, created_at
        FROM balance_lookups ORDER BY created_at DESC LIMIT $1`, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			id         uuid.UUID
			block      int64
			durationMS int64
			createdAt  time.Time
		)
		if err := rows.Scan(&id, &e.Address, &e.Outcome, &block, &durationMS, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.BlockNumber = uint64(block)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
