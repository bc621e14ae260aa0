package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrewbouras/insiders/service/cache"
)

// TableName is the table cache entries are exported to.
const TableName = "transaction_mints"

const schema = `
CREATE TABLE IF NOT EXISTS transaction_mints (
    signature   TEXT PRIMARY KEY,
    block_time  BIGINT,
    mints       TEXT[] NOT NULL DEFAULT '{}',
    exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transaction_mints_mints ON transaction_mints USING GIN (mints);
CREATE INDEX IF NOT EXISTS idx_transaction_mints_block_time ON transaction_mints (block_time DESC);
`

const insertEntry = `
INSERT INTO transaction_mints (signature, block_time, mints)
VALUES ($1, $2, $3)
ON CONFLICT (signature) DO NOTHING`

// ErrNotFound is returned when a signature has not been exported.
var ErrNotFound = errors.New("transaction not found")

// Store exports cache entries to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the export table and its indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// UpsertResult counts the rows of one export.
type UpsertResult struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"` // already exported
}

// UpsertEntries inserts every cache entry not yet present. Existing rows are
// left untouched, mirroring the first-write-wins rule of the cache.
func (s *Store) UpsertEntries(ctx context.Context, file *cache.File) (*UpsertResult, error) {
	result := &UpsertResult{}
	if file == nil || file.Len() == 0 {
		return result, nil
	}

	signatures := file.Signatures()
	batch := &pgx.Batch{}
	for _, sig := range signatures {
		entry := file.Transactions[sig]
		mints := entry.Mints
		if mints == nil {
			mints = []string{}
		}
		batch.Queue(insertEntry, sig, entry.BlockTime, mints)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, sig := range signatures {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", sig, err)
		}
		if tag.RowsAffected() == 1 {
			result.Written++
		} else {
			result.Skipped++
		}
	}

	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}
	return result, nil
}

// GetEntry returns the exported entry for signature.
func (s *Store) GetEntry(ctx context.Context, signature string) (*cache.Entry, error) {
	var entry cache.Entry
	err := s.pool.QueryRow(ctx,
		`SELECT block_time, mints FROM transaction_mints WHERE signature = $1`,
		signature,
	).Scan(&entry.BlockTime, &entry.Mints)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", signature, err)
	}
	return &entry, nil
}

// ListSignaturesByMint returns the signatures referencing mint, newest first.
func (s *Store) ListSignaturesByMint(ctx context.Context, mint string, limit int32) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT signature FROM transaction_mints
		 WHERE mints @> ARRAY[$1]::text[]
		 ORDER BY block_time DESC NULLS LAST, signature
		 LIMIT $2`,
		mint, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures for mint %s: %w", mint, err)
	}

	signatures, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan signatures for mint %s: %w", mint, err)
	}
	return signatures, nil
}

// Count returns the number of exported rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM transaction_mints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}
