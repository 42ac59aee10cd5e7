// Package cursor tracks per-contract ingestion progress and failed blocks.
package cursor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bombverse/market-indexer/internal/logger"
)

// Store persists block cursors and failed-block bookkeeping in SQLite.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// NewStore creates a new SQLite-backed cursor store.
func NewStore(db *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log,
	}
}

// Next returns the next block to process for the contract. The second
// return value is false when no cursor exists yet.
func (s *Store) Next(ctx context.Context, contract string) (uint64, bool, error) {
	const query = `SELECT next_block FROM block_cursors WHERE contract = ?`

	var next uint64
	err := s.db.QueryRowContext(ctx, query, contract).Scan(&next)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query block cursor: %w", err)
	}

	return next, true, nil
}

// Advance moves the cursor forward to next. The cursor never regresses:
// an Advance with a lower block than the stored one is a no-op.
func (s *Store) Advance(ctx context.Context, contract string, next uint64) error {
	const query = `
		INSERT INTO block_cursors (contract, next_block) VALUES (?, ?)
		ON CONFLICT(contract) DO UPDATE SET next_block = excluded.next_block
		WHERE excluded.next_block > block_cursors.next_block
	`

	if _, err := s.db.ExecContext(ctx, query, contract, next); err != nil {
		return fmt.Errorf("failed to advance block cursor: %w", err)
	}

	return nil
}

// RecordFailure increments the failure count for the block, creating the
// entry when missing. It returns the updated count.
func (s *Store) RecordFailure(ctx context.Context, contract string, block uint64) (int, error) {
	const query = `
		INSERT INTO failed_blocks (contract, block_number, failure_count) VALUES (?, ?, 1)
		ON CONFLICT(contract, block_number) DO UPDATE SET failure_count = failure_count + 1
		RETURNING failure_count
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, contract, block).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to record block failure: %w", err)
	}

	return count, nil
}

// ClearFailure removes the failed-block entry after a successful retry.
func (s *Store) ClearFailure(ctx context.Context, contract string, block uint64) error {
	const query = `DELETE FROM failed_blocks WHERE contract = ? AND block_number = ?`

	if _, err := s.db.ExecContext(ctx, query, contract, block); err != nil {
		return fmt.Errorf("failed to clear block failure: %w", err)
	}

	return nil
}

// NextRetryable returns the smallest failed block still below the retry
// bound. Blocks at or above the bound stay recorded but are never
// returned again.
func (s *Store) NextRetryable(ctx context.Context, contract string, maxRetries int) (uint64, bool, error) {
	const query = `
		SELECT block_number FROM failed_blocks
		WHERE contract = ? AND failure_count < ?
		ORDER BY block_number ASC
		LIMIT 1
	`

	var block uint64
	err := s.db.QueryRowContext(ctx, query, contract, maxRetries).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query retryable blocks: %w", err)
	}

	return block, true, nil
}

// FailureCount returns the recorded failure count for a block, zero when
// the block has no entry.
func (s *Store) FailureCount(ctx context.Context, contract string, block uint64) (int, error) {
	const query = `SELECT failure_count FROM failed_blocks WHERE contract = ? AND block_number = ?`

	var count int
	err := s.db.QueryRowContext(ctx, query, contract, block).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query block failure count: %w", err)
	}

	return count, nil
}
