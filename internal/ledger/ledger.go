// Package ledger owns the reconciliation rules for one asset class's
// marketplace orders.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/russross/meddler"
	"golang.org/x/sync/errgroup"

	"github.com/bombverse/market-indexer/internal/filter"
	"github.com/bombverse/market-indexer/internal/logger"
)

// ErrNoParty marks an upsert request carrying neither a seller nor a buyer.
var ErrNoParty = errors.New("order requires at least one of seller or buyer")

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// UpsertRequest describes one order write derived from a chain event.
type UpsertRequest struct {
	TxHash         string
	BlockNumber    uint64
	BlockTimestamp int64
	LogIndex       uint
	Status         string
	Seller         string
	Buyer          string
	Amount         *big.Int
	TokenID        *big.Int
	PayToken       string
	Detail         *big.Int
}

// Ledger reconciles marketplace events into one asset class's orders table.
type Ledger struct {
	db    *sql.DB
	class *Class
	log   *logger.Logger

	now func() time.Time
}

// New creates a ledger for the given asset class.
func New(db *sql.DB, class *Class, log *logger.Logger) *Ledger {
	return &Ledger{
		db:    db,
		class: class,
		log:   log,
		now:   time.Now,
	}
}

// Class returns the asset class descriptor this ledger serves.
func (l *Ledger) Class() *Class {
	return l.class
}

// Upsert inserts an order row, or touches its updated_at when the tx hash
// was already ingested, and reconciles the token's other rows by status:
// a listing prunes the token's superseded listings, a sale soft-deletes
// the token's listings at or before the sale's block. All writes and the
// final row re-fetch happen in one transaction, so the single-live-listing
// invariant holds at every commit point and callers observe a consistent
// snapshot either way.
func (l *Ledger) Upsert(ctx context.Context, req *UpsertRequest) (any, error) {
	if req.Seller == "" && req.Buyer == "" {
		return nil, ErrNoParty
	}

	now := l.now().Unix()

	columns := []string{
		"tx_hash", "block_number", "block_timestamp", "log_index", "status",
		"seller_address", "buyer_address", "amount", "token_id", "pay_token",
		"deleted",
	}
	values := []any{
		req.TxHash, req.BlockNumber, req.BlockTimestamp, req.LogIndex, req.Status,
		nullable(req.Seller), nullable(req.Buyer), req.Amount.String(), req.TokenID.String(), req.PayToken,
		0,
	}

	columns = append(columns, l.class.attributeColumns...)
	values = append(values, l.class.attributeValues(req)...)

	columns = append(columns, "created_at", "updated_at")
	values = append(values, now, now)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT(tx_hash) DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id
	`, l.class.Table, strings.Join(columns, ", "), placeholders)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	var id int64
	if err := tx.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}

	switch req.Status {
	case StatusListing:
		if err := l.pruneOldListings(ctx, tx, req.TokenID, now); err != nil {
			return nil, err
		}
	case StatusSold:
		if err := l.softDeleteListings(ctx, tx, req.TokenID, req.BlockNumber, now); err != nil {
			return nil, err
		}
	}

	row := l.class.NewRow()
	if err := meddler.Load(tx, l.class.Table, row, id); err != nil {
		return nil, fmt.Errorf("failed to load upserted order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return row, nil
}

// pruneOldListings soft-deletes every live listing for the token whose
// block number is below the newest listing's, keeping only the newest.
// Runs inside the caller's transaction.
func (l *Ledger) pruneOldListings(ctx context.Context, tx *sql.Tx, tokenID *big.Int, now int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted = 1, updated_at = ?
		WHERE token_id = ? AND status = ? AND deleted = 0
		AND block_number < (
			SELECT MAX(block_number) FROM %s
			WHERE token_id = ? AND status = ? AND deleted = 0
		)
	`, l.class.Table, l.class.Table)

	_, err := tx.ExecContext(ctx, query,
		now, tokenID.String(), StatusListing, tokenID.String(), StatusListing)
	if err != nil {
		return fmt.Errorf("failed to prune old listings: %w", err)
	}

	return nil
}

// softDeleteListings soft-deletes the token's listing rows at or before
// the given block. Runs inside the caller's transaction.
func (l *Ledger) softDeleteListings(ctx context.Context, tx *sql.Tx, tokenID *big.Int, atOrBeforeBlock uint64, now int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted = 1, updated_at = ?
		WHERE token_id = ? AND status = ? AND deleted = 0 AND block_number <= ?
	`, l.class.Table)

	_, err := tx.ExecContext(ctx, query, now, tokenID.String(), StatusListing, atOrBeforeBlock)
	if err != nil {
		return fmt.Errorf("failed to soft-delete listings: %w", err)
	}

	return nil
}

// DeleteAllCreateOrders soft-deletes every live listing for the token,
// regardless of block. Used for cancels and for burn confirmations coming
// in through the admin API. Returns the number of rows affected.
func (l *Ledger) DeleteAllCreateOrders(ctx context.Context, tokenID *big.Int) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET deleted = 1, updated_at = ?
		WHERE token_id = ? AND status = ? AND deleted = 0
	`, l.class.Table)

	result, err := l.db.ExecContext(ctx, query, l.now().Unix(), tokenID.String(), StatusListing)
	if err != nil {
		return 0, fmt.Errorf("failed to delete listings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted listings: %w", err)
	}

	return affected, nil
}

// UpdatePrice updates the live listing row's price and timestamp in place.
func (l *Ledger) UpdatePrice(ctx context.Context, tokenID, newPrice *big.Int, timestamp int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET amount = ?, block_timestamp = ?, updated_at = ?
		WHERE token_id = ? AND status = ? AND deleted = 0
	`, l.class.Table)

	_, err := l.db.ExecContext(ctx, query,
		newPrice.String(), timestamp, l.now().Unix(), tokenID.String(), StatusListing)
	if err != nil {
		return fmt.Errorf("failed to update listing price: %w", err)
	}

	return nil
}

// GetByID fetches one order row by its database id.
func (l *Ledger) GetByID(ctx context.Context, id int64) (any, error) {
	row := l.class.NewRow()
	if err := meddler.Load(l.db, l.class.Table, row, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	return row, nil
}

// GetByTokenID fetches the newest live order row for a token.
func (l *Ledger) GetByTokenID(ctx context.Context, tokenID *big.Int) (any, error) {
	query := fmt.Sprintf(`
		SELECT * FROM %s
		WHERE token_id = ? AND deleted = 0
		ORDER BY block_number DESC, log_index DESC
		LIMIT 1
	`, l.class.Table)

	row := l.class.NewRow()
	if err := meddler.QueryRow(l.db, row, query, tokenID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order by token id: %w", err)
	}

	return row, nil
}

// Filter runs the compiled search, executing the data and count queries
// concurrently, and returns one page of results.
func (l *Ledger) Filter(ctx context.Context, builder *filter.Builder) (filter.Page, error) {
	dataSQL, dataArgs, countSQL, countArgs := builder.Build()

	slicePtr := l.class.NewRowSlice()
	var total int

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := meddler.QueryAll(l.db, slicePtr, dataSQL, dataArgs...); err != nil {
			return fmt.Errorf("failed to query orders: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := l.db.QueryRowContext(groupCtx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return filter.Page{}, err
	}

	items := deref(slicePtr)

	return filter.NewPage(items, total, builder.Page(), builder.Size()), nil
}

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
