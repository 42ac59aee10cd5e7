package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stats windows.
const (
	windowDay   = 24 * time.Hour
	windowWeek  = 7 * 24 * time.Hour
	windowMonth = 30 * 24 * time.Hour
)

// WindowStats aggregates market activity over one trailing window.
// Volumes are decimal strings; they are summed as big integers so amounts
// never pass through floats.
type WindowStats struct {
	CountListing int    `json:"count_listing"`
	CountSold    int    `json:"count_sold"`
	Volume       string `json:"volume"`
	VolumeBcoin  string `json:"volume_bcoin"`
	VolumeSen    string `json:"volume_sen"`
}

// Stats holds the trailing 1d/7d/30d market aggregates.
type Stats struct {
	Day   WindowStats `json:"1d"`
	Week  WindowStats `json:"7d"`
	Month WindowStats `json:"30d"`
}

// GetStats computes the three trailing windows concurrently and merges
// the results.
func (l *Ledger) GetStats(ctx context.Context) (*Stats, error) {
	now := l.now()

	var stats Stats
	group, groupCtx := errgroup.WithContext(ctx)

	for _, w := range []struct {
		window time.Duration
		dest   *WindowStats
	}{
		{window: windowDay, dest: &stats.Day},
		{window: windowWeek, dest: &stats.Week},
		{window: windowMonth, dest: &stats.Month},
	} {
		group.Go(func() error {
			windowStats, err := l.windowStats(groupCtx, now.Add(-w.window).Unix())
			if err != nil {
				return err
			}
			*w.dest = *windowStats
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return &stats, nil
}

// windowStats aggregates one window starting at the cutoff timestamp.
func (l *Ledger) windowStats(ctx context.Context, cutoff int64) (*WindowStats, error) {
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE status = ? AND deleted = 0 AND block_timestamp >= ?
	`, l.class.Table)

	stats := &WindowStats{}

	if err := l.db.QueryRowContext(ctx, countQuery, StatusListing, cutoff).Scan(&stats.CountListing); err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	if err := l.db.QueryRowContext(ctx, countQuery, StatusSold, cutoff).Scan(&stats.CountSold); err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}

	// Amounts are decimal strings; sum them in Go with big integers.
	volumeQuery := fmt.Sprintf(`
		SELECT amount, pay_token FROM %s
		WHERE status = ? AND deleted = 0 AND block_timestamp >= ?
	`, l.class.Table)

	rows, err := l.db.QueryContext(ctx, volumeQuery, StatusSold, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale volumes: %w", err)
	}
	defer rows.Close()

	total := new(big.Int)
	bcoin := new(big.Int)
	sen := new(big.Int)

	for rows.Next() {
		var amount, payToken string
		if err := rows.Scan(&amount, &payToken); err != nil {
			return nil, fmt.Errorf("failed to scan sale volume: %w", err)
		}

		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			l.log.Warnf("skipping malformed amount %q in %s", amount, l.class.Table)
			continue
		}

		total.Add(total, value)
		switch payToken {
		case "BCOIN":
			bcoin.Add(bcoin, value)
		case "SEN":
			sen.Add(sen, value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sale volumes: %w", err)
	}

	stats.Volume = total.String()
	stats.VolumeBcoin = bcoin.String()
	stats.VolumeSen = sen.String()

	return stats, nil
}
