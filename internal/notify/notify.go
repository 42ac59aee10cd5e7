// Package notify sends best-effort sale notifications to an external
// webhook. Delivery is at-most-once; failures are logged and swallowed by
// callers, never re-raised into ingestion.
package notify

import (
	"context"
	"fmt"
	"math/big"

	"github.com/go-resty/resty/v2"

	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/pkg/config"
)

// Sale describes one completed sale to announce.
type Sale struct {
	Class   string
	TokenID *big.Int
	Price   *big.Int
	Seller  string
	Buyer   string
}

// Notifier delivers sale notifications over HTTP.
type Notifier struct {
	http    *resty.Client
	url     string
	enabled bool
	log     *logger.Logger
}

// New creates a notifier from configuration. A nil config disables it.
func New(cfg *config.NotifierConfig, log *logger.Logger) *Notifier {
	n := &Notifier{log: log}
	if cfg == nil || !cfg.Enabled {
		return n
	}

	n.enabled = true
	n.url = cfg.URL
	n.http = resty.New().SetTimeout(cfg.Timeout.Duration)

	return n
}

// NotifySold announces a sale. It returns an error for logging purposes
// only; callers must not fail the block on it.
func (n *Notifier) NotifySold(ctx context.Context, sale Sale) error {
	if !n.enabled {
		return nil
	}

	resp, err := n.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"class":   sale.Class,
			"tokenId": sale.TokenID.String(),
			"price":   sale.Price.String(),
			"seller":  sale.Seller,
			"buyer":   sale.Buyer,
		}).
		Get(n.url)
	if err != nil {
		return fmt.Errorf("sale notification failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sale notification returned status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
