// Package subscriber runs the block-cursor-driven ingestion loop for one
// marketplace contract.
package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bombverse/market-indexer/internal/chain"
	"github.com/bombverse/market-indexer/internal/cursor"
	"github.com/bombverse/market-indexer/internal/events"
	"github.com/bombverse/market-indexer/internal/ledger"
	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/internal/notify"
	"github.com/bombverse/market-indexer/pkg/config"
)

// getTokenPayList(uint256[]) returns the pay token address per token id.
const payListABI = `[{"inputs":[{"internalType":"uint256[]","name":"tokenIds","type":"uint256[]"}],` +
	`"name":"getTokenPayList","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],` +
	`"stateMutability":"view","type":"function"}]`

// Subscriber polls one marketplace contract block by block and reconciles
// its events into the asset ledger.
type Subscriber struct {
	cfg       config.SubscriberConfig
	payTokens config.PayTokenConfig
	contract  common.Address

	port     chain.Port
	ledger   *ledger.Ledger
	cursors  *cursor.Store
	notifier *notify.Notifier
	log      *logger.Logger
}

// New creates a subscriber for one contract and asset class.
func New(
	cfg config.SubscriberConfig,
	payTokens config.PayTokenConfig,
	port chain.Port,
	assetLedger *ledger.Ledger,
	cursors *cursor.Store,
	notifier *notify.Notifier,
	log *logger.Logger,
) *Subscriber {
	return &Subscriber{
		cfg:       cfg,
		payTokens: payTokens,
		contract:  common.HexToAddress(cfg.Contract),
		port:      port,
		ledger:    assetLedger,
		cursors:   cursors,
		notifier:  notifier,
		log:       log,
	}
}

// Run drives the ingestion loop until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	class := s.ledger.Class().Name
	s.log.Infof("starting %s subscriber for contract %s from block %d",
		class, s.contract.Hex(), s.cfg.StartBlock)

	for {
		if err := ctx.Err(); err != nil {
			s.log.Infof("%s subscriber stopping: %v", class, err)
			return nil
		}

		block, fromFailed, err := s.selectWork(ctx)
		if err != nil {
			s.log.Errorf("failed to select work: %v", err)
			if err := s.sleep(ctx); err != nil {
				return nil
			}
			continue
		}

		if !fromFailed {
			latest, err := s.port.LatestBlockNumber(ctx)
			if err != nil {
				s.log.Errorf("failed to fetch latest block: %v", err)
				if err := s.sleep(ctx); err != nil {
					return nil
				}
				continue
			}

			// Caught up with the head
			if block > latest {
				if err := s.sleep(ctx); err != nil {
					return nil
				}
				continue
			}
		}

		CurrentBlockSet(class, block)

		if err := s.processBlock(ctx, block); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			BlockFailureInc(class)
			count, recordErr := s.cursors.RecordFailure(ctx, s.contract.Hex(), block)
			if recordErr != nil {
				s.log.Errorf("failed to record failure for block %d: %v", block, recordErr)
			} else if count >= s.cfg.MaxRetries {
				BlockSkippedInc(class)
				s.log.Errorf("block %d failed %d times, skipping permanently: %v", block, count, err)
			} else {
				s.log.Warnf("block %d failed (attempt %d/%d): %v", block, count, s.cfg.MaxRetries, err)
			}
		} else {
			BlockProcessedInc(class)
			if fromFailed {
				if err := s.cursors.ClearFailure(ctx, s.contract.Hex(), block); err != nil {
					s.log.Errorf("failed to clear failure for block %d: %v", block, err)
				}
			}
		}

		// The cursor always moves on; failed blocks are retried through
		// the failed-block table, not by holding the cursor back.
		if !fromFailed {
			if err := s.cursors.Advance(ctx, s.contract.Hex(), block+1); err != nil {
				s.log.Errorf("failed to advance cursor past block %d: %v", block, err)
			}
		}
	}
}

// selectWork picks the next block: the smallest retryable failed block
// wins over the cursor.
func (s *Subscriber) selectWork(ctx context.Context) (uint64, bool, error) {
	failed, ok, err := s.cursors.NextRetryable(ctx, s.contract.Hex(), s.cfg.MaxRetries)
	if err != nil {
		return 0, false, err
	}
	if ok {
		return failed, true, nil
	}

	next, ok, err := s.cursors.Next(ctx, s.contract.Hex())
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return s.cfg.StartBlock, false, nil
	}

	return next, false, nil
}

// processBlock fetches and reconciles every marketplace event in one block.
// Events run strictly in order; any failure fails the whole block.
func (s *Subscriber) processBlock(ctx context.Context, block uint64) error {
	logs, err := s.port.GetLogs(ctx, s.contract, block, block, events.AllTopics())
	if err != nil {
		return fmt.Errorf("failed to fetch logs for block %d: %w", block, err)
	}

	for i := range logs {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, err := events.Decode(&logs[i])
		if err != nil {
			return fmt.Errorf("failed to decode log %d in block %d: %w", logs[i].Index, block, err)
		}
		if event == nil {
			continue
		}

		if err := s.handleEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to handle event in block %d: %w", block, err)
		}
	}

	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	class := s.ledger.Class().Name

	switch e := event.(type) {
	case *events.CreateOrder:
		EventProcessedInc(class, "create_order")
		return s.handleCreateOrder(ctx, e)
	case *events.Sold:
		EventProcessedInc(class, "sold")
		return s.handleSold(ctx, e)
	case *events.CancelOrder:
		EventProcessedInc(class, "cancel_order")
		return s.handleCancelOrder(ctx, e)
	case *events.OrderPriceUpdated:
		EventProcessedInc(class, "order_price_updated")
		return s.handlePriceUpdated(ctx, e)
	default:
		return fmt.Errorf("unexpected event type %T", event)
	}
}

func (s *Subscriber) handleCreateOrder(ctx context.Context, e *events.CreateOrder) error {
	timestamp, err := s.blockTimestamp(ctx, e.BlockNumber)
	if err != nil {
		return err
	}

	req := &ledger.UpsertRequest{
		TxHash:         e.TxHash.Hex(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: timestamp,
		LogIndex:       e.LogIndex,
		Status:         ledger.StatusListing,
		Seller:         e.Seller.Hex(),
		Amount:         e.Price,
		TokenID:        e.TokenID,
		PayToken:       s.resolvePayToken(ctx, e.TokenID),
		Detail:         e.TokenDetail,
	}

	_, err = s.ledger.Upsert(ctx, req)
	return err
}

func (s *Subscriber) handleSold(ctx context.Context, e *events.Sold) error {
	timestamp, err := s.blockTimestamp(ctx, e.BlockNumber)
	if err != nil {
		return err
	}

	req := &ledger.UpsertRequest{
		TxHash:         e.TxHash.Hex(),
		BlockNumber:    e.BlockNumber,
		BlockTimestamp: timestamp,
		LogIndex:       e.LogIndex,
		Status:         ledger.StatusSold,
		Seller:         e.Seller.Hex(),
		Buyer:          e.Buyer.Hex(),
		Amount:         e.Price,
		TokenID:        e.TokenID,
		PayToken:       s.resolvePayToken(ctx, e.TokenID),
		Detail:         e.TokenDetail,
	}

	if _, err := s.ledger.Upsert(ctx, req); err != nil {
		return err
	}

	// Best-effort; a failed notification never fails the block
	go func() {
		sale := notify.Sale{
			Class:   s.ledger.Class().Name,
			TokenID: e.TokenID,
			Price:   e.Price,
			Seller:  e.Seller.Hex(),
			Buyer:   e.Buyer.Hex(),
		}
		if err := s.notifier.NotifySold(context.WithoutCancel(ctx), sale); err != nil {
			s.log.Warnf("sale notification for token %s failed: %v", e.TokenID, err)
		}
	}()

	return nil
}

func (s *Subscriber) handleCancelOrder(ctx context.Context, e *events.CancelOrder) error {
	_, err := s.ledger.DeleteAllCreateOrders(ctx, e.TokenID)
	return err
}

func (s *Subscriber) handlePriceUpdated(ctx context.Context, e *events.OrderPriceUpdated) error {
	timestamp, err := s.blockTimestamp(ctx, e.BlockNumber)
	if err != nil {
		return err
	}

	return s.ledger.UpdatePrice(ctx, e.TokenID, e.NewPrice, timestamp)
}

// blockTimestamp resolves the block's timestamp; an unknown block fails
// the block so it is retried once the proxy catches up.
func (s *Subscriber) blockTimestamp(ctx context.Context, block uint64) (int64, error) {
	timestamp, known, err := s.port.GetBlockTimestamp(ctx, block)
	if err != nil {
		return 0, err
	}
	if !known {
		return 0, fmt.Errorf("block %d not known to the proxy yet", block)
	}

	return timestamp, nil
}

// resolvePayToken resolves the settlement token symbol for a token id via
// a best-effort contract read. Any failure falls back to the configured
// symbol so ingestion never blocks on it.
func (s *Subscriber) resolvePayToken(ctx context.Context, tokenID *big.Int) string {
	raw, err := s.port.CallContract(ctx, s.contract, payListABI, "getTokenPayList", []*big.Int{tokenID})
	if err != nil {
		s.log.Debugf("pay token lookup for token %s failed: %v", tokenID, err)
		return s.payTokens.FallbackSymbol
	}

	var addresses []string
	if err := json.Unmarshal(raw, &addresses); err != nil || len(addresses) == 0 {
		return s.payTokens.FallbackSymbol
	}

	switch {
	case strings.EqualFold(addresses[0], s.payTokens.BcoinAddress):
		return "BCOIN"
	case strings.EqualFold(addresses[0], s.payTokens.SenAddress):
		return "SEN"
	default:
		return s.payTokens.FallbackSymbol
	}
}

// sleep waits one poll interval or until the context is cancelled.
func (s *Subscriber) sleep(ctx context.Context) error {
	select {
	case <-time.After(s.cfg.PollInterval.Duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
