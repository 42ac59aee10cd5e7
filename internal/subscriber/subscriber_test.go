package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	commonpkg "github.com/bombverse/market-indexer/internal/common"
	"github.com/bombverse/market-indexer/internal/cursor"
	"github.com/bombverse/market-indexer/internal/db"
	"github.com/bombverse/market-indexer/internal/events"
	"github.com/bombverse/market-indexer/internal/filter"
	"github.com/bombverse/market-indexer/internal/ledger"
	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/internal/migrations"
	"github.com/bombverse/market-indexer/internal/notify"
	"github.com/bombverse/market-indexer/pkg/config"
)

var (
	testContract = common.HexToAddress("0xc409f8688d3ba164db748d10b9d0b44cbbf5abbb")
	sellerAddr   = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	buyerAddr    = common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
)

// fakePort scripts proxy responses per block.
type fakePort struct {
	mu sync.Mutex

	latest      uint64
	logs        map[uint64][]types.Log
	tsFailures  map[uint64]int // remaining times GetBlockTimestamp reports unknown
	payListJSON string
}

func newFakePort(latest uint64) *fakePort {
	return &fakePort{
		latest:     latest,
		logs:       make(map[uint64][]types.Log),
		tsFailures: make(map[uint64]int),
	}
}

func (f *fakePort) GetLogs(_ context.Context, _ common.Address, fromBlock, toBlock uint64, _ []common.Hash) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.Log
	for b := fromBlock; b <= toBlock; b++ {
		out = append(out, f.logs[b]...)
	}
	return out, nil
}

func (f *fakePort) GetBlockTimestamp(_ context.Context, block uint64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tsFailures[block] > 0 {
		f.tsFailures[block]--
		return 0, false, nil
	}
	return int64(1700000000 + block), true, nil
}

func (f *fakePort) CallContract(_ context.Context, _ common.Address, _, _ string, _ ...any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.payListJSON == "" {
		return nil, fmt.Errorf("status 500: no pay list")
	}
	return json.RawMessage(f.payListJSON), nil
}

func (f *fakePort) LatestBlockNumber(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func encodeWords(values ...*big.Int) []byte {
	data := make([]byte, 0, len(values)*32)
	for _, v := range values {
		data = append(data, common.LeftPadBytes(v.Bytes(), 32)...)
	}
	return data
}

func addrWord(addr common.Address) *big.Int {
	return new(big.Int).SetBytes(addr.Bytes())
}

func createOrderLog(block uint64, txSeq int, tokenID, price int64) types.Log {
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{events.CreateOrderTopic},
		Data:        encodeWords(big.NewInt(tokenID), big.NewInt(price), big.NewInt(0), addrWord(sellerAddr)),
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(txSeq))),
		Index:       uint(txSeq),
	}
}

func priceUpdatedLog(block uint64, txSeq int, tokenID, newPrice, startedAt int64) types.Log {
	return types.Log{
		Address:     testContract,
		Topics:      []common.Hash{events.OrderPriceUpdatedTopic},
		Data:        encodeWords(big.NewInt(tokenID), big.NewInt(newPrice), big.NewInt(startedAt)),
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(txSeq))),
		Index:       uint(txSeq),
	}
}

func soldLog(block uint64, txSeq int, tokenID, price int64) types.Log {
	return types.Log{
		Address: testContract,
		Topics:  []common.Hash{events.SoldTopic},
		Data: encodeWords(big.NewInt(tokenID), big.NewInt(price), big.NewInt(0),
			addrWord(sellerAddr), addrWord(buyerAddr)),
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block)*1000 + int64(txSeq))),
		Index:       uint(txSeq),
	}
}

type testEnv struct {
	sub     *Subscriber
	port    *fakePort
	ledger  *ledger.Ledger
	cursors *cursor.Store
}

func setupSubscriber(t *testing.T, port *fakePort, maxRetries int) *testEnv {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "subscriber_test_*.db")
	require.NoError(t, err)
	tmpFile.Close()

	sqlDB, err := db.NewSQLiteDB(tmpFile.Name())
	require.NoError(t, err)

	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), sqlDB))

	t.Cleanup(func() {
		sqlDB.Close()
		os.Remove(tmpFile.Name())
	})

	assetLedger := ledger.New(sqlDB, ledger.Hero, logger.NewNopLogger())
	cursors := cursor.NewStore(sqlDB, logger.NewNopLogger())

	cfg := config.SubscriberConfig{
		Class:        "hero",
		Contract:     testContract.Hex(),
		StartBlock:   100,
		PollInterval: commonpkg.NewDuration(5 * time.Millisecond),
		MaxRetries:   maxRetries,
	}

	payTokens := config.PayTokenConfig{
		BcoinAddress:   "0x00e1656e45f18ec6747f5a8496fd39b50b38396d",
		SenAddress:     "0x23383e18dec4360dbcc239892a10eb591a5c1f29",
		FallbackSymbol: "BCOIN",
	}

	sub := New(cfg, payTokens, port, assetLedger, cursors,
		notify.New(nil, logger.NewNopLogger()), logger.NewNopLogger())

	return &testEnv{sub: sub, port: port, ledger: assetLedger, cursors: cursors}
}

// run starts the loop and stops it when the test finishes.
func (env *testEnv) run(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = env.sub.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func (env *testEnv) liveListings(t *testing.T, tokenID int64) []*ledger.HeroOrder {
	t.Helper()

	page, err := env.ledger.Filter(context.Background(), env.ledger.Class().NewBuilder().
		WhereIn("status", []string{ledger.StatusListing}).
		WhereIn("token_id", []string{big.NewInt(tokenID).String()}))
	require.NoError(t, err)

	return page.Items.([]*ledger.HeroOrder)
}

func (env *testEnv) soldRows(t *testing.T, tokenID int64) []*ledger.HeroOrder {
	t.Helper()

	page, err := env.ledger.Filter(context.Background(), env.ledger.Class().NewBuilder().
		WhereIn("status", []string{ledger.StatusSold}).
		WhereIn("token_id", []string{big.NewInt(tokenID).String()}))
	require.NoError(t, err)

	return page.Items.([]*ledger.HeroOrder)
}

func TestSubscriber_RelistThenSale(t *testing.T) {
	t.Parallel()

	port := newFakePort(110)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[105] = []types.Log{createOrderLog(105, 0, 7, 12)}
	port.logs[110] = []types.Log{soldLog(110, 0, 7, 12)}

	env := setupSubscriber(t, port, 5)
	env.run(t)

	require.Eventually(t, func() bool {
		return len(env.soldRows(t, 7)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The sale supersedes every listing
	require.Eventually(t, func() bool {
		return len(env.liveListings(t, 7)) == 0
	}, 5*time.Second, 10*time.Millisecond)

	sold := env.soldRows(t, 7)[0]
	require.Equal(t, "12", sold.Amount)
	require.Equal(t, sellerAddr, *sold.SellerAddress)
	require.Equal(t, buyerAddr, *sold.BuyerAddress)
}

func TestSubscriber_SingleLiveListingAfterRelist(t *testing.T) {
	t.Parallel()

	port := newFakePort(105)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[105] = []types.Log{createOrderLog(105, 0, 7, 12)}

	env := setupSubscriber(t, port, 5)
	env.run(t)

	require.Eventually(t, func() bool {
		listings := env.liveListings(t, 7)
		return len(listings) == 1 && listings[0].Amount == "12"
	}, 5*time.Second, 10*time.Millisecond)

	listings := env.liveListings(t, 7)
	require.Equal(t, uint64(105), listings[0].BlockNumber)
}

func TestSubscriber_RetriesTimestampFailure(t *testing.T) {
	t.Parallel()

	port := newFakePort(100)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.tsFailures[100] = 2

	env := setupSubscriber(t, port, 5)
	env.run(t)

	// The block fails twice and then succeeds through the failed-block path
	require.Eventually(t, func() bool {
		return len(env.liveListings(t, 7)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The failure entry is cleared after the successful retry
	require.Eventually(t, func() bool {
		count, err := env.cursors.FailureCount(context.Background(), testContract.Hex(), 100)
		return err == nil && count == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscriber_SkipsBlockAfterMaxRetries(t *testing.T) {
	t.Parallel()

	port := newFakePort(101)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[101] = []types.Log{createOrderLog(101, 0, 8, 20)}
	port.tsFailures[100] = 1000 // never recovers

	env := setupSubscriber(t, port, 2)
	env.run(t)

	// Later blocks still flow
	require.Eventually(t, func() bool {
		return len(env.liveListings(t, 8)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The bad block is retried up to the bound and then parked
	require.Eventually(t, func() bool {
		count, err := env.cursors.FailureCount(context.Background(), testContract.Hex(), 100)
		return err == nil && count >= 2
	}, 5*time.Second, 10*time.Millisecond)

	_, ok, err := env.cursors.NextRetryable(context.Background(), testContract.Hex(), 2)
	require.NoError(t, err)
	require.False(t, ok)

	require.Empty(t, env.liveListings(t, 7))
}

func TestSubscriber_PriceUpdateStoresBlockTimestamp(t *testing.T) {
	t.Parallel()

	port := newFakePort(105)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[105] = []types.Log{priceUpdatedLog(105, 0, 7, 99, 424242)}

	env := setupSubscriber(t, port, 5)
	env.run(t)

	// The listing carries the new price and the resolved timestamp of the
	// update's block, not the event's startedAt value
	require.Eventually(t, func() bool {
		listings := env.liveListings(t, 7)
		return len(listings) == 1 &&
			listings[0].Amount == "99" &&
			listings[0].BlockTimestamp == int64(1700000000+105)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscriber_PriceUpdateRetriesTimestampFailure(t *testing.T) {
	t.Parallel()

	port := newFakePort(105)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[105] = []types.Log{priceUpdatedLog(105, 0, 7, 99, 424242)}
	port.tsFailures[105] = 2

	env := setupSubscriber(t, port, 5)
	env.run(t)

	// The update's block fails while its timestamp is unknown and lands
	// once the proxy catches up
	require.Eventually(t, func() bool {
		listings := env.liveListings(t, 7)
		return len(listings) == 1 && listings[0].Amount == "99"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		count, err := env.cursors.FailureCount(context.Background(), testContract.Hex(), 105)
		return err == nil && count == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscriber_PriceUpdateUnknownBlockFailsBlock(t *testing.T) {
	t.Parallel()

	port := newFakePort(105)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.logs[105] = []types.Log{priceUpdatedLog(105, 0, 7, 99, 424242)}
	port.tsFailures[105] = 1000 // never recovers

	env := setupSubscriber(t, port, 3)
	env.run(t)

	// A retryable failure is recorded for the update's block
	require.Eventually(t, func() bool {
		count, err := env.cursors.FailureCount(context.Background(), testContract.Hex(), 105)
		return err == nil && count >= 1
	}, 5*time.Second, 10*time.Millisecond)

	// The listing keeps its original price and timestamp
	listings := env.liveListings(t, 7)
	require.Len(t, listings, 1)
	require.Equal(t, "10", listings[0].Amount)
	require.Equal(t, int64(1700000000+100), listings[0].BlockTimestamp)
}

func TestSubscriber_PayTokenResolution(t *testing.T) {
	t.Parallel()

	port := newFakePort(100)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}
	port.payListJSON = `["0x23383e18dec4360dbcc239892a10eb591a5c1f29"]`

	env := setupSubscriber(t, port, 5)
	env.run(t)

	require.Eventually(t, func() bool {
		listings := env.liveListings(t, 7)
		return len(listings) == 1 && listings[0].PayToken == "SEN"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscriber_PayTokenFallback(t *testing.T) {
	t.Parallel()

	// CallContract fails; ingestion proceeds with the fallback symbol
	port := newFakePort(100)
	port.logs[100] = []types.Log{createOrderLog(100, 0, 7, 10)}

	env := setupSubscriber(t, port, 5)
	env.run(t)

	require.Eventually(t, func() bool {
		listings := env.liveListings(t, 7)
		return len(listings) == 1 && listings[0].PayToken == "BCOIN"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSubscriber_DuplicateDeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	port := newFakePort(100)
	log := createOrderLog(100, 0, 7, 10)
	port.logs[100] = []types.Log{log, log} // same tx delivered twice

	env := setupSubscriber(t, port, 5)
	env.run(t)

	require.Eventually(t, func() bool {
		return len(env.liveListings(t, 7)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Still exactly one row overall for the token
	page, err := env.ledger.Filter(context.Background(), env.ledger.Class().NewBuilder().
		WhereIn("token_id", []string{"7"}).Paginate(1, filter.MaxSize))
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
}
