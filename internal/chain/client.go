// Package chain provides the client for the chain-data aggregation proxy.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/pkg/config"
)

const latestBlockCacheKey = "latest-block"

// Port is the chain-data access surface used by the subscribers.
type Port interface {
	GetLogs(ctx context.Context, contract common.Address, fromBlock, toBlock uint64, topics []common.Hash) ([]types.Log, error)
	GetBlockTimestamp(ctx context.Context, block uint64) (int64, bool, error)
	CallContract(ctx context.Context, contract common.Address, abiJSON, method string, args ...any) (json.RawMessage, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Client talks to the chain-data aggregation proxy over HTTP.
type Client struct {
	http    *resty.Client
	network string
	retry   *config.RetryConfig
	cache   *gocache.Cache
	ttl     time.Duration
	log     *logger.Logger
}

// NewClient creates a proxy client from configuration.
func NewClient(cfg config.ChainConfig, log *logger.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.ProxyURL).
		SetTimeout(cfg.RequestTimeout.Duration)

	ttl := cfg.LatestBlockTTL.Duration

	return &Client{
		http:    httpClient,
		network: cfg.Network,
		retry:   cfg.Retry,
		cache:   gocache.New(ttl, 2*ttl), //nolint:mnd
		ttl:     ttl,
		log:     log,
	}
}

type getLogsRequest struct {
	Network   string   `json:"network"`
	Address   string   `json:"address"`
	FromBlock uint64   `json:"fromBlock"`
	ToBlock   uint64   `json:"toBlock"`
	Topics    []string `json:"topics,omitempty"`
}

type getLogsResponse struct {
	Result []types.Log `json:"result"`
}

// GetLogs fetches the contract's logs for an inclusive block range.
func (c *Client) GetLogs(ctx context.Context, contract common.Address, fromBlock, toBlock uint64, topics []common.Hash) ([]types.Log, error) {
	topicStrings := make([]string, len(topics))
	for i, t := range topics {
		topicStrings[i] = t.Hex()
	}

	req := getLogsRequest{
		Network:   c.network,
		Address:   contract.Hex(),
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Topics:    topicStrings,
	}

	var result getLogsResponse
	if err := c.post(ctx, "/getLogs", req, &result); err != nil {
		return nil, err
	}

	return result.Result, nil
}

type getBlockTimestampRequest struct {
	Network     string `json:"network"`
	BlockNumber uint64 `json:"blockNumber"`
}

type getBlockTimestampResponse struct {
	Result struct {
		Timestamp int64 `json:"timestamp"`
		Known     bool  `json:"known"`
	} `json:"result"`
}

// GetBlockTimestamp resolves a block's timestamp. The second return value
// is false when the proxy does not know the block yet.
func (c *Client) GetBlockTimestamp(ctx context.Context, block uint64) (int64, bool, error) {
	req := getBlockTimestampRequest{Network: c.network, BlockNumber: block}

	var result getBlockTimestampResponse
	if err := c.post(ctx, "/getBlockTimestamp", req, &result); err != nil {
		return 0, false, err
	}

	if !result.Result.Known {
		return 0, false, nil
	}

	return result.Result.Timestamp, true, nil
}

type callContractRequest struct {
	Network  string `json:"network"`
	Contract string `json:"contract"`
	ABI      string `json:"abi"`
	Method   string `json:"method"`
	Args     []any  `json:"args,omitempty"`
}

type callContractResponse struct {
	Result json.RawMessage `json:"result"`
}

// CallContract performs a read-only contract call through the proxy and
// returns the raw JSON result for the caller to interpret.
func (c *Client) CallContract(ctx context.Context, contract common.Address, abiJSON, method string, args ...any) (json.RawMessage, error) {
	encoded := make([]any, len(args))
	for i, arg := range args {
		// big integers travel as decimal strings to survive JSON
		switch v := arg.(type) {
		case *big.Int:
			encoded[i] = v.String()
		case []*big.Int:
			list := make([]string, len(v))
			for j, b := range v {
				list[j] = b.String()
			}
			encoded[i] = list
		default:
			encoded[i] = arg
		}
	}

	req := callContractRequest{
		Network:  c.network,
		Contract: contract.Hex(),
		ABI:      abiJSON,
		Method:   method,
		Args:     encoded,
	}

	var result callContractResponse
	if err := c.post(ctx, "/callContract", req, &result); err != nil {
		return nil, err
	}

	return result.Result, nil
}

type latestBlockResponse struct {
	Result uint64 `json:"result"`
}

// LatestBlockNumber returns the proxy's view of the chain head, cached for
// the configured TTL so tight polling loops do not hammer the proxy.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	if cached, ok := c.cache.Get(latestBlockCacheKey); ok {
		return cached.(uint64), nil
	}

	const endpoint = "/latestBlockNumber"

	var result latestBlockResponse
	err := retryWithBackoff(ctx, c.retry, endpoint, func() error {
		start := time.Now()
		ProxyRequestInc(endpoint)

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("network", c.network).
			SetResult(&result).
			Get(endpoint)
		ProxyRequestDuration(endpoint, time.Since(start))

		if err != nil {
			ProxyErrorInc(endpoint)
			return fmt.Errorf("proxy request %s failed: %w", endpoint, err)
		}
		if resp.IsError() {
			ProxyErrorInc(endpoint)
			return fmt.Errorf("proxy request %s returned status %d: %s", endpoint, resp.StatusCode(), resp.String())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.cache.Set(latestBlockCacheKey, result.Result, c.ttl)

	return result.Result, nil
}

// post sends a JSON POST request with retry and metrics bookkeeping.
func (c *Client) post(ctx context.Context, endpoint string, body, result any) error {
	return retryWithBackoff(ctx, c.retry, endpoint, func() error {
		start := time.Now()
		ProxyRequestInc(endpoint)

		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(result).
			Post(endpoint)
		ProxyRequestDuration(endpoint, time.Since(start))

		if err != nil {
			ProxyErrorInc(endpoint)
			return fmt.Errorf("proxy request %s failed: %w", endpoint, err)
		}
		if resp.IsError() {
			ProxyErrorInc(endpoint)
			return fmt.Errorf("proxy request %s returned status %d: %s", endpoint, resp.StatusCode(), resp.String())
		}
		return nil
	})
}
