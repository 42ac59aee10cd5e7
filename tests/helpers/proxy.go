package helpers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// FakeProxy is an in-process chain-data aggregation proxy with scripted
// chain state.
type FakeProxy struct {
	mu sync.Mutex

	latest     uint64
	logs       map[string]map[uint64][]types.Log // contract -> block -> logs
	timestamps map[uint64]int64
	payLists   map[string][]string // token id -> pay token addresses

	server *httptest.Server
}

// NewFakeProxy starts a fake proxy server. It is stopped when the test
// finishes.
func NewFakeProxy(t *testing.T) *FakeProxy {
	t.Helper()

	proxy := &FakeProxy{
		logs:       make(map[string]map[uint64][]types.Log),
		timestamps: make(map[uint64]int64),
		payLists:   make(map[string][]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /getLogs", proxy.handleGetLogs)
	mux.HandleFunc("POST /getBlockTimestamp", proxy.handleGetBlockTimestamp)
	mux.HandleFunc("POST /callContract", proxy.handleCallContract)
	mux.HandleFunc("GET /latestBlockNumber", proxy.handleLatestBlockNumber)

	proxy.server = httptest.NewServer(mux)
	t.Cleanup(proxy.server.Close)

	return proxy
}

// URL returns the proxy base URL.
func (p *FakeProxy) URL() string {
	return p.server.URL
}

// SetLatest moves the scripted chain head.
func (p *FakeProxy) SetLatest(block uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = block
}

// AddLog scripts one log for a contract. The block timestamp is derived
// from the block number unless SetTimestamp overrides it.
func (p *FakeProxy) AddLog(contract string, log types.Log) {
	p.mu.Lock()
	defer p.mu.Unlock()

	contract = strings.ToLower(contract)
	if p.logs[contract] == nil {
		p.logs[contract] = make(map[uint64][]types.Log)
	}
	p.logs[contract][log.BlockNumber] = append(p.logs[contract][log.BlockNumber], log)
}

// SetPayList scripts the getTokenPayList result for a token id.
func (p *FakeProxy) SetPayList(tokenID string, addresses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payLists[tokenID] = addresses
}

func (p *FakeProxy) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address   string `json:"address"`
		FromBlock uint64 `json:"fromBlock"`
		ToBlock   uint64 `json:"toBlock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	logs := []types.Log{}
	for block := req.FromBlock; block <= req.ToBlock; block++ {
		logs = append(logs, p.logs[strings.ToLower(req.Address)][block]...)
	}

	respond(w, logs)
}

func (p *FakeProxy) handleGetBlockTimestamp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BlockNumber uint64 `json:"blockNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	timestamp, known := p.timestamps[req.BlockNumber]
	if !known && req.BlockNumber <= p.latest {
		// Known blocks default to a synthetic timestamp
		timestamp, known = int64(1700000000+req.BlockNumber), true
	}

	respond(w, map[string]any{"timestamp": timestamp, "known": known})
}

func (p *FakeProxy) handleCallContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string `json:"method"`
		Args   []any  `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Method != "getTokenPayList" || len(req.Args) != 1 {
		http.Error(w, "unsupported call", http.StatusBadRequest)
		return
	}

	tokenIDs, ok := req.Args[0].([]any)
	if !ok || len(tokenIDs) != 1 {
		http.Error(w, "expected one token id", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	addresses, ok := p.payLists[fmt.Sprint(tokenIDs[0])]
	if !ok {
		http.Error(w, "unknown token", http.StatusNotFound)
		return
	}

	respond(w, addresses)
}

func (p *FakeProxy) handleLatestBlockNumber(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	respond(w, p.latest)
}

func respond(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

// GetFreePort asks the kernel for an unused TCP port.
func GetFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
