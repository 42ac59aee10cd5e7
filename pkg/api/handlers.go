package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bombverse/market-indexer/internal/cursor"
	"github.com/bombverse/market-indexer/internal/filter"
	"github.com/bombverse/market-indexer/internal/ledger"
	"github.com/bombverse/market-indexer/internal/logger"
)

// Market bundles one asset class's ledger with its contract address.
type Market struct {
	Ledger   *ledger.Ledger
	Contract string
}

// Handler handles HTTP requests for the API.
type Handler struct {
	markets  map[string]Market
	cursors  *cursor.Store
	cache    *gocache.Cache
	adminKey string
	log      *logger.Logger
}

// NewHandler creates a new API handler. cacheTTL bounds the staleness of
// search and stats responses; adminKey may be empty, which disables the
// destructive endpoints.
func NewHandler(markets map[string]Market, cursors *cursor.Store, cacheTTL time.Duration, adminKey string, log *logger.Logger) *Handler {
	// Cursor rows are keyed by the checksummed contract address; accept
	// any casing from config
	normalized := make(map[string]Market, len(markets))
	for name, market := range markets {
		market.Contract = common.HexToAddress(market.Contract).Hex()
		normalized[name] = market
	}

	return &Handler{
		markets:  normalized,
		cursors:  cursors,
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
		adminKey: adminKey,
		log:      log,
	}
}

// paramKind selects how a query parameter's values become predicates.
type paramKind int

const (
	// exact values compiled into an IN list
	paramExact paramKind = iota
	// exact address values, normalized to checksummed form first
	paramAddress
	// "op:value" range entries on an integer column
	paramRange
	// "op:value" range entries on an arbitrary-precision decimal column
	paramRangeDecimal
	// bare values as minimum thresholds
	paramMin
	// membership in a comma-delimited set column
	paramSet
	// substring match
	paramLike
)

// searchParams maps search query parameters onto table columns. Parameters
// whose column is outside a class's allow-list are dropped by the builder,
// so one table serves both classes.
var searchParams = []struct {
	name   string
	column string
	kind   paramKind
}{
	{"status", "status", paramExact},
	{"seller_wallet_address", "seller_address", paramAddress},
	{"buyer_wallet_address", "buyer_address", paramAddress},
	{"tx_hash", "tx_hash", paramExact},
	{"token_id", "token_id", paramExact},
	{"rarity", "rarity", paramExact},
	{"pay_token", "pay_token", paramExact},
	{"level", "level", paramRange},
	{"amount", "amount", paramRangeDecimal},
	{"stamina", "stamina", paramMin},
	{"speed", "speed", paramMin},
	{"bomb_power", "bomb_power", paramMin},
	{"bomb_count", "bomb_count", paramMin},
	{"bomb_range", "bomb_range", paramMin},
	{"capacity", "capacity", paramMin},
	{"recovery", "recovery", paramMin},
	{"ability", "abilities", paramSet},
	{"s_ability", "abilities_hero_s", paramSet},
	{"search", "token_id", paramLike},
}

// ListMarkets returns the available marketplaces.
// @Summary List marketplaces
// @Description Get the available asset classes with their contract addresses and endpoints
// @Tags Markets
// @Produce json
// @Success 200 {array} ClassInfo "List of marketplaces"
// @Router /market [get]
func (h *Handler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	infos := make([]ClassInfo, 0, len(h.markets))
	for name, market := range h.markets {
		infos = append(infos, ClassInfo{
			Class:    name,
			Contract: market.Contract,
			Endpoints: []string{
				fmt.Sprintf("/api/v1/market/%s/orders", name),
				fmt.Sprintf("/api/v1/market/%s/stats", name),
			},
		})
	}

	respondJSON(w, http.StatusOK, infos)
}

// SearchOrders retrieves orders for one asset class.
// @Summary Search orders
// @Description Retrieve marketplace orders with filtering, pagination and sorting
// @Tags Orders
// @Produce json
// @Param class path string true "Asset class" Enums(hero, house)
// @Param status query string false "Order status" Enums(listing, sold)
// @Param seller_wallet_address query string false "Seller address"
// @Param buyer_wallet_address query string false "Buyer address"
// @Param token_id query string false "Token id"
// @Param rarity query string false "Rarity values, comma separated"
// @Param level query string false "Level range in op:value form (gte, lte, eq)"
// @Param amount query string false "Price range in op:value form (gte, lte, eq)"
// @Param stamina query int false "Minimum stamina"
// @Param ability query string false "Ability ids, comma separated"
// @Param search query string false "Token id substring"
// @Param order_by query string false "Sort as direction:column, e.g. desc:amount"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} filter.Page "One page of orders"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Unknown asset class"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /market/{class}/orders [get]
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	key := cacheKey("orders", r.PathValue("class"), r.URL.Query())
	if cached, found := h.cache.Get(key); found {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	builder, err := buildSearch(market.Ledger.Class(), r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := market.Ledger.Filter(r.Context(), builder)
	if err != nil {
		h.log.Errorf("order search failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to search orders")
		return
	}

	h.cache.SetDefault(key, page)
	respondJSON(w, http.StatusOK, page)
}

// GetStats retrieves rolling sales statistics for one asset class.
// @Summary Get marketplace statistics
// @Description Retrieve listing and sale counts and settlement volumes over 1d, 7d and 30d windows
// @Tags Stats
// @Produce json
// @Param class path string true "Asset class" Enums(hero, house)
// @Success 200 {object} ledger.Stats "Rolling window statistics"
// @Failure 404 {object} ErrorResponse "Unknown asset class"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /market/{class}/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	key := cacheKey("stats", r.PathValue("class"), nil)
	if cached, found := h.cache.Get(key); found {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := market.Ledger.GetStats(r.Context())
	if err != nil {
		h.log.Errorf("stats query failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	h.cache.SetDefault(key, stats)
	respondJSON(w, http.StatusOK, stats)
}

// GetOrderByToken retrieves the newest live order for a token.
// @Summary Get the newest order for a token
// @Description Retrieve the most recent live order for a token id
// @Tags Orders
// @Produce json
// @Param class path string true "Asset class" Enums(hero, house)
// @Param tokenId path string true "Token id"
// @Success 200 {object} ledger.HeroOrder "The newest live order"
// @Failure 400 {object} ErrorResponse "Invalid token id"
// @Failure 404 {object} ErrorResponse "Unknown class or no live order"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /market/{class}/orders/token/{tokenId} [get]
func (h *Handler) GetOrderByToken(w http.ResponseWriter, r *http.Request) {
	market, ok := h.market(w, r)
	if !ok {
		return
	}

	tokenID, err := parseTokenID(r.PathValue("tokenId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := market.Ledger.GetByTokenID(r.Context(), tokenID)
	if errors.Is(err, ledger.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no live order for token %s", tokenID))
		return
	}
	if err != nil {
		h.log.Errorf("order lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// DeleteOrdersByToken soft-deletes every live listing for a token. It backs
// burn confirmation flows and is protected by the admin key.
// @Summary Delete all live listings for a token
// @Description Soft-delete every live listing for a token id. Requires the admin API key.
// @Tags Orders
// @Produce json
// @Param class path string true "Asset class" Enums(hero, house)
// @Param tokenId path string true "Token id"
// @Param X-Api-Key header string true "Admin API key"
// @Success 200 {object} DeleteResponse "Number of deleted orders"
// @Failure 400 {object} ErrorResponse "Invalid token id"
// @Failure 403 {object} ErrorResponse "Missing or wrong admin key"
// @Failure 404 {object} ErrorResponse "Unknown asset class"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /market/{class}/orders/token/{tokenId} [delete]
func (h *Handler) DeleteOrdersByToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(r) {
		respondError(w, http.StatusForbidden, "admin key required")
		return
	}

	market, ok := h.market(w, r)
	if !ok {
		return
	}

	tokenID, err := parseTokenID(r.PathValue("tokenId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := market.Ledger.DeleteAllCreateOrders(r.Context(), tokenID)
	if err != nil {
		h.log.Errorf("order deletion failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete orders")
		return
	}

	// Cached pages may contain the deleted orders
	h.cache.Flush()

	respondJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// Health returns the health status of the API and the ingestion position of
// every marketplace.
// @Summary Health check
// @Description Check the health status of the API and the block cursors of all marketplaces
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API and marketplace health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var markets []ClassStatus
	for name, market := range h.markets {
		next, _, err := h.cursors.Next(r.Context(), market.Contract)
		markets = append(markets, ClassStatus{
			Class:     name,
			Contract:  market.Contract,
			NextBlock: next,
			Healthy:   err == nil,
		})
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Markets:   markets,
	})
}

// market resolves the {class} path value, writing the error response itself
// when the class is unknown.
func (h *Handler) market(w http.ResponseWriter, r *http.Request) (Market, bool) {
	class := r.PathValue("class")

	market, ok := h.markets[class]
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown asset class '%s'", class))
		return Market{}, false
	}

	return market, true
}

// authorize checks the admin key with a constant-time compare. An empty
// configured key disables the destructive endpoints entirely.
func (h *Handler) authorize(r *http.Request) bool {
	if h.adminKey == "" {
		return false
	}

	provided := r.Header.Get("X-Api-Key")
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.adminKey)) == 1
}

// buildSearch compiles search query parameters into a query builder for the
// class. Values never reach the SQL text; identifiers come from the class's
// allow-lists.
func buildSearch(class *ledger.Class, query url.Values) (*filter.Builder, error) {
	builder := class.NewBuilder()

	for _, param := range searchParams {
		values := splitValues(query[param.name])
		if len(values) == 0 {
			continue
		}

		switch param.kind {
		case paramExact:
			builder.WhereIn(param.column, values)
		case paramAddress:
			// Rows store checksummed addresses; accept any casing
			for i, v := range values {
				values[i] = common.HexToAddress(v).Hex()
			}
			builder.WhereIn(param.column, values)
		case paramRange:
			builder.WhereCmp(param.column, values)
		case paramRangeDecimal:
			builder.WhereCmpDecimal(param.column, values)
		case paramMin:
			// stamina=5 means stamina >= 5
			entries := make([]string, len(values))
			for i, v := range values {
				entries[i] = "gte:" + v
			}
			builder.WhereCmp(param.column, entries)
		case paramSet:
			builder.WhereAnyLike(param.column, values)
		case paramLike:
			builder.WhereLike(param.column, values[0])
		}
	}

	if orderBy := query.Get("order_by"); orderBy != "" {
		direction, column, found := strings.Cut(orderBy, ":")
		if !found {
			return nil, fmt.Errorf("invalid order_by: expected direction:column")
		}
		builder.OrderBy(strings.TrimSpace(column), strings.TrimSpace(direction))
	}

	page := 1
	if pageStr := query.Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid page: must be a positive integer")
		}
		page = parsed
	}

	size := filter.DefaultSize
	if sizeStr := query.Get("size"); sizeStr != "" {
		parsed, err := strconv.Atoi(sizeStr)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("invalid size: must be a positive integer")
		}
		size = parsed
	}

	builder.Paginate(page, size)

	return builder, nil
}

// splitValues flattens repeated parameters and comma-separated lists into
// one value list.
func splitValues(raw []string) []string {
	var values []string
	for _, entry := range raw {
		for _, v := range strings.Split(entry, ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

// parseTokenID parses a decimal token id of arbitrary size.
func parseTokenID(raw string) (*big.Int, error) {
	tokenID, ok := new(big.Int).SetString(raw, 10)
	if !ok || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id '%s'", raw)
	}
	return tokenID, nil
}

// cacheKey derives a cache key from the canonicalized query. url.Values
// encodes with sorted keys, so equivalent queries share an entry.
func cacheKey(kind, class string, query url.Values) string {
	if query == nil {
		return kind + ":" + class
	}
	return kind + ":" + class + "?" + query.Encode()
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode JSON first to catch any errors before writing status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		// Headers already sent, the partial response may have reached the client
		return
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
