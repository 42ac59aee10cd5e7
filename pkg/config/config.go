package config

import (
	"fmt"
	"time"

	"github.com/bombverse/market-indexer/internal/common"
	"github.com/bombverse/market-indexer/internal/logger"
)

// Asset classes served by the indexer.
const (
	ClassHero  = "hero"
	ClassHouse = "house"
)

// Config represents the complete configuration for the market indexer.
type Config struct {
	// Chain contains the chain-data proxy configuration
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// Subscribers contains the configuration for all market subscribers
	Subscribers []SubscriberConfig `yaml:"subscribers" json:"subscribers" toml:"subscribers"`

	// DB contains database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// API contains read API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`

	// Notifier contains sold-notification webhook configuration
	Notifier *NotifierConfig `yaml:"notifier,omitempty" json:"notifier,omitempty" toml:"notifier,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig represents the configuration for the chain-data proxy client.
type ChainConfig struct {
	// ProxyURL is the base URL of the chain-data aggregation proxy
	ProxyURL string `yaml:"proxy_url" json:"proxy_url" toml:"proxy_url"`

	// Network selects the upstream network on the proxy (e.g. "bsc")
	Network string `yaml:"network" json:"network" toml:"network"`

	// RequestTimeout is the per-request timeout against the proxy
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// LatestBlockTTL bounds the staleness of the cached latest block number
	LatestBlockTTL common.Duration `yaml:"latest_block_ttl" json:"latest_block_ttl" toml:"latest_block_ttl"`

	// Retry contains proxy retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// PayTokens maps pay token contract addresses to symbols
	PayTokens PayTokenConfig `yaml:"pay_tokens" json:"pay_tokens" toml:"pay_tokens"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.Network == "" {
		c.Network = "bsc"
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = common.NewDuration(10 * time.Second) //nolint:mnd
	}
	if c.LatestBlockTTL.Duration == 0 {
		c.LatestBlockTTL = common.NewDuration(5 * time.Second) //nolint:mnd
	}
	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
	c.PayTokens.ApplyDefaults()
}

// PayTokenConfig maps pay token contract addresses to their symbols.
type PayTokenConfig struct {
	// BcoinAddress is the BCOIN token contract address
	BcoinAddress string `yaml:"bcoin_address" json:"bcoin_address" toml:"bcoin_address"`

	// SenAddress is the SEN token contract address
	SenAddress string `yaml:"sen_address" json:"sen_address" toml:"sen_address"`

	// FallbackSymbol is used when the pay token cannot be resolved
	FallbackSymbol string `yaml:"fallback_symbol" json:"fallback_symbol" toml:"fallback_symbol"`
}

// ApplyDefaults sets default values for optional pay token configuration fields.
func (p *PayTokenConfig) ApplyDefaults() {
	if p.FallbackSymbol == "" {
		p.FallbackSymbol = "BCOIN"
	}
}

// RetryConfig represents proxy retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// SubscriberConfig represents the configuration for a single market subscriber.
type SubscriberConfig struct {
	// Class is the asset class this subscriber indexes ("hero" or "house")
	Class string `yaml:"class" json:"class" toml:"class"`

	// Contract is the marketplace contract address to monitor
	Contract string `yaml:"contract" json:"contract" toml:"contract"`

	// StartBlock is the block number to start indexing from
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// PollInterval is how long to sleep when caught up with the chain head
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// MaxRetries is the number of times a failing block is retried
	// before it is skipped permanently
	MaxRetries int `yaml:"max_retries" json:"max_retries" toml:"max_retries"`
}

// ApplyDefaults sets default values for optional subscriber configuration fields.
func (s *SubscriberConfig) ApplyDefaults() {
	if s.PollInterval.Duration == 0 {
		s.PollInterval = common.NewDuration(3 * time.Second) //nolint:mnd
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 5
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	// NORMAL provides a good balance between safety and performance
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	// EnableForeignKeys defaults to false (zero value)
}

// APIConfig configures the read API HTTP server.
type APIConfig struct {
	// Enabled controls whether the read API server runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// AdminKey protects destructive endpoints. When empty, those
	// endpoints are disabled.
	AdminKey string `yaml:"admin_key,omitempty" json:"admin_key,omitempty" toml:"admin_key,omitempty"`

	// CacheTTL is the eviction window for cached search and stats responses
	CacheTTL common.Duration `yaml:"cache_ttl" json:"cache_ttl" toml:"cache_ttl"`

	// ReadTimeout is the HTTP server read timeout
	ReadTimeout common.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the HTTP server write timeout
	WriteTimeout common.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the HTTP server idle connection timeout
	IdleTimeout common.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS configures cross-origin access for browser clients
	CORS CORSConfig `yaml:"cors,omitempty" json:"cors,omitempty" toml:"cors,omitempty"`
}

// CORSConfig configures cross-origin resource sharing for the API.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// AllowedOrigins lists origins allowed to call the API. Use "*" to
	// allow any origin.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.CacheTTL.Duration == 0 {
		a.CacheTTL = common.NewDuration(10 * time.Second) //nolint:mnd
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = common.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = common.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
	// Enabled defaults to false (zero value)
}

// Validate checks if the API configuration is valid.
func (a *APIConfig) Validate() error {
	if a.Enabled && a.ListenAddress == "" {
		return fmt.Errorf("listen_address is required when the API is enabled")
	}
	return nil
}

// NotifierConfig configures the sold-notification webhook.
type NotifierConfig struct {
	// Enabled controls whether sale notifications are sent
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// URL is the webhook endpoint notified on each sale
	URL string `yaml:"url" json:"url" toml:"url"`

	// Timeout is the per-notification HTTP timeout
	Timeout common.Duration `yaml:"timeout" json:"timeout" toml:"timeout"`
}

// ApplyDefaults sets default values for optional notifier configuration fields.
func (n *NotifierConfig) ApplyDefaults() {
	if n.Timeout.Duration == 0 {
		n.Timeout = common.NewDuration(5 * time.Second) //nolint:mnd
	}
	// Enabled defaults to false (zero value)
}

// Validate checks if the notifier configuration is valid.
func (n *NotifierConfig) Validate() error {
	if n.Enabled && n.URL == "" {
		return fmt.Errorf("url is required when the notifier is enabled")
	}
	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - hero-subscriber: Hero marketplace event ingestion
	//   - house-subscriber: House marketplace event ingestion
	//   - cursor-store: Per-contract block cursor tracking
	//   - ledger: Asset order storage
	//   - chain-client: Chain-data proxy client
	//   - notifier: Sold-notification webhook
	//   - api: Read API server
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	// Development defaults to false (zero value)
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	// Validate default level
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		// Check if component is valid
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		// Check if level is valid
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return level
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
	// Enabled defaults to false (zero value)
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()

	for i := range c.Subscribers {
		c.Subscribers[i].ApplyDefaults()
	}

	c.DB.ApplyDefaults()

	if c.API != nil {
		c.API.ApplyDefaults()
	}

	if c.Notifier != nil {
		c.Notifier.ApplyDefaults()
	}

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Chain.ProxyURL == "" {
		return fmt.Errorf("chain.proxy_url is required")
	}

	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	if c.DB.JournalMode != "" && c.DB.JournalMode != "WAL" &&
		c.DB.JournalMode != "DELETE" && c.DB.JournalMode != "TRUNCATE" &&
		c.DB.JournalMode != "PERSIST" && c.DB.JournalMode != "MEMORY" {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if c.DB.Synchronous != "" && c.DB.Synchronous != "FULL" &&
		c.DB.Synchronous != "NORMAL" && c.DB.Synchronous != "OFF" {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	if len(c.Subscribers) == 0 {
		return fmt.Errorf("at least one subscriber must be configured")
	}

	classes := make(map[string]bool)
	for i, sub := range c.Subscribers {
		if sub.Class != ClassHero && sub.Class != ClassHouse {
			return fmt.Errorf("subscriber[%d]: class must be one of: '%s', '%s'", i, ClassHero, ClassHouse)
		}

		if classes[sub.Class] {
			return fmt.Errorf("subscriber[%d]: duplicate class '%s'", i, sub.Class)
		}
		classes[sub.Class] = true

		if sub.Contract == "" {
			return fmt.Errorf("subscriber[%d] (%s): contract is required", i, sub.Class)
		}

		if sub.MaxRetries < 0 {
			return fmt.Errorf("subscriber[%d] (%s): max_retries must not be negative", i, sub.Class)
		}
	}

	if c.API != nil {
		if err := c.API.Validate(); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	if c.Notifier != nil {
		if err := c.Notifier.Validate(); err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
