package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bombverse/market-indexer/internal/chain"
	"github.com/bombverse/market-indexer/internal/common"
	loader "github.com/bombverse/market-indexer/internal/config"
	"github.com/bombverse/market-indexer/internal/cursor"
	"github.com/bombverse/market-indexer/internal/db"
	"github.com/bombverse/market-indexer/internal/ledger"
	"github.com/bombverse/market-indexer/internal/logger"
	"github.com/bombverse/market-indexer/internal/metrics"
	"github.com/bombverse/market-indexer/internal/migrations"
	"github.com/bombverse/market-indexer/internal/notify"
	"github.com/bombverse/market-indexer/internal/subscriber"
	"github.com/bombverse/market-indexer/pkg/api"
	"github.com/bombverse/market-indexer/pkg/config"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "NFT marketplace event indexer",
	Long: `Polls marketplace contracts block by block through a chain-data proxy,
reconciles order events into a local database and serves the indexed
orders over a REST API.`,
	Version: version,
	RunE:    runIndexer,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	Long:  `Print the JSON schema of the configuration file format to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{ExpandedStruct: true}
		schema := reflector.Reflect(&config.Config{})

		encoded, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}

		fmt.Println(string(encoded))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(schemaCmd)
}

// loggingConfig unwraps the optional logging section without handing the
// logger a typed nil.
func loggingConfig(cfg *config.Config) logger.LoggingConfig {
	if cfg.Logging == nil {
		return nil
	}
	return cfg.Logging
}

func runIndexer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := loader.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLoggerFromConfig("main", loggingConfig(cfg))

	// Initialize metrics server if enabled
	var metricsServer *metrics.Server
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	// Initialize database
	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	log.Info("Running database migrations...")
	if err := migrations.RunMigrationsDB(log, database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Shared infrastructure
	chainClient := chain.NewClient(cfg.Chain,
		logger.NewComponentLoggerFromConfig(common.ComponentChainClient, loggingConfig(cfg)))
	cursors := cursor.NewStore(database,
		logger.NewComponentLoggerFromConfig(common.ComponentCursorStore, loggingConfig(cfg)))
	notifier := notify.New(cfg.Notifier,
		logger.NewComponentLoggerFromConfig(common.ComponentNotifier, loggingConfig(cfg)))

	// One subscriber and ledger per configured asset class
	markets := make(map[string]api.Market, len(cfg.Subscribers))
	subscribers := make([]*subscriber.Subscriber, 0, len(cfg.Subscribers))

	for _, subCfg := range cfg.Subscribers {
		class, ok := ledger.ByName(subCfg.Class)
		if !ok {
			return fmt.Errorf("unknown asset class '%s'", subCfg.Class)
		}

		classLedger := ledger.New(database, class,
			logger.NewComponentLoggerFromConfig(common.ComponentLedger, loggingConfig(cfg)))

		subscribers = append(subscribers, subscriber.New(
			subCfg,
			cfg.Chain.PayTokens,
			chainClient,
			classLedger,
			cursors,
			notifier,
			logger.NewComponentLoggerFromConfig(subCfg.Class+"-subscriber", loggingConfig(cfg)),
		))

		markets[subCfg.Class] = api.Market{Ledger: classLedger, Contract: subCfg.Contract}
		metrics.ComponentHealthSet(subCfg.Class+"-subscriber", true)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for _, sub := range subscribers {
		group.Go(func() error {
			return sub.Run(groupCtx)
		})
	}

	// Start API server if enabled
	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, markets, cursors,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, loggingConfig(cfg)))
		group.Go(func() error {
			return apiServer.Start(groupCtx)
		})
	}

	log.Infof("Indexing %d marketplace(s)...", len(subscribers))

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("indexer failed: %w", err)
	}

	log.Info("Indexer stopped successfully")
	return nil
}
