// Package main provides the API server entry point for the statement engine.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/statement-engine/internal/adapter"
	"github.com/statement-engine/internal/api"
	"github.com/statement-engine/internal/config"
	"github.com/statement-engine/internal/fetch"
	"github.com/statement-engine/internal/logging"
	"github.com/statement-engine/internal/pricing"
	"github.com/statement-engine/internal/service"
	"github.com/statement-engine/internal/storage"
	"github.com/statement-engine/internal/types"
	"github.com/statement-engine/internal/whitelist"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Shared outbound HTTP client: one rolling rate-limit window and
	// one retry policy across every upstream.
	client := fetch.NewClient(cfg.Fetch)
	tokens := whitelist.Builtin()

	logger.Info("Initializing chain adapters...")

	adapters := []adapter.ChainAdapter{
		adapter.NewBitcoinAdapter(cfg.Explorers.BitcoinBaseURL, client),
		adapter.NewSolanaAdapter(cfg.Explorers.SolanaRPCURL, client, tokens),
		adapter.NewTronAdapter(cfg.Explorers.TronBaseURL, cfg.Explorers.TronAPIKey, client, tokens),
		adapter.NewCardanoAdapter(cfg.Explorers.CardanoBaseURL, cfg.Explorers.CardanoAPIKey, client),
	}
	for chain := range types.EVMChainIDs {
		evm, err := adapter.NewEVMAdapter(chain, cfg.Explorers.EtherscanBaseURL, cfg.Explorers.EtherscanAPIKey, client, tokens)
		if err != nil {
			logger.WithError(err).WithField("chain", string(chain)).Warn("Skipping chain")
			continue
		}
		adapters = append(adapters, evm)
	}
	registry := adapter.NewRegistry(adapters...)
	logger.WithField("chains", len(adapters)).Info("Chain adapters initialized")

	// Quote cache: Redis when configured, in-process otherwise.
	var quoteCache pricing.QuoteCache = pricing.NewMemoryQuoteCache(cfg.Pricing.CacheTTL)
	if cfg.Redis.Enabled {
		redis, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()
		quoteCache = pricing.NewRedisQuoteCache(redis.Client(), cfg.Pricing.CacheTTL)
		logger.Info("Redis quote cache enabled")
	}

	fx := pricing.NewFxSource(cfg.Pricing.FxBaseURL, client, cfg.Pricing.CacheTTL, cfg.Pricing.FallbackFxRate)
	oracle := pricing.NewOracle(cfg.Pricing.CoinGeckoBaseURL, client, quoteCache, fx)

	// Historical ledger: optional, replay endpoints 503 without it.
	var replay *service.ReplayService
	var ledger api.LedgerProvider
	if cfg.Ledger.Enabled {
		logger.Info("Connecting to ledger databases...")

		postgres, err := storage.NewPostgresDB(&cfg.Ledger.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()

		clickhouse, err := storage.NewClickHouseDB(&cfg.Ledger.ClickHouse)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		replay = service.NewReplayService(
			storage.NewWalletRepository(postgres),
			storage.NewHistoryRepository(clickhouse),
		)
		ledger = replay
		logger.Info("Ledger connections established")
	}

	statements := service.NewStatementService(registry, oracle, fx, replay)

	server := api.NewServer(&cfg.Server, cfg.RateLimit, statements, ledger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
