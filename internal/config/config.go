// Package config provides configuration management for the statement engine.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Explorers ExplorersConfig
	Fetch     FetchConfig
	Ledger    LedgerConfig
	Redis     RedisConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ExplorersConfig holds upstream explorer and RPC endpoints
type ExplorersConfig struct {
	EtherscanBaseURL string
	EtherscanAPIKey  string
	BitcoinBaseURL   string
	SolanaRPCURL     string
	TronBaseURL      string
	TronAPIKey       string
	CardanoBaseURL   string
	CardanoAPIKey    string
}

// FetchConfig holds outbound fetch configuration shared by all adapters
type FetchConfig struct {
	MaxCallsPerSecond int
	MaxRetries        int
	Timeout           time.Duration
}

// LedgerConfig holds the historical-replay data source configuration.
// When disabled the ledger endpoints return 503 and no database
// connections are opened.
type LedgerConfig struct {
	Enabled    bool
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds the optional Redis quote cache configuration.
// When disabled quotes are cached in process memory instead.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// PricingConfig holds price oracle and FX source configuration
type PricingConfig struct {
	CoinGeckoBaseURL string
	FxBaseURL        string
	CacheTTL         time.Duration
	FallbackFxRate   float64
}

// RateLimitConfig holds inbound API rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Explorers: ExplorersConfig{
			EtherscanBaseURL: getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/v2/api"),
			EtherscanAPIKey:  getEnv("ETHERSCAN_API_KEY", ""),
			BitcoinBaseURL:   getEnv("BITCOIN_BASE_URL", "https://blockchain.info"),
			SolanaRPCURL:     getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
			TronBaseURL:      getEnv("TRON_BASE_URL", "https://api.trongrid.io"),
			TronAPIKey:       getEnv("TRON_API_KEY", ""),
			CardanoBaseURL:   getEnv("CARDANO_BASE_URL", "https://cardano-mainnet.blockfrost.io/api/v0"),
			CardanoAPIKey:    getEnv("CARDANO_API_KEY", ""),
		},
		Fetch: FetchConfig{
			MaxCallsPerSecond: getEnvAsInt("FETCH_MAX_CALLS_PER_SECOND", 5),
			MaxRetries:        getEnvAsInt("FETCH_MAX_RETRIES", 3),
			Timeout:           getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second),
		},
		Ledger: LedgerConfig{
			Enabled: getEnvAsBool("LEDGER_ENABLED", false),
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "statement_engine"),
				User:           getEnv("POSTGRES_USER", "statement"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "statement_engine"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Pricing: PricingConfig{
			CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
			FxBaseURL:        getEnv("FX_BASE_URL", "https://api.exchangerate-api.com/v4"),
			CacheTTL:         getEnvAsDuration("PRICE_CACHE_TTL", 5*time.Minute),
			FallbackFxRate:   getEnvAsFloat("FX_FALLBACK_RATE", 3.67),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
