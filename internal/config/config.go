package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Network
	Network string
	RPCURLs []string

	// RPC transport
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64
	RateBurst    int

	// Wallet
	PrivateKey string

	// Routing and execution
	SlippageBps      uint64
	QuoteConcurrency int
	QuoteTimeout     time.Duration
	ConfirmTimeout   time.Duration
	V4PoolsPath      string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP API
	APIAddr string
	APIKey  string
	DevMode bool

	// AI
	OpenRouterAPIKey string
	AIModel          string

	// Risk limits
	Risk RiskConfig
}

type RiskConfig struct {
	MaxSlippageBps             uint64
	DailyTxLimit               int
	AllowedTokens              []string
	RequireMinOutForManualPath bool
}

func Load() *Config {
	return &Config{
		Network: strings.ToLower(getEnv("NETWORK", "base")),
		RPCURLs: getListEnv("RPC_URLS", nil),

		RPCTimeout:   getDurationEnv("RPC_TIMEOUT", 2*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 2),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 250*time.Millisecond),
		RateLimit:    getFloatEnv("RPC_RATE_LIMIT", 20),
		RateBurst:    getIntEnv("RPC_RATE_BURST", 40),

		PrivateKey: getEnv("PRIVATE_KEY", ""),

		SlippageBps:      uint64(getIntEnv("SLIPPAGE_BPS", 100)),
		QuoteConcurrency: getIntEnv("QUOTE_CONCURRENCY", 16),
		QuoteTimeout:     getDurationEnv("QUOTE_TIMEOUT", 10*time.Second),
		ConfirmTimeout:   getDurationEnv("CONFIRM_TIMEOUT", 2*time.Minute),
		V4PoolsPath:      getEnv("V4_POOLS_PATH", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "mintclub"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4o-mini"),

		Risk: RiskConfig{
			MaxSlippageBps:             uint64(getIntEnv("RISK_MAX_SLIPPAGE_BPS", 1000)),
			DailyTxLimit:               getIntEnv("RISK_DAILY_TX_LIMIT", 50),
			AllowedTokens:              getListEnv("RISK_ALLOWED_TOKENS", nil),
			RequireMinOutForManualPath: getBoolEnv("RISK_REQUIRE_MIN_OUT_FOR_MANUAL_PATH", true),
		},
	}
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	if _, err := NetworkByName(c.Network); err != nil {
		return err
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be below 10000, got %d", c.SlippageBps)
	}
	if c.Risk.MaxSlippageBps >= 10000 {
		return fmt.Errorf("RISK_MAX_SLIPPAGE_BPS must be below 10000, got %d", c.Risk.MaxSlippageBps)
	}
	if c.SlippageBps > c.Risk.MaxSlippageBps {
		return fmt.Errorf("SLIPPAGE_BPS (%d) exceeds RISK_MAX_SLIPPAGE_BPS (%d)", c.SlippageBps, c.Risk.MaxSlippageBps)
	}
	if c.QuoteConcurrency <= 0 {
		return fmt.Errorf("QUOTE_CONCURRENCY must be positive")
	}
	if c.RPCTimeout <= 0 || c.QuoteTimeout <= 0 || c.ConfirmTimeout <= 0 {
		return fmt.Errorf("RPC_TIMEOUT, QUOTE_TIMEOUT and CONFIRM_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative")
	}
	return nil
}

// Network returns the selected network with RPC_URLS applied.
func (c *Config) NetworkConfig() (*NetworkConfig, error) {
	n, err := NetworkByName(c.Network)
	if err != nil {
		return nil, err
	}
	if len(c.RPCURLs) > 0 {
		n.RPCURLs = c.RPCURLs
	}
	return n, nil
}

// HasWallet reports whether a signing key is configured.
func (c *Config) HasWallet() bool {
	return strings.TrimSpace(c.PrivateKey) != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getListEnv(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
