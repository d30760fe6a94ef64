package swapengine

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/cache"
	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/rpc"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
	"github.com/aman-zulfiqar/mintclub-router/internal/wallet"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewEngineFromEnv builds the full engine from configuration: RPC transport,
// chain reader, optional wallet, V4 pool allow-list, and the optional Redis
// and ClickHouse sinks.
func NewEngineFromEnv(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Engine, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	network, err := cfg.NetworkConfig()
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	// 1. RPC transport
	rpcClient, err := rpc.NewClient(ctx, rpc.ClientConfig{
		URLs:         network.RPCURLs,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RateLimit,
		RateBurst:    cfg.RateBurst,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	closers = append(closers, closerFunc(func() error { rpcClient.Close(); return nil }))

	// 2. Chain reader
	reader, err := chain.NewClient(chain.ClientConfig{
		Backend:        rpcClient,
		Decoder:        chain.NewRevertDecoder(mintclub.ErrorABIs()...),
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	// 3. Wallet
	var writer chain.Writer
	if cfg.HasWallet() {
		w, err := wallet.NewWallet(ctx, wallet.WalletConfig{
			Backend:    rpcClient,
			PrivateKey: cfg.PrivateKey,
			ChainID:    network.ChainID,
			Logger:     logger,
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		writer = w
		logger.WithField("address", w.Address().Hex()).Info("wallet loaded")
	}

	// 4. V4 pool allow-list
	pools, err := uniswap.LoadPoolRegistry(cfg.V4PoolsPath)
	if err != nil {
		cleanup()
		return nil, err
	}

	// 5. Redis cache and token store
	var (
		swapCache storage.SwapCache
		tokens    storage.TokenStore
	)
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, rc)
		swapCache = rc

		ts, err := cache.NewTokenStore(rc.Client())
		if err != nil {
			cleanup()
			return nil, err
		}
		tokens = ts
	}

	// 6. ClickHouse
	var store storage.SwapStore
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, ch)
		store = ch
	}

	e, err := NewEngine(EngineDeps{
		Network:          network,
		Reader:           reader,
		Writer:           writer,
		Pools:            pools,
		Cache:            swapCache,
		Store:            store,
		Tokens:           tokens,
		Risk:             RiskConfigFromEnv(cfg),
		QuoteConcurrency: cfg.QuoteConcurrency,
		QuoteTimeout:     cfg.QuoteTimeout,
		Logger:           logger,
		Closers:          closers,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"network":    network.Name,
		"endpoints":  len(network.RPCURLs),
		"v4_pools":   pools.PoolCount(),
		"wallet":     writer != nil,
		"redis":      swapCache != nil,
		"clickhouse": store != nil,
	}).Info("engine ready")
	return e, nil
}
