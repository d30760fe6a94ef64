package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/aman-zulfiqar/mintclub-router/internal/metrics"
)

// Client is an EVM JSON-RPC client that time-boxes every request, retries
// with exponential backoff and falls back across endpoints in order.
type Client struct {
	endpoints    []*endpoint
	timeout      time.Duration
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	URLs         []string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64 // requests per second across all endpoints, 0 = unlimited
	RateBurst    int
	Logger       *logrus.Logger
}

type endpoint struct {
	url string
	eth *ethclient.Client
}

// NewClient dials every configured endpoint. HTTP dials are lazy, so an
// unreachable endpoint only surfaces on first use.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("no rpc urls configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 250 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		timeout:      cfg.Timeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		limiter:      limiter,
		logger:       cfg.Logger,
	}

	for _, u := range cfg.URLs {
		eth, err := ethclient.DialContext(ctx, u)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to dial %s: %w", u, err)
		}
		c.endpoints = append(c.endpoints, &endpoint{url: u, eth: eth})
	}

	return c, nil
}

// Close closes all endpoint connections
func (c *Client) Close() {
	for _, ep := range c.endpoints {
		ep.eth.Close()
	}
}

// do runs fn against each endpoint in order, retrying the whole list with
// backoff. Deterministic failures (reverts, not found) return immediately.
func (c *Client) do(ctx context.Context, method string, fn func(ctx context.Context, eth *ethclient.Client) error) error {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")
			metrics.RPCRetries.Inc()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		for _, ep := range c.endpoints {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
			err := fn(reqCtx, ep.eth)
			cancel()

			if err == nil {
				metrics.RPCRequests.WithLabelValues(method, "ok").Inc()
				return nil
			}
			if isFinal(err) {
				metrics.RPCRequests.WithLabelValues(method, "final").Inc()
				return err
			}
			metrics.RPCRequests.WithLabelValues(method, "error").Inc()
			if ctx.Err() != nil {
				return ctx.Err()
			}

			lastErr = fmt.Errorf("%s: %w", ep.url, err)
			c.logger.WithFields(logrus.Fields{
				"endpoint": ep.url,
				"method":   method,
				"error":    err,
			}).Debug("rpc endpoint failed, falling back")
		}
	}

	return fmt.Errorf("%s: max retries exceeded: %w", method, lastErr)
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := c.do(ctx, "eth_chainId", func(ctx context.Context, eth *ethclient.Client) error {
		id, err := eth.ChainID(ctx)
		out = id
		return err
	})
	return out, err
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "eth_call", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.CallContract(ctx, msg, blockNumber)
		out = res
		return err
	})
	return out, err
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.do(ctx, "eth_getCode", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.CodeAt(ctx, account, blockNumber)
		out = res
		return err
	})
	return out, err
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var out *big.Int
	err := c.do(ctx, "eth_getBalance", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.BalanceAt(ctx, account, blockNumber)
		out = res
		return err
	})
	return out, err
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var out uint64
	err := c.do(ctx, "eth_getTransactionCount", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.PendingNonceAt(ctx, account)
		out = res
		return err
	})
	return out, err
}

func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	var out *big.Int
	err := c.do(ctx, "eth_maxPriorityFeePerGas", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.SuggestGasTipCap(ctx)
		out = res
		return err
	})
	return out, err
}

func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var out *types.Header
	err := c.do(ctx, "eth_getBlockByNumber", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.HeaderByNumber(ctx, number)
		out = res
		return err
	})
	return out, err
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var out uint64
	err := c.do(ctx, "eth_estimateGas", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.EstimateGas(ctx, msg)
		out = res
		return err
	})
	return out, err
}

// SendTransaction broadcasts a signed transaction. An endpoint that already
// knows the transaction counts as success.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.do(ctx, "eth_sendRawTransaction", func(ctx context.Context, eth *ethclient.Client) error {
		err := eth.SendTransaction(ctx, tx)
		if err != nil && isAlreadyKnown(err) {
			return nil
		}
		return err
	})
}

func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var out *types.Receipt
	err := c.do(ctx, "eth_getTransactionReceipt", func(ctx context.Context, eth *ethclient.Client) error {
		res, err := eth.TransactionReceipt(ctx, hash)
		out = res
		return err
	})
	return out, err
}

// Endpoints returns the configured endpoint URLs in fallback order
func (c *Client) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	for i, ep := range c.endpoints {
		out[i] = ep.url
	}
	return out
}

func isFinal(err error) bool {
	if errors.Is(err, ethereum.NotFound) {
		return true
	}
	return IsRevert(err)
}
