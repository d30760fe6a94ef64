package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Backend is the subset of an Ethereum JSON-RPC client the Reader needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ClientConfig configures a Reader client.
type ClientConfig struct {
	Backend        Backend
	Decoder        *RevertDecoder
	ConfirmTimeout time.Duration
	Logger         *logrus.Logger
}

// Client implements Reader over a JSON-RPC backend.
type Client struct {
	backend        Backend
	decoder        *RevertDecoder
	confirmTimeout time.Duration
	logger         *logrus.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("chain backend is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewRevertDecoder()
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}
	return &Client{
		backend:        cfg.Backend,
		decoder:        cfg.Decoder,
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         cfg.Logger,
	}, nil
}

func (c *Client) Call(ctx context.Context, msg CallMsg) ([]byte, error) {
	to := msg.To
	return c.backend.CallContract(ctx, ethereum.CallMsg{
		From:  msg.From,
		To:    &to,
		Value: msg.Value,
		Data:  msg.Data,
	}, nil)
}

func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.backend.CodeAt(ctx, account, nil)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.backend.BalanceAt(ctx, account, nil)
}

func (c *Client) DecodeRevertReason(err error) *RevertReason {
	return c.decoder.Decode(err)
}

// WaitForReceipt polls for a mined receipt with exponential backoff until the
// confirm timeout elapses. A mined receipt is returned whatever its status.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.WithFields(logrus.Fields{
				"tx":    hash.Hex(),
				"error": err,
			}).Debug("receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return nil, fmt.Errorf("receipt for %s not found after %v", hash.Hex(), c.confirmTimeout)
}
