package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// Backend is the subset of the RPC transport needed to build and send
// transactions.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

type WalletConfig struct {
	Backend    Backend
	PrivateKey string // hex, with or without 0x
	ChainID    *big.Int

	// GasLimitBufferPct is added on top of the node's gas estimate.
	GasLimitBufferPct uint64
	Logger            *logrus.Logger
}

// Wallet holds a signing identity and implements chain.Writer.
type Wallet struct {
	backend   Backend
	key       *ecdsa.PrivateKey
	address   common.Address
	chainID   *big.Int
	gasBuffer uint64
	logger    *logrus.Logger

	// serializes nonce selection and broadcast
	mu sync.Mutex
}

func NewWallet(ctx context.Context, cfg WalletConfig) (*Wallet, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("wallet: backend is required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("wallet: PrivateKey is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.GasLimitBufferPct == 0 {
		cfg.GasLimitBufferPct = 20
	}

	key, err := parsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	chainID := cfg.ChainID
	if chainID == nil {
		id, err := cfg.Backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("wallet: chain id: %w", err)
		}
		chainID = id
	}

	return &Wallet{
		backend:   cfg.Backend,
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		chainID:   chainID,
		gasBuffer: cfg.GasLimitBufferPct,
		logger:    cfg.Logger,
	}, nil
}

func (w *Wallet) Address() common.Address { return w.address }
func (w *Wallet) ChainID() *big.Int       { return new(big.Int).Set(w.chainID) }

func parsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("wallet: invalid private key: %w", err)
	}
	return key, nil
}
