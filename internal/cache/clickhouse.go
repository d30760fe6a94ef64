package cache

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
)

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore persists executed swaps.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

var _ storage.SwapStore = (*ClickHouseStore)(nil)

const createSwapsTable = `
	CREATE TABLE IF NOT EXISTS swaps (
		tx_hash      String,
		block_number UInt64,
		timestamp    DateTime,
		kind         LowCardinality(String),
		account      String,
		target       String,
		token_in     String,
		token_out    String,
		amount_in    UInt256,
		amount_out   UInt256,
		min_out      UInt256,
		route        String,
		gas_used     UInt64
	) ENGINE = MergeTree()
	ORDER BY (timestamp, tx_hash)
`

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Database == "" {
		cfg.Database = "mintclub"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, createSwapsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create swaps table: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO swaps (
			tx_hash, block_number, timestamp, kind, account, target,
			token_in, token_out, amount_in, amount_out, min_out, route, gas_used
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.TxHash,
		swap.BlockNumber,
		swap.Timestamp,
		swap.Kind,
		swap.Account,
		swap.Target,
		swap.TokenIn,
		swap.TokenOut,
		orZero(swap.AmountIn),
		orZero(swap.AmountOut),
		orZero(swap.MinOut),
		swap.Route,
		swap.GasUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}

// orZero parses a decimal amount for a UInt256 column.
func orZero(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
