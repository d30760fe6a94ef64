package mintclub

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var aggregator = common.HexToAddress("0x00000000000D6FFc74A8feb35aF5827bf57f6786")

type memPriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (c *memPriceCache) UpdatePrice(_ context.Context, token string, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prices == nil {
		c.prices = map[string]float64{}
	}
	c.prices[token] = price
	return nil
}

func (c *memPriceCache) GetPrice(_ context.Context, token string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[token]
	if !ok {
		return 0, errors.New("miss")
	}
	return p, nil
}

func withRates(s *stubReader, rates map[common.Address]int64) {
	s.on("getRate", func(to common.Address, args []interface{}) ([]interface{}, error) {
		if to != aggregator {
			return nil, errors.New("wrong aggregator")
		}
		if args[1].(common.Address) != usdc {
			return nil, errors.New("wrong destination")
		}
		r, ok := rates[args[0].(common.Address)]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return []interface{}{big.NewInt(r)}, nil
	})
}

func newTestOracle(t *testing.T, s *stubReader, cache PriceCache) *PriceOracle {
	o, err := NewPriceOracle(PriceOracleConfig{
		Client:        newTestClient(t, s),
		Aggregator:    aggregator,
		USDC:          usdc,
		WrappedNative: weth,
		Cache:         cache,
	})
	require.NoError(t, err)
	return o
}

func TestUSDPrice(t *testing.T) {
	s := newStubReader()
	withRates(s, map[common.Address]int64{weth: 3_000_500_000})
	cache := &memPriceCache{}
	o := newTestOracle(t, s, cache)
	ctx := context.Background()

	p, err := o.USDPrice(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(1)))
	assert.Zero(t, s.calls["getRate"])

	p, err = o.USDPrice(ctx, uniswap.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, "3000.5", p.String())
	assert.Equal(t, 1, s.calls["getRate"])

	// second lookup is served from the cache
	p, err = o.USDPrice(ctx, weth)
	require.NoError(t, err)
	assert.Equal(t, "3000.5", p.String())
	assert.Equal(t, 1, s.calls["getRate"])

	_, err = o.USDPrice(ctx, hunt)
	assert.Error(t, err)
}

func TestPricing(t *testing.T) {
	s := newStubReader()
	withBond(s)
	withRates(s, map[common.Address]int64{hunt: 500_000})
	s.on("getReserveForToken", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{ether(2), new(big.Int)}, nil
	})
	s.on("totalSupply", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{ether(1000)}, nil
	})
	o := newTestOracle(t, s, nil)

	p, err := o.Pricing(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, p.HasUSD)
	assert.True(t, p.ReservePrice.Equal(decimal.NewFromInt(2)))
	assert.True(t, p.TokenUSD.Equal(decimal.NewFromInt(1)))
	assert.True(t, p.ReserveValue.Equal(decimal.NewFromInt(1250)))
	assert.True(t, p.MarketCap.Equal(decimal.NewFromInt(1000)))
}

func TestPricing_WithoutUSDRate(t *testing.T) {
	s := newStubReader()
	withBond(s)
	withRates(s, nil)
	s.on("getReserveForToken", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{ether(3), new(big.Int)}, nil
	})
	s.on("totalSupply", func(common.Address, []interface{}) ([]interface{}, error) {
		return []interface{}{ether(1)}, nil
	})
	o := newTestOracle(t, s, nil)

	p, err := o.Pricing(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, p.HasUSD)
	assert.True(t, p.ReservePrice.Equal(decimal.NewFromInt(3)))
	assert.True(t, p.TokenUSD.IsZero())
}
