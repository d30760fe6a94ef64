package mintclub

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// PriceCache stores USD prices by symbol.
type PriceCache interface {
	UpdatePrice(ctx context.Context, token string, price float64) error
	GetPrice(ctx context.Context, token string) (float64, error)
}

type PriceOracleConfig struct {
	Client        *Client
	Aggregator    common.Address
	USDC          common.Address
	WrappedNative common.Address
	Cache         PriceCache // optional
	Logger        *logrus.Logger
}

// PriceOracle reads USD spot prices from the 1inch spot price aggregator.
type PriceOracle struct {
	client        *Client
	aggregator    common.Address
	usdc          common.Address
	wrappedNative common.Address
	cache         PriceCache
	logger        *logrus.Logger
}

func NewPriceOracle(cfg PriceOracleConfig) (*PriceOracle, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("price oracle: client is required")
	}
	if cfg.Aggregator == (common.Address{}) || cfg.USDC == (common.Address{}) {
		return nil, fmt.Errorf("price oracle: aggregator and USDC addresses are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &PriceOracle{
		client:        cfg.Client,
		aggregator:    cfg.Aggregator,
		usdc:          cfg.USDC,
		wrappedNative: cfg.WrappedNative,
		cache:         cfg.Cache,
		logger:        cfg.Logger,
	}, nil
}

// USDPrice returns the price of one whole token in USD. The aggregator rate is
// USDC base units (6 decimals) per whole source token.
func (o *PriceOracle) USDPrice(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	src := token
	if uniswap.IsNative(src) {
		src = o.wrappedNative
	}
	if src == o.usdc {
		return decimal.NewFromInt(1), nil
	}

	key := strings.ToLower(src.Hex())
	if o.cache != nil {
		if p, err := o.cache.GetPrice(ctx, key); err == nil {
			return decimal.NewFromFloat(p), nil
		}
	}

	values, err := o.client.call(ctx, o.aggregator, SpotABI, "getRate", src, o.usdc, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spot price for %s: %w", src.Hex(), err)
	}
	rate := decimal.NewFromBigInt(values[0].(*big.Int), -6)

	if o.cache != nil {
		f, _ := rate.Float64()
		if err := o.cache.UpdatePrice(ctx, key, f); err != nil {
			o.logger.WithFields(logrus.Fields{
				"token": src.Hex(),
				"error": err,
			}).Warn("failed to cache price")
		}
	}
	return rate, nil
}

// TokenPricing is a curve token's reserve price with USD conversions.
type TokenPricing struct {
	ReservePrice decimal.Decimal
	TokenUSD     decimal.Decimal
	ReserveUSD   decimal.Decimal
	ReserveValue decimal.Decimal
	MarketCap    decimal.Decimal
	HasUSD       bool
}

// Pricing combines the Bond price of one token with the reserve's USD price.
// USD fields stay zero when the aggregator has no rate for the reserve.
func (o *PriceOracle) Pricing(ctx context.Context, token common.Address) (*TokenPricing, error) {
	info, err := o.client.BondInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	price, err := o.client.Price(ctx, token)
	if err != nil {
		return nil, err
	}
	supply, err := o.client.TotalSupply(ctx, token)
	if err != nil {
		return nil, err
	}

	p := &TokenPricing{
		ReservePrice: decimal.NewFromBigInt(price, -int32(info.ReserveDecimals)),
	}
	reserveUSD, err := o.USDPrice(ctx, info.ReserveToken)
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"reserve": info.ReserveToken.Hex(),
			"error":   err,
		}).Debug("no usd price for reserve")
		return p, nil
	}

	p.HasUSD = true
	p.ReserveUSD = reserveUSD
	p.TokenUSD = p.ReservePrice.Mul(reserveUSD)
	p.ReserveValue = decimal.NewFromBigInt(info.ReserveBalance, -int32(info.ReserveDecimals)).Mul(reserveUSD)
	p.MarketCap = decimal.NewFromBigInt(supply, -18).Mul(p.TokenUSD)
	return p, nil
}
