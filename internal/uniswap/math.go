package uniswap

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// ApplySlippage calculates minimum output with slippage tolerance
// minOut = amountOut * (10000 - slippageBps) / 10000
func ApplySlippage(amountOut *big.Int, slippageBps uint64) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return new(big.Int), nil
	}
	if slippageBps >= bpsDenominator {
		return new(big.Int), nil
	}

	amount, overflow := uint256.FromBig(amountOut)
	if overflow {
		return nil, fmt.Errorf("%w: amount exceeds uint256", ErrInvalidArgument)
	}

	factor := uint256.NewInt(bpsDenominator - slippageBps)
	product, overflow := new(uint256.Int).MulOverflow(amount, factor)
	if overflow {
		// amount/10000*factor loses at most 10000 wei of precision
		q := new(uint256.Int).Div(amount, uint256.NewInt(bpsDenominator))
		return q.Mul(q, factor).ToBig(), nil
	}
	return product.Div(product, uint256.NewInt(bpsDenominator)).ToBig(), nil
}

// SlippageFromPercent converts a percentage such as "0.5" into basis points.
func SlippageFromPercent(pct string) (uint64, error) {
	d, err := decimal.NewFromString(pct)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid slippage %q", ErrInvalidArgument, pct)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return 0, fmt.Errorf("%w: slippage must be between 0 and 100", ErrInvalidArgument)
	}
	return uint64(d.Mul(decimal.NewFromInt(100)).IntPart()), nil
}

// ParseUnits converts a human amount such as "1.5" into base units.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, amount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	units := d.Shift(int32(decimals)).Truncate(0)
	if units.IsZero() {
		return nil, fmt.Errorf("%w: %s is below the smallest unit", ErrInvalidArgument, amount)
	}
	return units.BigInt(), nil
}

// FormatUnits renders base units with the given decimals.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
