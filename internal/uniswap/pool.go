package uniswap

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PoolKey identifies a V4 singleton pool. Currency0 sorts below Currency1 and
// the native sentinel always sorts first.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         uint32
	TickSpacing int32
	Hooks       common.Address
}

// SortTokens returns a and b in canonical pool order.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if IsNative(a) {
		return a, b
	}
	if IsNative(b) {
		return b, a
	}
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// Matches reports whether the pool trades the unordered pair {a, b}.
func (k PoolKey) Matches(a, b common.Address) bool {
	return (k.Currency0 == a && k.Currency1 == b) || (k.Currency0 == b && k.Currency1 == a)
}

// Direction returns zeroForOne for a swap that spends input.
func (k PoolKey) Direction(input common.Address) (bool, error) {
	switch input {
	case k.Currency0:
		return true, nil
	case k.Currency1:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s is not a currency of pool %s/%s",
		ErrInvalidArgument, input.Hex(), k.Currency0.Hex(), k.Currency1.Hex())
}

func (k PoolKey) Validate() error {
	if k.Currency0 == k.Currency1 {
		return fmt.Errorf("%w: pool currencies are identical", ErrInvalidArgument)
	}
	c0, c1 := SortTokens(k.Currency0, k.Currency1)
	if c0 != k.Currency0 || c1 != k.Currency1 {
		return fmt.Errorf("%w: pool currencies are not sorted", ErrInvalidArgument)
	}
	if k.Fee > maxFee {
		return fmt.Errorf("%w: pool fee %d out of range", ErrInvalidArgument, k.Fee)
	}
	if k.TickSpacing <= 0 {
		return fmt.Errorf("%w: tick spacing must be positive", ErrInvalidArgument)
	}
	return nil
}
