package uniswap

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
)

// ErrInvalidArgument reports malformed paths, mismatched token/fee counts and
// non-positive fees or amounts. It is raised before any external call.
var ErrInvalidArgument = errors.New("invalid argument")

// RouteVersion discriminates the liquidity model a route uses.
type RouteVersion string

const (
	RouteV3 RouteVersion = "v3" // multi-hop path through fee-tier pools
	RouteV4 RouteVersion = "v4" // singleton pool manager pool

	// RouteWrap converts between the native asset and its wrapped token
	// without touching a pool. The output equals the input.
	RouteWrap RouteVersion = "wrap"
)

var (
	NativeToken = common.HexToAddress(constants.NativeAddress)
	AddressThis = common.HexToAddress(constants.RouterAddressThis)
)

// IsNative reports whether addr is the chain's native asset sentinel.
func IsNative(addr common.Address) bool {
	return addr == NativeToken
}

// Route is the outcome of a route search or a manually supplied path.
// AmountOut is the quoted output; it is zero only for an unquoted manual path.
type Route struct {
	Version RouteVersion

	// V3
	Path   []byte
	Tokens []common.Address
	Fees   []uint32

	// V4
	Pool       *PoolKey
	ZeroForOne bool

	AmountOut   *big.Int
	Description string
	Candidates  int
}

// WrapRoute is the route from the native asset to wrappedNative, or the
// reverse when unwrap is set.
func WrapRoute(wrappedNative common.Address, amount *big.Int, unwrap bool) *Route {
	r := &Route{
		Version:     RouteWrap,
		Tokens:      []common.Address{NativeToken, wrappedNative},
		AmountOut:   new(big.Int).Set(amount),
		Description: "Wrap ETH",
	}
	if unwrap {
		r.Tokens[0], r.Tokens[1] = wrappedNative, NativeToken
		r.Description = "Unwrap WETH"
	}
	return r
}

// Quoted reports whether the route carries a positive quoted output.
func (r *Route) Quoted() bool {
	return r != nil && r.AmountOut != nil && r.AmountOut.Sign() > 0
}

// Step is one UniversalRouter command and its ABI-encoded input.
type Step struct {
	Command byte
	Input   []byte
}

// Commands concatenates the command bytes of steps in execution order.
func Commands(steps []Step) []byte {
	out := make([]byte, len(steps))
	for i, s := range steps {
		out[i] = s.Command
	}
	return out
}

// Inputs returns the encoded inputs of steps in execution order.
func Inputs(steps []Step) [][]byte {
	out := make([][]byte, len(steps))
	for i, s := range steps {
		out[i] = s.Input
	}
	return out
}
