package uniswap

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

func args(types ...string) abi.Arguments {
	out := make(abi.Arguments, len(types))
	for i, t := range types {
		out[i] = abi.Argument{Type: mustType(t)}
	}
	return out
}

var (
	v3SwapArgs       = args("address", "uint256", "uint256", "bytes", "bool")
	recipientAmount  = args("address", "uint256")
	v4SingleSwapArgs = args("address", "address", "uint24", "int24", "address", "bool", "uint128", "uint128", "bytes")
	v4SettleArgs     = args("address", "uint256", "bool")
	v4TakeAllArgs    = args("address", "address")
	v4InputArgs      = args("bytes", "bytes[]")

	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// EncodeV3SwapInput encodes the V3_SWAP_EXACT_IN input
// (recipient, amountIn, amountOutMin, path, payerIsUser).
func EncodeV3SwapInput(recipient common.Address, amountIn, minOut *big.Int, path []byte, payerIsUser bool) ([]byte, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountIn must be positive", ErrInvalidArgument)
	}
	if minOut == nil {
		minOut = new(big.Int)
	}
	if len(path) < PathLength(1) || (len(path)-addrLen)%(feeLen+addrLen) != 0 {
		return nil, fmt.Errorf("%w: malformed packed path of %d bytes", ErrInvalidArgument, len(path))
	}
	return v3SwapArgs.Pack(recipient, amountIn, minOut, path, payerIsUser)
}

// EncodeWrapETHInput encodes WRAP_ETH to the router itself, ahead of a swap
// that spends the wrapped balance.
func EncodeWrapETHInput(amount *big.Int) ([]byte, error) {
	return EncodeWrapETHInputTo(AddressThis, amount)
}

// EncodeWrapETHInputTo encodes WRAP_ETH (recipient, amount).
func EncodeWrapETHInputTo(recipient common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: wrap amount must be positive", ErrInvalidArgument)
	}
	return recipientAmount.Pack(recipient, amount)
}

// EncodeUnwrapWETHInput encodes UNWRAP_WETH (recipient, amountMin).
func EncodeUnwrapWETHInput(recipient common.Address, minAmount *big.Int) ([]byte, error) {
	if minAmount == nil {
		minAmount = new(big.Int)
	}
	return recipientAmount.Pack(recipient, minAmount)
}

// EncodeV4SwapExactInSingle encodes a V4_SWAP input for one pool:
// SWAP_EXACT_IN_SINGLE, SETTLE from the router balance, TAKE_ALL to recipient.
func EncodeV4SwapExactInSingle(key PoolKey, zeroForOne bool, amountIn, minOut *big.Int, recipient common.Address) ([]byte, error) {
	if amountIn == nil || amountIn.Sign() <= 0 || amountIn.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: amountIn must fit in uint128", ErrInvalidArgument)
	}
	if minOut == nil {
		minOut = new(big.Int)
	}
	if minOut.Sign() < 0 || minOut.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: minOut must fit in uint128", ErrInvalidArgument)
	}

	swap, err := v4SingleSwapArgs.Pack(
		key.Currency0,
		key.Currency1,
		new(big.Int).SetUint64(uint64(key.Fee)),
		big.NewInt(int64(key.TickSpacing)),
		key.Hooks,
		zeroForOne,
		amountIn,
		minOut,
		[]byte{},
	)
	if err != nil {
		return nil, fmt.Errorf("encode swap params: %w", err)
	}

	settleToken, takeToken := key.Currency0, key.Currency1
	if !zeroForOne {
		settleToken, takeToken = key.Currency1, key.Currency0
	}

	settle, err := v4SettleArgs.Pack(settleToken, amountIn, false)
	if err != nil {
		return nil, fmt.Errorf("encode settle params: %w", err)
	}
	take, err := v4TakeAllArgs.Pack(takeToken, recipient)
	if err != nil {
		return nil, fmt.Errorf("encode take params: %w", err)
	}

	actions := []byte{constants.ActionSwapExactInSingle, constants.ActionSettle, constants.ActionTakeAll}
	return v4InputArgs.Pack(actions, [][]byte{swap, settle, take})
}

// V3SwapStep wraps EncodeV3SwapInput as a command step.
func V3SwapStep(recipient common.Address, amountIn, minOut *big.Int, path []byte, payerIsUser bool) (Step, error) {
	input, err := EncodeV3SwapInput(recipient, amountIn, minOut, path, payerIsUser)
	if err != nil {
		return Step{}, err
	}
	return Step{Command: constants.CommandV3SwapExactIn, Input: input}, nil
}

func WrapStep(amount *big.Int) (Step, error) {
	input, err := EncodeWrapETHInput(amount)
	if err != nil {
		return Step{}, err
	}
	return Step{Command: constants.CommandWrapETH, Input: input}, nil
}

// WrapStepTo wraps amount and leaves the wrapped token with recipient.
func WrapStepTo(recipient common.Address, amount *big.Int) (Step, error) {
	input, err := EncodeWrapETHInputTo(recipient, amount)
	if err != nil {
		return Step{}, err
	}
	return Step{Command: constants.CommandWrapETH, Input: input}, nil
}

func UnwrapStep(recipient common.Address, minAmount *big.Int) (Step, error) {
	input, err := EncodeUnwrapWETHInput(recipient, minAmount)
	if err != nil {
		return Step{}, err
	}
	return Step{Command: constants.CommandUnwrapWETH, Input: input}, nil
}

func V4SwapStep(key PoolKey, zeroForOne bool, amountIn, minOut *big.Int, recipient common.Address) (Step, error) {
	input, err := EncodeV4SwapExactInSingle(key, zeroForOne, amountIn, minOut, recipient)
	if err != nil {
		return Step{}, err
	}
	return Step{Command: constants.CommandV4Swap, Input: input}, nil
}
