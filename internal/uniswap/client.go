package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
)

const quoterV2ABI = `[{"type":"function","name":"quoteExactInput","stateMutability":"nonpayable",
"inputs":[{"name":"path","type":"bytes"},{"name":"amountIn","type":"uint256"}],
"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96AfterList","type":"uint160[]"},
{"name":"initializedTicksCrossedList","type":"uint32[]"},{"name":"gasEstimate","type":"uint256"}]}]`

const v4QuoterABI = `[{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable",
"inputs":[{"name":"params","type":"tuple","components":[
{"name":"poolKey","type":"tuple","components":[
{"name":"currency0","type":"address"},{"name":"currency1","type":"address"},
{"name":"fee","type":"uint24"},{"name":"tickSpacing","type":"int24"},{"name":"hooks","type":"address"}]},
{"name":"zeroForOne","type":"bool"},{"name":"exactAmount","type":"uint128"},{"name":"hookData","type":"bytes"}]}],
"outputs":[{"name":"amountOut","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]}]`

var (
	QuoterV2ABI = mustABI(quoterV2ABI)
	V4QuoterABI = mustABI(v4QuoterABI)

	// Older V4 quoter deployments return the signed delta pair instead.
	v4DeltaOutputs = args("int128[]", "uint160", "uint32")
)

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

type abiPoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type abiQuoteSingleParams struct {
	PoolKey     abiPoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

type QuoterConfig struct {
	Reader   chain.Reader
	QuoterV2 common.Address
	V4Quoter common.Address // zero disables V4 quoting
	Logger   *logrus.Logger
}

// Quoter asks the on-chain quoting contracts for exact-input outputs. Every
// failure is absorbed: a candidate that cannot be quoted reports ok=false.
type Quoter struct {
	reader   chain.Reader
	quoterV2 common.Address
	v4Quoter common.Address
	logger   *logrus.Logger
}

func NewQuoter(cfg QuoterConfig) (*Quoter, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("quoter: chain reader is required")
	}
	if cfg.QuoterV2 == (common.Address{}) {
		return nil, fmt.Errorf("quoter: QuoterV2 address is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Quoter{
		reader:   cfg.Reader,
		quoterV2: cfg.QuoterV2,
		v4Quoter: cfg.V4Quoter,
		logger:   cfg.Logger,
	}, nil
}

// QuotePath quotes a packed V3 path.
func (q *Quoter) QuotePath(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, bool) {
	data, err := QuoterV2ABI.Pack("quoteExactInput", path, amountIn)
	if err != nil {
		q.debug("pack quoteExactInput", err)
		return nil, false
	}

	out, err := q.reader.Call(ctx, chain.CallMsg{To: q.quoterV2, Data: data})
	if err != nil {
		q.debug("quoteExactInput", err)
		return nil, false
	}

	values, err := QuoterV2ABI.Unpack("quoteExactInput", out)
	if err != nil || len(values) == 0 {
		q.debug("unpack quoteExactInput", err)
		return nil, false
	}
	amountOut, ok := values[0].(*big.Int)
	if !ok || amountOut.Sign() <= 0 {
		return nil, false
	}
	return amountOut, true
}

// QuotePool quotes a single V4 pool in the given direction.
func (q *Quoter) QuotePool(ctx context.Context, key PoolKey, zeroForOne bool, amountIn *big.Int) (*big.Int, bool) {
	if q.v4Quoter == (common.Address{}) {
		return nil, false
	}
	if amountIn == nil || amountIn.Sign() <= 0 || amountIn.Cmp(maxUint128) > 0 {
		return nil, false
	}

	params := abiQuoteSingleParams{
		PoolKey: abiPoolKey{
			Currency0:   key.Currency0,
			Currency1:   key.Currency1,
			Fee:         new(big.Int).SetUint64(uint64(key.Fee)),
			TickSpacing: big.NewInt(int64(key.TickSpacing)),
			Hooks:       key.Hooks,
		},
		ZeroForOne:  zeroForOne,
		ExactAmount: amountIn,
		HookData:    []byte{},
	}
	data, err := V4QuoterABI.Pack("quoteExactInputSingle", params)
	if err != nil {
		q.debug("pack quoteExactInputSingle", err)
		return nil, false
	}

	out, err := q.reader.Call(ctx, chain.CallMsg{To: q.v4Quoter, Data: data})
	if err != nil {
		q.debug("quoteExactInputSingle", err)
		return nil, false
	}

	amountOut, err := decodeV4Quote(out, zeroForOne)
	if err != nil {
		q.debug("decode quoteExactInputSingle", err)
		return nil, false
	}
	if amountOut.Sign() <= 0 {
		return nil, false
	}
	return amountOut, true
}

// decodeV4Quote reads (amountOut, gasEstimate), or the output leg of a
// (deltaAmounts, sqrtPriceAfter, ticksLoaded) result as an absolute value.
func decodeV4Quote(out []byte, zeroForOne bool) (*big.Int, error) {
	if len(out) == 64 {
		return new(big.Int).SetBytes(out[:32]), nil
	}

	values, err := v4DeltaOutputs.Unpack(out)
	if err != nil {
		return nil, err
	}
	deltas, ok := values[0].([]*big.Int)
	if !ok || len(deltas) < 2 {
		return nil, fmt.Errorf("unexpected delta result")
	}
	leg := deltas[0]
	if zeroForOne {
		leg = deltas[1]
	}
	return new(big.Int).Abs(leg), nil
}

func (q *Quoter) debug(op string, err error) {
	q.logger.WithFields(logrus.Fields{
		"op":    op,
		"error": err,
	}).Debug("quote failed")
}
