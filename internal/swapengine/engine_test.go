package swapengine

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
)

type testEngine struct {
	*Engine
	chain  *fakeChain
	tokens *memTokens
}

func newTestEngine(t *testing.T, risk RiskConfig, withWallet bool) *testEngine {
	t.Helper()
	f := newFakeChain()
	f.bonds[curveT] = &bondState{reserve: hunt, symbol: "SIGMA", price: ether(2)}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tokens := &memTokens{}
	deps := EngineDeps{
		Network: testNetwork,
		Reader:  f,
		Tokens:  tokens,
		Risk:    risk,
		Now:     fixedNow,
		Logger:  logger,
	}
	if withWallet {
		deps.Writer = f
	}
	e, err := NewEngine(deps)
	require.NoError(t, err)
	return &testEngine{Engine: e, chain: f, tokens: tokens}
}

func permissiveRisk() RiskConfig {
	r := DefaultRiskConfig()
	r.RequireMinOutForManualPath = false
	return r
}

func TestBuy_MintsAtQuotedCost(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	cost := [2]*big.Int{ether(50), milli(500)}
	te.chain.bonds[curveT].fixedCost = &cost

	res, err := te.Buy(context.Background(), curveT, ether(10), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"approve", "mint"}, te.chain.sentMethods())

	approve := te.chain.sent[0]
	assert.Equal(t, hunt, approve.To)
	wantApprove, err := mintclub.ApproveData(testNetwork.Bond, mintclub.MaxUint256)
	require.NoError(t, err)
	assert.Equal(t, wantApprove, approve.Data)

	mint := te.chain.sent[1]
	assert.Equal(t, testNetwork.Bond, mint.To)
	wantMint, err := mintclub.MintData(curveT, ether(10), milli(50500), account)
	require.NoError(t, err)
	assert.Equal(t, wantMint, mint.Data)

	assert.Equal(t, models.KindBuy, res.Kind)
	assert.NotNil(t, res.ApprovalTx)
	assert.Equal(t, ether(10), res.Simulated)
	assert.Equal(t, uint64(30_000_000), res.BlockNumber)
	assert.Equal(t, 1, te.risk.DailyUsage())

	saved, err := te.tokens.Get(context.Background(), curveT.Hex())
	require.NoError(t, err)
	assert.Equal(t, "SIGMA", saved.Symbol)
}

func TestBuy_RejectsWhenMaxCostTooLow(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	cost := [2]*big.Int{ether(50), milli(500)}
	te.chain.bonds[curveT].fixedCost = &cost

	_, err := te.Buy(context.Background(), curveT, ether(10), ether(50))
	assert.ErrorIs(t, err, ErrMaxCostExceeded)
	assert.Empty(t, te.chain.sent)
}

func TestBuy_NotACurveToken(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)

	_, err := te.Buy(context.Background(), usdc, ether(1), nil)
	assert.ErrorIs(t, err, ErrNotCurveToken)
	assert.Empty(t, te.chain.sent)
}

func TestZapBuy_WithNativeInput(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))

	res, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	require.NoError(t, err)

	// no approval for native input
	require.Equal(t, []string{"zapMint"}, te.chain.sentMethods())
	sent := te.chain.sent[0]
	assert.Equal(t, testNetwork.ZapV2, sent.To)
	assert.Equal(t, ether(1), sent.Value)

	args := unpackZapMint(sent.Data)
	assert.Equal(t, curveT, args[0])
	assert.Equal(t, native, args[1])
	assert.Equal(t, ether(1), args[2])

	// 1000 reserve at 2 per token is 500 tokens, less 1% slippage
	minTokens := args[3].(*big.Int)
	assert.True(t, minTokens.Cmp(ether(495)) <= 0, "min tokens %s", minTokens)
	assert.True(t, minTokens.Cmp(ether(494)) > 0, "min tokens %s", minTokens)

	assert.Equal(t, []byte{constants.CommandWrapETH, constants.CommandV3SwapExactIn}, args[4])

	assert.Equal(t, models.KindZapBuy, res.Kind)
	assert.Nil(t, res.ApprovalTx)
	assert.Equal(t, int64(42), res.Simulated.Int64())

	ok, err := te.tokens.Has(context.Background(), curveT.Hex())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestZapBuy_RejectsReserveInput(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)

	_, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionZapBuy, TokenIn: hunt, TokenOut: curveT, AmountIn: ether(1),
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestZapBuy_NoRoute(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)

	_, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	assert.ErrorIs(t, err, ErrNoRouteFound)
	assert.Empty(t, te.chain.sent)
}

func TestSmartSwap_ReserveInputSizesDirectMint(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.bonds[curveT].mintRoyaltyBps = 100

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: hunt, TokenOut: curveT, AmountIn: ether(100), SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindBuy, plan.Kind)
	require.NotNil(t, plan.MintCost)
	assert.True(t, plan.MintCost.TotalCost.Cmp(ether(100)) <= 0)

	// 100 / (2 * 1.01) is about 49.50 tokens
	assert.True(t, plan.MinOut.Cmp(milli(49_500)) > 0, "amount %s", plan.MinOut)
	assert.True(t, plan.MinOut.Cmp(milli(49_505)) < 0, "amount %s", plan.MinOut)
}

func TestSmartSwap_NativeInputZaps(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(10))

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: native, TokenOut: curveT, AmountIn: milli(10), SlippageBps: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindZapBuy, plan.Kind)
	assert.Equal(t, "SIGMA", plan.CurveSymbol)
}

func TestSmartSwap_CurveToReserveBurns(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: curveT, TokenOut: hunt, AmountIn: ether(10),
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindSell, plan.Kind)
	assert.Equal(t, ether(20), plan.ExpectedOut)
}

func TestSmartSwap_CurveToNativeZapsOut(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.bonds[curveT].burnRoyaltyBps = 500
	te.chain.setQuote([]common.Address{hunt, weth}, []uint32{3000}, milli(10))

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: curveT, TokenOut: native, AmountIn: ether(10), SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindZapSell, plan.Kind)
	assert.Equal(t, []byte{constants.CommandV3SwapExactIn, constants.CommandUnwrapWETH}, plan.Commands)

	// 20 refunded less 5% royalty goes into the swap
	assert.Equal(t, ether(19), stepUint(plan.Inputs[0], 1))
	assert.Equal(t, big.NewInt(9_900_000_000_000_000), plan.MinOut)
}

// wethCurve is a curve whose reserve is the wrapped native token.
var wethCurve = common.HexToAddress("0x2222222222222222222222222222222222222222")

func TestSmartSwap_NativeIntoWrappedReserveWraps(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.bonds[wethCurve] = &bondState{reserve: weth, symbol: "WCURVE", price: ether(2)}

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: native, TokenOut: wethCurve, AmountIn: ether(1), SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindZapBuy, plan.Kind)
	assert.Equal(t, testNetwork.ZapV2, plan.Target)
	assert.Equal(t, ether(1), plan.Value)
	assert.Nil(t, plan.Approval)
	assert.Equal(t, []byte{constants.CommandWrapETH}, plan.Commands)

	// wrapped straight to the zap, no pool involved
	assert.Equal(t, testNetwork.ZapV2, stepAddress(plan.Inputs[0], 0))
	assert.Equal(t, ether(1), stepUint(plan.Inputs[0], 1))

	args := unpackZapMint(plan.Data)
	assert.Equal(t, wethCurve, args[0])
	assert.Equal(t, native, args[1])
	assert.Equal(t, ether(1), args[2])

	// 1 WETH at 2 per token is half a token, less 1% slippage
	minTokens := args[3].(*big.Int)
	assert.True(t, minTokens.Sign() > 0, "min tokens %s", minTokens)
	assert.True(t, minTokens.Cmp(milli(495)) <= 0, "min tokens %s", minTokens)
}

func TestSmartSwap_WrappedReserveToNativeUnwraps(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.bonds[wethCurve] = &bondState{reserve: weth, symbol: "WCURVE", price: ether(2), burnRoyaltyBps: 500}

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: wethCurve, TokenOut: native, AmountIn: ether(10), SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindZapSell, plan.Kind)
	assert.Zero(t, plan.Value.Sign())
	assert.Equal(t, []byte{constants.CommandUnwrapWETH}, plan.Commands)

	// 20 refunded less 5% royalty, unwrapped with a 1% floor
	assert.Equal(t, ether(19), plan.ExpectedOut)
	assert.Equal(t, milli(18_810), plan.MinOut)
	assert.Equal(t, account, stepAddress(plan.Inputs[0], 0))
	assert.Equal(t, milli(18_810), stepUint(plan.Inputs[0], 1))

	args := unpackZapBurn(plan.Data)
	assert.Equal(t, wethCurve, args[0])
	assert.Equal(t, native, args[2])
	assert.Equal(t, milli(18_810), args[3])

	// the wrapped token itself still burns on the Bond
	plan, err = te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: wethCurve, TokenOut: weth, AmountIn: ether(10),
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindSell, plan.Kind)
}

func TestSmartSwap_PlainTokensSwap(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{hunt, usdc}, []uint32{500}, big.NewInt(5_000_000))

	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionSmart, TokenIn: hunt, TokenOut: usdc, AmountIn: ether(10), SlippageBps: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindSwap, plan.Kind)
	assert.Equal(t, big.NewInt(4_950_000), plan.MinOut)
	require.NotNil(t, plan.Approval)
	assert.Equal(t, testNetwork.UniversalRouter, plan.Approval.Spender)
}

func TestSwap_ManualPath(t *testing.T) {
	path := hunt.Hex() + ",500," + usdc.Hex()
	params := func(minOut *big.Int) *SwapParams {
		return &SwapParams{
			Action: ActionSwap, TokenIn: hunt, TokenOut: usdc, AmountIn: ether(10),
			MinOut: minOut, Path: path, SlippageBps: 100,
		}
	}

	t.Run("requires explicit minimum", func(t *testing.T) {
		te := newTestEngine(t, DefaultRiskConfig(), true)
		_, err := te.Plan(context.Background(), params(nil))
		assert.ErrorIs(t, err, ErrInvalidArgument)

		plan, err := te.Plan(context.Background(), params(big.NewInt(123)))
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(123), plan.MinOut)
	})

	t.Run("quotes when allowed", func(t *testing.T) {
		te := newTestEngine(t, permissiveRisk(), true)
		te.chain.setQuote([]common.Address{hunt, usdc}, []uint32{500}, big.NewInt(1_000_000))

		plan, err := te.Plan(context.Background(), params(nil))
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(990_000), plan.MinOut)
		assert.Equal(t, "Manual V3 path", plan.Description)
	})

	t.Run("unquotable runs without bound", func(t *testing.T) {
		te := newTestEngine(t, permissiveRisk(), true)
		plan, err := te.Plan(context.Background(), params(nil))
		require.NoError(t, err)
		assert.Zero(t, plan.MinOut.Sign())
	})

	t.Run("endpoint mismatch", func(t *testing.T) {
		te := newTestEngine(t, permissiveRisk(), true)
		p := params(big.NewInt(1))
		p.TokenOut = weth
		_, err := te.Plan(context.Background(), p)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestExecute_SimulationRevertSendsNothing(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))
	te.chain.reverts["zapMint"] = errors.New("execution reverted: MCV2_Bond__SlippageLimitExceeded")

	_, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSimulationReverted)

	var simErr *SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, testNetwork.ZapV2, simErr.Target)
	assert.Equal(t, "MCV2_Bond__SlippageLimitExceeded", simErr.Reason.Message)

	assert.Empty(t, te.chain.sent)
	assert.Zero(t, te.risk.DailyUsage())
}

func TestExecute_FailedReceipt(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))
	te.chain.status = types.ReceiptStatusFailed

	res, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	assert.ErrorIs(t, err, ErrTransactionFailed)

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, res.TxHash, txErr.TxHash)

	assert.Zero(t, te.risk.DailyUsage())
	ok, _ := te.tokens.Has(context.Background(), curveT.Hex())
	assert.False(t, ok)
}

func TestExecute_DailyLimit(t *testing.T) {
	risk := DefaultRiskConfig()
	risk.DailyTxLimit = 1
	te := newTestEngine(t, risk, true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))

	_, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	require.NoError(t, err)

	_, err = te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	assert.ErrorIs(t, err, ErrRiskRejected)
	assert.Len(t, te.chain.sent, 1)

	status := te.GetRiskStatus()
	assert.Equal(t, 1, status.DailyTxUsed)
	assert.Zero(t, status.DailyTxRemaining)
}

func TestExecute_AllowList(t *testing.T) {
	risk := DefaultRiskConfig()
	risk.AllowedTokens = []string{"eth", "sigma"}
	te := newTestEngine(t, risk, true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))

	_, err := te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	require.NoError(t, err)

	te.chain.bonds[curveT].symbol = "OTHER"
	_, err = te.ZapBuy(context.Background(), curveT, native, ether(1), nil, "")
	assert.ErrorIs(t, err, ErrRiskRejected)
}

func TestExecute_WithoutWallet(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), false)
	cost := [2]*big.Int{ether(50), milli(500)}
	te.chain.bonds[curveT].fixedCost = &cost

	_, err := te.Buy(context.Background(), curveT, ether(10), nil)
	assert.ErrorIs(t, err, ErrNoWallet)

	_, err = te.Plan(context.Background(), &SwapParams{Action: ActionBuy, TokenOut: curveT, AmountIn: ether(10)})
	assert.ErrorIs(t, err, ErrNoWallet)

	receiver := common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	plan, err := te.Plan(context.Background(), &SwapParams{
		Action: ActionBuy, TokenOut: curveT, AmountIn: ether(10), Receiver: receiver,
	})
	require.NoError(t, err)
	want, err := mintclub.MintData(curveT, ether(10), milli(50500), receiver)
	require.NoError(t, err)
	assert.Equal(t, want, plan.Data)

	_, err = te.GetWalletInfo(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestPlanIntent(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)
	te.chain.setQuote([]common.Address{weth, hunt}, []uint32{3000}, ether(1000))

	plan, err := te.PlanIntent(context.Background(), &SwapIntent{
		Action:      ActionZapBuy,
		InputToken:  "ETH",
		OutputToken: curveT.Hex(),
		Amount:      "0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindZapBuy, plan.Kind)
	assert.Equal(t, milli(500), plan.AmountIn)

	_, err = te.PlanIntent(context.Background(), &SwapIntent{InputToken: "ETH", OutputToken: "ETH", Amount: "1"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetWalletInfo(t *testing.T) {
	te := newTestEngine(t, DefaultRiskConfig(), true)

	info, err := te.GetWalletInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, account.Hex(), info.Address)
	assert.Equal(t, "3000000000000000000", info.BalanceWei)
	assert.Zero(t, te.GetPoolInfo().TotalPools)
}
