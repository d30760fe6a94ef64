package swapengine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/router"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

const (
	mintSearchIterations  = 40
	mintSearchUpperMul    = 100
	mintSearchFallbackMul = 10
)

// mintSearchFloor is the smallest mint the sizing search considers, 0.01 token.
var mintSearchFloor = new(big.Int).Div(mintclub.OneToken, big.NewInt(100))

// accounts returns who pays and who receives. Without a wallet the receiver
// doubles as the account so plans can still be built.
func (e *Engine) accounts(p *SwapParams) (common.Address, common.Address, error) {
	account := e.executor.Account()
	receiver := p.Receiver
	if account == (common.Address{}) {
		account = receiver
	}
	if receiver == (common.Address{}) {
		receiver = account
	}
	if account == (common.Address{}) {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: set a receiver to plan without a wallet", ErrNoWallet)
	}
	return account, receiver, nil
}

func (e *Engine) normalize(token common.Address) common.Address {
	if uniswap.IsNative(token) {
		return e.network.WrappedNative
	}
	return token
}

// manualRoute parses a user path and checks it runs from tokenIn to tokenOut.
// Without an explicit bound it is quoted, and rejected when the risk config
// requires a bound for manual paths.
func (e *Engine) manualRoute(ctx context.Context, text string, tokenIn, tokenOut common.Address, amountIn, explicitMin *big.Int) (*uniswap.Route, error) {
	route, err := router.ManualRoute(text)
	if err != nil {
		return nil, err
	}
	first, last := route.Tokens[0], route.Tokens[len(route.Tokens)-1]
	if first != e.normalize(tokenIn) || last != e.normalize(tokenOut) {
		return nil, fmt.Errorf("%w: path runs %s -> %s, expected %s -> %s", ErrInvalidArgument,
			first.Hex(), last.Hex(), e.normalize(tokenIn).Hex(), e.normalize(tokenOut).Hex())
	}
	if explicitMin != nil {
		return route, nil
	}
	if e.risk.config.RequireMinOutForManualPath {
		return nil, fmt.Errorf("%w: a manual path needs an explicit minimum output", ErrInvalidArgument)
	}

	if out, ok := e.quoter.QuotePath(ctx, route.Path, amountIn); ok {
		route.AmountOut = out
	} else {
		e.logger.WithFields(logrus.Fields{
			"path":      text,
			"amount_in": amountIn.String(),
		}).Warn("manual path could not be quoted, executing without a minimum output")
	}
	return route, nil
}

func (e *Engine) route(ctx context.Context, p *SwapParams, tokenIn, tokenOut common.Address, amountIn *big.Int) (*uniswap.Route, error) {
	if p.Path != "" {
		return e.manualRoute(ctx, p.Path, tokenIn, tokenOut, amountIn, p.MinOut)
	}
	return e.searcher.FindBestRoute(ctx, tokenIn, tokenOut, amountIn)
}

func (e *Engine) planSwap(ctx context.Context, p *SwapParams) (*Plan, error) {
	_, receiver, err := e.accounts(p)
	if err != nil {
		return nil, err
	}
	route, err := e.route(ctx, p, p.TokenIn, p.TokenOut, p.AmountIn)
	if err != nil {
		return nil, err
	}
	minOut, err := ResolveMinOut(p.MinOut, route.AmountOut, p.SlippageBps)
	if err != nil {
		return nil, err
	}
	return e.planner.SwapPlan(receiver, p.TokenIn, p.TokenOut, p.AmountIn, minOut, route)
}

func (e *Engine) planBuy(ctx context.Context, p *SwapParams) (*Plan, error) {
	_, receiver, err := e.accounts(p)
	if err != nil {
		return nil, err
	}
	info, err := e.mintclub.BondInfo(ctx, p.TokenOut)
	if err != nil {
		return nil, err
	}
	cost, err := e.mintclub.MintCost(ctx, p.TokenOut, p.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("mint cost: %w", err)
	}
	plan, err := e.planner.MintPlan(p.TokenOut, info.ReserveToken, p.AmountIn, cost, p.MaxCost, receiver)
	if err != nil {
		return nil, err
	}
	plan.CurveSymbol = e.curveSymbol(ctx, p.TokenOut)
	return plan, nil
}

func (e *Engine) planSell(ctx context.Context, p *SwapParams) (*Plan, error) {
	_, receiver, err := e.accounts(p)
	if err != nil {
		return nil, err
	}
	info, err := e.mintclub.BondInfo(ctx, p.TokenIn)
	if err != nil {
		return nil, err
	}
	refund, err := e.mintclub.BurnRefund(ctx, p.TokenIn, p.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("burn refund: %w", err)
	}
	return e.planner.BurnPlan(p.TokenIn, info.ReserveToken, p.AmountIn, refund, p.MinOut, receiver)
}

func (e *Engine) planZapBuy(ctx context.Context, p *SwapParams) (*Plan, error) {
	account, receiver, err := e.accounts(p)
	if err != nil {
		return nil, err
	}
	token := p.TokenOut
	info, err := e.mintclub.BondInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.TokenIn == info.ReserveToken {
		return nil, fmt.Errorf("%w: input is the reserve token %s, use buy", ErrInvalidArgument, info.ReserveSymbol)
	}

	var route *uniswap.Route
	if e.normalize(p.TokenIn) == info.ReserveToken {
		// native into a wrapped-native reserve
		route = uniswap.WrapRoute(info.ReserveToken, p.AmountIn, false)
	} else if route, err = e.route(ctx, p, p.TokenIn, info.ReserveToken, p.AmountIn); err != nil {
		return nil, err
	}

	minTokens := p.MinOut
	if minTokens == nil {
		minTokens = new(big.Int)
		if route.Quoted() {
			estimate, err := e.sizeMint(ctx, token, route.AmountOut, info.ReserveDecimals)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"token": token.Hex(),
					"error": err,
				}).Warn("could not estimate tokens out, zapping without a minimum")
			} else if minTokens, err = uniswap.ApplySlippage(estimate, p.SlippageBps); err != nil {
				return nil, err
			}
		}
	}

	plan, err := e.planner.ZapMintPlan(account, token, p.TokenIn, p.AmountIn, minTokens, route, receiver)
	if err != nil {
		return nil, err
	}
	plan.CurveSymbol = e.curveSymbol(ctx, token)
	return plan, nil
}

func (e *Engine) planZapSell(ctx context.Context, p *SwapParams) (*Plan, error) {
	account, receiver, err := e.accounts(p)
	if err != nil {
		return nil, err
	}
	token := p.TokenIn
	info, err := e.mintclub.BondInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.TokenOut == info.ReserveToken {
		return nil, fmt.Errorf("%w: output is the reserve token %s, use sell", ErrInvalidArgument, info.ReserveSymbol)
	}

	refund, err := e.mintclub.BurnRefund(ctx, token, p.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("burn refund: %w", err)
	}
	if refund.NetRefund.Sign() <= 0 {
		return nil, fmt.Errorf("%w: burning %s returns nothing", ErrInvalidArgument, p.AmountIn)
	}

	var route *uniswap.Route
	if e.normalize(p.TokenOut) == info.ReserveToken {
		route = uniswap.WrapRoute(info.ReserveToken, refund.NetRefund, true)
	} else if route, err = e.route(ctx, p, info.ReserveToken, p.TokenOut, refund.NetRefund); err != nil {
		return nil, err
	}

	minOut, err := ResolveMinOut(p.MinOut, route.AmountOut, p.SlippageBps)
	if err != nil {
		return nil, err
	}
	return e.planner.ZapBurnPlan(account, token, p.AmountIn, p.TokenOut, refund, minOut, route, receiver)
}

// planSmart dispatches on which side, if any, is a curve token. Only the
// reserve token itself goes to the Bond directly. The native asset against a
// wrapped-native reserve goes through the zap, which wraps or unwraps it.
func (e *Engine) planSmart(ctx context.Context, p *SwapParams) (*Plan, error) {
	sub := *p

	outInfo, err := e.curveInfo(ctx, p.TokenOut)
	if err != nil {
		return nil, err
	}
	if outInfo != nil {
		if p.TokenIn == outInfo.ReserveToken {
			amount, err := e.sizeMint(ctx, p.TokenOut, p.AmountIn, outInfo.ReserveDecimals)
			if err != nil {
				return nil, err
			}
			sub.Action, sub.AmountIn, sub.MaxCost = ActionBuy, amount, p.AmountIn
			return e.planBuy(ctx, &sub)
		}
		sub.Action = ActionZapBuy
		return e.planZapBuy(ctx, &sub)
	}

	inInfo, err := e.curveInfo(ctx, p.TokenIn)
	if err != nil {
		return nil, err
	}
	if inInfo != nil {
		if p.TokenOut == inInfo.ReserveToken {
			sub.Action = ActionSell
			return e.planSell(ctx, &sub)
		}
		sub.Action = ActionZapSell
		return e.planZapSell(ctx, &sub)
	}

	sub.Action = ActionSwap
	return e.planSwap(ctx, &sub)
}

// curveInfo returns the bond record, or nil for tokens the Bond does not know.
func (e *Engine) curveInfo(ctx context.Context, token common.Address) (*mintclub.BondInfo, error) {
	if uniswap.IsNative(token) {
		return nil, nil
	}
	info, err := e.mintclub.BondInfo(ctx, token)
	if errors.Is(err, mintclub.ErrNotCurveToken) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("bond lookup %s: %w", token.Hex(), err)
	}
	return info, nil
}

// sizeMint finds the largest mint whose total cost fits budget by bisection
// over getReserveForToken.
func (e *Engine) sizeMint(ctx context.Context, token common.Address, budget *big.Int, reserveDecimals uint8) (*big.Int, error) {
	scale := big.NewInt(1)
	if reserveDecimals < constants.CurveTokenDecimals {
		scale.Exp(big.NewInt(10), big.NewInt(int64(constants.CurveTokenDecimals-reserveDecimals)), nil)
	}
	scaled := new(big.Int).Mul(budget, scale)

	lo := new(big.Int).Set(mintSearchFloor)
	hi := new(big.Int).Mul(scaled, big.NewInt(mintSearchUpperMul))
	if _, err := e.mintclub.MintCost(ctx, token, hi); err != nil {
		// past max supply
		hi.Mul(scaled, big.NewInt(mintSearchFallbackMul))
	}

	var best *big.Int
	one := big.NewInt(1)
	for i := 0; i < mintSearchIterations && lo.Cmp(hi) <= 0; i++ {
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)

		cost, err := e.mintclub.MintCost(ctx, token, mid)
		if err != nil || cost.TotalCost.Cmp(budget) > 0 {
			hi.Sub(mid, one)
			continue
		}
		best = mid
		lo.Add(mid, one)
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s does not cover the minimum mint of 0.01 tokens", ErrInvalidArgument, budget)
	}

	e.logger.WithFields(logrus.Fields{
		"token":  token.Hex(),
		"budget": budget.String(),
		"amount": best.String(),
	}).Debug("sized mint amount")
	return best, nil
}

func (e *Engine) curveSymbol(ctx context.Context, token common.Address) string {
	symbol, err := e.mintclub.Symbol(ctx, token)
	if err != nil {
		return ""
	}
	return symbol
}
