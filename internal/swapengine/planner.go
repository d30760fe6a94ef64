package swapengine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

type PlannerConfig struct {
	Router        common.Address
	Zap           common.Address
	Bond          common.Address
	WrappedNative common.Address

	// Now defaults to time.Now; deadlines are computed from it.
	Now func() time.Time
}

// Planner turns routes and bond quotes into executable plans. It performs no
// I/O.
type Planner struct {
	router        common.Address
	zap           common.Address
	bond          common.Address
	wrappedNative common.Address
	now           func() time.Time
}

func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if cfg.Router == (common.Address{}) || cfg.Zap == (common.Address{}) || cfg.Bond == (common.Address{}) {
		return nil, fmt.Errorf("planner: router, zap and bond addresses are required")
	}
	if cfg.WrappedNative == (common.Address{}) {
		return nil, fmt.Errorf("planner: wrapped native address is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{
		router:        cfg.Router,
		zap:           cfg.Zap,
		bond:          cfg.Bond,
		wrappedNative: cfg.WrappedNative,
		now:           cfg.Now,
	}, nil
}

func (p *Planner) RouterAddress() common.Address { return p.router }

func (p *Planner) deadline(window time.Duration) *big.Int {
	return big.NewInt(p.now().Add(window).Unix())
}

// ResolveMinOut returns explicit when given, else quoted less slippage, else 0.
func ResolveMinOut(explicit, quoted *big.Int, slippageBps uint64) (*big.Int, error) {
	if explicit != nil {
		if explicit.Sign() < 0 {
			return nil, fmt.Errorf("%w: min out must not be negative", ErrInvalidArgument)
		}
		return new(big.Int).Set(explicit), nil
	}
	if quoted != nil && quoted.Sign() > 0 {
		return uniswap.ApplySlippage(quoted, slippageBps)
	}
	return new(big.Int), nil
}

func checkAmount(name string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidArgument, name)
	}
	return nil
}

// SwapPlan builds a UniversalRouter execute call for route. tokenIn and
// tokenOut are the caller's tokens, native sentinel included.
func (p *Planner) SwapPlan(account, tokenIn, tokenOut common.Address, amountIn, minOut *big.Int, route *uniswap.Route) (*Plan, error) {
	if err := checkAmount("amountIn", amountIn); err != nil {
		return nil, err
	}
	if route == nil {
		return nil, fmt.Errorf("%w: route is required", ErrInvalidArgument)
	}
	if minOut == nil {
		minOut = new(big.Int)
	}

	nativeIn, nativeOut := uniswap.IsNative(tokenIn), uniswap.IsNative(tokenOut)
	value := new(big.Int)

	var steps []uniswap.Step
	switch route.Version {
	case uniswap.RouteV4:
		if route.Pool == nil {
			return nil, fmt.Errorf("%w: v4 route without pool", ErrInvalidArgument)
		}
		step, err := uniswap.V4SwapStep(*route.Pool, route.ZeroForOne, amountIn, minOut, account)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
		if nativeIn {
			value.Set(amountIn)
		}

	case uniswap.RouteV3:
		if nativeIn {
			wrap, err := uniswap.WrapStep(amountIn)
			if err != nil {
				return nil, err
			}
			steps = append(steps, wrap)
			value.Set(amountIn)
		}

		recipient := account
		if nativeOut {
			recipient = uniswap.AddressThis
		}
		swap, err := uniswap.V3SwapStep(recipient, amountIn, minOut, route.Path, !nativeIn)
		if err != nil {
			return nil, err
		}
		steps = append(steps, swap)

		if nativeOut {
			unwrap, err := uniswap.UnwrapStep(account, minOut)
			if err != nil {
				return nil, err
			}
			steps = append(steps, unwrap)
		}

	default:
		return nil, fmt.Errorf("%w: unknown route version %q", ErrInvalidArgument, route.Version)
	}

	commands, inputs := uniswap.Commands(steps), uniswap.Inputs(steps)
	deadline := p.deadline(constants.SwapDeadline)
	data, err := mintclub.ExecuteData(commands, inputs, deadline)
	if err != nil {
		return nil, fmt.Errorf("encode execute: %w", err)
	}

	plan := &Plan{
		Kind:        models.KindSwap,
		Target:      p.router,
		Data:        data,
		Value:       value,
		Deadline:    deadline,
		Commands:    commands,
		Inputs:      inputs,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    new(big.Int).Set(amountIn),
		MinOut:      new(big.Int).Set(minOut),
		ExpectedOut: route.AmountOut,
		Route:       route,
		Description: route.Description,
	}
	if !nativeIn && route.Version == uniswap.RouteV3 {
		plan.Approval = &Approval{Token: tokenIn, Spender: p.router, Amount: new(big.Int).Set(amountIn)}
	}
	return plan, nil
}

// zapSwapSteps builds the router steps a zap contract runs on its own
// balance. recipient receives the swap output.
func (p *Planner) zapSwapSteps(route *uniswap.Route, nativeIn bool, amountIn *big.Int, recipient common.Address) ([]uniswap.Step, error) {
	if route == nil {
		return nil, fmt.Errorf("%w: route is required", ErrInvalidArgument)
	}
	switch route.Version {
	case uniswap.RouteV4:
		if route.Pool == nil {
			return nil, fmt.Errorf("%w: v4 route without pool", ErrInvalidArgument)
		}
		step, err := uniswap.V4SwapStep(*route.Pool, route.ZeroForOne, amountIn, nil, recipient)
		if err != nil {
			return nil, err
		}
		return []uniswap.Step{step}, nil

	case uniswap.RouteV3:
		var steps []uniswap.Step
		if nativeIn {
			wrap, err := uniswap.WrapStep(amountIn)
			if err != nil {
				return nil, err
			}
			steps = append(steps, wrap)
		}
		swap, err := uniswap.V3SwapStep(recipient, amountIn, nil, route.Path, false)
		if err != nil {
			return nil, err
		}
		return append(steps, swap), nil
	}

	case uniswap.RouteWrap:
		if !nativeIn {
			return nil, fmt.Errorf("%w: wrap route needs native input", ErrInvalidArgument)
		}
		wrap, err := uniswap.WrapStepTo(recipient, amountIn)
		if err != nil {
			return nil, err
		}
		return []uniswap.Step{wrap}, nil
	}
	return nil, fmt.Errorf("%w: unknown route version %q", ErrInvalidArgument, route.Version)
}

// ZapMintPlan swaps inputToken into the curve's reserve through route and
// mints token in one zapMint call. The swap pays out to the zap contract.
func (p *Planner) ZapMintPlan(account, token, inputToken common.Address, amountIn, minTokensOut *big.Int, route *uniswap.Route, receiver common.Address) (*Plan, error) {
	if err := checkAmount("amountIn", amountIn); err != nil {
		return nil, err
	}
	if minTokensOut == nil {
		minTokensOut = new(big.Int)
	}
	if receiver == (common.Address{}) {
		receiver = account
	}

	nativeIn := uniswap.IsNative(inputToken)
	steps, err := p.zapSwapSteps(route, nativeIn, amountIn, p.zap)
	if err != nil {
		return nil, err
	}

	commands, inputs := uniswap.Commands(steps), uniswap.Inputs(steps)
	deadline := p.deadline(constants.ZapDeadline)
	data, err := mintclub.ZapMintData(token, inputToken, amountIn, minTokensOut, commands, inputs, deadline, receiver)
	if err != nil {
		return nil, fmt.Errorf("encode zapMint: %w", err)
	}

	plan := &Plan{
		Kind:        models.KindZapBuy,
		Target:      p.zap,
		Data:        data,
		Value:       new(big.Int),
		Deadline:    deadline,
		Commands:    commands,
		Inputs:      inputs,
		TokenIn:     inputToken,
		TokenOut:    token,
		AmountIn:    new(big.Int).Set(amountIn),
		MinOut:      new(big.Int).Set(minTokensOut),
		Route:       route,
		Description: "Zap mint " + route.Description,
		CurveToken:  token,
	}
	if nativeIn {
		plan.Value.Set(amountIn)
	} else {
		plan.Approval = &Approval{Token: inputToken, Spender: p.zap, Amount: new(big.Int).Set(amountIn)}
	}
	return plan, nil
}

// ZapBurnPlan burns token and swaps the net refund into outputToken in one
// zapBurn call.
func (p *Planner) ZapBurnPlan(account, token common.Address, tokensToBurn *big.Int, outputToken common.Address, refund *mintclub.BurnRefund, minOut *big.Int, route *uniswap.Route, receiver common.Address) (*Plan, error) {
	if err := checkAmount("tokensToBurn", tokensToBurn); err != nil {
		return nil, err
	}
	if refund == nil || refund.NetRefund == nil || refund.NetRefund.Sign() <= 0 {
		return nil, fmt.Errorf("%w: burn refund must be positive", ErrInvalidArgument)
	}
	if route == nil {
		return nil, fmt.Errorf("%w: route is required", ErrInvalidArgument)
	}
	if minOut == nil {
		minOut = new(big.Int)
	}
	if receiver == (common.Address{}) {
		receiver = account
	}

	nativeOut := uniswap.IsNative(outputToken)
	swapIn := refund.NetRefund

	var steps []uniswap.Step
	switch route.Version {
	case uniswap.RouteWrap:
		// the reserve is the wrapped native token, the router only unwraps it
		if !nativeOut {
			return nil, fmt.Errorf("%w: unwrap route needs native output", ErrInvalidArgument)
		}
		unwrap, err := uniswap.UnwrapStep(receiver, minOut)
		if err != nil {
			return nil, err
		}
		steps = []uniswap.Step{unwrap}

	case uniswap.RouteV4:
		s, err := p.zapSwapSteps(route, false, swapIn, receiver)
		if err != nil {
			return nil, err
		}
		steps = s

	default:
		recipient := receiver
		if nativeOut {
			recipient = uniswap.AddressThis
		}
		s, err := p.zapSwapSteps(route, false, swapIn, recipient)
		if err != nil {
			return nil, err
		}
		steps = s
		if nativeOut {
			unwrap, err := uniswap.UnwrapStep(receiver, minOut)
			if err != nil {
				return nil, err
			}
			steps = append(steps, unwrap)
		}
	}

	commands, inputs := uniswap.Commands(steps), uniswap.Inputs(steps)
	deadline := p.deadline(constants.ZapDeadline)
	data, err := mintclub.ZapBurnData(token, tokensToBurn, outputToken, minOut, commands, inputs, deadline, receiver)
	if err != nil {
		return nil, fmt.Errorf("encode zapBurn: %w", err)
	}

	return &Plan{
		Kind:        models.KindZapSell,
		Target:      p.zap,
		Data:        data,
		Value:       new(big.Int),
		Deadline:    deadline,
		Approval:    &Approval{Token: token, Spender: p.zap, Amount: new(big.Int).Set(tokensToBurn)},
		Commands:    commands,
		Inputs:      inputs,
		TokenIn:     token,
		TokenOut:    outputToken,
		AmountIn:    new(big.Int).Set(tokensToBurn),
		MinOut:      new(big.Int).Set(minOut),
		ExpectedOut: route.AmountOut,
		Route:       route,
		Description: "Zap burn " + route.Description,
		BurnRefund:  refund,
	}, nil
}

// MintPlan buys amount of token from the Bond at cost, paying with the
// reserve token. maxCost, when given, must cover the total cost.
func (p *Planner) MintPlan(token, reserve common.Address, amount *big.Int, cost *mintclub.MintCost, maxCost *big.Int, receiver common.Address) (*Plan, error) {
	if err := checkAmount("amount", amount); err != nil {
		return nil, err
	}
	if cost == nil || cost.TotalCost == nil {
		return nil, fmt.Errorf("%w: mint cost is required", ErrInvalidArgument)
	}
	if maxCost != nil && maxCost.Cmp(cost.TotalCost) < 0 {
		return nil, fmt.Errorf("%w: cost %s, max %s", ErrMaxCostExceeded, cost.TotalCost, maxCost)
	}

	data, err := mintclub.MintData(token, amount, cost.TotalCost, receiver)
	if err != nil {
		return nil, fmt.Errorf("encode mint: %w", err)
	}
	return &Plan{
		Kind:        models.KindBuy,
		Target:      p.bond,
		Data:        data,
		Value:       new(big.Int),
		Approval:    &Approval{Token: reserve, Spender: p.bond, Amount: new(big.Int).Set(cost.TotalCost)},
		TokenIn:     reserve,
		TokenOut:    token,
		AmountIn:    new(big.Int).Set(cost.TotalCost),
		MinOut:      new(big.Int).Set(amount),
		ExpectedOut: new(big.Int).Set(amount),
		Description: "Bond mint",
		CurveToken:  token,
		MintCost:    cost,
	}, nil
}

// BurnPlan sells amount of token back to the Bond for the reserve token.
func (p *Planner) BurnPlan(token, reserve common.Address, amount *big.Int, refund *mintclub.BurnRefund, minRefund *big.Int, receiver common.Address) (*Plan, error) {
	if err := checkAmount("amount", amount); err != nil {
		return nil, err
	}
	if refund == nil || refund.NetRefund == nil {
		return nil, fmt.Errorf("%w: burn refund is required", ErrInvalidArgument)
	}
	if minRefund != nil && refund.NetRefund.Cmp(minRefund) < 0 {
		return nil, fmt.Errorf("%w: refund %s, min %s", ErrMinRefundNotMet, refund.NetRefund, minRefund)
	}
	if minRefund == nil {
		minRefund = new(big.Int)
	}

	data, err := mintclub.BurnData(token, amount, minRefund, receiver)
	if err != nil {
		return nil, fmt.Errorf("encode burn: %w", err)
	}
	return &Plan{
		Kind:        models.KindSell,
		Target:      p.bond,
		Data:        data,
		Value:       new(big.Int),
		Approval:    &Approval{Token: token, Spender: p.bond, Amount: new(big.Int).Set(amount)},
		TokenIn:     token,
		TokenOut:    reserve,
		AmountIn:    new(big.Int).Set(amount),
		MinOut:      new(big.Int).Set(minRefund),
		ExpectedOut: new(big.Int).Set(refund.NetRefund),
		Description: "Bond burn",
		BurnRefund:  refund,
	}, nil
}
