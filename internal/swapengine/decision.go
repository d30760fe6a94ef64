package swapengine

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// TokenLookup resolves the token facts an intent needs.
type TokenLookup interface {
	Resolve(ctx context.Context, input string) (common.Address, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	ReserveToken(ctx context.Context, curveToken common.Address) (common.Address, error)
}

type DecisionEngine struct {
	risk   RiskConfig
	tokens TokenLookup
}

func NewDecisionEngine(risk RiskConfig, tokens TokenLookup) *DecisionEngine {
	return &DecisionEngine{risk: risk, tokens: tokens}
}

func (de *DecisionEngine) ValidateIntent(intent *SwapIntent) error {
	if intent == nil {
		return fmt.Errorf("%w: intent is nil", ErrInvalidArgument)
	}
	action := intent.Action
	if action == "" {
		action = ActionSmart
	}
	if !action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, intent.Action)
	}

	in, out := strings.TrimSpace(intent.InputToken), strings.TrimSpace(intent.OutputToken)
	switch action {
	case ActionBuy:
		if out == "" {
			return fmt.Errorf("%w: buy needs the curve token as output token", ErrInvalidArgument)
		}
	case ActionSell:
		if in == "" {
			return fmt.Errorf("%w: sell needs the curve token as input token", ErrInvalidArgument)
		}
	default:
		if in == "" || out == "" {
			return fmt.Errorf("%w: input/output token required", ErrInvalidArgument)
		}
	}
	if in != "" && strings.EqualFold(in, out) {
		return fmt.Errorf("%w: input and output token must differ", ErrInvalidArgument)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(intent.Amount))
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be > 0, got %q", ErrInvalidArgument, intent.Amount)
	}
	if intent.SlippageBps != nil && *intent.SlippageBps >= 10000 {
		return fmt.Errorf("%w: slippage must be below 10000 bps", ErrInvalidArgument)
	}
	if intent.Receiver != "" && !common.IsHexAddress(intent.Receiver) {
		return fmt.Errorf("%w: invalid receiver %q", ErrInvalidArgument, intent.Receiver)
	}
	return nil
}

func (de *DecisionEngine) EnrichIntent(intent *SwapIntent) {
	if intent.Action == "" {
		intent.Action = ActionSmart
	}
	if intent.RequestedAt.IsZero() {
		intent.RequestedAt = time.Now()
	}
	if intent.SlippageBps == nil {
		v := de.risk.DefaultSlippageBps
		intent.SlippageBps = &v
	}
}

// ParseIntent validates intent and resolves it into base-unit parameters.
func (de *DecisionEngine) ParseIntent(ctx context.Context, intent *SwapIntent) (*SwapParams, error) {
	if err := de.ValidateIntent(intent); err != nil {
		return nil, err
	}
	de.EnrichIntent(intent)

	params := &SwapParams{
		Action:      intent.Action,
		SlippageBps: *intent.SlippageBps,
		Path:        strings.TrimSpace(intent.Path),
		Intent:      intent,
		ParsedAt:    time.Now(),
	}
	if intent.Receiver != "" {
		params.Receiver = common.HexToAddress(intent.Receiver)
	}

	var err error
	switch intent.Action {
	case ActionBuy:
		if params.TokenOut, err = de.tokens.Resolve(ctx, intent.OutputToken); err != nil {
			return nil, err
		}
		if params.TokenIn, err = de.reserveSide(ctx, params.TokenOut, intent.InputToken); err != nil {
			return nil, err
		}
		if params.AmountIn, err = uniswap.ParseUnits(intent.Amount, constants.CurveTokenDecimals); err != nil {
			return nil, err
		}
		if params.MaxCost, err = de.optionalAmount(ctx, intent.MaxCost, params.TokenIn); err != nil {
			return nil, err
		}
		return params, nil

	case ActionSell:
		if params.TokenIn, err = de.tokens.Resolve(ctx, intent.InputToken); err != nil {
			return nil, err
		}
		if params.TokenOut, err = de.reserveSide(ctx, params.TokenIn, intent.OutputToken); err != nil {
			return nil, err
		}
		if params.AmountIn, err = uniswap.ParseUnits(intent.Amount, constants.CurveTokenDecimals); err != nil {
			return nil, err
		}
		if params.MinOut, err = de.optionalAmount(ctx, intent.MinOut, params.TokenOut); err != nil {
			return nil, err
		}
		return params, nil
	}

	if params.TokenIn, err = de.tokens.Resolve(ctx, intent.InputToken); err != nil {
		return nil, err
	}
	if params.TokenOut, err = de.tokens.Resolve(ctx, intent.OutputToken); err != nil {
		return nil, err
	}
	if params.TokenIn == params.TokenOut {
		return nil, fmt.Errorf("%w: input and output resolve to the same token", ErrInvalidArgument)
	}
	decimals, err := de.tokens.Decimals(ctx, params.TokenIn)
	if err != nil {
		return nil, fmt.Errorf("read %s decimals: %w", intent.InputToken, err)
	}
	if params.AmountIn, err = uniswap.ParseUnits(intent.Amount, decimals); err != nil {
		return nil, err
	}
	if params.MinOut, err = de.optionalAmount(ctx, intent.MinOut, params.TokenOut); err != nil {
		return nil, err
	}
	return params, nil
}

// reserveSide returns curve's reserve token, checking it against the
// caller's token when one was named.
func (de *DecisionEngine) reserveSide(ctx context.Context, curve common.Address, named string) (common.Address, error) {
	reserve, err := de.tokens.ReserveToken(ctx, curve)
	if err != nil {
		return common.Address{}, err
	}
	if strings.TrimSpace(named) == "" {
		return reserve, nil
	}
	addr, err := de.tokens.Resolve(ctx, named)
	if err != nil {
		return common.Address{}, err
	}
	if addr != reserve {
		return common.Address{}, fmt.Errorf("%w: %s is not the reserve token %s, use a zap", ErrInvalidArgument, named, reserve.Hex())
	}
	return reserve, nil
}

func (de *DecisionEngine) optionalAmount(ctx context.Context, text string, token common.Address) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(text)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("%w: invalid bound %q", ErrInvalidArgument, text)
	}
	if d.IsZero() {
		return new(big.Int), nil
	}
	decimals, err := de.tokens.Decimals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("read %s decimals: %w", token.Hex(), err)
	}
	return uniswap.ParseUnits(text, decimals)
}
