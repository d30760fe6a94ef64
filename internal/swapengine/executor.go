package swapengine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/metrics"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
)

// AllowanceReader reads ERC-20 allowances.
type AllowanceReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

type ExecutorConfig struct {
	Reader     chain.Reader
	Writer     chain.Writer // nil leaves the executor able to simulate only
	Allowances AllowanceReader

	// Optional sinks, written best-effort after confirmation.
	Cache  storage.SwapCache
	Store  storage.SwapStore
	Tokens storage.TokenStore

	Risk   *RiskManager
	Logger *logrus.Logger
}

// Executor takes a plan through approval, simulation, broadcast and receipt.
type Executor struct {
	reader     chain.Reader
	writer     chain.Writer
	allowances AllowanceReader

	cache  storage.SwapCache
	store  storage.SwapStore
	tokens storage.TokenStore

	risk   *RiskManager
	logger *logrus.Logger
}

func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("executor: chain reader is required")
	}
	if cfg.Allowances == nil {
		return nil, fmt.Errorf("executor: allowance reader is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Executor{
		reader:     cfg.Reader,
		writer:     cfg.Writer,
		allowances: cfg.Allowances,
		cache:      cfg.Cache,
		store:      cfg.Store,
		tokens:     cfg.Tokens,
		risk:       cfg.Risk,
		logger:     cfg.Logger,
	}, nil
}

// Account is the signing address, or the zero address without a wallet.
func (e *Executor) Account() common.Address {
	if e.writer == nil {
		return common.Address{}
	}
	return e.writer.Address()
}

func (e *Executor) HasWallet() bool { return e.writer != nil }

// EnsureApproval grants spender an unlimited allowance on token when the
// current one is below amount. It returns the approval hash, or nil when no
// transaction was needed.
func (e *Executor) EnsureApproval(ctx context.Context, a *Approval) (*common.Hash, error) {
	if a == nil {
		return nil, nil
	}
	if e.writer == nil {
		return nil, ErrNoWallet
	}
	owner := e.writer.Address()

	current, err := e.allowances.Allowance(ctx, a.Token, owner, a.Spender)
	if err != nil {
		return nil, fmt.Errorf("read allowance: %w", err)
	}
	if current.Cmp(a.Amount) >= 0 {
		metrics.Approvals.WithLabelValues("skipped").Inc()
		return nil, nil
	}

	data, err := mintclub.ApproveData(a.Spender, mintclub.MaxUint256)
	if err != nil {
		return nil, fmt.Errorf("encode approve: %w", err)
	}
	msg := chain.CallMsg{From: owner, To: a.Token, Data: data}

	log := e.logger.WithFields(logrus.Fields{
		"token":   a.Token.Hex(),
		"spender": a.Spender.Hex(),
		"current": current.String(),
		"needed":  a.Amount.String(),
	})

	if _, err := e.simulate(ctx, models.KindApprove, msg); err != nil {
		metrics.Approvals.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}

	hash, err := e.writer.Send(ctx, msg)
	if err != nil {
		metrics.Approvals.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: send: %w", ErrApprovalFailed, err)
	}
	log.WithField("tx", hash.Hex()).Info("approval submitted")

	if _, err := e.confirm(ctx, models.KindApprove, hash); err != nil {
		metrics.Approvals.WithLabelValues("failed").Inc()
		return &hash, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}

	metrics.Approvals.WithLabelValues("submitted").Inc()
	log.WithField("tx", hash.Hex()).Info("approval confirmed")
	return &hash, nil
}

// Simulate runs plan as a call from the wallet without broadcasting.
func (e *Executor) Simulate(ctx context.Context, plan *Plan) ([]byte, error) {
	return e.simulate(ctx, plan.Kind, planMsg(e.Account(), plan))
}

func (e *Executor) simulate(ctx context.Context, kind string, msg chain.CallMsg) ([]byte, error) {
	out, err := e.reader.Call(ctx, msg)
	if err == nil {
		return out, nil
	}

	reason := e.reader.DecodeRevertReason(err)
	if reason == nil {
		// transport failure, nothing was learned about the call
		e.logger.WithFields(logrus.Fields{
			"kind":   kind,
			"target": msg.To.Hex(),
			"error":  err,
		}).Warn("simulation call failed")
		return nil, fmt.Errorf("simulate %s: %w", kind, err)
	}

	e.logger.WithFields(logrus.Fields{
		"kind":   kind,
		"target": msg.To.Hex(),
		"reason": reason.String(),
	}).Warn("simulation reverted")
	return nil, &SimulationError{Kind: kind, Target: msg.To, Reason: reason, Err: err}
}

func (e *Executor) confirm(ctx context.Context, kind string, hash common.Hash) (*types.Receipt, error) {
	receipt, err := e.reader.WaitForReceipt(ctx, hash)
	if err != nil {
		return nil, &TransactionError{Kind: kind, TxHash: hash, Reason: "not confirmed", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &TransactionError{Kind: kind, TxHash: hash, Reason: fmt.Sprintf("reverted in block %d", receipt.BlockNumber)}
	}
	return receipt, nil
}

func planMsg(from common.Address, plan *Plan) chain.CallMsg {
	value := plan.Value
	if value == nil {
		value = new(big.Int)
	}
	return chain.CallMsg{From: from, To: plan.Target, Value: value, Data: plan.Data}
}

// Execute approves if needed, simulates, broadcasts and waits for the
// receipt. A simulation revert aborts before anything is broadcast except the
// approval.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is nil", ErrInvalidArgument)
	}
	if e.writer == nil {
		return nil, ErrNoWallet
	}
	start := time.Now()

	result := &ExecutionResult{Kind: plan.Kind, Plan: plan}
	fail := func(err error) (*ExecutionResult, error) {
		metrics.Executions.WithLabelValues(plan.Kind, "failed").Inc()
		return result, err
	}

	approvalTx, err := e.EnsureApproval(ctx, plan.Approval)
	result.ApprovalTx = approvalTx
	if err != nil {
		return fail(err)
	}

	msg := planMsg(e.writer.Address(), plan)
	out, err := e.simulate(ctx, plan.Kind, msg)
	if err != nil {
		return fail(err)
	}
	result.Simulated = decodeSimulated(plan.Kind, out)

	hash, err := e.writer.Send(ctx, msg)
	if err != nil {
		return fail(fmt.Errorf("send %s: %w", plan.Kind, err))
	}
	result.TxHash = hash

	log := e.logger.WithFields(logrus.Fields{
		"kind":   plan.Kind,
		"tx":     hash.Hex(),
		"target": plan.Target.Hex(),
		"value":  msg.Value.String(),
	})
	log.Info("transaction submitted")

	receipt, err := e.confirm(ctx, plan.Kind, hash)
	if receipt != nil {
		if receipt.BlockNumber != nil {
			result.BlockNumber = receipt.BlockNumber.Uint64()
		}
		result.GasUsed = receipt.GasUsed
	}
	if err != nil {
		return fail(err)
	}

	result.Duration = time.Since(start)
	metrics.Executions.WithLabelValues(plan.Kind, "confirmed").Inc()
	metrics.ExecutionDuration.WithLabelValues(plan.Kind).Observe(result.Duration.Seconds())

	log.WithFields(logrus.Fields{
		"block":    result.BlockNumber,
		"gas_used": result.GasUsed,
		"duration": result.Duration,
	}).Info("transaction confirmed")

	e.record(ctx, plan, result)
	return result, nil
}

// decodeSimulated reads the amount a bond or zap call returned.
func decodeSimulated(kind string, out []byte) *big.Int {
	var (
		amount *big.Int
		err    error
	)
	switch kind {
	case models.KindBuy:
		amount, err = mintclub.UnpackAmount(mintclub.BondABI, "mint", out)
	case models.KindSell:
		amount, err = mintclub.UnpackAmount(mintclub.BondABI, "burn", out)
	case models.KindZapBuy:
		amount, _, err = mintclub.UnpackZapResult("zapMint", out)
	case models.KindZapSell:
		amount, _, err = mintclub.UnpackZapResult("zapBurn", out)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return amount
}

func (e *Executor) record(ctx context.Context, plan *Plan, res *ExecutionResult) {
	if e.risk != nil {
		e.risk.RecordExecution()
	}

	amountOut := plan.ExpectedOut
	if res.Simulated != nil {
		amountOut = res.Simulated
	}
	ev := &models.SwapEvent{
		TxHash:      res.TxHash.Hex(),
		BlockNumber: res.BlockNumber,
		Timestamp:   time.Now().UTC(),
		Kind:        plan.Kind,
		Account:     e.writer.Address().Hex(),
		Target:      plan.Target.Hex(),
		TokenIn:     plan.TokenIn.Hex(),
		TokenOut:    plan.TokenOut.Hex(),
		AmountIn:    bigString(plan.AmountIn),
		AmountOut:   bigString(amountOut),
		MinOut:      bigString(plan.MinOut),
		Route:       plan.Description,
		GasUsed:     res.GasUsed,
	}

	if e.cache != nil {
		if err := e.cache.AddRecentSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to cache swap")
		}
		if err := e.cache.PublishSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to publish swap")
		}
	}
	if e.store != nil {
		if err := e.store.InsertSwap(ctx, ev); err != nil {
			e.logger.WithError(err).Warn("failed to store swap")
		}
	}
	if e.tokens != nil && plan.CurveToken != (common.Address{}) {
		symbol := plan.CurveSymbol
		if symbol == "" {
			symbol = mintclub.ShortAddress(plan.CurveToken)
		}
		if err := e.tokens.Put(ctx, plan.CurveToken.Hex(), symbol); err != nil {
			e.logger.WithError(err).Warn("failed to save token")
		}
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
