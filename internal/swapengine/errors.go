package swapengine

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/router"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var (
	ErrInvalidArgument = uniswap.ErrInvalidArgument
	ErrNoRouteFound    = router.ErrNoRouteFound
	ErrNotCurveToken   = mintclub.ErrNotCurveToken

	ErrSimulationReverted = errors.New("simulation reverted")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrApprovalFailed     = errors.New("approval failed")
	ErrMaxCostExceeded    = errors.New("mint cost exceeds max cost")
	ErrMinRefundNotMet    = errors.New("burn refund below min refund")
	ErrRiskRejected       = errors.New("rejected by risk limits")
	ErrNoWallet           = errors.New("no wallet configured")
)

// SimulationError is a pre-broadcast revert. Nothing was sent.
type SimulationError struct {
	Kind   string
	Target common.Address
	Reason *chain.RevertReason
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s simulation reverted on %s: %s", e.Kind, e.Target.Hex(), e.Reason.String())
}

func (e *SimulationError) Unwrap() []error {
	return []error{ErrSimulationReverted, e.Err}
}

// TransactionError is a mined transaction whose receipt reports failure, or
// one that could not be confirmed after broadcast.
type TransactionError struct {
	Kind   string
	TxHash common.Hash
	Reason string
	Err    error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s transaction %s failed: %s", e.Kind, e.TxHash.Hex(), e.Reason)
}

func (e *TransactionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransactionFailed}
	}
	return []error{ErrTransactionFailed, e.Err}
}
