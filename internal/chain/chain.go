package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallMsg describes a contract call, simulated or submitted.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Reader performs read-only and simulated calls against current chain state.
// Simulated state-changing calls (Call with a From and Value) never broadcast.
type Reader interface {
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	// DecodeRevertReason returns nil when err is not an execution revert.
	DecodeRevertReason(err error) *RevertReason
}

// Writer signs and broadcasts transactions for a single identity.
type Writer interface {
	Address() common.Address
	Send(ctx context.Context, msg CallMsg) (common.Hash, error)
}
