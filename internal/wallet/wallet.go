package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// BuildTransaction prepares an unsigned EIP-1559 transaction for msg, filling
// nonce, fees and a buffered gas limit.
func (w *Wallet) BuildTransaction(ctx context.Context, msg chain.CallMsg) (*types.Transaction, error) {
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}
	to := msg.To

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip: %w", err)
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = new(big.Int)
	}
	// feeCap = 2*baseFee + tip
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas += gas * w.gasBuffer / 100

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      msg.Data,
	}), nil
}

// SignTx signs a transaction with the wallet's private key
func (w *Wallet) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Send builds, signs and broadcasts msg, returning the transaction hash.
func (w *Wallet) Send(ctx context.Context, msg chain.CallMsg) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.BuildTransaction(ctx, msg)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := w.SignTx(tx)
	if err != nil {
		return common.Hash{}, err
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"tx":    signed.Hash().Hex(),
		"to":    msg.To.Hex(),
		"nonce": signed.Nonce(),
		"gas":   signed.Gas(),
		"value": signed.Value().String(),
	}).Info("transaction submitted")

	return signed.Hash(), nil
}
