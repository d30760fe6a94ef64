package models

import "time"

// Operation kinds recorded on SwapEvent.Kind.
const (
	KindSwap    = "swap"
	KindBuy     = "buy"
	KindSell    = "sell"
	KindZapBuy  = "zap_buy"
	KindZapSell = "zap_sell"
	KindApprove = "approve"
)

// SwapEvent is a confirmed operation executed by this client. Amounts are
// base-unit integers in decimal form.
type SwapEvent struct {
	TxHash      string    `json:"tx_hash"`
	BlockNumber uint64    `json:"block_number"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	Target      string    `json:"target"`
	TokenIn     string    `json:"token_in"`
	TokenOut    string    `json:"token_out"`
	AmountIn    string    `json:"amount_in"`
	AmountOut   string    `json:"amount_out"` // quoted or simulated, not realized
	MinOut      string    `json:"min_out"`
	Route       string    `json:"route"`
	GasUsed     uint64    `json:"gas_used"`
}
