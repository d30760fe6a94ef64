package swapengine

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// Action selects which operation an intent asks for.
type Action string

const (
	ActionSwap    Action = "swap"     // plain UniversalRouter swap
	ActionSmart   Action = "smart"    // pick swap, buy, sell or zap by token type
	ActionBuy     Action = "buy"      // mint with the reserve token
	ActionSell    Action = "sell"     // burn for the reserve token
	ActionZapBuy  Action = "zap_buy"  // swap into the reserve, then mint
	ActionZapSell Action = "zap_sell" // burn, then swap the refund out
)

func (a Action) Valid() bool {
	switch a {
	case ActionSwap, ActionSmart, ActionBuy, ActionSell, ActionZapBuy, ActionZapSell:
		return true
	}
	return false
}

// SwapIntent is a request in human terms: symbols or addresses and decimal
// amounts. It comes from the CLI, the HTTP API or the AI agent.
type SwapIntent struct {
	Action      Action `json:"action"`
	InputToken  string `json:"input_token"`
	OutputToken string `json:"output_token"`

	// Amount is in input token units, except for buy where it is the number
	// of curve tokens to mint.
	Amount string `json:"amount"`

	// Optional parameters
	SlippageBps *uint64 `json:"slippage_bps,omitempty"`
	MinOut      string  `json:"min_out,omitempty"`  // output token units
	MaxCost     string  `json:"max_cost,omitempty"` // buy only, reserve token units
	Path        string  `json:"path,omitempty"`     // manual V3 path
	Receiver    string  `json:"receiver,omitempty"`

	// Context
	Reason      string    `json:"reason,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// SwapParams is a validated intent with resolved addresses and base-unit
// amounts. Nil bounds mean "not given".
type SwapParams struct {
	Action   Action
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int

	MinOut      *big.Int
	MaxCost     *big.Int
	SlippageBps uint64
	Path        string
	Receiver    common.Address

	Intent   *SwapIntent
	ParsedAt time.Time
}

// Approval is an ERC-20 allowance a plan needs before it can execute.
type Approval struct {
	Token   common.Address `json:"token"`
	Spender common.Address `json:"spender"`
	Amount  *big.Int       `json:"amount"`
}

// Plan is a fully built call: target, calldata, attached value and the
// approval it depends on. Commands and Inputs are set for router and zap plans.
type Plan struct {
	Kind     string         `json:"kind"`
	Target   common.Address `json:"target"`
	Data     []byte         `json:"data"`
	Value    *big.Int       `json:"value"`
	Deadline *big.Int       `json:"deadline,omitempty"`
	Approval *Approval      `json:"approval,omitempty"`

	Commands []byte   `json:"commands,omitempty"`
	Inputs   [][]byte `json:"inputs,omitempty"`

	TokenIn     common.Address `json:"token_in"`
	TokenOut    common.Address `json:"token_out"`
	AmountIn    *big.Int       `json:"amount_in"`
	MinOut      *big.Int       `json:"min_out"`
	ExpectedOut *big.Int       `json:"expected_out,omitempty"`
	Route       *uniswap.Route `json:"-"`
	Description string         `json:"description"`

	// CurveToken is remembered in the token store after success.
	CurveToken  common.Address `json:"curve_token,omitempty"`
	CurveSymbol string         `json:"curve_symbol,omitempty"`

	// Quotes backing a bond plan, for display.
	MintCost   *mintclub.MintCost   `json:"-"`
	BurnRefund *mintclub.BurnRefund `json:"-"`
}

// ExecutionResult is the outcome of a confirmed plan.
type ExecutionResult struct {
	Kind        string      `json:"kind"`
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`

	// ApprovalTx is set when an approval was sent first.
	ApprovalTx *common.Hash `json:"approval_tx,omitempty"`

	// Simulated is the return value of the simulated call, when it decodes
	// to an amount.
	Simulated *big.Int `json:"simulated_out,omitempty"`

	Plan     *Plan         `json:"plan"`
	Duration time.Duration `json:"duration"`
}

// RiskCheckResult is the risk manager's verdict on a plan.
type RiskCheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	SlippageBps    uint64 `json:"slippage_bps"`
	MaxSlippageBps uint64 `json:"max_slippage_bps"`

	DailyTxCount int `json:"daily_tx_count"`
	DailyTxLimit int `json:"daily_tx_limit"`

	TokenNotAllowed bool     `json:"token_not_allowed,omitempty"`
	AllowedTokens   []string `json:"allowed_tokens,omitempty"`
}
