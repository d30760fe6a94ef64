package server

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Network string `json:"network"`
	Wallet  bool   `json:"wallet"`
	Redis   bool   `json:"redis"`
	AI      bool   `json:"ai"`
}

// RouteResponse is the best route for an exact-input amount. Raw amounts are
// base-unit integers as decimal strings.
type RouteResponse struct {
	TokenIn      common.Address `json:"token_in"`
	TokenOut     common.Address `json:"token_out"`
	AmountIn     string         `json:"amount_in"`
	AmountOut    string         `json:"amount_out"`
	AmountOutFmt string         `json:"amount_out_formatted"`
	Version      string         `json:"version"`
	Description  string         `json:"description"`
	Path         hexutil.Bytes  `json:"path,omitempty"`
	Fees         []uint32       `json:"fees,omitempty"`
	Candidates   int            `json:"candidates"`
}

type ApprovalResponse struct {
	Token   common.Address `json:"token"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

// PlanResponse is an unsigned transaction ready to send.
type PlanResponse struct {
	Kind        string            `json:"kind"`
	Description string            `json:"description"`
	Target      common.Address    `json:"target"`
	Data        hexutil.Bytes     `json:"data"`
	Value       string            `json:"value"`
	Deadline    string            `json:"deadline,omitempty"`
	Commands    hexutil.Bytes     `json:"commands,omitempty"`
	Inputs      []hexutil.Bytes   `json:"inputs,omitempty"`
	Approval    *ApprovalResponse `json:"approval,omitempty"`

	TokenIn     common.Address `json:"token_in"`
	TokenOut    common.Address `json:"token_out"`
	AmountIn    string         `json:"amount_in"`
	MinOut      string         `json:"min_out"`
	ExpectedOut string         `json:"expected_out,omitempty"`
	CurveSymbol string         `json:"curve_symbol,omitempty"`
}

// ExecutionResponse is a confirmed transaction and the plan it executed.
type ExecutionResponse struct {
	Kind        string       `json:"kind"`
	TxHash      common.Hash  `json:"tx_hash"`
	BlockNumber uint64       `json:"block_number"`
	GasUsed     uint64       `json:"gas_used"`
	ApprovalTx  *common.Hash `json:"approval_tx,omitempty"`
	Simulated   string       `json:"simulated_out,omitempty"`
	Explorer    string       `json:"explorer,omitempty"`
	TookMs      int64        `json:"took_ms"`
	Plan        PlanResponse `json:"plan"`
}

// BondResponse is a curve token's bond record with current prices.
type BondResponse struct {
	Token           common.Address `json:"token"`
	Symbol          string         `json:"symbol"`
	Creator         common.Address `json:"creator"`
	MintRoyaltyBps  uint16         `json:"mint_royalty_bps"`
	BurnRoyaltyBps  uint16         `json:"burn_royalty_bps"`
	CreatedAt       uint64         `json:"created_at"`
	ReserveToken    common.Address `json:"reserve_token"`
	ReserveSymbol   string         `json:"reserve_symbol"`
	ReserveDecimals uint8          `json:"reserve_decimals"`
	ReserveBalance  string         `json:"reserve_balance"`
	Price           string         `json:"price"` // reserve per token
	PriceUSD        string         `json:"price_usd,omitempty"`
	MarketCapUSD    string         `json:"market_cap_usd,omitempty"`
}

// PriceResponse represents token price information
type PriceResponse struct {
	Token         common.Address `json:"token"`
	Symbol        string         `json:"symbol"`
	USD           string         `json:"usd,omitempty"`
	ReservePrice  string         `json:"reserve_price,omitempty"` // curve tokens only
	ReserveSymbol string         `json:"reserve_symbol,omitempty"`
}

// CurveResponse holds generated steps as 18-decimal base units.
type CurveResponse struct {
	Type       string   `json:"type"`
	StepRanges []string `json:"step_ranges"`
	StepPrices []string `json:"step_prices"`
}

// TokenPutRequest saves a curve token by address.
type TokenPutRequest struct {
	Symbol string `json:"symbol"`
}

// AIIntentRequest is free text to turn into a swap intent.
type AIIntentRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"` // Optional AI model override
	Plan  bool   `json:"plan"`  // also build the transaction
}

type AIIntentResponse struct {
	Intent *swapengine.SwapIntent `json:"intent"`
	Plan   *PlanResponse          `json:"plan,omitempty"`
	TookMs int64                  `json:"took_ms"`
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"`
	Model    string `json:"model"`
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL       string `json:"sql"`
	Rows      int    `json:"rows"`
	Truncated bool   `json:"truncated,omitempty"`
	Answer    string `json:"answer"`
	TookMs    int64  `json:"took_ms"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func newPlanResponse(p *swapengine.Plan) PlanResponse {
	out := PlanResponse{
		Kind:        p.Kind,
		Description: p.Description,
		Target:      p.Target,
		Data:        p.Data,
		Value:       amountString(p.Value),
		Deadline:    amountString(p.Deadline),
		Commands:    p.Commands,
		TokenIn:     p.TokenIn,
		TokenOut:    p.TokenOut,
		AmountIn:    amountString(p.AmountIn),
		MinOut:      amountString(p.MinOut),
		ExpectedOut: amountString(p.ExpectedOut),
		CurveSymbol: p.CurveSymbol,
	}
	if out.Value == "" {
		out.Value = "0"
	}
	for _, in := range p.Inputs {
		out.Inputs = append(out.Inputs, in)
	}
	if a := p.Approval; a != nil {
		out.Approval = &ApprovalResponse{Token: a.Token, Spender: a.Spender, Amount: amountString(a.Amount)}
	}
	return out
}
