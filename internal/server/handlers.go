package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/ai"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// Engine is the part of swapengine.Engine the handlers use.
type Engine interface {
	Network() *config.NetworkConfig
	HasWallet() bool
	Resolve(ctx context.Context, input string) (common.Address, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Symbol(ctx context.Context, token common.Address) string

	ParseIntent(ctx context.Context, intent *swapengine.SwapIntent) (*swapengine.SwapParams, error)
	Route(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*uniswap.Route, error)
	Plan(ctx context.Context, params *swapengine.SwapParams) (*swapengine.Plan, error)
	Execute(ctx context.Context, params *swapengine.SwapParams) (*swapengine.ExecutionResult, error)

	BondInfo(ctx context.Context, token common.Address) (*mintclub.BondInfo, error)
	Pricing(ctx context.Context, token common.Address) (*mintclub.TokenPricing, error)
	USDPrice(ctx context.Context, token common.Address) (decimal.Decimal, error)

	GetRiskStatus() *swapengine.RiskStatus
	SwapCache() storage.SwapCache
	SavedTokens() storage.TokenStore
}

var _ Engine = (*swapengine.Engine)(nil)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine       Engine
	AI           *ai.Agent      // AI agent for intents and history questions
	AIBaseConfig ai.AgentConfig // Base configuration for per-request model overrides
	DevMode      bool           // Enable detailed error responses in development
	Logger       *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		OK:      true,
		Network: h.Engine.Network().Name,
		Wallet:  h.Engine.HasWallet(),
		Redis:   h.Engine.SwapCache() != nil,
		AI:      h.AI != nil,
	})
}

// Route returns the best route for ?in=&out=&amount=, amount in input token units.
func (h *Handlers) Route(c echo.Context) error {
	in := strings.TrimSpace(c.QueryParam("in"))
	out := strings.TrimSpace(c.QueryParam("out"))
	amount := strings.TrimSpace(c.QueryParam("amount"))
	if in == "" || out == "" || amount == "" {
		return h.err(c, http.StatusBadRequest, "in, out and amount are required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	params, err := h.Engine.ParseIntent(ctx, &swapengine.SwapIntent{
		Action:      swapengine.ActionSwap,
		InputToken:  in,
		OutputToken: out,
		Amount:      amount,
	})
	if err != nil {
		return h.fail(c, "failed to resolve route request", err)
	}
	route, err := h.Engine.Route(ctx, params.TokenIn, params.TokenOut, params.AmountIn)
	if err != nil {
		return h.fail(c, "route search failed", err)
	}
	decimals, err := h.Engine.Decimals(ctx, params.TokenOut)
	if err != nil {
		return h.fail(c, "failed to read output decimals", err)
	}

	return c.JSON(http.StatusOK, RouteResponse{
		TokenIn:      params.TokenIn,
		TokenOut:     params.TokenOut,
		AmountIn:     params.AmountIn.String(),
		AmountOut:    route.AmountOut.String(),
		AmountOutFmt: uniswap.FormatUnits(route.AmountOut, decimals),
		Version:      string(route.Version),
		Description:  route.Description,
		Path:         route.Path,
		Fees:         route.Fees,
		Candidates:   route.Candidates,
	})
}

// Plan builds the transaction for an intent without sending it.
func (h *Handlers) Plan(c echo.Context) error {
	var intent swapengine.SwapIntent
	if err := c.Bind(&intent); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	plan, err := h.plan(ctx, &intent)
	if err != nil {
		return h.fail(c, "failed to build plan", err)
	}
	return c.JSON(http.StatusOK, newPlanResponse(plan))
}

func (h *Handlers) plan(ctx context.Context, intent *swapengine.SwapIntent) (*swapengine.Plan, error) {
	params, err := h.Engine.ParseIntent(ctx, intent)
	if err != nil {
		return nil, err
	}
	return h.Engine.Plan(ctx, params)
}

func (h *Handlers) Swap(c echo.Context) error    { return h.execute(c, swapengine.ActionSwap) }
func (h *Handlers) Buy(c echo.Context) error     { return h.execute(c, swapengine.ActionBuy) }
func (h *Handlers) Sell(c echo.Context) error    { return h.execute(c, swapengine.ActionSell) }
func (h *Handlers) ZapBuy(c echo.Context) error  { return h.execute(c, swapengine.ActionZapBuy) }
func (h *Handlers) ZapSell(c echo.Context) error { return h.execute(c, swapengine.ActionZapSell) }

// execute runs an intent body with its action fixed by the route. "smart"
// is accepted on /swap.
func (h *Handlers) execute(c echo.Context, action swapengine.Action) error {
	if !h.Engine.HasWallet() {
		return h.err(c, http.StatusServiceUnavailable, "wallet is not configured", nil)
	}
	var intent swapengine.SwapIntent
	if err := c.Bind(&intent); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if !(action == swapengine.ActionSwap && intent.Action == swapengine.ActionSmart) {
		intent.Action = action
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 140*time.Second)
	defer cancel()

	start := time.Now()
	params, err := h.Engine.ParseIntent(ctx, &intent)
	if err != nil {
		return h.fail(c, "invalid intent", err)
	}
	res, err := h.Engine.Execute(ctx, params)
	if err != nil {
		return h.fail(c, string(intent.Action)+" failed", err)
	}

	resp := ExecutionResponse{
		Kind:        res.Kind,
		TxHash:      res.TxHash,
		BlockNumber: res.BlockNumber,
		GasUsed:     res.GasUsed,
		ApprovalTx:  res.ApprovalTx,
		Simulated:   amountString(res.Simulated),
		Explorer:    h.Engine.Network().TxURL(res.TxHash),
		TookMs:      time.Since(start).Milliseconds(),
	}
	if res.Plan != nil {
		resp.Plan = newPlanResponse(res.Plan)
	}
	return c.JSON(http.StatusOK, resp)
}

// Bond returns a curve token's bond record and prices.
func (h *Handlers) Bond(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	token, err := h.Engine.Resolve(ctx, c.Param("token"))
	if err != nil {
		return h.fail(c, "failed to resolve token", err)
	}
	info, err := h.Engine.BondInfo(ctx, token)
	if err != nil {
		return h.fail(c, "failed to read bond", err)
	}
	pricing, err := h.Engine.Pricing(ctx, token)
	if err != nil {
		return h.fail(c, "failed to price token", err)
	}

	resp := BondResponse{
		Token:           token,
		Symbol:          h.Engine.Symbol(ctx, token),
		Creator:         info.Creator,
		MintRoyaltyBps:  info.MintRoyaltyBps,
		BurnRoyaltyBps:  info.BurnRoyaltyBps,
		CreatedAt:       info.CreatedAt,
		ReserveToken:    info.ReserveToken,
		ReserveSymbol:   info.ReserveSymbol,
		ReserveDecimals: info.ReserveDecimals,
		ReserveBalance:  uniswap.FormatUnits(info.ReserveBalance, info.ReserveDecimals),
		Price:           pricing.ReservePrice.String(),
	}
	if pricing.HasUSD {
		resp.PriceUSD = pricing.TokenUSD.StringFixed(6)
		resp.MarketCapUSD = pricing.MarketCap.StringFixed(2)
	}
	return c.JSON(http.StatusOK, resp)
}

// Price returns a token's USD price, plus the reserve price for curve tokens.
func (h *Handlers) Price(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	token, err := h.Engine.Resolve(ctx, c.Param("token"))
	if err != nil {
		return h.fail(c, "failed to resolve token", err)
	}
	resp := PriceResponse{Token: token, Symbol: h.Engine.Symbol(ctx, token)}

	pricing, err := h.Engine.Pricing(ctx, token)
	switch {
	case err == nil:
		info, err := h.Engine.BondInfo(ctx, token)
		if err != nil {
			return h.fail(c, "failed to read bond", err)
		}
		resp.ReservePrice = pricing.ReservePrice.String()
		resp.ReserveSymbol = info.ReserveSymbol
		if pricing.HasUSD {
			resp.USD = pricing.TokenUSD.StringFixed(6)
		}
	case errors.Is(err, swapengine.ErrNotCurveToken):
		usd, err := h.Engine.USDPrice(ctx, token)
		if err != nil {
			return h.fail(c, "failed to get price", err)
		}
		resp.USD = usd.StringFixed(6)
	default:
		return h.fail(c, "failed to get price", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RecentSwaps returns the most recent executed swaps with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	cache := h.Engine.SwapCache()
	if cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap cache is not configured", nil)
	}

	limit := 100
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Curve generates bonding curve steps for token creation:
// ?type=&steps=&max_supply=&initial=&final=, prices in reserve units.
func (h *Handlers) Curve(c echo.Context) error {
	curve, err := mintclub.ParseCurveType(strings.ToLower(strings.TrimSpace(c.QueryParam("type"))))
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}
	count := 0
	if v := c.QueryParam("steps"); v != "" {
		if count, err = strconv.Atoi(v); err != nil || count < 1 || count > 1000 {
			return h.err(c, http.StatusBadRequest, "invalid steps", map[string]any{"steps": "min 1 max 1000"})
		}
	}
	steps, err := mintclub.GenerateSteps(curve, count, c.QueryParam("max_supply"), c.QueryParam("initial"), c.QueryParam("final"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, err.Error(), nil)
	}

	resp := CurveResponse{
		Type:       string(curve),
		StepRanges: make([]string, len(steps)),
		StepPrices: make([]string, len(steps)),
	}
	for i, st := range steps {
		resp.StepRanges[i] = st.RangeTo.String()
		resp.StepPrices[i] = st.Price.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// Risk returns current risk limits and today's usage.
func (h *Handlers) Risk(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Engine.GetRiskStatus())
}

func (h *Handlers) TokensList(c echo.Context) error {
	store := h.Engine.SavedTokens()
	if store == nil {
		return h.err(c, http.StatusServiceUnavailable, "token store is not configured", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := store.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list tokens", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *Handlers) TokensGet(c echo.Context) error {
	store := h.Engine.SavedTokens()
	if store == nil {
		return h.err(c, http.StatusServiceUnavailable, "token store is not configured", nil)
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "token not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get token", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// TokensPut saves a curve token. The token must have a bond; the symbol
// defaults to the token's own.
func (h *Handlers) TokensPut(c echo.Context) error {
	store := h.Engine.SavedTokens()
	if store == nil {
		return h.err(c, http.StatusServiceUnavailable, "token store is not configured", nil)
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		return h.err(c, http.StatusBadRequest, "invalid address", nil)
	}
	var req TokenPutRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	token := common.HexToAddress(address)
	if _, err := h.Engine.BondInfo(ctx, token); err != nil {
		return h.fail(c, "failed to read bond", err)
	}
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		symbol = h.Engine.Symbol(ctx, token)
	}
	if err := store.Put(ctx, token.Hex(), symbol); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to save token", nil)
	}
	out, err := store.Get(ctx, token.Hex())
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get token", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// agent returns the configured agent, or a temporary one for a model
// override. The returned func releases it.
func (h *Handlers) agent(ctx context.Context, model string) (*ai.Agent, func(), error) {
	m := strings.TrimSpace(model)
	if m == "" {
		return h.AI, func() {}, nil
	}
	cfg := h.AIBaseConfig
	cfg.Model = m
	a, err := ai.NewAgent(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { _ = a.Close() }, nil
}

// AIIntent parses free text into a swap intent and, on request, plans it.
// Execution stays with the explicit endpoints.
func (h *Handlers) AIIntent(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}
	var req AIIntentRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return h.err(c, http.StatusBadRequest, "text is required", map[string]any{"text": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()
	agent, release, err := h.agent(ctx, req.Model)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
	}
	defer release()

	intent, err := agent.ParseIntent(ctx, req.Text)
	if err != nil {
		return h.fail(c, "ai intent failed", err)
	}
	resp := AIIntentResponse{Intent: intent}
	if req.Plan {
		plan, err := h.plan(ctx, intent)
		if err != nil {
			return h.fail(c, "failed to build plan", err)
		}
		pr := newPlanResponse(plan)
		resp.Plan = &pr
	}
	resp.TookMs = time.Since(start).Milliseconds()
	return c.JSON(http.StatusOK, resp)
}

// AIAsk answers questions about executed swaps through NL→SQL.
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}
	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()
	agent, release, err := h.agent(ctx, req.Model)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
	}
	defer release()

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		if errors.Is(err, ai.ErrHistoryUnavailable) {
			return h.err(c, http.StatusServiceUnavailable, "swap history is not configured", nil)
		}
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, AIAskResponse{
		SQL:       res.SQL,
		Rows:      res.Rows,
		Truncated: res.Truncated,
		Answer:    res.Answer,
		TookMs:    time.Since(start).Milliseconds(),
	})
}
