package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/aman-zulfiqar/mintclub-router/internal/ai"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var (
	hunt   = common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C")
	usdc   = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	sigma  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	router = common.HexToAddress("0x6fF5693b99212Da76ad316178A184AB56D299b43")
)

type fakeEngine struct {
	mu sync.Mutex

	wallet     bool
	parseErr   error
	route      *uniswap.Route
	routeErr   error
	plan       *swapengine.Plan
	planErr    error
	result     *swapengine.ExecutionResult
	execErr    error
	pricing    *mintclub.TokenPricing
	usd        decimal.Decimal
	cache      storage.SwapCache
	tokens     storage.TokenStore
	intents    []swapengine.SwapIntent
	executions int
}

func (f *fakeEngine) Network() *config.NetworkConfig { return config.Base() }
func (f *fakeEngine) HasWallet() bool                { return f.wallet }

func (f *fakeEngine) Resolve(_ context.Context, input string) (common.Address, error) {
	switch strings.ToUpper(input) {
	case "HUNT":
		return hunt, nil
	case "USDC":
		return usdc, nil
	case "SIGMA":
		return sigma, nil
	}
	if common.IsHexAddress(input) {
		return common.HexToAddress(input), nil
	}
	return common.Address{}, fmt.Errorf("%w: unknown token %q", swapengine.ErrInvalidArgument, input)
}

func (f *fakeEngine) Decimals(_ context.Context, token common.Address) (uint8, error) {
	if token == usdc {
		return 6, nil
	}
	return 18, nil
}

func (f *fakeEngine) Symbol(_ context.Context, token common.Address) string {
	switch token {
	case hunt:
		return "HUNT"
	case usdc:
		return "USDC"
	case sigma:
		return "SIGMA"
	}
	return mintclub.ShortAddress(token)
}

func (f *fakeEngine) ParseIntent(ctx context.Context, intent *swapengine.SwapIntent) (*swapengine.SwapParams, error) {
	f.mu.Lock()
	f.intents = append(f.intents, *intent)
	f.mu.Unlock()
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	in, err := f.Resolve(ctx, intent.InputToken)
	if err != nil {
		return nil, err
	}
	out, err := f.Resolve(ctx, intent.OutputToken)
	if err != nil {
		return nil, err
	}
	dec, _ := f.Decimals(ctx, in)
	amount, err := uniswap.ParseUnits(intent.Amount, dec)
	if err != nil {
		return nil, err
	}
	return &swapengine.SwapParams{Action: intent.Action, TokenIn: in, TokenOut: out, AmountIn: amount, Intent: intent}, nil
}

func (f *fakeEngine) Route(context.Context, common.Address, common.Address, *big.Int) (*uniswap.Route, error) {
	return f.route, f.routeErr
}

func (f *fakeEngine) Plan(context.Context, *swapengine.SwapParams) (*swapengine.Plan, error) {
	return f.plan, f.planErr
}

func (f *fakeEngine) Execute(context.Context, *swapengine.SwapParams) (*swapengine.ExecutionResult, error) {
	f.mu.Lock()
	f.executions++
	f.mu.Unlock()
	return f.result, f.execErr
}

func (f *fakeEngine) BondInfo(_ context.Context, token common.Address) (*mintclub.BondInfo, error) {
	if token != sigma {
		return nil, fmt.Errorf("%w: %s", mintclub.ErrNotCurveToken, token.Hex())
	}
	return &mintclub.BondInfo{
		Token:           sigma,
		Creator:         common.HexToAddress("0x2222222222222222222222222222222222222222"),
		MintRoyaltyBps:  100,
		BurnRoyaltyBps:  150,
		CreatedAt:       1_700_000_000,
		ReserveToken:    hunt,
		ReserveBalance:  new(big.Int).Mul(big.NewInt(2500), mintclub.OneToken),
		ReserveSymbol:   "HUNT",
		ReserveDecimals: 18,
	}, nil
}

func (f *fakeEngine) Pricing(ctx context.Context, token common.Address) (*mintclub.TokenPricing, error) {
	if _, err := f.BondInfo(ctx, token); err != nil {
		return nil, err
	}
	return f.pricing, nil
}

func (f *fakeEngine) USDPrice(context.Context, common.Address) (decimal.Decimal, error) {
	return f.usd, nil
}

func (f *fakeEngine) GetRiskStatus() *swapengine.RiskStatus {
	return &swapengine.RiskStatus{MaxSlippageBps: 1000, DailyTxLimit: 50, DailyTxUsed: 3, DailyTxRemaining: 47}
}

func (f *fakeEngine) SwapCache() storage.SwapCache    { return f.cache }
func (f *fakeEngine) SavedTokens() storage.TokenStore { return f.tokens }

// recentCache serves GetRecentSwaps; other SwapCache methods are unused here.
type recentCache struct {
	storage.SwapCache
	swaps []*models.SwapEvent
}

func (c *recentCache) GetRecentSwaps(_ context.Context, limit int64) ([]*models.SwapEvent, error) {
	if int64(len(c.swaps)) > limit {
		return c.swaps[:limit], nil
	}
	return c.swaps, nil
}

type memTokens struct {
	mu    sync.Mutex
	items map[string]*models.SavedToken
}

func newMemTokens() *memTokens { return &memTokens{items: map[string]*models.SavedToken{}} }

func (m *memTokens) Has(_ context.Context, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[strings.ToLower(address)]
	return ok, nil
}

func (m *memTokens) Put(_ context.Context, address, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[strings.ToLower(address)] = &models.SavedToken{Address: address, Symbol: symbol, UpdatedAt: time.Now()}
	return nil
}

func (m *memTokens) Get(_ context.Context, address string) (*models.SavedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[strings.ToLower(address)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

func (m *memTokens) List(context.Context) ([]*models.SavedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.SavedToken, 0, len(m.items))
	for _, t := range m.items {
		out = append(out, t)
	}
	return out, nil
}

// fakeLLM always answers with reply.
type fakeLLM struct{ reply string }

func (f *fakeLLM) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, eng *fakeEngine, agent *ai.Agent, apiKey string) *Server {
	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{Engine: eng, AI: agent, DevMode: true, Logger: quietLogger()},
		Config:   ServerConfig{Addr: ":0", DevMode: true, APIKey: apiKey},
	})
	require.NoError(t, err)
	srv.Handler().Logger.SetOutput(io.Discard)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func testPlan() *swapengine.Plan {
	return &swapengine.Plan{
		Kind:        "zap_buy",
		Target:      router,
		Data:        []byte{0xde, 0xad},
		Value:       big.NewInt(0),
		Deadline:    big.NewInt(1_700_001_200),
		Commands:    []byte{0x00},
		Inputs:      [][]byte{{0x01, 0x02}},
		Approval:    &swapengine.Approval{Token: usdc, Spender: router, Amount: big.NewInt(5_000_000)},
		TokenIn:     usdc,
		TokenOut:    sigma,
		AmountIn:    big.NewInt(5_000_000),
		MinOut:      big.NewInt(99),
		Description: "Zap USDC into SIGMA via HUNT",
		CurveSymbol: "SIGMA",
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{wallet: true}, nil, "")
	rec := do(t, srv, http.MethodGet, "/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "base", body["network"])
	assert.Equal(t, true, body["wallet"])
	assert.Equal(t, false, body["redis"])
}

func TestRoute(t *testing.T) {
	eng := &fakeEngine{route: &uniswap.Route{
		Version:     uniswap.RouteV3,
		Path:        []byte{0xaa},
		Fees:        []uint32{3000},
		AmountOut:   big.NewInt(12_345_678),
		Description: "Direct (fee: 0.3%)",
		Candidates:  36,
	}}
	srv := newTestServer(t, eng, nil, "")

	rec := do(t, srv, http.MethodGet, "/v1/route?in=HUNT&out=USDC&amount=1.5", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "1500000000000000000", body["amount_in"])
	assert.Equal(t, "12345678", body["amount_out"])
	assert.Equal(t, "12.345678", body["amount_out_formatted"])
	assert.Equal(t, "v3", body["version"])
	assert.Equal(t, "0xaa", body["path"])
	assert.Equal(t, float64(36), body["candidates"])

	require.Len(t, eng.intents, 1)
	assert.Equal(t, swapengine.ActionSwap, eng.intents[0].Action)

	rec = do(t, srv, http.MethodGet, "/v1/route?in=HUNT&out=USDC", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/route?in=DOGE&out=USDC&amount=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unknown token")

	eng.routeErr = fmt.Errorf("%w: 36 candidates", swapengine.ErrNoRouteFound)
	rec = do(t, srv, http.MethodGet, "/v1/route?in=HUNT&out=USDC&amount=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlan(t *testing.T) {
	eng := &fakeEngine{plan: testPlan()}
	srv := newTestServer(t, eng, nil, "")

	rec := do(t, srv, http.MethodPost, "/v1/plan", `{"action":"zap_buy","input_token":"USDC","output_token":"SIGMA","amount":"5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var plan PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, "zap_buy", plan.Kind)
	assert.Equal(t, router, plan.Target)
	assert.Equal(t, []byte{0xde, 0xad}, []byte(plan.Data))
	assert.Equal(t, "0", plan.Value)
	assert.Equal(t, "1700001200", plan.Deadline)
	require.Len(t, plan.Inputs, 1)
	require.NotNil(t, plan.Approval)
	assert.Equal(t, "5000000", plan.Approval.Amount)
	assert.Equal(t, "99", plan.MinOut)
	assert.Empty(t, plan.ExpectedOut)
	assert.Contains(t, rec.Body.String(), `"data":"0xdead"`)

	require.Len(t, eng.intents, 1)
	assert.Equal(t, "5", eng.intents[0].Amount)

	rec = do(t, srv, http.MethodPost, "/v1/plan", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	eng.planErr = fmt.Errorf("%w: cost 60 > max 50", swapengine.ErrMaxCostExceeded)
	rec = do(t, srv, http.MethodPost, "/v1/plan", `{"action":"buy","input_token":"HUNT","output_token":"SIGMA","amount":"5"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExecute_RequiresWallet(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng, nil, "")

	for _, path := range []string{"/v1/swap", "/v1/buy", "/v1/sell", "/v1/zap/buy", "/v1/zap/sell"} {
		rec := do(t, srv, http.MethodPost, path, `{"input_token":"HUNT","output_token":"USDC","amount":"1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	assert.Zero(t, eng.executions)
}

func TestExecute_ForcesActionFromRoute(t *testing.T) {
	plan := testPlan()
	hash := common.HexToHash("0xabc")
	eng := &fakeEngine{wallet: true, result: &swapengine.ExecutionResult{
		Kind:        "buy",
		TxHash:      hash,
		BlockNumber: 30_000_000,
		GasUsed:     150_000,
		Simulated:   big.NewInt(42),
		Plan:        plan,
	}}
	srv := newTestServer(t, eng, nil, "")

	rec := do(t, srv, http.MethodPost, "/v1/buy", `{"action":"sell","input_token":"HUNT","output_token":"SIGMA","amount":"10"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, hash.Hex(), body["tx_hash"])
	assert.Equal(t, "42", body["simulated_out"])
	assert.Equal(t, "https://basescan.org/tx/"+hash.Hex(), body["explorer"])
	assert.Equal(t, "zap_buy", body["plan"].(map[string]any)["kind"])

	rec = do(t, srv, http.MethodPost, "/v1/zap/sell", `{"input_token":"SIGMA","output_token":"USDC","amount":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/v1/swap", `{"action":"smart","input_token":"USDC","output_token":"SIGMA","amount":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, eng.intents, 3)
	assert.Equal(t, swapengine.ActionBuy, eng.intents[0].Action)
	assert.Equal(t, swapengine.ActionZapSell, eng.intents[1].Action)
	assert.Equal(t, swapengine.ActionSmart, eng.intents[2].Action)
	assert.Equal(t, 3, eng.executions)
}

func TestExecute_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid", fmt.Errorf("%w: amount must be > 0", swapengine.ErrInvalidArgument), http.StatusBadRequest},
		{"not curve", fmt.Errorf("%w: 0x11", swapengine.ErrNotCurveToken), http.StatusNotFound},
		{"simulation", &swapengine.SimulationError{Kind: "mint", Target: router, Err: swapengine.ErrSimulationReverted}, http.StatusUnprocessableEntity},
		{"risk", fmt.Errorf("%w: daily limit reached", swapengine.ErrRiskRejected), http.StatusUnprocessableEntity},
		{"min refund", fmt.Errorf("%w: 1 < 2", swapengine.ErrMinRefundNotMet), http.StatusUnprocessableEntity},
		{"tx failed", &swapengine.TransactionError{Kind: "swap", TxHash: common.HexToHash("0x1"), Reason: "status 0"}, http.StatusBadGateway},
		{"transport", fmt.Errorf("all endpoints failed"), http.StatusBadGateway},
		{"timeout", fmt.Errorf("wait receipt: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeEngine{wallet: true, execErr: tt.err}, nil, "")
			rec := do(t, srv, http.MethodPost, "/v1/swap", `{"input_token":"HUNT","output_token":"USDC","amount":"1"}`)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.Equal(t, float64(tt.code), body["code"])
			if tt.code >= http.StatusInternalServerError {
				assert.Equal(t, tt.err.Error(), body["details"].(map[string]any)["err"])
			}
		})
	}
}

func TestBond(t *testing.T) {
	eng := &fakeEngine{pricing: &mintclub.TokenPricing{
		ReservePrice: decimal.RequireFromString("2.5"),
		TokenUSD:     decimal.RequireFromString("0.75"),
		MarketCap:    decimal.RequireFromString("75000"),
		HasUSD:       true,
	}}
	srv := newTestServer(t, eng, nil, "")

	rec := do(t, srv, http.MethodGet, "/v1/bond/sigma", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "SIGMA", body["symbol"])
	assert.Equal(t, "HUNT", body["reserve_symbol"])
	assert.Equal(t, "2500", body["reserve_balance"])
	assert.Equal(t, "2.5", body["price"])
	assert.Equal(t, "0.750000", body["price_usd"])
	assert.Equal(t, "75000.00", body["market_cap_usd"])
	assert.Equal(t, float64(100), body["mint_royalty_bps"])

	rec = do(t, srv, http.MethodGet, "/v1/bond/HUNT", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrice(t *testing.T) {
	eng := &fakeEngine{
		pricing: &mintclub.TokenPricing{ReservePrice: decimal.RequireFromString("2")},
		usd:     decimal.RequireFromString("0.031"),
	}
	srv := newTestServer(t, eng, nil, "")

	rec := do(t, srv, http.MethodGet, "/v1/price/SIGMA", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "2", body["reserve_price"])
	assert.Equal(t, "HUNT", body["reserve_symbol"])
	assert.NotContains(t, body, "usd")

	rec = do(t, srv, http.MethodGet, "/v1/price/hunt", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "0.031000", body["usd"])
	assert.NotContains(t, body, "reserve_price")
}

func TestRecentSwaps(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng, nil, "")
	rec := do(t, srv, http.MethodGet, "/v1/swaps/recent", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	eng.cache = &recentCache{swaps: []*models.SwapEvent{
		{TxHash: "0x01", Kind: models.KindBuy},
		{TxHash: "0x02", Kind: models.KindSwap},
	}}
	rec = do(t, srv, http.MethodGet, "/v1/swaps/recent?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "0x01", items[0].(map[string]any)["tx_hash"])

	for _, q := range []string{"limit=0", "limit=201", "limit=x"} {
		rec = do(t, srv, http.MethodGet, "/v1/swaps/recent?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTokens(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, eng, nil, "")
	rec := do(t, srv, http.MethodGet, "/v1/tokens", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	eng.tokens = newMemTokens()
	rec = do(t, srv, http.MethodPut, "/v1/tokens/"+sigma.Hex(), `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SIGMA", decode(t, rec)["symbol"])

	rec = do(t, srv, http.MethodGet, "/v1/tokens/"+strings.ToLower(sigma.Hex()), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/tokens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = do(t, srv, http.MethodPut, "/v1/tokens/"+hunt.Hex(), `{"symbol":"HUNT"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPut, "/v1/tokens/nope", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/tokens/"+usdc.Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func newTestAgent(t *testing.T, reply string) *ai.Agent {
	a, err := ai.NewAgent(context.Background(), ai.AgentConfig{
		LLM:         &fakeLLM{reply: reply},
		KnownTokens: []string{"ETH", "HUNT", "USDC"},
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return a
}

func TestAIIntent(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, "")
	rec := do(t, srv, http.MethodPost, "/v1/ai/intent", `{"text":"buy sigma"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	agent := newTestAgent(t, `{"action":"zap_buy","input_token":"USDC","output_token":"SIGMA","amount":"5","confidence":0.9}`)
	eng := &fakeEngine{plan: testPlan()}
	srv = newTestServer(t, eng, agent, "")

	rec = do(t, srv, http.MethodPost, "/v1/ai/intent", `{"text":"spend 5 usdc on sigma","plan":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	intent := body["intent"].(map[string]any)
	assert.Equal(t, "zap_buy", intent["action"])
	assert.Equal(t, "SIGMA", intent["output_token"])
	assert.Equal(t, "zap_buy", body["plan"].(map[string]any)["kind"])
	require.Len(t, eng.intents, 1)

	rec = do(t, srv, http.MethodPost, "/v1/ai/intent", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIIntent_NotUnderstood(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, newTestAgent(t, `{"error":"not a trade"}`), "")
	rec := do(t, srv, http.MethodPost, "/v1/ai/intent", `{"text":"what's the weather"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAIAsk_WithoutHistory(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, newTestAgent(t, "SELECT 1 FROM swaps"), "")
	rec := do(t, srv, http.MethodPost, "/v1/ai/ask", `{"question":"how many buys today?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKey(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, "secret")

	rec := do(t, srv, http.MethodGet, "/v1/health", "", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/health", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/v1/health", "", "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mintclub_api_requests_total")
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, "")
	rec := do(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, float64(http.StatusNotFound), decode(t, rec)["code"])
}

func TestRisk(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, "")
	rec := do(t, srv, http.MethodGet, "/v1/risk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(47), decode(t, rec)["daily_tx_remaining"])
}

func TestCurve(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{}, nil, "")

	rec := do(t, srv, http.MethodGet, "/v1/curve?type=linear&steps=4&max_supply=1000&initial=1&final=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp CurveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.StepRanges, 4)
	require.Len(t, resp.StepPrices, 4)
	assert.Equal(t, "250000000000000000000", resp.StepRanges[0])
	assert.Equal(t, "1000000000000000000000", resp.StepRanges[3])
	assert.Equal(t, "1250000000000000000", resp.StepPrices[0])
	assert.Equal(t, "2000000000000000000", resp.StepPrices[3])

	rec = do(t, srv, http.MethodGet, "/v1/curve?type=flat&max_supply=10&initial=1&final=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.StepPrices, 1)

	for _, q := range []string{
		"type=cubic&max_supply=10&initial=1&final=2",
		"type=linear&steps=0&max_supply=10&initial=1&final=2",
		"type=linear&max_supply=-1&initial=1&final=2",
		"type=flat&max_supply=10&initial=1&final=2",
	} {
		rec = do(t, srv, http.MethodGet, "/v1/curve?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
