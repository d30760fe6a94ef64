package swapengine

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/router"
	"github.com/aman-zulfiqar/mintclub-router/internal/storage"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// Engine is the main orchestrator for route, plan and execute operations
type Engine struct {
	network  *config.NetworkConfig
	reader   chain.Reader
	quoter   router.Quoter
	pools    *uniswap.PoolRegistry
	mintclub *mintclub.Client
	resolver *mintclub.Resolver
	oracle   *mintclub.PriceOracle
	searcher *router.Searcher
	planner  *Planner
	executor *Executor
	risk     *RiskManager
	decision *DecisionEngine
	cache    storage.SwapCache
	tokens   storage.TokenStore
	logger   *logrus.Logger

	closers []io.Closer
}

// EngineDeps wires an Engine to already constructed collaborators.
type EngineDeps struct {
	Network *config.NetworkConfig
	Reader  chain.Reader
	Writer  chain.Writer  // optional; without it the engine plans and quotes only
	Quoter  router.Quoter // defaults to the on-chain QuoterV2 / V4Quoter client
	Pools   *uniswap.PoolRegistry

	Cache  storage.SwapCache
	Store  storage.SwapStore
	Tokens storage.TokenStore

	Risk             RiskConfig
	QuoteConcurrency int
	QuoteTimeout     time.Duration
	Now              func() time.Time
	Logger           *logrus.Logger

	// Closers are closed by Engine.Close, in order.
	Closers []io.Closer
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Network == nil {
		return nil, fmt.Errorf("engine: network is required")
	}
	if deps.Reader == nil {
		return nil, fmt.Errorf("engine: chain reader is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	net := deps.Network

	// 1. Quoting
	quoter := deps.Quoter
	if quoter == nil {
		q, err := uniswap.NewQuoter(uniswap.QuoterConfig{
			Reader:   deps.Reader,
			QuoterV2: net.QuoterV2,
			V4Quoter: net.V4Quoter,
			Logger:   deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		quoter = q
	}

	// 2. Route search
	mids, err := net.IntermediaryTokens()
	if err != nil {
		return nil, err
	}
	intermediaries := make([]router.Intermediary, len(mids))
	for i, t := range mids {
		intermediaries[i] = router.Intermediary{Address: t.Address, Symbol: t.Symbol}
	}
	searcher, err := router.NewSearcher(router.SearcherConfig{
		Quoter:         quoter,
		WrappedNative:  net.WrappedNative,
		Intermediaries: intermediaries,
		FeeTiers:       net.FeeTiers,
		Pools:          deps.Pools,
		Concurrency:    deps.QuoteConcurrency,
		Timeout:        deps.QuoteTimeout,
		Logger:         deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	// 3. Mint Club contracts
	mc, err := mintclub.NewClient(mintclub.ClientConfig{
		Reader: deps.Reader,
		Bond:   net.Bond,
		Zap:    net.ZapV2,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	resolver := mintclub.NewResolver(mc, net.Tokens)

	var priceCache mintclub.PriceCache
	if deps.Cache != nil {
		priceCache = deps.Cache
	}
	usdc, _ := net.Token("USDC")
	oracle, err := mintclub.NewPriceOracle(mintclub.PriceOracleConfig{
		Client:        mc,
		Aggregator:    net.SpotPriceAggregator,
		USDC:          usdc.Address,
		WrappedNative: net.WrappedNative,
		Cache:         priceCache,
		Logger:        deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	// 4. Planning, risk and execution
	planner, err := NewPlanner(PlannerConfig{
		Router:        net.UniversalRouter,
		Zap:           net.ZapV2,
		Bond:          net.Bond,
		WrappedNative: net.WrappedNative,
		Now:           deps.Now,
	})
	if err != nil {
		return nil, err
	}

	risk := NewRiskManager(deps.Risk)
	executor, err := NewExecutor(ExecutorConfig{
		Reader:     deps.Reader,
		Writer:     deps.Writer,
		Allowances: mc,
		Cache:      deps.Cache,
		Store:      deps.Store,
		Tokens:     deps.Tokens,
		Risk:       risk,
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		network:  net,
		reader:   deps.Reader,
		quoter:   quoter,
		pools:    deps.Pools,
		mintclub: mc,
		resolver: resolver,
		oracle:   oracle,
		searcher: searcher,
		planner:  planner,
		executor: executor,
		risk:     risk,
		cache:    deps.Cache,
		tokens:   deps.Tokens,
		logger:   deps.Logger,
		closers:  deps.Closers,
	}
	e.decision = NewDecisionEngine(deps.Risk, tokenLookup{e})
	return e, nil
}

func (e *Engine) Network() *config.NetworkConfig { return e.network }
func (e *Engine) MintClub() *mintclub.Client     { return e.mintclub }
func (e *Engine) Resolver() *mintclub.Resolver   { return e.resolver }
func (e *Engine) HasWallet() bool                { return e.executor.HasWallet() }
func (e *Engine) Account() common.Address        { return e.executor.Account() }

// tokenLookup adapts the engine to TokenLookup.
type tokenLookup struct{ e *Engine }

func (l tokenLookup) Resolve(ctx context.Context, input string) (common.Address, error) {
	addr, err := l.e.resolver.Resolve(ctx, input)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return addr, nil
}

func (l tokenLookup) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if t, ok := l.e.resolver.ByAddress(token); ok {
		return t.Decimals, nil
	}
	return l.e.mintclub.Decimals(ctx, token)
}

func (l tokenLookup) ReserveToken(ctx context.Context, curve common.Address) (common.Address, error) {
	info, err := l.e.mintclub.BondInfo(ctx, curve)
	if err != nil {
		return common.Address{}, err
	}
	return info.ReserveToken, nil
}

// Resolve maps a symbol or address to a token address.
func (e *Engine) Resolve(ctx context.Context, input string) (common.Address, error) {
	return tokenLookup{e}.Resolve(ctx, input)
}

// ParseIntent validates and resolves a human intent.
func (e *Engine) ParseIntent(ctx context.Context, intent *SwapIntent) (*SwapParams, error) {
	return e.decision.ParseIntent(ctx, intent)
}

// Route finds the best exact-input route between two tokens.
func (e *Engine) Route(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*uniswap.Route, error) {
	return e.searcher.FindBestRoute(ctx, tokenIn, tokenOut, amountIn)
}

// Plan builds the transaction for params without sending anything.
func (e *Engine) Plan(ctx context.Context, params *SwapParams) (*Plan, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params is nil", ErrInvalidArgument)
	}
	if err := checkAmount("amount", params.AmountIn); err != nil {
		return nil, err
	}
	switch params.Action {
	case ActionSwap:
		return e.planSwap(ctx, params)
	case ActionBuy:
		return e.planBuy(ctx, params)
	case ActionSell:
		return e.planSell(ctx, params)
	case ActionZapBuy:
		return e.planZapBuy(ctx, params)
	case ActionZapSell:
		return e.planZapSell(ctx, params)
	case ActionSmart, "":
		return e.planSmart(ctx, params)
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, params.Action)
}

// Execute plans params, checks risk limits and runs the plan.
func (e *Engine) Execute(ctx context.Context, params *SwapParams) (*ExecutionResult, error) {
	if !e.executor.HasWallet() {
		return nil, ErrNoWallet
	}
	plan, err := e.Plan(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := e.risk.Check(params, e.label(plan, plan.TokenIn), e.label(plan, plan.TokenOut)); err != nil {
		return nil, err
	}
	return e.executor.Execute(ctx, plan)
}

// ExecuteIntent processes a human or AI intent end-to-end
func (e *Engine) ExecuteIntent(ctx context.Context, intent *SwapIntent) (*ExecutionResult, error) {
	params, err := e.ParseIntent(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("invalid intent: %w", err)
	}
	return e.Execute(ctx, params)
}

// PlanIntent returns the plan an intent would execute
func (e *Engine) PlanIntent(ctx context.Context, intent *SwapIntent) (*Plan, error) {
	params, err := e.ParseIntent(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("invalid intent: %w", err)
	}
	return e.Plan(ctx, params)
}

// CheckRisk validates params against risk rules without executing
func (e *Engine) CheckRisk(ctx context.Context, params *SwapParams) (*RiskCheckResult, error) {
	plan, err := e.Plan(ctx, params)
	if err != nil {
		return nil, err
	}
	return e.risk.CheckSwap(params, e.label(plan, plan.TokenIn), e.label(plan, plan.TokenOut)), nil
}

// Swap is a plain UniversalRouter swap.
func (e *Engine) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minOut *big.Int, path string) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{
		Action: ActionSwap, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn,
		MinOut: minOut, Path: path, SlippageBps: e.risk.config.DefaultSlippageBps,
	})
}

// Buy mints amount of token, paying at most maxCost of its reserve.
func (e *Engine) Buy(ctx context.Context, token common.Address, amount, maxCost *big.Int) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{Action: ActionBuy, TokenOut: token, AmountIn: amount, MaxCost: maxCost})
}

// Sell burns amount of token for at least minRefund of its reserve.
func (e *Engine) Sell(ctx context.Context, token common.Address, amount, minRefund *big.Int) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{Action: ActionSell, TokenIn: token, AmountIn: amount, MinOut: minRefund})
}

func (e *Engine) ZapBuy(ctx context.Context, token, inputToken common.Address, amountIn, minTokensOut *big.Int, path string) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{
		Action: ActionZapBuy, TokenIn: inputToken, TokenOut: token, AmountIn: amountIn,
		MinOut: minTokensOut, Path: path, SlippageBps: e.risk.config.DefaultSlippageBps,
	})
}

func (e *Engine) ZapSell(ctx context.Context, token, outputToken common.Address, amount, minOut *big.Int, path string) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{
		Action: ActionZapSell, TokenIn: token, TokenOut: outputToken, AmountIn: amount,
		MinOut: minOut, Path: path, SlippageBps: e.risk.config.DefaultSlippageBps,
	})
}

// SmartSwap picks buy, sell, zap or a plain swap from the token types.
func (e *Engine) SmartSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*ExecutionResult, error) {
	return e.Execute(ctx, &SwapParams{
		Action: ActionSmart, TokenIn: tokenIn, TokenOut: tokenOut, AmountIn: amountIn,
		SlippageBps: e.risk.config.DefaultSlippageBps,
	})
}

// Approve grants spender an unlimited allowance on token if it has less.
func (e *Engine) Approve(ctx context.Context, token, spender common.Address) (*common.Hash, error) {
	return e.executor.EnsureApproval(ctx, &Approval{Token: token, Spender: spender, Amount: mintclub.MaxUint256})
}

func (e *Engine) BondInfo(ctx context.Context, token common.Address) (*mintclub.BondInfo, error) {
	return e.mintclub.BondInfo(ctx, token)
}

func (e *Engine) Pricing(ctx context.Context, token common.Address) (*mintclub.TokenPricing, error) {
	return e.oracle.Pricing(ctx, token)
}

func (e *Engine) Oracle() *mintclub.PriceOracle { return e.oracle }

// USDPrice is the aggregator's USD price for any token, native included.
func (e *Engine) USDPrice(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	return e.oracle.USDPrice(ctx, token)
}

// Decimals returns token decimals, from the network table when known.
func (e *Engine) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	return tokenLookup{e}.Decimals(ctx, token)
}

// Symbol names token the way logs and the allow-list do.
func (e *Engine) Symbol(ctx context.Context, token common.Address) string {
	if t, ok := e.resolver.ByAddress(token); ok {
		return t.Symbol
	}
	if s := e.curveSymbol(ctx, token); s != "" {
		return s
	}
	return mintclub.ShortAddress(token)
}

// SwapCache is the Redis cache of executed swaps, nil when Redis is off.
func (e *Engine) SwapCache() storage.SwapCache { return e.cache }

// SavedTokens lists curve tokens remembered after purchases.
func (e *Engine) SavedTokens() storage.TokenStore { return e.tokens }

// GetWalletInfo returns wallet status
func (e *Engine) GetWalletInfo(ctx context.Context) (*WalletInfo, error) {
	if !e.executor.HasWallet() {
		return nil, ErrNoWallet
	}
	addr := e.executor.Account()
	balance, err := e.reader.BalanceAt(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &WalletInfo{
		Address:    addr.Hex(),
		BalanceWei: balance.String(),
		BalanceETH: uniswap.FormatUnits(balance, 18),
	}, nil
}

// GetPoolInfo returns the configured V4 pools
func (e *Engine) GetPoolInfo() *PoolInfo {
	pools := e.pools.Pools()
	names := make([]string, len(pools))
	for i, p := range pools {
		names[i] = p.Name
	}
	return &PoolInfo{TotalPools: len(pools), PoolNames: names}
}

// GetRiskStatus returns current risk limits and usage
func (e *Engine) GetRiskStatus() *RiskStatus {
	used := e.risk.DailyUsage()
	return &RiskStatus{
		MaxSlippageBps:   e.risk.config.MaxSlippageBps,
		DailyTxLimit:     e.risk.config.DailyTxLimit,
		DailyTxUsed:      used,
		DailyTxRemaining: max(e.risk.config.DailyTxLimit-used, 0),
		AllowedTokens:    e.risk.config.AllowedTokens,
	}
}

// Close cleans up all resources
func (e *Engine) Close() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// label names a plan token for the allow-list and logs.
func (e *Engine) label(plan *Plan, addr common.Address) string {
	if addr == plan.CurveToken && plan.CurveSymbol != "" {
		return plan.CurveSymbol
	}
	return e.resolver.Label(addr)
}

// Info types
type WalletInfo struct {
	Address    string `json:"address"`
	BalanceWei string `json:"balance_wei"`
	BalanceETH string `json:"balance_eth"`
}

type PoolInfo struct {
	TotalPools int      `json:"total_pools"`
	PoolNames  []string `json:"pool_names"`
}

type RiskStatus struct {
	MaxSlippageBps   uint64   `json:"max_slippage_bps"`
	DailyTxLimit     int      `json:"daily_tx_limit"`
	DailyTxUsed      int      `json:"daily_tx_used"`
	DailyTxRemaining int      `json:"daily_tx_remaining"`
	AllowedTokens    []string `json:"allowed_tokens"`
}
