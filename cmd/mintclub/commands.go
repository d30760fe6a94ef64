package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var errUsage = errors.New("usage")

type cli struct {
	engine          *swapengine.Engine
	defaultSlippage uint64
}

// tradeFlags are shared by every command that builds a transaction.
type tradeFlags struct {
	amount   string
	slippage uint64
	receiver string
	dryRun   bool
}

func (c *cli) tradeFlagSet(name string) (*flag.FlagSet, *tradeFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	tf := &tradeFlags{}
	fs.StringVar(&tf.amount, "amount", "", "amount in human units")
	fs.Uint64Var(&tf.slippage, "slippage-bps", c.defaultSlippage, "slippage in bps (100 = 1%)")
	fs.StringVar(&tf.receiver, "receiver", "", "recipient address (default: wallet)")
	fs.BoolVar(&tf.dryRun, "dry-run", false, "print the plan without sending")
	return fs, tf
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "route":
		return c.route(ctx, args)
	case "swap":
		return c.swap(ctx, args)
	case "buy":
		return c.buy(ctx, args)
	case "sell":
		return c.sell(ctx, args)
	case "zap-buy":
		return c.zapBuy(ctx, args)
	case "zap-sell":
		return c.zapSell(ctx, args)
	case "price":
		return c.price(ctx, args)
	case "info":
		return c.info(ctx, args)
	case "approve":
		return c.approve(ctx, args)
	case "wallet":
		return c.wallet(ctx)
	}
	fmt.Print(usage)
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func required(fs *flag.FlagSet, values map[string]string) error {
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			fs.Usage()
			return fmt.Errorf("%w: -%s is required", errUsage, name)
		}
	}
	return nil
}

func (c *cli) route(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	in := fs.String("in", "", "input token symbol or address")
	out := fs.String("out", "", "output token symbol or address")
	amount := fs.String("amount", "", "input amount in human units")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out, "amount": *amount}); err != nil {
		return err
	}

	params, err := c.engine.ParseIntent(ctx, &swapengine.SwapIntent{
		Action: swapengine.ActionSwap, InputToken: *in, OutputToken: *out, Amount: *amount,
	})
	if err != nil {
		return err
	}
	route, err := c.engine.Route(ctx, params.TokenIn, params.TokenOut, params.AmountIn)
	if err != nil {
		return err
	}
	decimals, err := c.engine.Decimals(ctx, params.TokenOut)
	if err != nil {
		return err
	}
	fmt.Printf("Route:      %s\n", route.Description)
	fmt.Printf("Amount out: %s %s\n", uniswap.FormatUnits(route.AmountOut, decimals), c.engine.Symbol(ctx, params.TokenOut))
	fmt.Printf("Candidates: %d\n", route.Candidates)
	if len(route.Path) > 0 {
		fmt.Printf("Path:       0x%x\n", route.Path)
	}
	return nil
}

func (c *cli) swap(ctx context.Context, args []string) error {
	fs, tf := c.tradeFlagSet("swap")
	in := fs.String("in", "", "input token")
	out := fs.String("out", "", "output token")
	minOut := fs.String("min-out", "", "minimum output in human units")
	path := fs.String("path", "", "manual V3 path TOKEN,FEE,TOKEN[,FEE,TOKEN...]")
	smart := fs.Bool("smart", false, "buy, sell or zap when a side is a curve token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out, "amount": tf.amount}); err != nil {
		return err
	}
	action := swapengine.ActionSwap
	if *smart {
		action = swapengine.ActionSmart
	}
	return c.trade(ctx, tf, &swapengine.SwapIntent{
		Action: action, InputToken: *in, OutputToken: *out, MinOut: *minOut, Path: *path,
	})
}

func (c *cli) buy(ctx context.Context, args []string) error {
	fs, tf := c.tradeFlagSet("buy")
	token := fs.String("token", "", "curve token to mint")
	maxCost := fs.String("max-cost", "", "maximum reserve spent, royalty included")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *token, "amount": tf.amount}); err != nil {
		return err
	}
	return c.trade(ctx, tf, &swapengine.SwapIntent{Action: swapengine.ActionBuy, OutputToken: *token, MaxCost: *maxCost})
}

func (c *cli) sell(ctx context.Context, args []string) error {
	fs, tf := c.tradeFlagSet("sell")
	token := fs.String("token", "", "curve token to burn")
	minRefund := fs.String("min-refund", "", "minimum reserve received")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *token, "amount": tf.amount}); err != nil {
		return err
	}
	return c.trade(ctx, tf, &swapengine.SwapIntent{Action: swapengine.ActionSell, InputToken: *token, MinOut: *minRefund})
}

func (c *cli) zapBuy(ctx context.Context, args []string) error {
	fs, tf := c.tradeFlagSet("zap-buy")
	token := fs.String("token", "", "curve token to mint")
	in := fs.String("in", "ETH", "token paid")
	minTokens := fs.String("min-tokens", "", "minimum curve tokens received")
	path := fs.String("path", "", "manual V3 path from the input to the reserve")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *token, "amount": tf.amount}); err != nil {
		return err
	}
	return c.trade(ctx, tf, &swapengine.SwapIntent{
		Action: swapengine.ActionZapBuy, InputToken: *in, OutputToken: *token, MinOut: *minTokens, Path: *path,
	})
}

func (c *cli) zapSell(ctx context.Context, args []string) error {
	fs, tf := c.tradeFlagSet("zap-sell")
	token := fs.String("token", "", "curve token to burn")
	out := fs.String("out", "ETH", "token received")
	minOut := fs.String("min-out", "", "minimum output received")
	path := fs.String("path", "", "manual V3 path from the reserve to the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *token, "amount": tf.amount}); err != nil {
		return err
	}
	return c.trade(ctx, tf, &swapengine.SwapIntent{
		Action: swapengine.ActionZapSell, InputToken: *token, OutputToken: *out, MinOut: *minOut, Path: *path,
	})
}

// trade resolves intent, then prints the plan or executes it.
func (c *cli) trade(ctx context.Context, tf *tradeFlags, intent *swapengine.SwapIntent) error {
	intent.Amount = tf.amount
	intent.Receiver = tf.receiver
	slippage := tf.slippage
	intent.SlippageBps = &slippage

	params, err := c.engine.ParseIntent(ctx, intent)
	if err != nil {
		return err
	}
	if tf.dryRun || !c.engine.HasWallet() {
		if !tf.dryRun {
			fmt.Fprintln(os.Stderr, "no PRIVATE_KEY set, printing the plan only")
		}
		plan, err := c.engine.Plan(ctx, params)
		if err != nil {
			return err
		}
		c.printPlan(ctx, plan)
		return nil
	}

	res, err := c.engine.Execute(ctx, params)
	if err != nil {
		return err
	}
	c.printPlan(ctx, res.Plan)
	fmt.Println()
	if res.ApprovalTx != nil {
		fmt.Printf("Approval:  %s\n", c.engine.Network().TxURL(*res.ApprovalTx))
	}
	fmt.Printf("Confirmed: block %d, gas %d, %s\n", res.BlockNumber, res.GasUsed, res.Duration.Round(time.Millisecond))
	fmt.Printf("Tx:        %s\n", c.engine.Network().TxURL(res.TxHash))
	if res.Simulated != nil {
		decimals, err := c.engine.Decimals(ctx, res.Plan.TokenOut)
		if err == nil {
			fmt.Printf("Received:  ~%s %s (simulated)\n", uniswap.FormatUnits(res.Simulated, decimals), c.engine.Symbol(ctx, res.Plan.TokenOut))
		}
	}
	return nil
}

func (c *cli) amount(ctx context.Context, v *big.Int, token common.Address) string {
	if v == nil {
		return "-"
	}
	decimals, err := c.engine.Decimals(ctx, token)
	if err != nil {
		return v.String() + " (base units)"
	}
	return uniswap.FormatUnits(v, decimals) + " " + c.engine.Symbol(ctx, token)
}

func (c *cli) printPlan(ctx context.Context, p *swapengine.Plan) {
	fmt.Printf("Plan:      %s (%s)\n", p.Description, p.Kind)
	fmt.Printf("Target:    %s\n", p.Target.Hex())
	fmt.Printf("Amount in: %s\n", c.amount(ctx, p.AmountIn, p.TokenIn))
	if p.ExpectedOut != nil {
		fmt.Printf("Expected:  %s\n", c.amount(ctx, p.ExpectedOut, p.TokenOut))
	}
	fmt.Printf("Min out:   %s\n", c.amount(ctx, p.MinOut, p.TokenOut))
	if p.MintCost != nil {
		fmt.Printf("Cost:      %s (royalty %s)\n", c.amount(ctx, p.MintCost.TotalCost, p.TokenIn), c.amount(ctx, p.MintCost.Royalty, p.TokenIn))
	}
	if p.BurnRefund != nil {
		fmt.Printf("Refund:    %s (royalty %s)\n", c.amount(ctx, p.BurnRefund.NetRefund, p.TokenOut), c.amount(ctx, p.BurnRefund.Royalty, p.TokenOut))
	}
	if p.Value != nil && p.Value.Sign() > 0 {
		fmt.Printf("Value:     %s ETH\n", uniswap.FormatUnits(p.Value, 18))
	}
	if p.Approval != nil {
		fmt.Printf("Approval:  %s to %s\n", c.engine.Symbol(ctx, p.Approval.Token), p.Approval.Spender.Hex())
	}
	fmt.Printf("Calldata:  0x%x\n", p.Data)
}

func (c *cli) price(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	tokenFlag := fs.String("token", "", "token symbol or address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *tokenFlag}); err != nil {
		return err
	}
	token, err := c.engine.Resolve(ctx, *tokenFlag)
	if err != nil {
		return err
	}
	symbol := c.engine.Symbol(ctx, token)

	pricing, err := c.engine.Pricing(ctx, token)
	if errors.Is(err, swapengine.ErrNotCurveToken) {
		usd, err := c.engine.USDPrice(ctx, token)
		if err != nil {
			return err
		}
		fmt.Printf("%s: $%s\n", symbol, usd.StringFixed(6))
		return nil
	}
	if err != nil {
		return err
	}
	info, err := c.engine.BondInfo(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s %s", symbol, pricing.ReservePrice.String(), info.ReserveSymbol)
	if pricing.HasUSD {
		fmt.Printf(" ($%s)", pricing.TokenUSD.StringFixed(6))
	}
	fmt.Println()
	return nil
}

func (c *cli) info(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	tokenFlag := fs.String("token", "", "curve token symbol or address")
	showSteps := fs.Bool("steps", false, "print every curve step")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *tokenFlag}); err != nil {
		return err
	}
	token, err := c.engine.Resolve(ctx, *tokenFlag)
	if err != nil {
		return err
	}
	mc := c.engine.MintClub()
	info, err := c.engine.BondInfo(ctx, token)
	if err != nil {
		return err
	}
	maxSupply, err := mc.MaxSupply(ctx, token)
	if err != nil {
		return err
	}
	supply, err := mc.TotalSupply(ctx, token)
	if err != nil {
		return err
	}
	steps, err := mc.Steps(ctx, token)
	if err != nil {
		return err
	}
	pricing, err := c.engine.Pricing(ctx, token)
	if err != nil {
		return err
	}

	fmt.Printf("Token:          %s (%s)\n", c.engine.Symbol(ctx, token), token.Hex())
	fmt.Printf("Creator:        %s\n", info.Creator.Hex())
	fmt.Printf("Reserve:        %s (%s)\n", info.ReserveSymbol, info.ReserveToken.Hex())
	fmt.Printf("Reserve locked: %s %s\n", uniswap.FormatUnits(info.ReserveBalance, info.ReserveDecimals), info.ReserveSymbol)
	fmt.Printf("Royalties:      mint %.2f%%, burn %.2f%%\n", float64(info.MintRoyaltyBps)/100, float64(info.BurnRoyaltyBps)/100)
	fmt.Printf("Supply:         %s / %s\n", uniswap.FormatUnits(supply, 18), uniswap.FormatUnits(maxSupply, 18))
	fmt.Printf("Price:          %s %s\n", pricing.ReservePrice.String(), info.ReserveSymbol)
	if pricing.HasUSD {
		fmt.Printf("Price (USD):    $%s\n", pricing.TokenUSD.StringFixed(6))
		fmt.Printf("Market cap:     $%s\n", pricing.MarketCap.StringFixed(2))
	}
	fmt.Printf("Curve steps:    %d\n", len(steps))
	if *showSteps {
		for i, s := range steps {
			fmt.Printf("  %3d  to %s  at %s %s\n", i+1,
				uniswap.FormatUnits(s.RangeTo, 18), uniswap.FormatUnits(s.Price, info.ReserveDecimals), info.ReserveSymbol)
		}
	}
	return nil
}

func runCurve(args []string) error {
	fs := flag.NewFlagSet("curve", flag.ContinueOnError)
	curveType := fs.String("type", "linear", "linear, exponential, logarithmic or flat")
	count := fs.Int("steps", mintclub.DefaultStepCount, "number of steps")
	maxSupply := fs.String("max-supply", "", "maximum supply in whole tokens")
	initial := fs.String("initial", "", "initial price in reserve units")
	final := fs.String("final", "", "final price in reserve units")
	if err := fs.Parse(args); err != nil {
		return err
	}
	curve, err := mintclub.ParseCurveType(*curveType)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	steps, err := mintclub.GenerateSteps(curve, *count, *maxSupply, *initial, *final)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ranges := make([]string, len(steps))
	prices := make([]string, len(steps))
	for i, s := range steps {
		ranges[i] = s.RangeTo.String()
		prices[i] = s.Price.String()
	}
	fmt.Printf("stepRanges: [%s]\n", strings.Join(ranges, ","))
	fmt.Printf("stepPrices: [%s]\n", strings.Join(prices, ","))
	return nil
}

func (c *cli) approve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("approve", flag.ContinueOnError)
	tokenFlag := fs.String("token", "", "token to approve")
	spenderFlag := fs.String("spender", "", "bond, zap, router or an address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"token": *tokenFlag, "spender": *spenderFlag}); err != nil {
		return err
	}
	token, err := c.engine.Resolve(ctx, *tokenFlag)
	if err != nil {
		return err
	}
	net := c.engine.Network()
	var spender common.Address
	switch s := strings.ToLower(*spenderFlag); {
	case s == "bond":
		spender = net.Bond
	case s == "zap":
		spender = net.ZapV2
	case s == "router":
		spender = net.UniversalRouter
	case common.IsHexAddress(s):
		spender = common.HexToAddress(s)
	default:
		return fmt.Errorf("%w: unknown spender %q", errUsage, *spenderFlag)
	}

	hash, err := c.engine.Approve(ctx, token, spender)
	if err != nil {
		return err
	}
	if hash == nil {
		fmt.Println("allowance already sufficient")
		return nil
	}
	fmt.Printf("approved: %s\n", net.TxURL(*hash))
	return nil
}

func (c *cli) wallet(ctx context.Context) error {
	info, err := c.engine.GetWalletInfo(ctx)
	if err != nil {
		return err
	}
	risk := c.engine.GetRiskStatus()
	fmt.Printf("Address:  %s\n", info.Address)
	fmt.Printf("Balance:  %s ETH\n", info.BalanceETH)
	fmt.Printf("Daily tx: %d / %d\n", risk.DailyTxUsed, risk.DailyTxLimit)
	pools := c.engine.GetPoolInfo()
	if pools.TotalPools > 0 {
		fmt.Printf("V4 pools: %s\n", strings.Join(pools.PoolNames, ", "))
	}
	return nil
}
