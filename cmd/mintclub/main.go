package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
)

const usage = `usage: mintclub <command> [flags]

Commands:
  route     best Uniswap route for an exact input      -in -out -amount
  swap      swap through the UniversalRouter            -in -out -amount [-min-out] [-path] [-smart]
  buy       mint curve tokens with the reserve          -token -amount [-max-cost]
  sell      burn curve tokens for the reserve           -token -amount [-min-refund]
  zap-buy   swap any token into the reserve and mint    -token -in -amount [-min-tokens] [-path]
  zap-sell  burn and swap the refund to any token       -token -out -amount [-min-out] [-path]
  price     USD price, and reserve price for curve tokens  -token
  info      bond record, supply and curve steps         -token [-steps]
  curve     generate curve steps for a new token        -type -steps -max-supply -initial -final
  approve   grant an unlimited allowance                -token -spender (bond|zap|router|0x...)
  wallet    wallet address, balance and risk usage

Trading commands accept -dry-run to print the plan without sending, and
-slippage-bps (default SLIPPAGE_BPS).
`

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envPath)
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		fmt.Print(usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	loadEnv(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// curve needs no chain access
	if cmd == "curve" {
		if err := runCurve(args); err != nil {
			fail(err)
		}
		return
	}

	cfg := config.Load()
	engine, err := swapengine.NewEngineFromEnv(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init engine:", err)
		os.Exit(1)
	}
	defer engine.Close()

	c := &cli{engine: engine, defaultSlippage: cfg.SlippageBps}
	if err := c.run(ctx, cmd, args); err != nil {
		_ = engine.Close()
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	var sim *swapengine.SimulationError
	if errors.As(err, &sim) && sim.Reason != nil && sim.Reason.Selector != "" {
		fmt.Fprintln(os.Stderr, "revert selector:", sim.Reason.Selector)
	}
	if errors.Is(err, swapengine.ErrInvalidArgument) || errors.Is(err, errUsage) {
		os.Exit(2)
	}
	os.Exit(1)
}
