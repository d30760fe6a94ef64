package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/ai"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/swapengine"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

type session struct {
	agent   *ai.Agent
	engine  *swapengine.Engine
	execute bool
	in      *bufio.Reader
}

func main() {
	loadEnv()

	queryFlag := flag.String("q", "", "Run a single request and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (default AI_MODEL)")
	executeFlag := flag.Bool("execute", false, "Offer to execute parsed trades (needs PRIVATE_KEY)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.WarnLevel)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the AI agent. Please set it in your environment or config.")
	}
	model := cfg.AIModel
	if *modelFlag != "" {
		model = *modelFlag
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down AI agent...")
		cancel()
	}()

	engine, err := swapengine.NewEngineFromEnv(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}
	defer engine.Close()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              model,
		KnownTokens:        engine.Network().TokenSymbols(),
		MinConfidence:      0.5,
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	if *executeFlag && !engine.HasWallet() {
		logger.Fatal("-execute needs PRIVATE_KEY")
	}
	s := &session{agent: agent, engine: engine, execute: *executeFlag, in: bufio.NewReader(os.Stdin)}

	if *queryFlag != "" {
		if err := s.handle(ctx, *queryFlag); err != nil {
			logger.WithError(err).Fatal("request failed")
		}
		return
	}
	s.repl(ctx)
}

func (s *session) repl(ctx context.Context) {
	fmt.Println("Mint Club AI Agent")
	fmt.Println(`Describe a trade ("buy 100 SIGMA with ETH") or ask about history with "?".`)
	fmt.Println("Empty line to exit.")
	fmt.Println()

	for {
		fmt.Print("> ")
		line, err := s.in.ReadString('\n')
		if err != nil {
			fmt.Println("error reading input:", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			fmt.Println("bye")
			return
		}

		// Short cooldown to avoid hammering the LLM if user spams enter.
		time.Sleep(200 * time.Millisecond)

		if err := s.handle(ctx, line); err != nil {
			fmt.Println("error:", err)
		}
		fmt.Println()
	}
}

func (s *session) handle(ctx context.Context, line string) error {
	if q, ok := strings.CutPrefix(line, "?"); ok {
		res, err := s.agent.Ask(ctx, strings.TrimSpace(q))
		if err != nil {
			return err
		}
		fmt.Printf("\nSQL:\n%s\n\n", res.SQL)
		fmt.Printf("Answer:\n%s\n", res.Answer)
		return nil
	}

	intent, err := s.agent.ParseIntent(ctx, line)
	if err != nil {
		if errors.Is(err, ai.ErrNotUnderstood) {
			return fmt.Errorf("could not read a trade from that: %w", err)
		}
		return err
	}
	fmt.Printf("\nIntent: %s %s %s -> %s", intent.Action, intent.Amount, intent.InputToken, intent.OutputToken)
	if intent.Reason != "" {
		fmt.Printf(" (%s)", intent.Reason)
	}
	fmt.Println()

	params, err := s.engine.ParseIntent(ctx, intent)
	if err != nil {
		return err
	}
	plan, err := s.engine.Plan(ctx, params)
	if err != nil {
		return err
	}
	fmt.Printf("Plan:   %s\n", plan.Description)
	fmt.Printf("Target: %s  value: %s wei\n", plan.Target.Hex(), plan.Value)
	if plan.ExpectedOut != nil {
		fmt.Printf("Expect: %s  min: %s (base units)\n", plan.ExpectedOut, plan.MinOut)
	}
	if plan.Approval != nil {
		fmt.Printf("Needs approval of %s for %s\n", plan.Approval.Token.Hex(), plan.Approval.Spender.Hex())
	}

	if !s.execute {
		return nil
	}
	fmt.Print("Execute? [y/N] ")
	answer, _ := s.in.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		fmt.Println("skipped")
		return nil
	}
	res, err := s.engine.Execute(ctx, params)
	if err != nil {
		return err
	}
	fmt.Printf("Confirmed in block %d, gas %d\n%s\n", res.BlockNumber, res.GasUsed, s.engine.Network().TxURL(res.TxHash))
	if res.Simulated != nil {
		decimals, err := s.engine.Decimals(ctx, plan.TokenOut)
		if err != nil {
			decimals = 18
		}
		fmt.Printf("Simulated output: %s\n", uniswap.FormatUnits(res.Simulated, decimals))
	}
	return nil
}
