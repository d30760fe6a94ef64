package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/cache"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// subscriber prints executed swaps as they are published.
func main() {
	loadEnv()

	pattern := flag.String("pattern", "", `channel pattern, e.g. "swaps:kind:*" (default: live channel)`)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down subscriber")
		cancel()
	}()

	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer rc.Close()

	network, err := cfg.NetworkConfig()
	if err != nil {
		logger.WithError(err).Fatal("invalid network")
	}

	var swaps <-chan *models.SwapEvent
	channel := constants.PubSubChannelSwaps
	if *pattern != "" {
		channel = *pattern
		swaps, err = rc.PSubscribeSwaps(ctx, *pattern)
	} else {
		swaps, err = rc.SubscribeSwaps(ctx)
	}
	if err != nil {
		logger.WithError(err).Fatal("failed to subscribe")
	}

	logger.WithField("channel", channel).Info("subscriber running, press Ctrl+C to stop")
	for swap := range swaps {
		logger.WithFields(logrus.Fields{
			"kind":      swap.Kind,
			"tx":        swap.TxHash,
			"block":     swap.BlockNumber,
			"token_in":  label(network, swap.TokenIn),
			"token_out": label(network, swap.TokenOut),
			"amount_in": swap.AmountIn,
			"route":     swap.Route,
		}).Info("swap executed")
	}
}

func label(n *config.NetworkConfig, addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	a := common.HexToAddress(addr)
	for _, t := range n.Tokens {
		if t.Address == a {
			return t.Symbol
		}
	}
	return addr
}
