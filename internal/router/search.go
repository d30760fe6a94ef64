package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/metrics"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// ErrNoRouteFound is returned when no candidate produced a positive quote.
var ErrNoRouteFound = errors.New("no route found")

// Quoter prices candidates. A false result means the candidate does not exist
// or has no liquidity.
type Quoter interface {
	QuotePath(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, bool)
	QuotePool(ctx context.Context, key uniswap.PoolKey, zeroForOne bool, amountIn *big.Int) (*big.Int, bool)
}

// Intermediary is a token one-hop routes may pass through.
type Intermediary struct {
	Address common.Address
	Symbol  string
}

type SearcherConfig struct {
	Quoter         Quoter
	WrappedNative  common.Address
	Intermediaries []Intermediary
	FeeTiers       []uint32
	Pools          *uniswap.PoolRegistry

	// Concurrency bounds in-flight quote calls; Timeout bounds a whole search.
	Concurrency int
	Timeout     time.Duration
	Logger      *logrus.Logger
}

// Searcher finds the best exact-input route between two tokens.
type Searcher struct {
	quoter         Quoter
	wrappedNative  common.Address
	intermediaries []Intermediary
	feeTiers       []uint32
	pools          *uniswap.PoolRegistry
	concurrency    int
	timeout        time.Duration
	logger         *logrus.Logger
}

func NewSearcher(cfg SearcherConfig) (*Searcher, error) {
	if cfg.Quoter == nil {
		return nil, fmt.Errorf("searcher: quoter is required")
	}
	if cfg.WrappedNative == (common.Address{}) {
		return nil, fmt.Errorf("searcher: wrapped native address is required")
	}
	if len(cfg.FeeTiers) == 0 {
		cfg.FeeTiers = constants.DefaultFeeTiers
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Searcher{
		quoter:         cfg.Quoter,
		wrappedNative:  cfg.WrappedNative,
		intermediaries: cfg.Intermediaries,
		feeTiers:       cfg.FeeTiers,
		pools:          cfg.Pools,
		concurrency:    cfg.Concurrency,
		timeout:        cfg.Timeout,
		logger:         cfg.Logger,
	}, nil
}

type candidate struct {
	route     uniswap.Route
	amountOut *big.Int
}

// FindBestRoute quotes every direct, one-hop and allow-listed V4 candidate
// concurrently and returns the one with the greatest output.
func (s *Searcher) FindBestRoute(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*uniswap.Route, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountIn must be positive", uniswap.ErrInvalidArgument)
	}

	start := time.Now()
	defer func() {
		metrics.RouteSearchDuration.Observe(time.Since(start).Seconds())
	}()

	in := s.normalize(tokenIn)
	out := s.normalize(tokenOut)
	if in == out {
		metrics.RouteSearches.WithLabelValues("degenerate").Inc()
		return nil, fmt.Errorf("%w: input and output are the same token", ErrNoRouteFound)
	}

	cands, err := s.candidates(in, out)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// each goroutine owns exactly one slot
	results := make([]*big.Int, len(cands))

	g, gctx := errgroup.WithContext(searchCtx)
	g.SetLimit(s.concurrency)
	for i := range cands {
		g.Go(func() error {
			results[i] = s.quote(gctx, &cands[i].route, amountIn)
			return nil
		})
	}
	_ = g.Wait()

	viable := make([]candidate, 0, len(cands))
	for i, amt := range results {
		if amt == nil || amt.Sign() <= 0 {
			continue
		}
		cands[i].amountOut = amt
		viable = append(viable, cands[i])
	}

	metrics.RouteCandidates.Observe(float64(len(cands)))

	if len(viable) == 0 {
		metrics.RouteSearches.WithLabelValues("no_route").Inc()
		s.logger.WithFields(logrus.Fields{
			"token_in":   tokenIn.Hex(),
			"token_out":  tokenOut.Hex(),
			"amount_in":  amountIn.String(),
			"candidates": len(cands),
		}).Info("no viable route")
		return nil, fmt.Errorf("%w: %d candidates from %s to %s", ErrNoRouteFound, len(cands), tokenIn.Hex(), tokenOut.Hex())
	}

	sort.SliceStable(viable, func(i, j int) bool {
		return viable[i].amountOut.Cmp(viable[j].amountOut) > 0
	})

	best := viable[0].route
	best.AmountOut = viable[0].amountOut
	best.Candidates = len(cands)

	metrics.RouteSearches.WithLabelValues("ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"token_in":   tokenIn.Hex(),
		"token_out":  tokenOut.Hex(),
		"amount_in":  amountIn.String(),
		"amount_out": best.AmountOut.String(),
		"route":      best.Description,
		"candidates": len(cands),
		"viable":     len(viable),
	}).Info("best route selected")

	return &best, nil
}

func (s *Searcher) quote(ctx context.Context, r *uniswap.Route, amountIn *big.Int) *big.Int {
	var (
		out *big.Int
		ok  bool
	)
	if r.Version == uniswap.RouteV4 {
		out, ok = s.quoter.QuotePool(ctx, *r.Pool, r.ZeroForOne, amountIn)
	} else {
		out, ok = s.quoter.QuotePath(ctx, r.Path, amountIn)
	}

	status := "ok"
	if !ok {
		status = "failed"
		out = nil
	}
	metrics.QuoteCalls.WithLabelValues(string(r.Version), status).Inc()
	return out
}

func (s *Searcher) normalize(token common.Address) common.Address {
	if uniswap.IsNative(token) {
		return s.wrappedNative
	}
	return token
}

// V4 pools are keyed on the native sentinel, so wrapped native maps back.
func (s *Searcher) denormalize(token common.Address) common.Address {
	if token == s.wrappedNative {
		return uniswap.NativeToken
	}
	return token
}

func (s *Searcher) candidates(in, out common.Address) ([]candidate, error) {
	var cands []candidate

	for _, fee := range s.feeTiers {
		r, err := v3Route([]common.Address{in, out}, []uint32{fee},
			fmt.Sprintf("Direct (fee: %s%%)", uniswap.FeePercent(fee)))
		if err != nil {
			return nil, err
		}
		cands = append(cands, candidate{route: r})
	}

	for _, mid := range s.intermediaries {
		if mid.Address == in || mid.Address == out {
			continue
		}
		for _, fee1 := range s.feeTiers {
			for _, fee2 := range s.feeTiers {
				r, err := v3Route([]common.Address{in, mid.Address, out}, []uint32{fee1, fee2},
					fmt.Sprintf("via %s (fees: %s%% → %s%%)", mid.Symbol, uniswap.FeePercent(fee1), uniswap.FeePercent(fee2)))
				if err != nil {
					return nil, err
				}
				cands = append(cands, candidate{route: r})
			}
		}
	}

	v4In, v4Out := s.denormalize(in), s.denormalize(out)
	for _, p := range s.pools.FindPools(v4In, v4Out) {
		zeroForOne, err := p.Key.Direction(v4In)
		if err != nil {
			continue
		}
		key := p.Key
		cands = append(cands, candidate{route: uniswap.Route{
			Version:     uniswap.RouteV4,
			Pool:        &key,
			ZeroForOne:  zeroForOne,
			Description: fmt.Sprintf("V4 %s (fee: %s%%)", p.Name, uniswap.FeePercent(p.Key.Fee)),
		}})
	}

	return cands, nil
}

func v3Route(tokens []common.Address, fees []uint32, desc string) (uniswap.Route, error) {
	path, err := uniswap.EncodePath(tokens, fees)
	if err != nil {
		return uniswap.Route{}, err
	}
	return uniswap.Route{
		Version:     uniswap.RouteV3,
		Path:        path,
		Tokens:      tokens,
		Fees:        fees,
		Description: desc,
	}, nil
}

// ManualRoute builds an unquoted V3 route from a user-supplied path string.
func ManualRoute(text string) (*uniswap.Route, error) {
	tokens, fees, err := uniswap.ParsePath(text)
	if err != nil {
		return nil, err
	}
	r, err := v3Route(tokens, fees, "Manual V3 path")
	if err != nil {
		return nil, err
	}
	r.AmountOut = new(big.Int)
	return &r, nil
}
