package router

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var (
	weth = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	hunt = common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C")
	mt   = common.HexToAddress("0xFf45161474C39cB00699070Dd49582e417b57a7E")
)

// stubQuoter answers from a table keyed by packed path, defaulting to no quote.
type stubQuoter struct {
	mu     sync.Mutex
	paths  map[string]*big.Int
	pools  map[uniswap.PoolKey]*big.Int
	calls  atomic.Int64
	called []string
}

func newStubQuoter() *stubQuoter {
	return &stubQuoter{
		paths: map[string]*big.Int{},
		pools: map[uniswap.PoolKey]*big.Int{},
	}
}

func (q *stubQuoter) setPath(t *testing.T, tokens []common.Address, fees []uint32, out int64) {
	path, err := uniswap.EncodePath(tokens, fees)
	require.NoError(t, err)
	q.paths[string(path)] = big.NewInt(out)
}

func (q *stubQuoter) QuotePath(_ context.Context, path []byte, _ *big.Int) (*big.Int, bool) {
	q.calls.Add(1)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.called = append(q.called, string(path))
	out, ok := q.paths[string(path)]
	return out, ok
}

func (q *stubQuoter) QuotePool(_ context.Context, key uniswap.PoolKey, _ bool, _ *big.Int) (*big.Int, bool) {
	q.calls.Add(1)
	out, ok := q.pools[key]
	return out, ok
}

func newTestSearcher(t *testing.T, q Quoter, pools *uniswap.PoolRegistry) *Searcher {
	s, err := NewSearcher(SearcherConfig{
		Quoter:        q,
		WrappedNative: weth,
		Intermediaries: []Intermediary{
			{Address: weth, Symbol: "WETH"},
			{Address: usdc, Symbol: "USDC"},
		},
		FeeTiers: []uint32{100, 500, 3000, 10000},
		Pools:    pools,
	})
	require.NoError(t, err)
	return s
}

func TestFindBestRoute_SelectsMaximumOutput(t *testing.T) {
	q := newStubQuoter()
	q.setPath(t, []common.Address{hunt, mt}, []uint32{500}, 100)
	q.setPath(t, []common.Address{hunt, weth, mt}, []uint32{3000, 10000}, 250)
	q.setPath(t, []common.Address{hunt, usdc, mt}, []uint32{100, 500}, 180)

	s := newTestSearcher(t, q, nil)
	route, err := s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, int64(250), route.AmountOut.Int64())
	assert.Equal(t, uniswap.RouteV3, route.Version)
	assert.Equal(t, []common.Address{hunt, weth, mt}, route.Tokens)
	assert.Equal(t, []uint32{3000, 10000}, route.Fees)
	assert.Equal(t, "via WETH (fees: 0.3% → 1%)", route.Description)
	// 4 direct + 2 intermediaries * 16
	assert.Equal(t, 36, route.Candidates)
	assert.Equal(t, int64(36), q.calls.Load())
}

func TestFindBestRoute_TieKeepsFirstCandidate(t *testing.T) {
	q := newStubQuoter()
	q.setPath(t, []common.Address{hunt, mt}, []uint32{500}, 300)
	q.setPath(t, []common.Address{hunt, mt}, []uint32{3000}, 300)

	s := newTestSearcher(t, q, nil)
	route, err := s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "Direct (fee: 0.05%)", route.Description)
}

func TestFindBestRoute_SameToken(t *testing.T) {
	q := newStubQuoter()
	s := newTestSearcher(t, q, nil)

	for _, tok := range []common.Address{hunt, weth, uniswap.NativeToken} {
		_, err := s.FindBestRoute(context.Background(), tok, tok, big.NewInt(1))
		assert.ErrorIs(t, err, ErrNoRouteFound)
	}

	// native and wrapped native normalize to the same token
	_, err := s.FindBestRoute(context.Background(), uniswap.NativeToken, weth, big.NewInt(1))
	assert.ErrorIs(t, err, ErrNoRouteFound)
	assert.Zero(t, q.calls.Load())
}

func TestFindBestRoute_NoViableQuote(t *testing.T) {
	q := newStubQuoter()
	q.setPath(t, []common.Address{hunt, mt}, []uint32{500}, 0)

	s := newTestSearcher(t, q, nil)
	route, err := s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(1000))
	assert.ErrorIs(t, err, ErrNoRouteFound)
	assert.Nil(t, route)
}

func TestFindBestRoute_NormalizesNativeAndSkipsSelfIntermediary(t *testing.T) {
	q := newStubQuoter()
	q.setPath(t, []common.Address{weth, hunt}, []uint32{3000}, 500)

	s := newTestSearcher(t, q, nil)
	route, err := s.FindBestRoute(context.Background(), uniswap.NativeToken, hunt, big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, []common.Address{weth, hunt}, route.Tokens)
	// WETH is the input, so only USDC is tried as an intermediary
	assert.Equal(t, 4+16, route.Candidates)

	for _, p := range q.called {
		assert.NotEqual(t, uniswap.NativeToken.Bytes(), []byte(p)[:20])
	}
}

func TestFindBestRoute_V4Pool(t *testing.T) {
	key := uniswap.PoolKey{Currency0: uniswap.NativeToken, Currency1: hunt, Fee: 3000, TickSpacing: 60}
	reg := uniswap.NewPoolRegistry([]uniswap.Pool{{Name: "ETH/HUNT", Key: key}})

	q := newStubQuoter()
	q.setPath(t, []common.Address{weth, hunt}, []uint32{3000}, 500)
	q.pools[key] = big.NewInt(900)

	s := newTestSearcher(t, q, reg)
	route, err := s.FindBestRoute(context.Background(), hunt, uniswap.NativeToken, big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, uniswap.RouteV4, route.Version)
	require.NotNil(t, route.Pool)
	assert.Equal(t, key, *route.Pool)
	assert.False(t, route.ZeroForOne)
	assert.Equal(t, int64(900), route.AmountOut.Int64())
	assert.Equal(t, "V4 ETH/HUNT (fee: 0.3%)", route.Description)
}

// stallingQuoter answers paths it knows at once and holds every other quote
// until the context ends, like an RPC endpoint that never responds.
type stallingQuoter struct {
	*stubQuoter
	stalled atomic.Int64
}

func (q *stallingQuoter) QuotePath(ctx context.Context, path []byte, amountIn *big.Int) (*big.Int, bool) {
	q.mu.Lock()
	_, known := q.paths[string(path)]
	q.mu.Unlock()
	if known {
		return q.stubQuoter.QuotePath(ctx, path, amountIn)
	}
	q.stalled.Add(1)
	<-ctx.Done()
	return nil, false
}

func TestFindBestRoute_TimeoutBoundsStalledQuotes(t *testing.T) {
	q := &stallingQuoter{stubQuoter: newStubQuoter()}
	s, err := NewSearcher(SearcherConfig{
		Quoter:         q,
		WrappedNative:  weth,
		Intermediaries: []Intermediary{{Address: weth, Symbol: "WETH"}, {Address: usdc, Symbol: "USDC"}},
		FeeTiers:       []uint32{100, 500, 3000, 10000},
		Concurrency:    4,
		Timeout:        50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(1000))
	assert.ErrorIs(t, err, ErrNoRouteFound)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Positive(t, q.stalled.Load())

	// answered quotes survive the stalled ones
	q.setPath(t, []common.Address{hunt, usdc, mt}, []uint32{500, 3000}, 77)
	route, err := s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(77), route.AmountOut.Int64())
	assert.Equal(t, []common.Address{hunt, usdc, mt}, route.Tokens)
}

func TestFindBestRoute_RejectsNonPositiveAmount(t *testing.T) {
	s := newTestSearcher(t, newStubQuoter(), nil)
	_, err := s.FindBestRoute(context.Background(), hunt, mt, big.NewInt(0))
	assert.ErrorIs(t, err, uniswap.ErrInvalidArgument)
}

func TestManualRoute(t *testing.T) {
	r, err := ManualRoute(hunt.Hex() + ",3000," + weth.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Manual V3 path", r.Description)
	assert.False(t, r.Quoted())
	assert.Len(t, r.Path, 43)

	_, err = ManualRoute("garbage")
	assert.ErrorIs(t, err, uniswap.ErrInvalidArgument)
}
