package swapengine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/config"
	"github.com/aman-zulfiqar/mintclub-router/internal/mintclub"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

var (
	testNetwork = config.Base()

	account = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	curveT  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	hunt    = common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C")
	usdc    = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	weth    = testNetwork.WrappedNative
	native  = uniswap.NativeToken

	fixedNow = func() time.Time { return time.Unix(1_700_000_000, 0) }
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), mintclub.OneToken)
}

// milli returns n/1000 of a whole 18-decimal token.
func milli(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e15))
}

type bondState struct {
	reserve        common.Address
	symbol         string
	price          *big.Int // reserve units per whole token
	mintRoyaltyBps int64
	burnRoyaltyBps int64
	maxSupply      *big.Int

	// fixedCost overrides the linear curve for getReserveForToken
	fixedCost *[2]*big.Int
}

// fakeChain is both the Reader and the Writer. Calls are decoded against the
// contract ABIs and answered from in-memory state.
type fakeChain struct {
	mu         sync.Mutex
	bonds      map[common.Address]*bondState
	quotes     map[string]*big.Int
	allowances map[[2]common.Address]*big.Int
	reverts    map[string]error
	status     uint64

	calls []chain.CallMsg
	sent  []chain.CallMsg
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		bonds:      map[common.Address]*bondState{},
		quotes:     map[string]*big.Int{},
		allowances: map[[2]common.Address]*big.Int{},
		reverts:    map[string]error{},
		status:     types.ReceiptStatusSuccessful,
	}
}

func (f *fakeChain) setQuote(tokens []common.Address, fees []uint32, out *big.Int) {
	path, err := uniswap.EncodePath(tokens, fees)
	if err != nil {
		panic(err)
	}
	f.quotes[string(path)] = out
}

var callABIs = []abi.ABI{
	mintclub.BondABI, mintclub.ZapABI, mintclub.ERC20ABI, mintclub.RouterABI,
	uniswap.QuoterV2ABI, uniswap.V4QuoterABI,
}

func decodeCall(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("short calldata")
	}
	for _, parsed := range callABIs {
		m, err := parsed.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, nil, err
		}
		return m, args, nil
	}
	return nil, nil, fmt.Errorf("unknown selector %x", data[:4])
}

func (f *fakeChain) Call(_ context.Context, msg chain.CallMsg) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msg)

	m, args, err := decodeCall(msg.Data)
	if err != nil {
		return nil, err
	}
	if err := f.reverts[m.Name]; err != nil {
		return nil, err
	}

	switch m.Name {
	case "tokenBond":
		b := f.bonds[args[0].(common.Address)]
		if b == nil {
			return m.Outputs.Pack(common.Address{}, uint16(0), uint16(0), new(big.Int), common.Address{}, new(big.Int))
		}
		return m.Outputs.Pack(account, uint16(b.mintRoyaltyBps), uint16(b.burnRoyaltyBps),
			big.NewInt(1_690_000_000), b.reserve, ether(1000))

	case "getReserveForToken", "getRefundForTokens":
		b := f.bonds[args[0].(common.Address)]
		if b == nil {
			return nil, errors.New("execution reverted: MCV2_Bond__TokenNotFound")
		}
		amount := args[1].(*big.Int)
		if m.Name == "getReserveForToken" && b.fixedCost != nil {
			return m.Outputs.Pack(b.fixedCost[0], b.fixedCost[1])
		}
		if b.maxSupply != nil && m.Name == "getReserveForToken" && amount.Cmp(b.maxSupply) > 0 {
			return nil, errors.New("execution reverted: MCV2_Bond__ExceedMaxSupply")
		}
		reserve := new(big.Int).Mul(amount, b.price)
		reserve.Div(reserve, mintclub.OneToken)
		bps := b.mintRoyaltyBps
		if m.Name == "getRefundForTokens" {
			bps = b.burnRoyaltyBps
		}
		royalty := new(big.Int).Mul(reserve, big.NewInt(bps))
		royalty.Div(royalty, big.NewInt(10000))
		return m.Outputs.Pack(reserve, royalty)

	case "symbol":
		if b := f.bonds[msg.To]; b != nil {
			return m.Outputs.Pack(b.symbol)
		}
		return m.Outputs.Pack("TKN")

	case "decimals":
		if msg.To == usdc {
			return m.Outputs.Pack(uint8(6))
		}
		return m.Outputs.Pack(uint8(18))

	case "allowance":
		a := f.allowances[[2]common.Address{msg.To, args[1].(common.Address)}]
		if a == nil {
			a = new(big.Int)
		}
		return m.Outputs.Pack(a)

	case "approve":
		return m.Outputs.Pack(true)

	case "mint":
		return m.Outputs.Pack(args[1].(*big.Int))

	case "burn":
		return m.Outputs.Pack(big.NewInt(1))

	case "zapMint", "zapBurn":
		return m.Outputs.Pack(big.NewInt(42), big.NewInt(7))

	case "execute":
		return nil, nil

	case "quoteExactInput":
		out, ok := f.quotes[string(args[0].([]byte))]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return m.Outputs.Pack(out, []*big.Int{}, []uint32{}, big.NewInt(100000))
	}
	return nil, fmt.Errorf("unhandled method %s", m.Name)
}

func (f *fakeChain) CodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return ether(3), nil
}

func (f *fakeChain) WaitForReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &types.Receipt{
		Status:      f.status,
		TxHash:      hash,
		BlockNumber: big.NewInt(30_000_000),
		GasUsed:     150_000,
	}, nil
}

func (f *fakeChain) DecodeRevertReason(err error) *chain.RevertReason {
	if !chain.IsRevert(err) {
		return nil
	}
	return &chain.RevertReason{Message: strings.TrimPrefix(err.Error(), "execution reverted: ")}
}

func (f *fakeChain) Address() common.Address { return account }

// Send records msg and applies approvals to the allowance table.
func (f *fakeChain) Send(_ context.Context, msg chain.CallMsg) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)

	if m, args, err := decodeCall(msg.Data); err == nil && m.Name == "approve" {
		f.allowances[[2]common.Address{msg.To, args[0].(common.Address)}] = args[1].(*big.Int)
	}
	return common.BigToHash(big.NewInt(int64(len(f.sent)))), nil
}

func (f *fakeChain) sentMethods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.sent))
	for i, msg := range f.sent {
		if m, _, err := decodeCall(msg.Data); err == nil {
			names[i] = m.Name
		}
	}
	return names
}

// memTokens is an in-memory storage.TokenStore.
type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *memTokens) Has(_ context.Context, address string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[address]
	return ok, nil
}

func (m *memTokens) Put(_ context.Context, address, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = map[string]string{}
	}
	m.tokens[address] = symbol
	return nil
}

func (m *memTokens) Get(_ context.Context, address string) (*models.SavedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sym, ok := m.tokens[address]
	if !ok {
		return nil, errors.New("not found")
	}
	return &models.SavedToken{Address: address, Symbol: sym}, nil
}

func (m *memTokens) List(context.Context) ([]*models.SavedToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SavedToken
	for a, s := range m.tokens {
		out = append(out, &models.SavedToken{Address: a, Symbol: s})
	}
	return out, nil
}

func unpackZapMint(data []byte) []interface{} {
	args, err := mintclub.ZapABI.Methods["zapMint"].Inputs.Unpack(data[4:])
	if err != nil {
		panic(err)
	}
	return args
}

func unpackZapBurn(data []byte) []interface{} {
	args, err := mintclub.ZapABI.Methods["zapBurn"].Inputs.Unpack(data[4:])
	if err != nil {
		panic(err)
	}
	return args
}

// stepWord returns the i-th 32-byte head word of an encoded step input.
func stepWord(input []byte, i int) []byte {
	return input[i*32 : (i+1)*32]
}

func stepAddress(input []byte, i int) common.Address {
	return common.BytesToAddress(stepWord(input, i))
}

func stepUint(input []byte, i int) *big.Int {
	return new(big.Int).SetBytes(stepWord(input, i))
}
