package mintclub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/aman-zulfiqar/mintclub-router/internal/models"
)

// EIP-1167 minimal proxy creation code around the implementation address.
var (
	cloneInitPrefix = hexutil.MustDecode("0x3d602d80600a3d3981f3363d3d373d3d3d363d73")
	cloneInitSuffix = hexutil.MustDecode("0x5af43d82803e903d91602b57fd5bf3")
)

// PredictTokenAddress returns the CREATE2 address the Bond deploys symbol to:
// salt = keccak256(abi.encodePacked(bond, symbol)).
func PredictTokenAddress(bond, implementation common.Address, symbol string) common.Address {
	var salt [32]byte
	copy(salt[:], crypto.Keccak256(bond.Bytes(), []byte(symbol)))

	initCode := make([]byte, 0, len(cloneInitPrefix)+common.AddressLength+len(cloneInitSuffix))
	initCode = append(initCode, cloneInitPrefix...)
	initCode = append(initCode, implementation.Bytes()...)
	initCode = append(initCode, cloneInitSuffix...)

	return crypto.CreateAddress2(bond, salt, crypto.Keccak256(initCode))
}

// Resolver maps symbols and addresses to token addresses.
type Resolver struct {
	client *Client
	tokens []models.Token

	mu             sync.Mutex
	implementation common.Address
}

func NewResolver(client *Client, tokens []models.Token) *Resolver {
	return &Resolver{client: client, tokens: tokens}
}

// Resolve accepts an address, a known network symbol, or a Mint Club symbol
// whose predicted address has code on chain.
func (r *Resolver) Resolve(ctx context.Context, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "0x") && common.IsHexAddress(input) {
		return common.HexToAddress(input), nil
	}
	if t, ok := r.Known(input); ok {
		return t.Address, nil
	}
	if r.client == nil {
		return common.Address{}, r.unknown(input)
	}

	impl, err := r.tokenImplementation(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("read token implementation: %w", err)
	}

	candidates := []string{input}
	if upper := strings.ToUpper(input); upper != input {
		candidates = append(candidates, upper)
	}
	for _, symbol := range candidates {
		predicted := PredictTokenAddress(r.client.bond, impl, symbol)
		ok, err := r.client.HasCode(ctx, predicted)
		if err != nil {
			return common.Address{}, err
		}
		if ok {
			return predicted, nil
		}
	}
	return common.Address{}, r.unknown(input)
}

func (r *Resolver) unknown(input string) error {
	symbols := make([]string, len(r.tokens))
	for i, t := range r.tokens {
		symbols[i] = t.Symbol
	}
	return fmt.Errorf("token %q not found on Mint Club, use an address or one of: %s",
		input, strings.Join(symbols, ", "))
}

func (r *Resolver) tokenImplementation(ctx context.Context) (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.implementation != (common.Address{}) {
		return r.implementation, nil
	}
	impl, err := r.client.TokenImplementation(ctx)
	if err != nil {
		return common.Address{}, err
	}
	r.implementation = impl
	return impl, nil
}

// Known looks up a network token by case-insensitive symbol.
func (r *Resolver) Known(symbol string) (models.Token, bool) {
	for _, t := range r.tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return models.Token{}, false
}

// ByAddress looks up a network token by address.
func (r *Resolver) ByAddress(addr common.Address) (models.Token, bool) {
	for _, t := range r.tokens {
		if t.Address == addr {
			return t, true
		}
	}
	return models.Token{}, false
}

// Label returns a known symbol or a shortened address.
func (r *Resolver) Label(addr common.Address) string {
	if t, ok := r.ByAddress(addr); ok {
		return t.Symbol
	}
	return ShortAddress(addr)
}
