package config

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
	"github.com/aman-zulfiqar/mintclub-router/internal/models"
)

// NetworkConfig is everything chain-specific the router and executor need.
type NetworkConfig struct {
	Name    string
	ChainID *big.Int
	RPCURLs []string

	QuoterV2            common.Address
	V4Quoter            common.Address
	UniversalRouter     common.Address
	WrappedNative       common.Address
	Bond                common.Address
	ZapV2               common.Address
	SpotPriceAggregator common.Address

	// Intermediaries are tried as the middle token of one-hop routes.
	Intermediaries []string
	FeeTiers       []uint32
	Tokens         []models.Token
	V4PoolsPath    string
	ExplorerURL    string
}

// Base is Base mainnet.
func Base() *NetworkConfig {
	return &NetworkConfig{
		Name:    "base",
		ChainID: big.NewInt(8453),
		RPCURLs: []string{
			"https://mainnet.base.org",
			"https://base.llamarpc.com",
			"https://base-rpc.publicnode.com",
		},

		QuoterV2:            common.HexToAddress("0x3d4e44Eb1374240CE5F1B871ab261CD16335B76a"),
		V4Quoter:            common.HexToAddress("0x0d5e0f971ed27fbff6c2837bf31316121532048d"),
		UniversalRouter:     common.HexToAddress("0x6fF5693b99212Da76ad316178A184AB56D299b43"),
		WrappedNative:       common.HexToAddress("0x4200000000000000000000000000000000000006"),
		Bond:                common.HexToAddress("0xc5a076cad94176c2996B32d8466Be1cE757FAa27"),
		ZapV2:               common.HexToAddress("0x7d999874eAe10f170C4813270173363468A559cD"),
		SpotPriceAggregator: common.HexToAddress("0x00000000000D6FFc74A8feb35aF5827bf57f6786"),

		Intermediaries: []string{"WETH", "USDC"},
		FeeTiers:       append([]uint32(nil), constants.DefaultFeeTiers...),
		Tokens: []models.Token{
			{Symbol: "ETH", Address: common.HexToAddress(constants.NativeAddress), Decimals: 18},
			{Symbol: "WETH", Address: common.HexToAddress("0x4200000000000000000000000000000000000006"), Decimals: 18},
			{Symbol: "USDC", Address: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), Decimals: 6},
			{Symbol: "HUNT", Address: common.HexToAddress("0x37f0c2915CeCC7e977183B8543Fc0864d03E064C"), Decimals: 18},
			{Symbol: "MT", Address: common.HexToAddress("0xFf45161474C39cB00699070Dd49582e417b57a7E"), Decimals: 18},
		},
		ExplorerURL: "https://basescan.org",
	}
}

// NetworkByName returns a fresh copy of a built-in network.
func NetworkByName(name string) (*NetworkConfig, error) {
	switch name {
	case "base", "":
		return Base(), nil
	}
	return nil, fmt.Errorf("unsupported network %q (supported: base)", name)
}

// Token looks up a network token by symbol.
func (n *NetworkConfig) Token(symbol string) (models.Token, bool) {
	for _, t := range n.Tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return models.Token{}, false
}

// IntermediaryTokens resolves the intermediary symbols against Tokens.
func (n *NetworkConfig) IntermediaryTokens() ([]models.Token, error) {
	out := make([]models.Token, 0, len(n.Intermediaries))
	for _, sym := range n.Intermediaries {
		t, ok := n.Token(sym)
		if !ok {
			return nil, fmt.Errorf("intermediary %s is not a known %s token", sym, n.Name)
		}
		out = append(out, t)
	}
	return out, nil
}

func (n *NetworkConfig) TxURL(hash common.Hash) string {
	return n.ExplorerURL + "/tx/" + hash.Hex()
}

// TokenSymbols lists the built-in token symbols in table order.
func (n *NetworkConfig) TokenSymbols() []string {
	out := make([]string, len(n.Tokens))
	for i, t := range n.Tokens {
		out[i] = t.Symbol
	}
	return out
}
