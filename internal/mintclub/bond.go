package mintclub

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/mintclub-router/internal/chain"
	"github.com/aman-zulfiqar/mintclub-router/internal/constants"
)

// ErrNotCurveToken is returned for tokens the Bond has no record of.
var ErrNotCurveToken = errors.New("not a mint club token")

// OneToken is 1e18, one whole curve token.
var OneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(constants.CurveTokenDecimals), nil)

// BondInfo is the Bond's record for a curve token plus reserve metadata.
type BondInfo struct {
	Token           common.Address
	Creator         common.Address
	MintRoyaltyBps  uint16
	BurnRoyaltyBps  uint16
	CreatedAt       uint64
	ReserveToken    common.Address
	ReserveBalance  *big.Int
	ReserveSymbol   string
	ReserveDecimals uint8
}

type MintCost struct {
	ReserveAmount *big.Int
	Royalty       *big.Int
	TotalCost     *big.Int
}

type BurnRefund struct {
	RefundAmount *big.Int
	Royalty      *big.Int
	NetRefund    *big.Int
}

// Step is one bonding curve price step.
type Step struct {
	RangeTo *big.Int
	Price   *big.Int
}

type stepTuple struct {
	RangeTo *big.Int
	Price   *big.Int
}

type ClientConfig struct {
	Reader chain.Reader
	Bond   common.Address
	Zap    common.Address
	Logger *logrus.Logger
}

// Client reads Bond and ERC-20 state and builds Bond/Zap calldata.
type Client struct {
	reader chain.Reader
	bond   common.Address
	zap    common.Address
	logger *logrus.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Reader == nil {
		return nil, fmt.Errorf("mintclub: chain reader is required")
	}
	if cfg.Bond == (common.Address{}) {
		return nil, fmt.Errorf("mintclub: bond address is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{
		reader: cfg.Reader,
		bond:   cfg.Bond,
		zap:    cfg.Zap,
		logger: cfg.Logger,
	}, nil
}

func (c *Client) BondAddress() common.Address { return c.bond }
func (c *Client) ZapAddress() common.Address  { return c.zap }

// call packs method on contract, performs a read-only call and unpacks the result.
func (c *Client) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.reader.Call(ctx, chain.CallMsg{To: contract, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// BondInfo reads tokenBond and the reserve token's symbol and decimals.
func (c *Client) BondInfo(ctx context.Context, token common.Address) (*BondInfo, error) {
	info, err := c.tokenBond(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.CreatedAt == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotCurveToken, token.Hex())
	}

	info.ReserveSymbol, err = c.Symbol(ctx, info.ReserveToken)
	if err != nil {
		info.ReserveSymbol = ShortAddress(info.ReserveToken)
	}
	info.ReserveDecimals, err = c.Decimals(ctx, info.ReserveToken)
	if err != nil {
		info.ReserveDecimals = constants.CurveTokenDecimals
	}
	return info, nil
}

func (c *Client) tokenBond(ctx context.Context, token common.Address) (*BondInfo, error) {
	values, err := c.call(ctx, c.bond, BondABI, "tokenBond", token)
	if err != nil {
		return nil, err
	}
	if len(values) != 6 {
		return nil, fmt.Errorf("tokenBond: unexpected result length %d", len(values))
	}
	return &BondInfo{
		Token:          token,
		Creator:        values[0].(common.Address),
		MintRoyaltyBps: values[1].(uint16),
		BurnRoyaltyBps: values[2].(uint16),
		CreatedAt:      values[3].(*big.Int).Uint64(),
		ReserveToken:   values[4].(common.Address),
		ReserveBalance: values[5].(*big.Int),
	}, nil
}

// IsCurveToken reports whether the Bond has a record for token.
func (c *Client) IsCurveToken(ctx context.Context, token common.Address) (bool, error) {
	info, err := c.tokenBond(ctx, token)
	if err != nil {
		return false, err
	}
	return info.CreatedAt != 0, nil
}

// MintCost returns the reserve needed to mint amount tokens, royalty included.
func (c *Client) MintCost(ctx context.Context, token common.Address, amount *big.Int) (*MintCost, error) {
	values, err := c.call(ctx, c.bond, BondABI, "getReserveForToken", token, amount)
	if err != nil {
		return nil, err
	}
	reserve, royalty := values[0].(*big.Int), values[1].(*big.Int)
	return &MintCost{
		ReserveAmount: reserve,
		Royalty:       royalty,
		TotalCost:     new(big.Int).Add(reserve, royalty),
	}, nil
}

// BurnRefund returns the reserve paid out for burning amount tokens.
func (c *Client) BurnRefund(ctx context.Context, token common.Address, amount *big.Int) (*BurnRefund, error) {
	values, err := c.call(ctx, c.bond, BondABI, "getRefundForTokens", token, amount)
	if err != nil {
		return nil, err
	}
	refund, royalty := values[0].(*big.Int), values[1].(*big.Int)
	return &BurnRefund{
		RefundAmount: refund,
		Royalty:      royalty,
		NetRefund:    new(big.Int).Sub(refund, royalty),
	}, nil
}

// Price is the reserve cost (before royalty) of minting one whole token.
func (c *Client) Price(ctx context.Context, token common.Address) (*big.Int, error) {
	cost, err := c.MintCost(ctx, token, OneToken)
	if err != nil {
		return nil, err
	}
	return cost.ReserveAmount, nil
}

func (c *Client) MaxSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	values, err := c.call(ctx, c.bond, BondABI, "maxSupply", token)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (c *Client) Steps(ctx context.Context, token common.Address) ([]Step, error) {
	values, err := c.call(ctx, c.bond, BondABI, "getSteps", token)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(values[0], new([]stepTuple)).(*[]stepTuple)
	steps := make([]Step, len(raw))
	for i, s := range raw {
		steps[i] = Step{RangeTo: s.RangeTo, Price: s.Price}
	}
	return steps, nil
}

func (c *Client) TokenImplementation(ctx context.Context) (common.Address, error) {
	values, err := c.call(ctx, c.bond, BondABI, "tokenImplementation")
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// MintData encodes mint(token, tokensToMint, maxReserveAmount, receiver).
func MintData(token common.Address, amount, maxReserve *big.Int, receiver common.Address) ([]byte, error) {
	return BondABI.Pack("mint", token, amount, maxReserve, receiver)
}

// BurnData encodes burn(token, tokensToBurn, minRefund, receiver).
func BurnData(token common.Address, amount, minRefund *big.Int, receiver common.Address) ([]byte, error) {
	return BondABI.Pack("burn", token, amount, minRefund, receiver)
}

func ZapMintData(token, inputToken common.Address, inputAmount, minTokensOut *big.Int, commands []byte, inputs [][]byte, deadline *big.Int, receiver common.Address) ([]byte, error) {
	return ZapABI.Pack("zapMint", token, inputToken, inputAmount, minTokensOut, commands, inputs, deadline, receiver)
}

func ZapBurnData(token common.Address, tokensToBurn *big.Int, outputToken common.Address, minOutput *big.Int, commands []byte, inputs [][]byte, deadline *big.Int, receiver common.Address) ([]byte, error) {
	return ZapABI.Pack("zapBurn", token, tokensToBurn, outputToken, minOutput, commands, inputs, deadline, receiver)
}

// ExecuteData encodes UniversalRouter execute(commands, inputs, deadline).
func ExecuteData(commands []byte, inputs [][]byte, deadline *big.Int) ([]byte, error) {
	return RouterABI.Pack("execute", commands, inputs, deadline)
}

// UnpackZapResult decodes the (amount, reserve) pair returned by zapMint and zapBurn.
func UnpackZapResult(method string, out []byte) (*big.Int, *big.Int, error) {
	values, err := ZapABI.Unpack(method, out)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values[0].(*big.Int), values[1].(*big.Int), nil
}

// UnpackAmount decodes a single uint256 result such as mint's tokensReceived.
func UnpackAmount(parsed abi.ABI, method string, out []byte) (*big.Int, error) {
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return new(big.Int), nil
	}
	return values[0].(*big.Int), nil
}
