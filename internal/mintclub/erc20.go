package mintclub

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/mintclub-router/internal/uniswap"
)

// MaxUint256 is the unlimited approval amount.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func (c *Client) Symbol(ctx context.Context, token common.Address) (string, error) {
	if uniswap.IsNative(token) {
		return "ETH", nil
	}
	values, err := c.call(ctx, token, ERC20ABI, "symbol")
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

func (c *Client) Name(ctx context.Context, token common.Address) (string, error) {
	values, err := c.call(ctx, token, ERC20ABI, "name")
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if uniswap.IsNative(token) {
		return 18, nil
	}
	values, err := c.call(ctx, token, ERC20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return values[0].(uint8), nil
}

func (c *Client) TotalSupply(ctx context.Context, token common.Address) (*big.Int, error) {
	values, err := c.call(ctx, token, ERC20ABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// BalanceOf returns the native balance for the native sentinel.
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if uniswap.IsNative(token) {
		return c.reader.BalanceAt(ctx, account)
	}
	values, err := c.call(ctx, token, ERC20ABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	values, err := c.call(ctx, token, ERC20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (c *Client) HasCode(ctx context.Context, account common.Address) (bool, error) {
	code, err := c.reader.CodeAt(ctx, account)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func ApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("approve", spender, amount)
}

func TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, amount)
}

// ShortAddress renders 0x1234...abcd.
func ShortAddress(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}
