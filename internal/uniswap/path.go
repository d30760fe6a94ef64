package uniswap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	addrLen = common.AddressLength
	feeLen  = 3
	maxFee  = 1<<24 - 1
)

// EncodePath packs tokens and fees as token(20) | fee(3, big-endian) | token(20) | ...
// A path of N tokens must carry exactly N-1 fees.
func EncodePath(tokens []common.Address, fees []uint32) ([]byte, error) {
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: path needs at least 2 tokens, got %d", ErrInvalidArgument, len(tokens))
	}
	if len(tokens) != len(fees)+1 {
		return nil, fmt.Errorf("%w: tokens.length (%d) must equal fees.length (%d) + 1",
			ErrInvalidArgument, len(tokens), len(fees))
	}

	out := make([]byte, 0, addrLen+len(fees)*(feeLen+addrLen))
	out = append(out, tokens[0].Bytes()...)
	for i, fee := range fees {
		if fee == 0 || fee > maxFee {
			return nil, fmt.Errorf("%w: fee %d out of range at hop %d", ErrInvalidArgument, fee, i)
		}
		if IsNative(tokens[i+1]) || IsNative(tokens[i]) {
			return nil, fmt.Errorf("%w: native sentinel inside swap path", ErrInvalidArgument)
		}
		out = append(out, byte(fee>>16), byte(fee>>8), byte(fee))
		out = append(out, tokens[i+1].Bytes()...)
	}
	return out, nil
}

// PathLength returns the packed length of a path with the given hop count.
func PathLength(hops int) int {
	return addrLen + hops*(feeLen+addrLen)
}

// ParsePath parses "0xA,500,0xB,3000,0xC" into tokens and fees.
func ParsePath(text string) ([]common.Address, []uint32, error) {
	parts := strings.Split(text, ",")
	tokens := make([]common.Address, 0, len(parts)/2+1)
	fees := make([]uint32, 0, len(parts)/2)

	for i, raw := range parts {
		p := strings.TrimSpace(raw)
		if i%2 == 0 {
			if !strings.HasPrefix(p, "0x") || !common.IsHexAddress(p) {
				return nil, nil, fmt.Errorf("%w: invalid token address at position %d: %q", ErrInvalidArgument, i, p)
			}
			tokens = append(tokens, common.HexToAddress(p))
			continue
		}
		fee, err := strconv.ParseUint(p, 10, 32)
		if err != nil || fee == 0 || fee > maxFee {
			return nil, nil, fmt.Errorf("%w: invalid fee at position %d: %q", ErrInvalidArgument, i, p)
		}
		fees = append(fees, uint32(fee))
	}

	if len(tokens) != len(fees)+1 || len(tokens) < 2 {
		return nil, nil, fmt.Errorf("%w: path format is token0,fee,token1,fee,token2,...", ErrInvalidArgument)
	}
	return tokens, fees, nil
}

// FeePercent renders a fee tier as a percentage, e.g. 3000 -> "0.3".
func FeePercent(fee uint32) string {
	return decimal.New(int64(fee), -4).String()
}
