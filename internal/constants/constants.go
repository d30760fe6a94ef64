package constants

import "time"

// Redis keys
const (
	RedisKeyRecentSwaps = "swaps:recent"
	RedisKeyPricePrefix = "price:"
	RedisKeyTokenIndex  = "tokens:index"
	RedisKeyTokenPrefix = "tokens:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps = "swaps:live"
	PubSubChannelKind  = "swaps:kind:"
	PubSubChannelToken = "swaps:token:"
)

// Limits
const (
	MaxRecentSwaps = 100
)

// UniversalRouter command bytes
const (
	CommandV3SwapExactIn byte = 0x00
	CommandWrapETH       byte = 0x0b
	CommandUnwrapWETH    byte = 0x0c
	CommandV4Swap        byte = 0x10
)

// V4 router actions
const (
	ActionSwapExactInSingle byte = 0x06
	ActionSettle            byte = 0x0b
	ActionTakeAll           byte = 0x0f
)

// Well-known addresses shared by every network.
const (
	NativeAddress      = "0x0000000000000000000000000000000000000000"
	RouterAddressThis  = "0x0000000000000000000000000000000000000002"
	RouterMsgSender    = "0x0000000000000000000000000000000000000001"
	DefaultHookAddress = "0x0000000000000000000000000000000000000000"
)

// Deadlines
const (
	SwapDeadline = 30 * time.Minute
	ZapDeadline  = 20 * time.Minute
)

// Fee tiers tried by route search, in hundredths of a basis point.
var DefaultFeeTiers = []uint32{100, 500, 3000, 10000}

// Mint Club tokens always use 18 decimals.
const CurveTokenDecimals = 18
