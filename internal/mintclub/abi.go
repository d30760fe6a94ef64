package mintclub

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const bondABIJSON = `[
{"type":"function","name":"tokenBond","stateMutability":"view","inputs":[{"name":"token","type":"address"}],
 "outputs":[{"name":"creator","type":"address"},{"name":"mintRoyalty","type":"uint16"},{"name":"burnRoyalty","type":"uint16"},
  {"name":"createdAt","type":"uint40"},{"name":"reserveToken","type":"address"},{"name":"reserveBalance","type":"uint256"}]},
{"type":"function","name":"getReserveForToken","stateMutability":"view",
 "inputs":[{"name":"token","type":"address"},{"name":"tokensToMint","type":"uint256"}],
 "outputs":[{"name":"reserveAmount","type":"uint256"},{"name":"royalty","type":"uint256"}]},
{"type":"function","name":"getRefundForTokens","stateMutability":"view",
 "inputs":[{"name":"token","type":"address"},{"name":"tokensToBurn","type":"uint256"}],
 "outputs":[{"name":"refundAmount","type":"uint256"},{"name":"royalty","type":"uint256"}]},
{"type":"function","name":"mint","stateMutability":"nonpayable",
 "inputs":[{"name":"token","type":"address"},{"name":"tokensToMint","type":"uint256"},{"name":"maxReserveAmount","type":"uint256"},{"name":"receiver","type":"address"}],
 "outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"burn","stateMutability":"nonpayable",
 "inputs":[{"name":"token","type":"address"},{"name":"tokensToBurn","type":"uint256"},{"name":"minRefund","type":"uint256"},{"name":"receiver","type":"address"}],
 "outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"getSteps","stateMutability":"view","inputs":[{"name":"token","type":"address"}],
 "outputs":[{"name":"","type":"tuple[]","components":[{"name":"rangeTo","type":"uint128"},{"name":"price","type":"uint128"}]}]},
{"type":"function","name":"maxSupply","stateMutability":"view","inputs":[{"name":"token","type":"address"}],
 "outputs":[{"name":"","type":"uint128"}]},
{"type":"function","name":"tokenImplementation","stateMutability":"view","inputs":[],
 "outputs":[{"name":"","type":"address"}]},
{"type":"error","name":"MCV2_Bond__InvalidTokenAmount","inputs":[]},
{"type":"error","name":"MCV2_Bond__SlippageLimitExceeded","inputs":[]},
{"type":"error","name":"MCV2_Bond__ExceedMaxSupply","inputs":[]},
{"type":"error","name":"MCV2_Bond__TokenNotFound","inputs":[]}
]`

const zapABIJSON = `[
{"type":"function","name":"zapMint","stateMutability":"payable",
 "inputs":[{"name":"token","type":"address"},{"name":"inputToken","type":"address"},{"name":"inputAmount","type":"uint256"},
  {"name":"minTokensOut","type":"uint256"},{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},
  {"name":"deadline","type":"uint256"},{"name":"receiver","type":"address"}],
 "outputs":[{"name":"tokensReceived","type":"uint256"},{"name":"reserveUsed","type":"uint256"}]},
{"type":"function","name":"zapBurn","stateMutability":"nonpayable",
 "inputs":[{"name":"token","type":"address"},{"name":"tokensToBurn","type":"uint256"},{"name":"outputToken","type":"address"},
  {"name":"minOutputAmount","type":"uint256"},{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},
  {"name":"deadline","type":"uint256"},{"name":"receiver","type":"address"}],
 "outputs":[{"name":"outputAmount","type":"uint256"},{"name":"reserveReceived","type":"uint256"}]}
]`

const erc20ABIJSON = `[
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const routerABIJSON = `[
{"type":"function","name":"execute","stateMutability":"payable",
 "inputs":[{"name":"commands","type":"bytes"},{"name":"inputs","type":"bytes[]"},{"name":"deadline","type":"uint256"}],"outputs":[]},
{"type":"error","name":"V3TooLittleReceived","inputs":[]},
{"type":"error","name":"TooLittleReceived","inputs":[]},
{"type":"error","name":"TransactionDeadlinePassed","inputs":[]},
{"type":"error","name":"ExecutionFailed","inputs":[{"name":"commandIndex","type":"uint256"},{"name":"message","type":"bytes"}]}
]`

const spotABIJSON = `[
{"type":"function","name":"getRate","stateMutability":"view",
 "inputs":[{"name":"srcToken","type":"address"},{"name":"dstToken","type":"address"},{"name":"useWrappers","type":"bool"}],
 "outputs":[{"name":"weightedRate","type":"uint256"}]}
]`

var (
	BondABI   = mustABI(bondABIJSON)
	ZapABI    = mustABI(zapABIJSON)
	ERC20ABI  = mustABI(erc20ABIJSON)
	RouterABI = mustABI(routerABIJSON)
	SpotABI   = mustABI(spotABIJSON)
)

// ErrorABIs lists every ABI whose custom errors the revert decoder resolves.
func ErrorABIs() []abi.ABI {
	return []abi.ABI{BondABI, ZapABI, RouterABI, ERC20ABI}
}

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}
