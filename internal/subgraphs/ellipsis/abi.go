package ellipsis

import (
	"fmt"

	"dexsubgraphs/internal/dex"
)

const registryABIJSON = `[
  {"anonymous": false, "name": "PoolAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "pool", "type": "address"},
    {"indexed": false, "name": "rate_method_id", "type": "bytes"}
  ]}
]`

// poolABIJSON is the StableSwap pool interface for n coins. Liquidity events
// carry fixed-size uint256[n] arrays, so each coin count has its own topics.
func poolABIJSON(n int) string {
	return fmt.Sprintf(`[
  {"anonymous": false, "name": "AddLiquidity", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "token_amounts", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "fees", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "invariant", "type": "uint256"},
    {"indexed": false, "name": "token_supply", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "RemoveLiquidity", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "token_amounts", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "fees", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "token_supply", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "RemoveLiquidityOne", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "token_amount", "type": "uint256"},
    {"indexed": false, "name": "coin_amount", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "RemoveLiquidityImbalance", "type": "event", "inputs": [
    {"indexed": true, "name": "provider", "type": "address"},
    {"indexed": false, "name": "token_amounts", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "fees", "type": "uint256[%[1]d]"},
    {"indexed": false, "name": "invariant", "type": "uint256"},
    {"indexed": false, "name": "token_supply", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "TokenExchange", "type": "event", "inputs": [
    {"indexed": true, "name": "buyer", "type": "address"},
    {"indexed": false, "name": "sold_id", "type": "int128"},
    {"indexed": false, "name": "tokens_sold", "type": "uint256"},
    {"indexed": false, "name": "bought_id", "type": "int128"},
    {"indexed": false, "name": "tokens_bought", "type": "uint256"}
  ]},
  {"inputs": [{"name": "i", "type": "uint256"}], "name": "coins", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "i", "type": "uint256"}], "name": "balances", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "lp_token", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "get_virtual_price", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "fee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "admin_fee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`, n)
}

// MinCoins and MaxCoins bound the pool sizes with a template.
const (
	MinCoins = 2
	MaxCoins = 4
)

var (
	RegistryABI = dex.NewLazyABI(registryABIJSON)

	// PoolABIs is indexed by coin count.
	PoolABIs = map[int]*dex.LazyABI{}
)

func init() {
	for n := MinCoins; n <= MaxCoins; n++ {
		PoolABIs[n] = dex.NewLazyABI(poolABIJSON(n))
	}
}
