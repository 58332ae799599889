package uniswapv2

import "dexsubgraphs/internal/dex"

const factoryABIJSON = `[
  {"anonymous": false, "name": "PairCreated", "type": "event", "inputs": [
    {"indexed": true, "name": "token0", "type": "address"},
    {"indexed": true, "name": "token1", "type": "address"},
    {"indexed": false, "name": "pair", "type": "address"},
    {"indexed": false, "name": "", "type": "uint256"}
  ]}
]`

const pairABIJSON = `[
  {"anonymous": false, "name": "Transfer", "type": "event", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": false, "name": "value", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "Sync", "type": "event", "inputs": [
    {"indexed": false, "name": "reserve0", "type": "uint112"},
    {"indexed": false, "name": "reserve1", "type": "uint112"}
  ]},
  {"anonymous": false, "name": "Mint", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "Burn", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0", "type": "uint256"},
    {"indexed": false, "name": "amount1", "type": "uint256"},
    {"indexed": true, "name": "to", "type": "address"}
  ]},
  {"anonymous": false, "name": "Swap", "type": "event", "inputs": [
    {"indexed": true, "name": "sender", "type": "address"},
    {"indexed": false, "name": "amount0In", "type": "uint256"},
    {"indexed": false, "name": "amount1In", "type": "uint256"},
    {"indexed": false, "name": "amount0Out", "type": "uint256"},
    {"indexed": false, "name": "amount1Out", "type": "uint256"},
    {"indexed": true, "name": "to", "type": "address"}
  ]}
]`

var (
	FactoryABI = dex.NewLazyABI(factoryABIJSON)
	PairABI    = dex.NewLazyABI(pairABIJSON)
)
