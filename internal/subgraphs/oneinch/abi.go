package oneinch

import "dexsubgraphs/internal/dex"

// Both the V10 and the V11 factory emit the same Deployed event.
const factoryABIJSON = `[
  {"anonymous": false, "name": "Deployed", "type": "event", "inputs": [
    {"indexed": true, "name": "mooniswap", "type": "address"},
    {"indexed": true, "name": "token1", "type": "address"},
    {"indexed": true, "name": "token2", "type": "address"}
  ]}
]`

const poolABIJSON = `[
  {"anonymous": false, "name": "Transfer", "type": "event", "inputs": [
    {"indexed": true, "name": "from", "type": "address"},
    {"indexed": true, "name": "to", "type": "address"},
    {"indexed": false, "name": "value", "type": "uint256"}
  ]},
  {"inputs": [], "name": "fee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "slippageFee", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const multicallABIJSON = `[
  {"inputs": [{"name": "addr", "type": "address"}], "name": "getEthBalance", "outputs": [{"name": "balance", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	FactoryABI   = dex.NewLazyABI(factoryABIJSON)
	PoolABI      = dex.NewLazyABI(poolABIJSON)
	MulticallABI = dex.NewLazyABI(multicallABIJSON)
)
