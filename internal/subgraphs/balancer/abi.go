package balancer

import "dexsubgraphs/internal/dex"

const factoryABIJSON = `[
  {"anonymous": false, "name": "LOG_NEW_POOL", "type": "event", "inputs": [
    {"indexed": true, "name": "caller", "type": "address"},
    {"indexed": true, "name": "pool", "type": "address"}
  ]}
]`

const poolABIJSON = `[
  {"anonymous": true, "name": "LOG_CALL", "type": "event", "inputs": [
    {"indexed": true, "name": "sig", "type": "bytes4"},
    {"indexed": true, "name": "caller", "type": "address"},
    {"indexed": false, "name": "data", "type": "bytes"}
  ]},
  {"anonymous": false, "name": "LOG_JOIN", "type": "event", "inputs": [
    {"indexed": true, "name": "caller", "type": "address"},
    {"indexed": true, "name": "tokenIn", "type": "address"},
    {"indexed": false, "name": "tokenAmountIn", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "LOG_EXIT", "type": "event", "inputs": [
    {"indexed": true, "name": "caller", "type": "address"},
    {"indexed": true, "name": "tokenOut", "type": "address"},
    {"indexed": false, "name": "tokenAmountOut", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "LOG_SWAP", "type": "event", "inputs": [
    {"indexed": true, "name": "caller", "type": "address"},
    {"indexed": true, "name": "tokenIn", "type": "address"},
    {"indexed": true, "name": "tokenOut", "type": "address"},
    {"indexed": false, "name": "tokenAmountIn", "type": "uint256"},
    {"indexed": false, "name": "tokenAmountOut", "type": "uint256"}
  ]}
]`

const crpABIJSON = `[
  {"anonymous": false, "name": "OwnershipTransferred", "type": "event", "inputs": [
    {"indexed": true, "name": "previousOwner", "type": "address"},
    {"indexed": true, "name": "newOwner", "type": "address"}
  ]},
  {"inputs": [], "name": "bPool", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getController", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getCap", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "rights", "stateMutability": "view", "type": "function", "outputs": [
    {"name": "canPauseSwapping", "type": "bool"},
    {"name": "canChangeSwapFee", "type": "bool"},
    {"name": "canChangeWeights", "type": "bool"},
    {"name": "canAddRemoveTokens", "type": "bool"},
    {"name": "canWhitelistLPs", "type": "bool"},
    {"name": "canChangeCap", "type": "bool"}
  ]}
]`

const crpFactoryABIJSON = `[
  {"inputs": [{"name": "addr", "type": "address"}], "name": "isCrp", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"}
]`

var (
	FactoryABI    = dex.NewLazyABI(factoryABIJSON)
	PoolABI       = dex.NewLazyABI(poolABIJSON)
	CRPABI        = dex.NewLazyABI(crpABIJSON)
	CRPFactoryABI = dex.NewLazyABI(crpFactoryABIJSON)
)
