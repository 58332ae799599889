package dodo

import "dexsubgraphs/internal/dex"

const dvmFactoryABIJSON = `[
  {"anonymous": false, "name": "NewDVM", "type": "event", "inputs": [
    {"indexed": false, "name": "baseToken", "type": "address"},
    {"indexed": false, "name": "quoteToken", "type": "address"},
    {"indexed": false, "name": "creator", "type": "address"},
    {"indexed": false, "name": "dvm", "type": "address"}
  ]},
  {"anonymous": false, "name": "RemoveDVM", "type": "event", "inputs": [
    {"indexed": false, "name": "dvm", "type": "address"}
  ]}
]`

const dppFactoryABIJSON = `[
  {"anonymous": false, "name": "NewDPP", "type": "event", "inputs": [
    {"indexed": false, "name": "baseToken", "type": "address"},
    {"indexed": false, "name": "quoteToken", "type": "address"},
    {"indexed": false, "name": "creator", "type": "address"},
    {"indexed": false, "name": "dpp", "type": "address"}
  ]},
  {"anonymous": false, "name": "RemoveDPP", "type": "event", "inputs": [
    {"indexed": false, "name": "dpp", "type": "address"}
  ]}
]`

const dspFactoryABIJSON = `[
  {"anonymous": false, "name": "NewDSP", "type": "event", "inputs": [
    {"indexed": false, "name": "baseToken", "type": "address"},
    {"indexed": false, "name": "quoteToken", "type": "address"},
    {"indexed": false, "name": "creator", "type": "address"},
    {"indexed": false, "name": "DSP", "type": "address"}
  ]},
  {"anonymous": false, "name": "RemoveDSP", "type": "event", "inputs": [
    {"indexed": false, "name": "DSP", "type": "address"}
  ]}
]`

// getPMMState returns a static PMMState struct, encoded the same as its
// flattened fields.
const poolABIJSON = `[
  {"anonymous": false, "name": "DODOSwap", "type": "event", "inputs": [
    {"indexed": false, "name": "fromToken", "type": "address"},
    {"indexed": false, "name": "toToken", "type": "address"},
    {"indexed": false, "name": "fromAmount", "type": "uint256"},
    {"indexed": false, "name": "toAmount", "type": "uint256"},
    {"indexed": false, "name": "trader", "type": "address"},
    {"indexed": false, "name": "receiver", "type": "address"}
  ]},
  {"anonymous": false, "name": "BuyShares", "type": "event", "inputs": [
    {"indexed": false, "name": "to", "type": "address"},
    {"indexed": false, "name": "increaseShares", "type": "uint256"},
    {"indexed": false, "name": "totalShares", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "SellShares", "type": "event", "inputs": [
    {"indexed": false, "name": "payer", "type": "address"},
    {"indexed": false, "name": "to", "type": "address"},
    {"indexed": false, "name": "decreaseShares", "type": "uint256"},
    {"indexed": false, "name": "totalShares", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "LpFeeRateChange", "type": "event", "inputs": []},
  {"inputs": [], "name": "getPMMState", "stateMutability": "view", "type": "function", "outputs": [
    {"name": "i", "type": "uint256"},
    {"name": "K", "type": "uint256"},
    {"name": "B", "type": "uint256"},
    {"name": "Q", "type": "uint256"},
    {"name": "B0", "type": "uint256"},
    {"name": "Q0", "type": "uint256"},
    {"name": "R", "type": "uint8"}
  ]},
  {"inputs": [], "name": "_LP_FEE_RATE_", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_MT_FEE_RATE_MODEL_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_MAINTAINER_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const zooABIJSON = `[
  {"anonymous": false, "name": "DODOBirth", "type": "event", "inputs": [
    {"indexed": false, "name": "newBorn", "type": "address"},
    {"indexed": false, "name": "baseToken", "type": "address"},
    {"indexed": false, "name": "quoteToken", "type": "address"}
  ]}
]`

const classicalABIJSON = `[
  {"anonymous": false, "name": "Deposit", "type": "event", "inputs": [
    {"indexed": true, "name": "payer", "type": "address"},
    {"indexed": true, "name": "receiver", "type": "address"},
    {"indexed": false, "name": "isBaseToken", "type": "bool"},
    {"indexed": false, "name": "amount", "type": "uint256"},
    {"indexed": false, "name": "lpTokenAmount", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "Withdraw", "type": "event", "inputs": [
    {"indexed": true, "name": "payer", "type": "address"},
    {"indexed": true, "name": "receiver", "type": "address"},
    {"indexed": false, "name": "isBaseToken", "type": "bool"},
    {"indexed": false, "name": "amount", "type": "uint256"},
    {"indexed": false, "name": "lpTokenAmount", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "SellBaseToken", "type": "event", "inputs": [
    {"indexed": true, "name": "seller", "type": "address"},
    {"indexed": false, "name": "payBase", "type": "uint256"},
    {"indexed": false, "name": "receiveQuote", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "BuyBaseToken", "type": "event", "inputs": [
    {"indexed": true, "name": "buyer", "type": "address"},
    {"indexed": false, "name": "receiveBase", "type": "uint256"},
    {"indexed": false, "name": "payQuote", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "UpdateLiquidityProviderFeeRate", "type": "event", "inputs": [
    {"indexed": false, "name": "oldLiquidityProviderFeeRate", "type": "uint256"},
    {"indexed": false, "name": "newLiquidityProviderFeeRate", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "UpdateMaintainerFeeRate", "type": "event", "inputs": [
    {"indexed": false, "name": "oldMaintainerFeeRate", "type": "uint256"},
    {"indexed": false, "name": "newMaintainerFeeRate", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "ClaimAssets", "type": "event", "inputs": [
    {"indexed": true, "name": "user", "type": "address"},
    {"indexed": false, "name": "baseTokenAmount", "type": "uint256"},
    {"indexed": false, "name": "quoteTokenAmount", "type": "uint256"}
  ]},
  {"anonymous": false, "name": "ChargeMaintainerFee", "type": "event", "inputs": [
    {"indexed": true, "name": "maintainer", "type": "address"},
    {"indexed": false, "name": "isBaseToken", "type": "bool"},
    {"indexed": false, "name": "amount", "type": "uint256"}
  ]},
  {"inputs": [], "name": "_BASE_TOKEN_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_QUOTE_TOKEN_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_BASE_CAPITAL_TOKEN_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_QUOTE_CAPITAL_TOKEN_", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "_LP_FEE_RATE_", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	DVMFactoryABI = dex.NewLazyABI(dvmFactoryABIJSON)
	DPPFactoryABI = dex.NewLazyABI(dppFactoryABIJSON)
	DSPFactoryABI = dex.NewLazyABI(dspFactoryABIJSON)
	PoolABI       = dex.NewLazyABI(poolABIJSON)
	ZooABI        = dex.NewLazyABI(zooABIJSON)
	ClassicalABI  = dex.NewLazyABI(classicalABIJSON)
)
