package bancor

import "dexsubgraphs/internal/dex"

const contractRegistryABIJSON = `[
  {"anonymous": false, "name": "AddressUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_contractName", "type": "bytes32"},
    {"indexed": false, "name": "_contractAddress", "type": "address"}
  ]},
  {"anonymous": false, "name": "OwnerUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_prevOwner", "type": "address"},
    {"indexed": true, "name": "_newOwner", "type": "address"}
  ]},
  {"inputs": [], "name": "owner", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const converterRegistryABIJSON = `[
  {"anonymous": false, "name": "ConverterAnchorAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "_anchor", "type": "address"}
  ]},
  {"anonymous": false, "name": "ConverterAnchorRemoved", "type": "event", "inputs": [
    {"indexed": true, "name": "_anchor", "type": "address"}
  ]},
  {"anonymous": false, "name": "LiquidityPoolAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "_liquidityPool", "type": "address"}
  ]},
  {"anonymous": false, "name": "LiquidityPoolRemoved", "type": "event", "inputs": [
    {"indexed": true, "name": "_liquidityPool", "type": "address"}
  ]},
  {"anonymous": false, "name": "ConvertibleTokenAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "_convertibleToken", "type": "address"},
    {"indexed": true, "name": "_smartToken", "type": "address"}
  ]},
  {"anonymous": false, "name": "ConvertibleTokenRemoved", "type": "event", "inputs": [
    {"indexed": true, "name": "_convertibleToken", "type": "address"},
    {"indexed": true, "name": "_smartToken", "type": "address"}
  ]},
  {"anonymous": false, "name": "SmartTokenAdded", "type": "event", "inputs": [
    {"indexed": true, "name": "_smartToken", "type": "address"}
  ]},
  {"anonymous": false, "name": "SmartTokenRemoved", "type": "event", "inputs": [
    {"indexed": true, "name": "_smartToken", "type": "address"}
  ]},
  {"anonymous": false, "name": "ConverterAddition", "type": "event", "inputs": [
    {"indexed": true, "name": "_token", "type": "address"},
    {"indexed": false, "name": "_address", "type": "address"}
  ]},
  {"anonymous": false, "name": "ConverterRemoval", "type": "event", "inputs": [
    {"indexed": true, "name": "_token", "type": "address"},
    {"indexed": false, "name": "_address", "type": "address"}
  ]}
]`

const smartTokenABIJSON = `[
  {"anonymous": false, "name": "OwnerUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_prevOwner", "type": "address"},
    {"indexed": true, "name": "_newOwner", "type": "address"}
  ]},
  {"inputs": [], "name": "owner", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const converterABIJSON = `[
  {"anonymous": false, "name": "Conversion", "type": "event", "inputs": [
    {"indexed": true, "name": "_fromToken", "type": "address"},
    {"indexed": true, "name": "_toToken", "type": "address"},
    {"indexed": true, "name": "_trader", "type": "address"},
    {"indexed": false, "name": "_amount", "type": "uint256"},
    {"indexed": false, "name": "_return", "type": "uint256"},
    {"indexed": false, "name": "_conversionFee", "type": "int256"}
  ]},
  {"anonymous": false, "name": "PriceDataUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_connectorToken", "type": "address"},
    {"indexed": false, "name": "_tokenSupply", "type": "uint256"},
    {"indexed": false, "name": "_connectorBalance", "type": "uint256"},
    {"indexed": false, "name": "_connectorWeight", "type": "uint32"}
  ]},
  {"anonymous": false, "name": "ConversionFeeUpdate", "type": "event", "inputs": [
    {"indexed": false, "name": "_prevFee", "type": "uint32"},
    {"indexed": false, "name": "_newFee", "type": "uint32"}
  ]},
  {"anonymous": false, "name": "OwnerUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_prevOwner", "type": "address"},
    {"indexed": true, "name": "_newOwner", "type": "address"}
  ]},
  {"anonymous": false, "name": "ManagerUpdate", "type": "event", "inputs": [
    {"indexed": true, "name": "_prevManager", "type": "address"},
    {"indexed": true, "name": "_newManager", "type": "address"}
  ]},
  {"anonymous": false, "name": "VirtualBalancesEnable", "type": "event", "inputs": [
    {"indexed": false, "name": "_enabled", "type": "bool"}
  ]},
  {"inputs": [], "name": "token", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "anchor", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "owner", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "manager", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "version", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "converterType", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "conversionFee", "outputs": [{"type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "maxConversionFee", "outputs": [{"type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "connectorTokenCount", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "reserveTokenCount", "outputs": [{"type": "uint16"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "index", "type": "uint256"}], "name": "connectorTokens", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "index", "type": "uint256"}], "name": "reserveTokens", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "token", "type": "address"}], "name": "connectors", "stateMutability": "view", "type": "function", "outputs": [
    {"name": "virtualBalance", "type": "uint256"},
    {"name": "weight", "type": "uint32"},
    {"name": "isVirtualBalanceEnabled", "type": "bool"},
    {"name": "isSaleEnabled", "type": "bool"},
    {"name": "isSet", "type": "bool"}
  ]},
  {"inputs": [{"name": "token", "type": "address"}], "name": "reserves", "stateMutability": "view", "type": "function", "outputs": [
    {"name": "balance", "type": "uint256"},
    {"name": "weight", "type": "uint32"},
    {"name": "deprecated1", "type": "bool"},
    {"name": "deprecated2", "type": "bool"},
    {"name": "isSet", "type": "bool"}
  ]},
  {"inputs": [{"name": "token", "type": "address"}], "name": "reserveBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "token", "type": "address"}], "name": "getConnectorBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const converterUpgraderABIJSON = `[
  {"anonymous": false, "name": "ConverterUpgrade", "type": "event", "inputs": [
    {"indexed": true, "name": "_oldConverter", "type": "address"},
    {"indexed": true, "name": "_newConverter", "type": "address"}
  ]}
]`

const networkABIJSON = `[
  {"anonymous": false, "name": "Conversion", "type": "event", "inputs": [
    {"indexed": true, "name": "_smartToken", "type": "address"},
    {"indexed": true, "name": "_fromToken", "type": "address"},
    {"indexed": true, "name": "_toToken", "type": "address"},
    {"indexed": false, "name": "_fromAmount", "type": "uint256"},
    {"indexed": false, "name": "_toAmount", "type": "uint256"},
    {"indexed": false, "name": "_trader", "type": "address"}
  ]},
  {"inputs": [{"name": "source", "type": "address"}, {"name": "target", "type": "address"}], "name": "conversionPath", "outputs": [{"type": "address[]"}], "stateMutability": "view", "type": "function"}
]`

var (
	ContractRegistryABI  = dex.NewLazyABI(contractRegistryABIJSON)
	ConverterRegistryABI = dex.NewLazyABI(converterRegistryABIJSON)
	SmartTokenABI        = dex.NewLazyABI(smartTokenABIJSON)
	ConverterABI         = dex.NewLazyABI(converterABIJSON)
	ConverterUpgraderABI = dex.NewLazyABI(converterUpgraderABIJSON)
	NetworkABI           = dex.NewLazyABI(networkABIJSON)
)
