package seaport

import "dexsubgraphs/internal/dex"

const exchangeABIJSON = `[
  {"anonymous": false, "name": "OrderFulfilled", "type": "event", "inputs": [
    {"indexed": false, "name": "orderHash", "type": "bytes32"},
    {"indexed": true, "name": "offerer", "type": "address"},
    {"indexed": true, "name": "zone", "type": "address"},
    {"indexed": false, "name": "recipient", "type": "address"},
    {"indexed": false, "name": "offer", "type": "tuple[]", "components": [
      {"name": "itemType", "type": "uint8"},
      {"name": "token", "type": "address"},
      {"name": "identifier", "type": "uint256"},
      {"name": "amount", "type": "uint256"}
    ]},
    {"indexed": false, "name": "consideration", "type": "tuple[]", "components": [
      {"name": "itemType", "type": "uint8"},
      {"name": "token", "type": "address"},
      {"name": "identifier", "type": "uint256"},
      {"name": "amount", "type": "uint256"},
      {"name": "recipient", "type": "address"}
    ]}
  ]}
]`

const erc165ABIJSON = `[
  {"inputs": [{"name": "interfaceId", "type": "bytes4"}], "name": "supportsInterface", "outputs": [{"type": "bool"}], "stateMutability": "view", "type": "function"}
]`

var (
	ExchangeABI = dex.NewLazyABI(exchangeABIJSON)
	ERC165ABI   = dex.NewLazyABI(erc165ABIJSON)
)
