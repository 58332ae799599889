package model

// Entity kinds as stored in the entity store.
const (
	KindProtocol            = "DexAmmProtocol"
	KindPool                = "LiquidityPool"
	KindPoolFee             = "LiquidityPoolFee"
	KindToken               = "Token"
	KindSwap                = "Swap"
	KindDeposit             = "Deposit"
	KindWithdraw            = "Withdraw"
	KindTransfer            = "_Transfer"
	KindMarketplace         = "Marketplace"
	KindCollection          = "Collection"
	KindTrade               = "Trade"
	KindCollectionMarker    = "_Item"
	KindOrderFulfillment    = "_OrderFulfillment"
	KindContractRegistry    = "_ContractRegistry"
	KindUsageDailySnapshot  = "UsageMetricsDailySnapshot"
	KindUsageHourlySnapshot = "UsageMetricsHourlySnapshot"
	KindPoolDailySnapshot   = "LiquidityPoolDailySnapshot"
	KindPoolHourlySnapshot  = "LiquidityPoolHourlySnapshot"
)

// Entity is a record addressable by kind and id.
type Entity interface {
	EntityKind() string
	EntityID() string
}
