package aggregate

import (
	"context"
	"math/big"
	"testing"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/storage"
)

func TestWindowIDs(t *testing.T) {
	if got := DayID(1700000000); got != 19675 {
		t.Fatalf("day id mismatch: %d", got)
	}
	if got := HourID(1700000000); got != 472222 {
		t.Fatalf("hour id mismatch: %d", got)
	}
}

func TestUsageCountsActivities(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	block := Block{Number: 10, Timestamp: 1700000000}

	for _, a := range []Activity{ActivityDeposit, ActivitySwap, ActivitySwap} {
		if err := Usage(ctx, store, "0xfactory", block, a); err != nil {
			t.Fatalf("usage %s: %v", a, err)
		}
	}
	next := Block{Number: 11, Timestamp: 1700000000 + SecondsPerHour}
	if err := Usage(ctx, store, "0xfactory", next, ActivityWithdraw); err != nil {
		t.Fatalf("usage withdraw: %v", err)
	}

	daily, ok, err := storage.Load[model.UsageMetricsDailySnapshot](ctx, store, "0xfactory-19675")
	if err != nil || !ok {
		t.Fatalf("daily snapshot missing: %v", err)
	}
	if daily.DailyTransactionCount != 4 || daily.DailySwapCount != 2 || daily.DailyDepositCount != 1 || daily.DailyWithdrawCount != 1 {
		t.Fatalf("unexpected daily counts: %+v", daily)
	}
	if daily.BlockNumber != 11 {
		t.Fatalf("daily block should track the latest event, got %d", daily.BlockNumber)
	}

	hourly, ok, err := storage.Load[model.UsageMetricsHourlySnapshot](ctx, store, "0xfactory-472222")
	if err != nil || !ok {
		t.Fatalf("hourly snapshot missing: %v", err)
	}
	if hourly.HourlyTransactionCount != 3 || hourly.HourlyWithdrawCount != 0 {
		t.Fatalf("unexpected hourly counts: %+v", hourly)
	}
}

func TestPoolSwapAccumulatesAbsoluteVolume(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	pool := &model.LiquidityPool{
		ID:                 "0xpool",
		Protocol:           "0xfactory",
		InputTokens:        []string{"0xa", "0xb"},
		InputTokenBalances: []*big.Int{big.NewInt(100), big.NewInt(200)},
	}
	block := Block{Number: 10, Timestamp: 1700000000}

	if err := PoolSwap(ctx, store, pool, block, "0xa", big.NewInt(5), "0xb", big.NewInt(-9)); err != nil {
		t.Fatalf("pool swap: %v", err)
	}
	pool.InputTokenBalances = []*big.Int{big.NewInt(105), big.NewInt(191)}
	if err := PoolSwap(ctx, store, pool, block, "0xb", big.NewInt(1), "0xa", big.NewInt(2)); err != nil {
		t.Fatalf("pool swap: %v", err)
	}

	daily, ok, err := storage.Load[model.LiquidityPoolDailySnapshot](ctx, store, "0xpool-19675")
	if err != nil || !ok {
		t.Fatalf("daily pool snapshot missing: %v", err)
	}
	if daily.DailySwapCount != 2 {
		t.Fatalf("swap count mismatch: %d", daily.DailySwapCount)
	}
	if daily.DailyVolumeByTokenAmount[0].Int64() != 7 || daily.DailyVolumeByTokenAmount[1].Int64() != 10 {
		t.Fatalf("volume mismatch: %v", daily.DailyVolumeByTokenAmount)
	}
	if daily.InputTokenBalances[1].Int64() != 191 {
		t.Fatalf("balances should be the latest: %v", daily.InputTokenBalances)
	}
}
