package aggregate

import (
	"context"
	"fmt"
	"math/big"

	"dexsubgraphs/internal/model"
	"dexsubgraphs/internal/num"
	"dexsubgraphs/internal/storage"
)

// Activity is a user action counted by usage snapshots.
type Activity int

const (
	ActivityDeposit Activity = iota
	ActivityWithdraw
	ActivitySwap
)

func (a Activity) String() string {
	switch a {
	case ActivityDeposit:
		return "deposit"
	case ActivityWithdraw:
		return "withdraw"
	case ActivitySwap:
		return "swap"
	default:
		return "unknown"
	}
}

// Block is the position snapshots are stamped with.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Usage counts one activity (and one transaction) in the protocol's daily and hourly usage snapshots.
func Usage(ctx context.Context, store storage.Store, protocolID string, block Block, activity Activity) error {
	day := DayID(block.Timestamp)
	daily, ok, err := storage.Load[model.UsageMetricsDailySnapshot](ctx, store, snapshotID(protocolID, day))
	if err != nil {
		return err
	}
	if !ok {
		daily = &model.UsageMetricsDailySnapshot{
			ID:       snapshotID(protocolID, day),
			Protocol: protocolID,
			Day:      day,
		}
	}
	daily.BlockNumber = block.Number
	daily.Timestamp = block.Timestamp
	daily.DailyTransactionCount++

	hour := HourID(block.Timestamp)
	hourly, ok, err := storage.Load[model.UsageMetricsHourlySnapshot](ctx, store, snapshotID(protocolID, hour))
	if err != nil {
		return err
	}
	if !ok {
		hourly = &model.UsageMetricsHourlySnapshot{
			ID:       snapshotID(protocolID, hour),
			Protocol: protocolID,
			Hour:     hour,
		}
	}
	hourly.BlockNumber = block.Number
	hourly.Timestamp = block.Timestamp
	hourly.HourlyTransactionCount++

	switch activity {
	case ActivityDeposit:
		daily.DailyDepositCount++
		hourly.HourlyDepositCount++
	case ActivityWithdraw:
		daily.DailyWithdrawCount++
		hourly.HourlyWithdrawCount++
	case ActivitySwap:
		daily.DailySwapCount++
		hourly.HourlySwapCount++
	default:
		return fmt.Errorf("unknown activity %d", activity)
	}

	if err := storage.Save(ctx, store, daily); err != nil {
		return err
	}
	return storage.Save(ctx, store, hourly)
}

// PoolSwap records one swap in the pool's daily and hourly snapshots. Volumes
// are tracked per input token as absolute amounts.
func PoolSwap(
	ctx context.Context,
	store storage.Store,
	pool *model.LiquidityPool,
	block Block,
	tokenIn string,
	amountIn *big.Int,
	tokenOut string,
	amountOut *big.Int,
) error {
	n := len(pool.InputTokens)
	in, out := pool.TokenIndex(tokenIn), pool.TokenIndex(tokenOut)

	day := DayID(block.Timestamp)
	daily, ok, err := storage.Load[model.LiquidityPoolDailySnapshot](ctx, store, snapshotID(pool.ID, day))
	if err != nil {
		return err
	}
	if !ok {
		daily = &model.LiquidityPoolDailySnapshot{
			ID:                       snapshotID(pool.ID, day),
			Protocol:                 pool.Protocol,
			Pool:                     pool.ID,
			Day:                      day,
			DailyVolumeByTokenAmount: num.Zeros(n),
		}
	}
	daily.DailyVolumeByTokenAmount = resize(daily.DailyVolumeByTokenAmount, n)
	daily.BlockNumber = block.Number
	daily.Timestamp = block.Timestamp
	daily.DailySwapCount++
	addVolume(daily.DailyVolumeByTokenAmount, in, amountIn)
	addVolume(daily.DailyVolumeByTokenAmount, out, amountOut)
	daily.InputTokenBalances = num.CloneInts(pool.InputTokenBalances)

	hour := HourID(block.Timestamp)
	hourly, ok, err := storage.Load[model.LiquidityPoolHourlySnapshot](ctx, store, snapshotID(pool.ID, hour))
	if err != nil {
		return err
	}
	if !ok {
		hourly = &model.LiquidityPoolHourlySnapshot{
			ID:                        snapshotID(pool.ID, hour),
			Protocol:                  pool.Protocol,
			Pool:                      pool.ID,
			Hour:                      hour,
			HourlyVolumeByTokenAmount: num.Zeros(n),
		}
	}
	hourly.HourlyVolumeByTokenAmount = resize(hourly.HourlyVolumeByTokenAmount, n)
	hourly.BlockNumber = block.Number
	hourly.Timestamp = block.Timestamp
	hourly.HourlySwapCount++
	addVolume(hourly.HourlyVolumeByTokenAmount, in, amountIn)
	addVolume(hourly.HourlyVolumeByTokenAmount, out, amountOut)
	hourly.InputTokenBalances = num.CloneInts(pool.InputTokenBalances)

	if err := storage.Save(ctx, store, daily); err != nil {
		return err
	}
	return storage.Save(ctx, store, hourly)
}

func addVolume(volumes []*big.Int, idx int, amount *big.Int) {
	if idx < 0 || idx >= len(volumes) {
		return
	}
	absAdd(volumes[idx], amount)
}

// resize keeps volumes aligned with the pool's input tokens, which can grow on Balancer rebinds.
func resize(volumes []*big.Int, n int) []*big.Int {
	for len(volumes) < n {
		volumes = append(volumes, new(big.Int))
	}
	for i, v := range volumes {
		if v == nil {
			volumes[i] = new(big.Int)
		}
	}
	return volumes
}
