package model

import (
	"math/big"
)

// UsageMetricsDailySnapshot counts protocol activity per day.
type UsageMetricsDailySnapshot struct {
	ID                    string `json:"id"`
	Protocol              string `json:"protocol"`
	Day                   uint64 `json:"day"`
	BlockNumber           uint64 `json:"blockNumber"`
	Timestamp             uint64 `json:"timestamp"`
	DailyTransactionCount int    `json:"dailyTransactionCount"`
	DailyDepositCount     int    `json:"dailyDepositCount"`
	DailyWithdrawCount    int    `json:"dailyWithdrawCount"`
	DailySwapCount        int    `json:"dailySwapCount"`
}

func (s *UsageMetricsDailySnapshot) EntityKind() string { return KindUsageDailySnapshot }
func (s *UsageMetricsDailySnapshot) EntityID() string   { return s.ID }

// UsageMetricsHourlySnapshot counts protocol activity per hour.
type UsageMetricsHourlySnapshot struct {
	ID                     string `json:"id"`
	Protocol               string `json:"protocol"`
	Hour                   uint64 `json:"hour"`
	BlockNumber            uint64 `json:"blockNumber"`
	Timestamp              uint64 `json:"timestamp"`
	HourlyTransactionCount int    `json:"hourlyTransactionCount"`
	HourlyDepositCount     int    `json:"hourlyDepositCount"`
	HourlyWithdrawCount    int    `json:"hourlyWithdrawCount"`
	HourlySwapCount        int    `json:"hourlySwapCount"`
}

func (s *UsageMetricsHourlySnapshot) EntityKind() string { return KindUsageHourlySnapshot }
func (s *UsageMetricsHourlySnapshot) EntityID() string   { return s.ID }

// LiquidityPoolDailySnapshot aggregates pool swaps per day.
type LiquidityPoolDailySnapshot struct {
	ID                       string     `json:"id"`
	Protocol                 string     `json:"protocol"`
	Pool                     string     `json:"pool"`
	Day                      uint64     `json:"day"`
	BlockNumber              uint64     `json:"blockNumber"`
	Timestamp                uint64     `json:"timestamp"`
	DailySwapCount           int        `json:"dailySwapCount"`
	DailyVolumeByTokenAmount []*big.Int `json:"dailyVolumeByTokenAmount"`
	InputTokenBalances       []*big.Int `json:"inputTokenBalances"`
}

func (s *LiquidityPoolDailySnapshot) EntityKind() string { return KindPoolDailySnapshot }
func (s *LiquidityPoolDailySnapshot) EntityID() string   { return s.ID }

// LiquidityPoolHourlySnapshot aggregates pool swaps per hour.
type LiquidityPoolHourlySnapshot struct {
	ID                        string     `json:"id"`
	Protocol                  string     `json:"protocol"`
	Pool                      string     `json:"pool"`
	Hour                      uint64     `json:"hour"`
	BlockNumber               uint64     `json:"blockNumber"`
	Timestamp                 uint64     `json:"timestamp"`
	HourlySwapCount           int        `json:"hourlySwapCount"`
	HourlyVolumeByTokenAmount []*big.Int `json:"hourlyVolumeByTokenAmount"`
	InputTokenBalances        []*big.Int `json:"inputTokenBalances"`
}

func (s *LiquidityPoolHourlySnapshot) EntityKind() string { return KindPoolHourlySnapshot }
func (s *LiquidityPoolHourlySnapshot) EntityID() string   { return s.ID }
