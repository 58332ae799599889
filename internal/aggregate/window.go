package aggregate

import (
	"math/big"
	"strconv"
)

const (
	SecondsPerDay  = 86400
	SecondsPerHour = 3600
)

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

// DayID is the number of whole days since the epoch.
func DayID(ts uint64) uint64 {
	return windowStart(ts, SecondsPerDay) / SecondsPerDay
}

// HourID is the number of whole hours since the epoch.
func HourID(ts uint64) uint64 {
	return windowStart(ts, SecondsPerHour) / SecondsPerHour
}

func snapshotID(prefix string, window uint64) string {
	return prefix + "-" + strconv.FormatUint(window, 10)
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}
