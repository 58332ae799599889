package num

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of significant digits kept by decimal arithmetic on entity fields.
const Precision = 34

var (
	// Exp18 is 10^18 as a decimal.
	Exp18 = decimal.New(1, 18)

	zeroInt = big.NewInt(0)
)

// ZeroInt returns a fresh zero *big.Int.
func ZeroInt() *big.Int {
	return new(big.Int)
}

// Exponent returns 10^decimals.
func Exponent(decimals int) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// ConvertTokenToDecimal scales a raw token amount down by its decimals.
func ConvertTokenToDecimal(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	value := decimal.NewFromBigInt(amount, 0)
	if decimals == 0 {
		return value
	}
	return Div(value, Exponent(decimals))
}

// ConvertToExp18 rescales a raw token amount with the given decimals to 18 decimals.
func ConvertToExp18(amount *big.Int, decimals int) decimal.Decimal {
	return Mul(ConvertTokenToDecimal(amount, decimals), Exp18)
}

// ConvertToExp18Int is ConvertToExp18 truncated to an integer.
func ConvertToExp18Int(amount *big.Int, decimals int) *big.Int {
	return ToBigInt(ConvertToExp18(amount, decimals))
}

// CalculateLpFee returns volume * rate where both are 18-decimal fixed point values.
func CalculateLpFee(volume, rate decimal.Decimal) decimal.Decimal {
	return Mul(Mul(Div(volume, Exp18), Div(rate, Exp18)), Exp18)
}

// Div divides a by b keeping Precision significant digits. Division by zero yields zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() || a.IsZero() {
		return decimal.Zero
	}
	places := int32(Precision) - (magnitude(a) - magnitude(b)) + 2
	return round(a.DivRound(b, places))
}

// Mul multiplies a and b keeping Precision significant digits.
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return round(a.Mul(b))
}

// Add returns a + b keeping Precision significant digits.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return round(a.Add(b))
}

// Sub returns a - b keeping Precision significant digits.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return round(a.Sub(b))
}

func round(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	if d.NumDigits() <= Precision {
		return d
	}
	return d.RoundBank(int32(Precision) - magnitude(d))
}

// magnitude is the position of the most significant digit relative to the decimal point.
func magnitude(d decimal.Decimal) int32 {
	return int32(d.NumDigits()) + d.Exponent()
}

// ToBigInt truncates a decimal to its integer part.
func ToBigInt(d decimal.Decimal) *big.Int {
	return d.BigInt()
}

// FromBigInt converts an integer to a decimal.
func FromBigInt(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

// HexToDecimal reads an unsigned big-endian hex string and scales it down by decimals.
func HexToDecimal(hex string, decimals int) decimal.Decimal {
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if hex == "" {
		return decimal.Zero
	}
	value, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return decimal.Zero
	}
	return ConvertTokenToDecimal(value, decimals)
}

// IsNullEthValue reports whether a 32-byte hex word equals one, the marker some contracts return for "no value".
func IsNullEthValue(value string) bool {
	return value == "0x0000000000000000000000000000000000000000000000000000000000000001"
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Cmp(zeroInt) == 0
}

// CloneInts deep-copies a slice of *big.Int.
func CloneInts(values []*big.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = new(big.Int)
			continue
		}
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// Zeros returns n zero integers.
func Zeros(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = new(big.Int)
	}
	return out
}

// MustInt parses a base-10 integer literal and panics on malformed input.
func MustInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("num: invalid integer " + s)
	}
	return v
}
