package num

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertTokenToDecimal(t *testing.T) {
	got := ConvertTokenToDecimal(big.NewInt(1500000), 6)
	if got.String() != "1.5" {
		t.Fatalf("convert mismatch: %s", got)
	}

	got = ConvertTokenToDecimal(big.NewInt(42), 0)
	if got.String() != "42" {
		t.Fatalf("zero decimals mismatch: %s", got)
	}

	if !ConvertTokenToDecimal(nil, 18).IsZero() {
		t.Fatalf("nil amount should be zero")
	}
}

func TestConvertToExp18(t *testing.T) {
	got := ConvertToExp18(big.NewInt(20000000), 6)
	if got.String() != "20000000000000000000" {
		t.Fatalf("exp18 mismatch: %s", got)
	}

	gotInt := ConvertToExp18Int(big.NewInt(1000000), 18)
	if gotInt.String() != "1000000" {
		t.Fatalf("exp18 int mismatch: %s", gotInt)
	}
}

func TestCalculateLpFee(t *testing.T) {
	fee := CalculateLpFee(decimal.RequireFromString("385837105639134032"), decimal.RequireFromString("2400000000000000"))
	if fee.String() != "926009053533921.6768" {
		t.Fatalf("lp fee mismatch: %s", fee)
	}

	fee = CalculateLpFee(decimal.RequireFromString("93024335291"), decimal.RequireFromString("3000000000000000"))
	if fee.String() != "279073005.873" {
		t.Fatalf("classic lp fee mismatch: %s", fee)
	}
}

func TestDivPrecision(t *testing.T) {
	got := Div(decimal.NewFromInt(1), decimal.NewFromInt(3))
	if got.String() != "0.3333333333333333333333333333333333" {
		t.Fatalf("div mismatch: %s", got)
	}

	got = Div(decimal.NewFromInt(2), decimal.NewFromInt(3))
	if got.String() != "0.6666666666666666666666666666666667" {
		t.Fatalf("div rounding mismatch: %s", got)
	}

	if !Div(decimal.NewFromInt(5), decimal.Zero).IsZero() {
		t.Fatalf("division by zero should yield zero")
	}
}

func TestHexToDecimal(t *testing.T) {
	got := HexToDecimal("00000000000000000000000000000000000000000000000000b1a2bc2ec50000", 0)
	if got.String() != "50000000000000000" {
		t.Fatalf("hex mismatch: %s", got)
	}
	if !HexToDecimal("", 0).IsZero() {
		t.Fatalf("empty hex should be zero")
	}
}

func TestIsNullEthValue(t *testing.T) {
	if !IsNullEthValue("0x0000000000000000000000000000000000000000000000000000000000000001") {
		t.Fatalf("expected null eth value")
	}
	if IsNullEthValue("0x0000000000000000000000000000000000000000000000000000000000000002") {
		t.Fatalf("unexpected null eth value")
	}
}
