package wrapper

import (
	"fmt"

	"cosmossdk.io/math"
)

// SecondsPerYear is the period max_decompound_ratio is expressed over.
const SecondsPerYear uint64 = 365 * 24 * 60 * 60

const maxAmountBits = 128

// Every helper below truncates toward zero at 18 decimal places, which for the
// non-negative values the wrapper handles is a floor.

// fromRatio returns num/den.
func fromRatio(num, den math.Int) (math.LegacyDec, error) {
	if den.IsZero() {
		return math.LegacyDec{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	return math.LegacyNewDecFromInt(num).QuoInt(den), nil
}

// quoDec returns a/b.
func quoDec(a, b math.LegacyDec) (math.LegacyDec, error) {
	if b.IsZero() {
		return math.LegacyDec{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	return a.QuoTruncate(b), nil
}

// mulDec returns a*b.
func mulDec(a, b math.LegacyDec) math.LegacyDec {
	return a.MulTruncate(b)
}

// mulInt returns floor(d*i).
func mulInt(d math.LegacyDec, i math.Int) math.Int {
	return d.MulInt(i).TruncateInt()
}

// subDec returns a-b or ErrArithmetic when b > a.
func subDec(a, b math.LegacyDec) (math.LegacyDec, error) {
	if b.GT(a) {
		return math.LegacyDec{}, fmt.Errorf("%w: %s - %s underflows", ErrArithmetic, a, b)
	}
	return a.Sub(b), nil
}

// subInt returns a-b or ErrArithmetic when b > a.
func subInt(a, b math.Int) (math.Int, error) {
	if b.GT(a) {
		return math.Int{}, fmt.Errorf("%w: %s - %s underflows", ErrArithmetic, a, b)
	}
	return a.Sub(b), nil
}

func minInt(a, b math.Int) math.Int {
	if a.LT(b) {
		return a
	}
	return b
}

// checkAmount rejects negative amounts and amounts wider than 128 bits.
func checkAmount(i math.Int) error {
	if i.IsNil() {
		return fmt.Errorf("%w: missing amount", ErrArithmetic)
	}
	if i.IsNegative() || i.BigInt().BitLen() > maxAmountBits {
		return fmt.Errorf("%w: amount %s out of range", ErrArithmetic, i)
	}
	return nil
}
