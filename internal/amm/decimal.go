package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// scale is the number of fractional digits carried through every division
// and square root. Additions and multiplications stay exact.
const scale = 18

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// floorDiv divides truncating toward zero at the working scale. Used for
// every amount that leaves the pool, so rounding always favors the pool.
func floorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, _ := num.QuoRem(den, scale)
	return q
}

// ceilDiv divides rounding away from zero at the working scale. Used for
// amounts the caller must supply.
func ceilDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, scale)
	if !r.IsZero() {
		q = q.Add(decimal.New(1, -scale))
	}
	return q
}

// sqrtFloor returns the square root truncated to the working scale. The
// decimal library exposes no square root, so the scaled coefficient goes
// through big.Int.Sqrt, which floors.
func sqrtFloor(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	scaled := d.Shift(2 * scale).BigInt()
	return decimal.NewFromBigInt(new(big.Int).Sqrt(scaled), -scale)
}

func validateFeeRate(feeRate decimal.Decimal) error {
	if feeRate.Sign() < 0 || feeRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: fee rate %s outside [0, 1)", ErrInvalidParameter, feeRate)
	}
	return nil
}

func validateSlippageTolerance(tolerance decimal.Decimal) error {
	if tolerance.Sign() < 0 || tolerance.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: slippage tolerance %s outside [0, 1)", ErrInvalidParameter, tolerance)
	}
	return nil
}
