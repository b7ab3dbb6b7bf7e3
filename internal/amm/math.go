package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinimumLiquidityLock is the LP amount permanently withheld from the first
// mint of a pool. It is never part of the pool's LP supply; the value it
// represents stays in the reserves.
var MinimumLiquidityLock = decimal.NewFromInt(1000)

// SwapOutput prices a constant-product swap: the output obtainable for
// amountIn after the fee is taken from the input side.
//
//	afterFee  = amountIn * (1 - feeRate)
//	amountOut = afterFee * reserveOut / (reserveIn + afterFee)
//
// The result is strictly below reserveOut; a swap can never drain a pool.
func SwapOutput(amountIn, reserveIn, reserveOut, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if amountIn.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount in %s must be positive", ErrInvalidAmount, amountIn)
	}
	if err := validateFeeRate(feeRate); err != nil {
		return decimal.Zero, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: reserves %s/%s", ErrInsufficientLiquidity, reserveIn, reserveOut)
	}

	afterFee := amountIn.Mul(one.Sub(feeRate))
	amountOut := floorDiv(afterFee.Mul(reserveOut), reserveIn.Add(afterFee))
	if amountOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount in %s too small against reserves %s/%s",
			ErrInsufficientLiquidity, amountIn, reserveIn, reserveOut)
	}
	if amountOut.GreaterThanOrEqual(reserveOut) {
		return decimal.Zero, fmt.Errorf("%w: output %s would drain reserve %s",
			ErrInsufficientLiquidity, amountOut, reserveOut)
	}
	return amountOut, nil
}

// SwapInput inverts SwapOutput: the input required to receive amountOut.
// Rounded up, so paying the result always yields at least amountOut.
func SwapInput(amountOut, reserveIn, reserveOut, feeRate decimal.Decimal) (decimal.Decimal, error) {
	if amountOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount out %s must be positive", ErrInvalidAmount, amountOut)
	}
	if err := validateFeeRate(feeRate); err != nil {
		return decimal.Zero, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: reserves %s/%s", ErrInsufficientLiquidity, reserveIn, reserveOut)
	}
	if amountOut.GreaterThanOrEqual(reserveOut) {
		return decimal.Zero, fmt.Errorf("%w: no finite input yields %s from reserve %s",
			ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	den := reserveOut.Sub(amountOut).Mul(one.Sub(feeRate))
	return ceilDiv(amountOut.Mul(reserveIn), den), nil
}

// PriceImpact is the percentage deviation of the execution price
// (amountOut/amountIn) from the spot price (reserveOut/reserveIn).
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut decimal.Decimal) (decimal.Decimal, error) {
	if amountIn.Sign() <= 0 || amountOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amounts %s/%s must be positive", ErrInvalidAmount, amountIn, amountOut)
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: reserves %s/%s", ErrInsufficientLiquidity, reserveIn, reserveOut)
	}

	spot := reserveOut.DivRound(reserveIn, scale)
	if spot.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: spot price vanishes at reserves %s/%s",
			ErrInsufficientLiquidity, reserveIn, reserveOut)
	}
	exec := amountOut.DivRound(amountIn, scale)
	return spot.Sub(exec).Abs().DivRound(spot, scale).Mul(hundred), nil
}

// LiquidityAmounts resolves the amounts actually depositable from the
// desired pair. The first provider fixes the initial price, so both desired
// amounts pass through unchanged; afterwards the reserve-proportional
// counterpart of one side is chosen such that neither desired amount is
// exceeded and the pool price does not move.
func LiquidityAmounts(amount0Desired, amount1Desired, reserve0, reserve1 decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if amount0Desired.Sign() <= 0 || amount1Desired.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: desired amounts %s/%s must be positive",
			ErrInvalidAmount, amount0Desired, amount1Desired)
	}
	if reserve0.IsZero() && reserve1.IsZero() {
		return amount0Desired, amount1Desired, nil
	}
	if reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: one-sided reserves %s/%s",
			ErrInsufficientLiquidity, reserve0, reserve1)
	}

	optimal1 := floorDiv(amount0Desired.Mul(reserve1), reserve0)
	if optimal1.LessThanOrEqual(amount1Desired) {
		return amount0Desired, optimal1, nil
	}
	optimal0 := floorDiv(amount1Desired.Mul(reserve0), reserve1)
	return optimal0, amount1Desired, nil
}

// MintAmount computes the LP shares minted for a deposit. The first deposit
// mints the geometric mean of the amounts minus MinimumLiquidityLock; later
// deposits mint the smaller of the two proportional estimates, which stops
// an imbalanced deposit from minting excess shares.
func MintAmount(amount0, amount1, reserve0, reserve1, totalSupply decimal.Decimal) (decimal.Decimal, error) {
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: deposit amounts %s/%s must be positive",
			ErrInvalidAmount, amount0, amount1)
	}

	if totalSupply.Sign() == 0 {
		minted := sqrtFloor(amount0.Mul(amount1)).Sub(MinimumLiquidityLock)
		if minted.Sign() <= 0 {
			return decimal.Zero, fmt.Errorf("%w: sqrt(%s*%s) does not exceed the %s lock",
				ErrInsufficientInitialLiquidity, amount0, amount1, MinimumLiquidityLock)
		}
		return minted, nil
	}

	if totalSupply.Sign() < 0 || reserve0.Sign() <= 0 || reserve1.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: supply %s with reserves %s/%s",
			ErrInsufficientLiquidity, totalSupply, reserve0, reserve1)
	}
	minted := decimal.Min(
		floorDiv(amount0.Mul(totalSupply), reserve0),
		floorDiv(amount1.Mul(totalSupply), reserve1),
	)
	if minted.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: deposit %s/%s too small to mint a share",
			ErrInsufficientLiquidity, amount0, amount1)
	}
	return minted, nil
}

// BurnAmounts computes the pro-rata withdrawal for burning lpAmount shares.
func BurnAmounts(lpAmount, reserve0, reserve1, totalSupply decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if lpAmount.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: lp amount %s must be positive", ErrInvalidAmount, lpAmount)
	}
	if totalSupply.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: no outstanding supply", ErrInsufficientLiquidity)
	}
	if lpAmount.GreaterThan(totalSupply) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: burn %s exceeds supply %s",
			ErrInsufficientLiquidity, lpAmount, totalSupply)
	}

	amount0 := floorDiv(reserve0.Mul(lpAmount), totalSupply)
	amount1 := floorDiv(reserve1.Mul(lpAmount), totalSupply)
	return amount0, amount1, nil
}

// ImpermanentLoss is the percentage value lost by holding a pooled pair
// through a price divergence, versus holding the assets unpooled:
//
//	change = current / initial
//	loss   = 1 - 2*sqrt(change)/(1 + change)
//
// Exactly zero when the ratio is unchanged, positive otherwise.
func ImpermanentLoss(currentPriceRatio, initialPriceRatio decimal.Decimal) (decimal.Decimal, error) {
	if currentPriceRatio.Sign() <= 0 || initialPriceRatio.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: price ratios %s/%s must be positive",
			ErrInvalidParameter, currentPriceRatio, initialPriceRatio)
	}

	change := floorDiv(currentPriceRatio, initialPriceRatio)
	loss := one.Sub(floorDiv(two.Mul(sqrtFloor(change)), one.Add(change)))
	return loss.Mul(hundred), nil
}
