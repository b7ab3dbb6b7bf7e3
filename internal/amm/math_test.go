package amm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return parsed
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(d(t, want)), "got %s, want %s", got, want)
}

func TestSwapOutputZeroFee(t *testing.T) {
	out, err := SwapOutput(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)
	requireDecimal(t, "1818.181818181818181818", out)
}

func TestSwapOutputWithFee(t *testing.T) {
	out, err := SwapOutput(d(t, "1000"), d(t, "10000"), d(t, "20000"), d(t, "0.003"))
	require.NoError(t, err)

	// 997 * 20000 / 10997
	require.InDelta(t, 1813.2218, out.InexactFloat64(), 0.001)

	noFee, err := SwapOutput(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, out.LessThan(noFee), "fee must reduce output: %s >= %s", out, noFee)
}

func TestSwapOutputFeeMonotonic(t *testing.T) {
	fees := []string{"0", "0.001", "0.003", "0.01", "0.05", "0.3"}

	previous := decimal.Zero
	for i, fee := range fees {
		out, err := SwapOutput(d(t, "1000"), d(t, "10000"), d(t, "20000"), d(t, fee))
		require.NoError(t, err, "fee %s", fee)
		if i > 0 {
			require.True(t, out.LessThan(previous),
				"output must fall as the fee rises: fee %s gave %s, previous %s", fee, out, previous)
		}
		previous = out
	}
}

func TestSwapRoundTripNeverProfits(t *testing.T) {
	cases := []struct {
		amountIn, reserve0, reserve1, feeRate string
	}{
		{"1000", "10000", "20000", "0"},
		{"1000", "10000", "20000", "0.003"},
		{"123.456789", "98765.4321", "54321.9876", "0.0025"},
		{"500000", "1000000", "1000000", "0.003"},
	}
	for _, tc := range cases {
		amountIn := d(t, tc.amountIn)
		reserve0 := d(t, tc.reserve0)
		reserve1 := d(t, tc.reserve1)
		feeRate := d(t, tc.feeRate)

		out, err := SwapOutput(amountIn, reserve0, reserve1, feeRate)
		require.NoError(t, err, "case %+v", tc)

		// Reverse the trade against the post-swap reserves.
		back, err := SwapOutput(out, reserve1.Sub(out), reserve0.Add(amountIn), feeRate)
		require.NoError(t, err, "case %+v", tc)
		require.True(t, back.LessThanOrEqual(amountIn),
			"round trip produced %s from %s for %+v", back, amountIn, tc)
	}
}

func TestSwapOutputPreservesProduct(t *testing.T) {
	cases := []struct {
		amountIn, reserveIn, reserveOut, feeRate string
	}{
		{"1000", "10000", "20000", "0"},
		{"1000", "10000", "20000", "0.003"},
		{"1", "1000000", "3", "0.01"},
		{"123.456789", "98765.4321", "54321.9876", "0.0025"},
		{"999999", "1000", "1000", "0.003"},
	}
	for _, tc := range cases {
		amountIn := d(t, tc.amountIn)
		reserveIn := d(t, tc.reserveIn)
		reserveOut := d(t, tc.reserveOut)

		out, err := SwapOutput(amountIn, reserveIn, reserveOut, d(t, tc.feeRate))
		require.NoError(t, err, "case %+v", tc)

		before := reserveIn.Mul(reserveOut)
		after := reserveIn.Add(amountIn).Mul(reserveOut.Sub(out))
		require.True(t, after.GreaterThanOrEqual(before),
			"product shrank for %+v: %s < %s", tc, after, before)
	}
}

func TestSwapOutputNeverDrainsReserve(t *testing.T) {
	out, err := SwapOutput(d(t, "1000000000000000000000000000000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, out.LessThan(d(t, "20000")), "output %s reached the reserve", out)
}

func TestSwapOutputDustInput(t *testing.T) {
	_, err := SwapOutput(d(t, "0.000000000000000001"), d(t, "1000000"), d(t, "1000000"), decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestSwapOutputErrors(t *testing.T) {
	cases := []struct {
		name                                     string
		amountIn, reserveIn, reserveOut, feeRate string
		want                                     error
	}{
		{"zero amount", "0", "10000", "20000", "0.003", ErrInvalidAmount},
		{"negative amount", "-5", "10000", "20000", "0.003", ErrInvalidAmount},
		{"fee of one", "1000", "10000", "20000", "1", ErrInvalidParameter},
		{"fee above one", "1000", "10000", "20000", "1.5", ErrInvalidParameter},
		{"negative fee", "1000", "10000", "20000", "-0.003", ErrInvalidParameter},
		{"empty in reserve", "1000", "0", "20000", "0.003", ErrInsufficientLiquidity},
		{"empty out reserve", "1000", "10000", "0", "0.003", ErrInsufficientLiquidity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SwapOutput(d(t, tc.amountIn), d(t, tc.reserveIn), d(t, tc.reserveOut), d(t, tc.feeRate))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSwapInputExactDivision(t *testing.T) {
	in, err := SwapInput(d(t, "10000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)
	requireDecimal(t, "10000", in)
}

func TestSwapInputRoundsUp(t *testing.T) {
	in, err := SwapInput(d(t, "5000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)
	requireDecimal(t, "3333.333333333333333334", in)
}

func TestSwapInputCoversRequestedOutput(t *testing.T) {
	cases := []struct {
		amountOut, reserveIn, reserveOut, feeRate string
	}{
		{"5000", "10000", "20000", "0.003"},
		{"1", "10000", "20000", "0.003"},
		{"19999", "10000", "20000", "0.01"},
		{"0.333333333333333333", "777.77", "123.45", "0.0005"},
	}
	for _, tc := range cases {
		amountOut := d(t, tc.amountOut)
		reserveIn := d(t, tc.reserveIn)
		reserveOut := d(t, tc.reserveOut)
		feeRate := d(t, tc.feeRate)

		in, err := SwapInput(amountOut, reserveIn, reserveOut, feeRate)
		require.NoError(t, err, "case %+v", tc)

		got, err := SwapOutput(in, reserveIn, reserveOut, feeRate)
		require.NoError(t, err, "case %+v", tc)
		require.True(t, got.GreaterThanOrEqual(amountOut),
			"paying %s returned %s, wanted at least %s", in, got, amountOut)
	}
}

func TestSwapInputErrors(t *testing.T) {
	cases := []struct {
		name                                      string
		amountOut, reserveIn, reserveOut, feeRate string
		want                                      error
	}{
		{"zero amount", "0", "10000", "20000", "0", ErrInvalidAmount},
		{"negative amount", "-1", "10000", "20000", "0", ErrInvalidAmount},
		{"output equals reserve", "20000", "10000", "20000", "0", ErrInsufficientLiquidity},
		{"output above reserve", "20001", "10000", "20000", "0", ErrInsufficientLiquidity},
		{"empty reserves", "100", "0", "0", "0", ErrInsufficientLiquidity},
		{"invalid fee", "100", "10000", "20000", "2", ErrInvalidParameter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SwapInput(d(t, tc.amountOut), d(t, tc.reserveIn), d(t, tc.reserveOut), d(t, tc.feeRate))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPriceImpact(t *testing.T) {
	out, err := SwapOutput(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.NoError(t, err)

	impact, err := PriceImpact(d(t, "1000"), out, d(t, "10000"), d(t, "20000"))
	require.NoError(t, err)
	require.InDelta(t, 9.0909, impact.InexactFloat64(), 0.001)
}

func TestPriceImpactGrowsWithSize(t *testing.T) {
	reserveIn := d(t, "10000")
	reserveOut := d(t, "20000")

	previous := decimal.Zero
	for _, amount := range []string{"10", "100", "1000", "5000"} {
		amountIn := d(t, amount)
		out, err := SwapOutput(amountIn, reserveIn, reserveOut, d(t, "0.003"))
		require.NoError(t, err)

		impact, err := PriceImpact(amountIn, out, reserveIn, reserveOut)
		require.NoError(t, err)
		require.True(t, impact.GreaterThan(previous),
			"impact %s for amount %s not above %s", impact, amount, previous)
		previous = impact
	}
}

func TestPriceImpactErrors(t *testing.T) {
	_, err := PriceImpact(decimal.Zero, d(t, "1"), d(t, "10"), d(t, "10"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = PriceImpact(d(t, "1"), d(t, "1"), decimal.Zero, d(t, "10"))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestLiquidityAmountsFirstDeposit(t *testing.T) {
	amount0, amount1, err := LiquidityAmounts(d(t, "1234.5"), d(t, "9"), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	requireDecimal(t, "1234.5", amount0)
	requireDecimal(t, "9", amount1)
}

func TestLiquidityAmountsProportional(t *testing.T) {
	amount0, amount1, err := LiquidityAmounts(d(t, "1000"), d(t, "2000"), d(t, "10000"), d(t, "20000"))
	require.NoError(t, err)
	requireDecimal(t, "1000", amount0)
	requireDecimal(t, "2000", amount1)
}

func TestLiquidityAmountsLimitedByToken1(t *testing.T) {
	amount0, amount1, err := LiquidityAmounts(d(t, "1000"), d(t, "500"), d(t, "10000"), d(t, "20000"))
	require.NoError(t, err)
	requireDecimal(t, "250", amount0)
	requireDecimal(t, "500", amount1)
}

func TestLiquidityAmountsLimitedByToken0(t *testing.T) {
	amount0, amount1, err := LiquidityAmounts(d(t, "1000"), d(t, "5000"), d(t, "10000"), d(t, "20000"))
	require.NoError(t, err)
	requireDecimal(t, "1000", amount0)
	requireDecimal(t, "2000", amount1)
}

func TestLiquidityAmountsErrors(t *testing.T) {
	_, _, err := LiquidityAmounts(decimal.Zero, d(t, "1"), d(t, "10"), d(t, "10"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = LiquidityAmounts(d(t, "1"), d(t, "1"), d(t, "10"), decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestMintAmountFirstDeposit(t *testing.T) {
	minted, err := MintAmount(d(t, "1000"), d(t, "2000"), decimal.Zero, decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	// sqrt(1000*2000) - 1000, floored at 18 places.
	requireDecimal(t, "414.213562373095048801", minted)
}

func TestMintAmountFirstDepositBelowLock(t *testing.T) {
	// sqrt(1000*1000) equals the lock exactly; nothing is left to mint.
	_, err := MintAmount(d(t, "1000"), d(t, "1000"), decimal.Zero, decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientInitialLiquidity)

	_, err = MintAmount(d(t, "1"), d(t, "1"), decimal.Zero, decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientInitialLiquidity)
}

func TestMintAmountProportional(t *testing.T) {
	minted, err := MintAmount(d(t, "1000"), d(t, "2000"), d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.NoError(t, err)
	requireDecimal(t, "500", minted)
}

func TestMintAmountTakesSmallerShare(t *testing.T) {
	minted, err := MintAmount(d(t, "1000"), d(t, "4000"), d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.NoError(t, err)
	requireDecimal(t, "500", minted)
}

func TestMintAmountErrors(t *testing.T) {
	_, err := MintAmount(decimal.Zero, d(t, "1"), d(t, "10"), d(t, "10"), d(t, "10"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = MintAmount(d(t, "0.000000000000000001"), d(t, "0.000000000000000001"),
		d(t, "1000000"), d(t, "1000000"), d(t, "1000"))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestBurnAmountsProRata(t *testing.T) {
	amount0, amount1, err := BurnAmounts(d(t, "500"), d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.NoError(t, err)
	requireDecimal(t, "1000", amount0)
	requireDecimal(t, "2000", amount1)
}

func TestBurnAmountsFullSupply(t *testing.T) {
	amount0, amount1, err := BurnAmounts(d(t, "5000"), d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.NoError(t, err)
	requireDecimal(t, "10000", amount0)
	requireDecimal(t, "20000", amount1)
}

func TestBurnAmountsErrors(t *testing.T) {
	_, _, err := BurnAmounts(decimal.Zero, d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = BurnAmounts(d(t, "1"), d(t, "10000"), d(t, "20000"), decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	_, _, err = BurnAmounts(d(t, "5001"), d(t, "10000"), d(t, "20000"), d(t, "5000"))
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestImpermanentLossUnchangedRatio(t *testing.T) {
	for _, ratio := range []string{"1", "2", "0.5", "1234.567"} {
		loss, err := ImpermanentLoss(d(t, ratio), d(t, ratio))
		require.NoError(t, err)
		require.True(t, loss.IsZero(), "loss %s for unchanged ratio %s", loss, ratio)
	}
}

func TestImpermanentLossDoubling(t *testing.T) {
	loss, err := ImpermanentLoss(d(t, "2"), d(t, "1"))
	require.NoError(t, err)
	require.InDelta(t, 5.72, loss.InexactFloat64(), 0.01)
	require.True(t, loss.Sign() > 0)
}

func TestImpermanentLossSymmetric(t *testing.T) {
	doubled, err := ImpermanentLoss(d(t, "2"), d(t, "1"))
	require.NoError(t, err)
	halved, err := ImpermanentLoss(d(t, "0.5"), d(t, "1"))
	require.NoError(t, err)

	// 2x and 0.5x diverge by the same factor, so the loss matches.
	require.InDelta(t, doubled.InexactFloat64(), halved.InexactFloat64(), 0.0001)
}

func TestImpermanentLossErrors(t *testing.T) {
	_, err := ImpermanentLoss(decimal.Zero, d(t, "1"))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = ImpermanentLoss(d(t, "1"), d(t, "-2"))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func FuzzSwapOutput(f *testing.F) {
	f.Add(int64(1000), int64(10000), int64(20000))
	f.Add(int64(1), int64(1), int64(1))
	f.Add(int64(999999999), int64(2), int64(900000000))

	feeRate := decimal.RequireFromString("0.003")

	f.Fuzz(func(t *testing.T, amountIn, reserveIn, reserveOut int64) {
		if amountIn <= 0 || reserveIn <= 0 || reserveOut <= 0 {
			t.Skip()
		}
		in := decimal.NewFromInt(amountIn)
		rIn := decimal.NewFromInt(reserveIn)
		rOut := decimal.NewFromInt(reserveOut)

		out, err := SwapOutput(in, rIn, rOut, feeRate)
		if err != nil {
			t.Skip()
		}

		if out.GreaterThanOrEqual(rOut) {
			t.Fatalf("output %s reached reserve %s", out, rOut)
		}
		before := rIn.Mul(rOut)
		after := rIn.Add(in).Mul(rOut.Sub(out))
		if after.LessThan(before) {
			t.Fatalf("product shrank: %s < %s", after, before)
		}
	})
}
