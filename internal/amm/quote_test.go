package amm

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestQuoteZeroFee(t *testing.T) {
	quote, err := Quote(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero, d(t, "0.005"))
	require.NoError(t, err)

	requireDecimal(t, "1000", quote.InputAmount)
	requireDecimal(t, "1818.181818181818181818", quote.OutputAmount)
	requireDecimal(t, "1.818181818181818182", quote.ExecutionPrice)
	requireDecimal(t, "1809.090909090909090908", quote.MinimumOutput)
	require.True(t, quote.FeeAmount.IsZero())
	require.InDelta(t, 9.0909, quote.PriceImpactPct.InexactFloat64(), 0.001)
}

func TestQuoteFeeAmount(t *testing.T) {
	quote, err := Quote(d(t, "1000"), d(t, "10000"), d(t, "20000"), d(t, "0.003"), decimal.Zero)
	require.NoError(t, err)

	requireDecimal(t, "3", quote.FeeAmount)
	requireDecimal(t, quote.OutputAmount.String(), quote.MinimumOutput)
}

func TestQuoteZeroToleranceKeepsFullOutput(t *testing.T) {
	quote, err := Quote(d(t, "250"), d(t, "10000"), d(t, "20000"), d(t, "0.003"), decimal.Zero)
	require.NoError(t, err)
	require.True(t, quote.MinimumOutput.Equal(quote.OutputAmount))
}

func TestQuoteInvalidTolerance(t *testing.T) {
	_, err := Quote(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero, d(t, "1"))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = Quote(d(t, "1000"), d(t, "10000"), d(t, "20000"), decimal.Zero, d(t, "-0.1"))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestQuotePropagatesSwapErrors(t *testing.T) {
	_, err := Quote(decimal.Zero, d(t, "10000"), d(t, "20000"), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Quote(d(t, "1000"), decimal.Zero, d(t, "20000"), decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}
