package amm

import (
	"github.com/shopspring/decimal"
)

// SwapQuote prices one prospective swap against a reserve snapshot. It is
// ephemeral: computed fresh per request and never reused across mutations
// of the pool it was derived from.
type SwapQuote struct {
	InputAmount    decimal.Decimal `json:"input_amount"`
	OutputAmount   decimal.Decimal `json:"output_amount"`
	ExecutionPrice decimal.Decimal `json:"execution_price"`
	PriceImpactPct decimal.Decimal `json:"price_impact_pct"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	MinimumOutput  decimal.Decimal `json:"minimum_output"`
}

// Quote composes SwapOutput and PriceImpact into a full quote with the
// minimum acceptable output under the given slippage tolerance.
func Quote(amountIn, reserveIn, reserveOut, feeRate, slippageTolerance decimal.Decimal) (*SwapQuote, error) {
	if err := validateSlippageTolerance(slippageTolerance); err != nil {
		return nil, err
	}

	amountOut, err := SwapOutput(amountIn, reserveIn, reserveOut, feeRate)
	if err != nil {
		return nil, err
	}
	impact, err := PriceImpact(amountIn, amountOut, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}

	return &SwapQuote{
		InputAmount:    amountIn,
		OutputAmount:   amountOut,
		ExecutionPrice: amountOut.DivRound(amountIn, scale),
		PriceImpactPct: impact,
		FeeAmount:      amountIn.Mul(feeRate).Truncate(scale),
		MinimumOutput:  amountOut.Mul(one.Sub(slippageTolerance)).Truncate(scale),
	}, nil
}
