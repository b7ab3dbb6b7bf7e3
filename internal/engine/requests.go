package engine

import (
	"github.com/shopspring/decimal"

	"dexCore/internal/amm"
	"dexCore/internal/model"
)

// Request and result records are plain data. Amounts are exact-precision
// decimals (JSON-encoded as strings); optional bounds use zero to mean
// "not supplied".

// CreatePoolRequest creates a pool for an unordered token pair, optionally
// seeding it with initial liquidity. Owner is required when initial
// amounts are supplied.
type CreatePoolRequest struct {
	TokenA   model.Token     `json:"token_a"`
	TokenB   model.Token     `json:"token_b"`
	FeeRate  decimal.Decimal `json:"fee_rate"`
	InitialA decimal.Decimal `json:"initial_a"`
	InitialB decimal.Decimal `json:"initial_b"`
	Owner    string          `json:"owner,omitempty"`
}

type CreatePoolResult struct {
	Pool     *model.Pool              `json:"pool"`
	LPMinted decimal.Decimal          `json:"lp_minted"`
	Position *model.LiquidityPosition `json:"position,omitempty"`
}

type AddLiquidityRequest struct {
	PoolID            string          `json:"pool_id"`
	Owner             string          `json:"owner"`
	Amount0           decimal.Decimal `json:"amount0"`
	Amount1           decimal.Decimal `json:"amount1"`
	SlippageTolerance decimal.Decimal `json:"slippage_tolerance"`
	MinimumLPOut      decimal.Decimal `json:"minimum_lp_out"`
}

type AddLiquidityResult struct {
	Pool     *model.Pool              `json:"pool"`
	Amount0  decimal.Decimal          `json:"amount0"`
	Amount1  decimal.Decimal          `json:"amount1"`
	LPMinted decimal.Decimal          `json:"lp_minted"`
	Position *model.LiquidityPosition `json:"position"`
}

// RemoveLiquidityRequest burns part of the caller's position.
// EntryPriceRatio optionally overrides the impermanent-loss baseline;
// when zero the position's recorded entry ratio applies, falling back
// to 1:1.
type RemoveLiquidityRequest struct {
	PoolID          string          `json:"pool_id"`
	Owner           string          `json:"owner"`
	LPAmount        decimal.Decimal `json:"lp_amount"`
	Minimum0        decimal.Decimal `json:"minimum0"`
	Minimum1        decimal.Decimal `json:"minimum1"`
	EntryPriceRatio decimal.Decimal `json:"entry_price_ratio"`
}

type RemoveLiquidityResult struct {
	Pool               *model.Pool              `json:"pool"`
	Amount0            decimal.Decimal          `json:"amount0"`
	Amount1            decimal.Decimal          `json:"amount1"`
	LPBurned           decimal.Decimal          `json:"lp_burned"`
	ImpermanentLossPct decimal.Decimal          `json:"impermanent_loss_pct"`
	Position           *model.LiquidityPosition `json:"position,omitempty"`
}

// SwapRequest prices or executes a swap of AmountIn of TokenIn against the
// pool's other token. MinimumOutput carries a bound from an earlier quote;
// zero means unbounded. Owner is informational (journal only).
type SwapRequest struct {
	PoolID            string          `json:"pool_id"`
	Owner             string          `json:"owner,omitempty"`
	TokenIn           string          `json:"token_in"`
	AmountIn          decimal.Decimal `json:"amount_in"`
	SlippageTolerance decimal.Decimal `json:"slippage_tolerance"`
	MinimumOutput     decimal.Decimal `json:"minimum_output"`
}

type QuoteResult struct {
	Pool     *model.Pool    `json:"pool"`
	TokenIn  model.Token    `json:"token_in"`
	TokenOut model.Token    `json:"token_out"`
	Quote    *amm.SwapQuote `json:"quote"`
	Warnings []string       `json:"warnings,omitempty"`
}

type SwapResult struct {
	Pool     *model.Pool    `json:"pool"`
	TokenIn  model.Token    `json:"token_in"`
	TokenOut model.Token    `json:"token_out"`
	Quote    *amm.SwapQuote `json:"quote"`
	Warnings []string       `json:"warnings,omitempty"`
}
