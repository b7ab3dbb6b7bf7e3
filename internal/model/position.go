package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LiquidityPosition is one owner's claim on one pool.
//
// EntryPriceRatio is the pool's price ratio (reserve1/reserve0) recorded
// when the position was first created; it is the default baseline for
// impermanent-loss reporting on withdrawal.
type LiquidityPosition struct {
	Owner           string          `json:"owner"`
	PoolID          string          `json:"pool_id"`
	LPBalance       decimal.Decimal `json:"lp_balance"`
	EntryPriceRatio decimal.Decimal `json:"entry_price_ratio"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns an independent copy of the position.
func (p *LiquidityPosition) Clone() *LiquidityPosition {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Share returns the position's fraction of the given total LP supply,
// zero when the supply is zero.
func (p *LiquidityPosition) Share(totalSupply decimal.Decimal) decimal.Decimal {
	if totalSupply.Sign() <= 0 {
		return decimal.Zero
	}
	return p.LPBalance.DivRound(totalSupply, 18)
}
