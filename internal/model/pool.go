package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Pool is the stored state of one constant-product trading pair.
//
// Tokens are held in canonical order (ascending address). Version is the
// optimistic-concurrency token: it is assigned 1 on creation and every
// successful update increments it.
type Pool struct {
	ID            string          `json:"pool_id"`
	Token0        Token           `json:"token0"`
	Token1        Token           `json:"token1"`
	Reserve0      decimal.Decimal `json:"reserve0"`
	Reserve1      decimal.Decimal `json:"reserve1"`
	TotalLPSupply decimal.Decimal `json:"total_lp_supply"`
	FeeRate       decimal.Decimal `json:"fee_rate"`
	SwapCount     uint64          `json:"swap_count"`
	Volume0       decimal.Decimal `json:"volume0"`
	Volume1       decimal.Decimal `json:"volume1"`
	Fees0         decimal.Decimal `json:"fees0"`
	Fees1         decimal.Decimal `json:"fees1"`
	Version       uint64          `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PoolID derives the pool identifier for a token pair: the keccak-256 hash
// of the two addresses in canonical order. Identical for either argument
// order.
func PoolID(addressA, addressB string) string {
	a := common.HexToAddress(addressA)
	b := common.HexToAddress(addressB)
	if a.Hex() > b.Hex() {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes()).Hex()
}

// Clone returns an independent copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Empty reports whether the pool holds no liquidity.
func (p *Pool) Empty() bool {
	return p.TotalLPSupply.IsZero()
}

// HasToken reports whether the address is one of the pool's tokens.
func (p *Pool) HasToken(address string) bool {
	return p.Token0.Address == address || p.Token1.Address == address
}

// PriceRatio returns reserve1/reserve0, the price of token0 denominated in
// token1. ok is false when the pool has no token0 reserves.
func (p *Pool) PriceRatio() (decimal.Decimal, bool) {
	if p.Reserve0.Sign() <= 0 {
		return decimal.Zero, false
	}
	return p.Reserve1.DivRound(p.Reserve0, 18), true
}
