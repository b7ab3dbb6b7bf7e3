package storage

import (
	"context"
	"errors"

	"dexCore/internal/model"
)

// Repository failure kinds. Implementations wrap these so callers can
// branch with errors.Is.
var (
	ErrPoolNotFound     = errors.New("pool not found")
	ErrPoolExists       = errors.New("pool already exists")
	ErrPositionNotFound = errors.New("position not found")
	ErrVersionConflict  = errors.New("pool version conflict")
)

// PoolRepository persists pools.
//
// Update is the serialization point for mutating operations: it persists
// only when the presented Version matches the stored one, increments it,
// and fails with ErrVersionConflict otherwise. Create assigns Version 1
// and fails with ErrPoolExists when the pool ID or the unordered token
// pair is already present.
type PoolRepository interface {
	FindByID(ctx context.Context, id string) (*model.Pool, error)
	// FindByPair matches the unordered pair: either argument order finds
	// the same pool.
	FindByPair(ctx context.Context, tokenA, tokenB string) (*model.Pool, error)
	Create(ctx context.Context, pool *model.Pool) (*model.Pool, error)
	Update(ctx context.Context, pool *model.Pool) (*model.Pool, error)
	List(ctx context.Context) ([]*model.Pool, error)
}

// PositionRepository persists liquidity positions keyed by (owner, pool).
type PositionRepository interface {
	FindPosition(ctx context.Context, owner, poolID string) (*model.LiquidityPosition, error)
	UpsertPosition(ctx context.Context, position *model.LiquidityPosition) error
	DeletePosition(ctx context.Context, owner, poolID string) error
	PoolPositions(ctx context.Context, poolID string) ([]*model.LiquidityPosition, error)
}
