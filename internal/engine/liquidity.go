package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexCore/internal/amm"
	"dexCore/internal/model"
	"dexCore/internal/storage"
)

// CreatePool registers a pool for the unordered token pair, optionally
// seeding it with initial liquidity at the caller's chosen price.
func (e *Engine) CreatePool(ctx context.Context, req CreatePoolRequest) (*CreatePoolResult, error) {
	tokenA := req.TokenA
	tokenB := req.TokenB

	addressA, err := model.NormalizeAddress(tokenA.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: token A: %v", amm.ErrInvalidParameter, err)
	}
	addressB, err := model.NormalizeAddress(tokenB.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: token B: %v", amm.ErrInvalidParameter, err)
	}
	tokenA.Address = addressA
	tokenB.Address = addressB

	if tokenA.Equal(tokenB) {
		return nil, fmt.Errorf("%w: %s", ErrIdenticalTokens, tokenA.Address)
	}
	if err := validateFraction("fee rate", req.FeeRate); err != nil {
		return nil, err
	}

	if req.InitialA.Sign() < 0 || req.InitialB.Sign() < 0 {
		return nil, fmt.Errorf("%w: initial amounts %s/%s", amm.ErrInvalidAmount, req.InitialA, req.InitialB)
	}
	hasInitial := req.InitialA.Sign() > 0 || req.InitialB.Sign() > 0
	if hasInitial && (req.InitialA.IsZero() || req.InitialB.IsZero()) {
		return nil, fmt.Errorf("%w: initial amounts must be supplied together", amm.ErrInvalidAmount)
	}

	token0, token1 := model.SortTokens(tokenA, tokenB)
	initial0, initial1 := req.InitialA, req.InitialB
	if token0.Address != tokenA.Address {
		initial0, initial1 = req.InitialB, req.InitialA
	}

	if _, err := e.pools.FindByPair(ctx, token0.Address, token1.Address); err == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrDuplicatePair, token0.Symbol, token1.Symbol)
	} else if !errors.Is(err, storage.ErrPoolNotFound) {
		return nil, fmt.Errorf("look up pair: %w", err)
	}

	now := e.now().UTC()
	pool := &model.Pool{
		ID:        model.PoolID(token0.Address, token1.Address),
		Token0:    token0,
		Token1:    token1,
		FeeRate:   req.FeeRate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var minted decimal.Decimal
	var position *model.LiquidityPosition
	if hasInitial {
		if req.Owner == "" {
			return nil, fmt.Errorf("%w: owner required with initial liquidity", amm.ErrInvalidParameter)
		}
		owner, err := model.NormalizeAddress(req.Owner)
		if err != nil {
			return nil, fmt.Errorf("%w: owner: %v", amm.ErrInvalidParameter, err)
		}

		amount0, amount1, err := amm.LiquidityAmounts(initial0, initial1, decimal.Zero, decimal.Zero)
		if err != nil {
			return nil, err
		}
		minted, err = amm.MintAmount(amount0, amount1, decimal.Zero, decimal.Zero, decimal.Zero)
		if err != nil {
			return nil, err
		}

		pool.Reserve0 = amount0
		pool.Reserve1 = amount1
		pool.TotalLPSupply = minted

		ratio, _ := pool.PriceRatio()
		position = &model.LiquidityPosition{
			Owner:           owner,
			PoolID:          pool.ID,
			LPBalance:       minted,
			EntryPriceRatio: ratio,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	created, err := e.pools.Create(ctx, pool)
	if err != nil {
		if errors.Is(err, storage.ErrPoolExists) {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicatePair, token0.Symbol, token1.Symbol)
		}
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if position != nil {
		if err := e.positions.UpsertPosition(ctx, position); err != nil {
			return nil, fmt.Errorf("pool %s created but position write failed: %w", created.ID, err)
		}
	}

	e.logger.Info("pool created",
		zap.String("pool_id", created.ID),
		zap.String("token0", token0.Symbol),
		zap.String("token1", token1.Symbol),
		zap.String("fee_rate", created.FeeRate.String()),
		zap.String("reserve0", created.Reserve0.String()),
		zap.String("reserve1", created.Reserve1.String()),
	)
	e.appendJournal(storage.JournalEntry{
		Kind:     "create_pool",
		PoolID:   created.ID,
		Owner:    req.Owner,
		Amount0:  created.Reserve0,
		Amount1:  created.Reserve1,
		LPDelta:  minted,
		Reserve0: created.Reserve0,
		Reserve1: created.Reserve1,
		Version:  created.Version,
		At:       now,
	})

	return &CreatePoolResult{Pool: created, LPMinted: minted, Position: position}, nil
}

// AddLiquidity deposits up to the desired amounts at the pool's current
// ratio and mints LP shares to the owner.
func (e *Engine) AddLiquidity(ctx context.Context, req AddLiquidityRequest) (*AddLiquidityResult, error) {
	owner, err := model.NormalizeAddress(req.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", amm.ErrInvalidParameter, err)
	}
	if err := validateFraction("slippage tolerance", req.SlippageTolerance); err != nil {
		return nil, err
	}
	if req.MinimumLPOut.Sign() < 0 {
		return nil, fmt.Errorf("%w: minimum lp out %s", amm.ErrInvalidAmount, req.MinimumLPOut)
	}

	lock := e.lockFor(req.PoolID)
	lock.Lock()
	defer lock.Unlock()

	var result *AddLiquidityResult
	err = e.withConflictRetry(ctx, req.PoolID, func(ctx context.Context) error {
		pool, err := e.pools.FindByID(ctx, req.PoolID)
		if err != nil {
			return fmt.Errorf("load pool: %w", err)
		}

		amount0, amount1, err := amm.LiquidityAmounts(req.Amount0, req.Amount1, pool.Reserve0, pool.Reserve1)
		if err != nil {
			return err
		}
		minted, err := amm.MintAmount(amount0, amount1, pool.Reserve0, pool.Reserve1, pool.TotalLPSupply)
		if err != nil {
			return err
		}
		if req.MinimumLPOut.Sign() > 0 && minted.LessThan(req.MinimumLPOut) {
			return fmt.Errorf("%w: would mint %s, floor %s", ErrSlippageExceeded, minted, req.MinimumLPOut)
		}

		now := e.now().UTC()
		pool.Reserve0 = pool.Reserve0.Add(amount0)
		pool.Reserve1 = pool.Reserve1.Add(amount1)
		pool.TotalLPSupply = pool.TotalLPSupply.Add(minted)
		pool.UpdatedAt = now

		updated, err := e.pools.Update(ctx, pool)
		if err != nil {
			return err
		}

		position, err := e.positions.FindPosition(ctx, owner, req.PoolID)
		switch {
		case errors.Is(err, storage.ErrPositionNotFound):
			ratio, _ := updated.PriceRatio()
			position = &model.LiquidityPosition{
				Owner:           owner,
				PoolID:          req.PoolID,
				LPBalance:       minted,
				EntryPriceRatio: ratio,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
		case err != nil:
			return fmt.Errorf("load position: %w", err)
		default:
			position.LPBalance = position.LPBalance.Add(minted)
			position.UpdatedAt = now
		}
		if err := e.positions.UpsertPosition(ctx, position); err != nil {
			return fmt.Errorf("save position: %w", err)
		}

		e.logger.Info("liquidity added",
			zap.String("pool_id", updated.ID),
			zap.String("owner", owner),
			zap.String("amount0", amount0.String()),
			zap.String("amount1", amount1.String()),
			zap.String("lp_minted", minted.String()),
		)
		e.appendJournal(storage.JournalEntry{
			Kind:     "add_liquidity",
			PoolID:   updated.ID,
			Owner:    owner,
			Amount0:  amount0,
			Amount1:  amount1,
			LPDelta:  minted,
			Reserve0: updated.Reserve0,
			Reserve1: updated.Reserve1,
			Version:  updated.Version,
			At:       now,
		})

		result = &AddLiquidityResult{
			Pool:     updated,
			Amount0:  amount0,
			Amount1:  amount1,
			LPMinted: minted,
			Position: position,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveLiquidity burns part of the owner's position and withdraws the
// pro-rata share of both reserves. The result reports impermanent loss
// against the baseline ratio: the request override when supplied, else the
// position's recorded entry ratio, else 1:1.
func (e *Engine) RemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (*RemoveLiquidityResult, error) {
	owner, err := model.NormalizeAddress(req.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: owner: %v", amm.ErrInvalidParameter, err)
	}
	if req.LPAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: lp amount %s must be positive", amm.ErrInvalidAmount, req.LPAmount)
	}
	if req.Minimum0.Sign() < 0 || req.Minimum1.Sign() < 0 {
		return nil, fmt.Errorf("%w: minimums %s/%s", amm.ErrInvalidAmount, req.Minimum0, req.Minimum1)
	}
	if req.EntryPriceRatio.Sign() < 0 {
		return nil, fmt.Errorf("%w: entry price ratio %s", amm.ErrInvalidParameter, req.EntryPriceRatio)
	}

	lock := e.lockFor(req.PoolID)
	lock.Lock()
	defer lock.Unlock()

	var result *RemoveLiquidityResult
	err = e.withConflictRetry(ctx, req.PoolID, func(ctx context.Context) error {
		pool, err := e.pools.FindByID(ctx, req.PoolID)
		if err != nil {
			return fmt.Errorf("load pool: %w", err)
		}

		position, err := e.positions.FindPosition(ctx, owner, req.PoolID)
		if errors.Is(err, storage.ErrPositionNotFound) {
			return fmt.Errorf("%w: owner %s holds no position in pool %s", ErrInsufficientBalance, owner, req.PoolID)
		}
		if err != nil {
			return fmt.Errorf("load position: %w", err)
		}
		if req.LPAmount.GreaterThan(position.LPBalance) {
			return fmt.Errorf("%w: burn %s exceeds position balance %s", ErrInsufficientBalance, req.LPAmount, position.LPBalance)
		}
		if req.LPAmount.GreaterThan(pool.TotalLPSupply) {
			return fmt.Errorf("%w: burn %s exceeds pool supply %s", ErrInsufficientBalance, req.LPAmount, pool.TotalLPSupply)
		}

		amount0, amount1, err := amm.BurnAmounts(req.LPAmount, pool.Reserve0, pool.Reserve1, pool.TotalLPSupply)
		if err != nil {
			return err
		}
		if req.Minimum0.Sign() > 0 && amount0.LessThan(req.Minimum0) {
			return fmt.Errorf("%w: amount0 %s below floor %s", ErrSlippageExceeded, amount0, req.Minimum0)
		}
		if req.Minimum1.Sign() > 0 && amount1.LessThan(req.Minimum1) {
			return fmt.Errorf("%w: amount1 %s below floor %s", ErrSlippageExceeded, amount1, req.Minimum1)
		}

		baseline := req.EntryPriceRatio
		if baseline.Sign() <= 0 {
			baseline = position.EntryPriceRatio
		}
		if baseline.Sign() <= 0 {
			baseline = decimal.NewFromInt(1)
		}
		lossPct := decimal.Zero
		if current, ok := pool.PriceRatio(); ok {
			lossPct, err = amm.ImpermanentLoss(current, baseline)
			if err != nil {
				return err
			}
		}

		now := e.now().UTC()
		pool.Reserve0 = pool.Reserve0.Sub(amount0)
		pool.Reserve1 = pool.Reserve1.Sub(amount1)
		pool.TotalLPSupply = pool.TotalLPSupply.Sub(req.LPAmount)
		pool.UpdatedAt = now

		updated, err := e.pools.Update(ctx, pool)
		if err != nil {
			return err
		}

		position.LPBalance = position.LPBalance.Sub(req.LPAmount)
		position.UpdatedAt = now
		if position.LPBalance.IsZero() {
			if err := e.positions.DeletePosition(ctx, owner, req.PoolID); err != nil {
				return fmt.Errorf("delete position: %w", err)
			}
			position = nil
		} else {
			if err := e.positions.UpsertPosition(ctx, position); err != nil {
				return fmt.Errorf("save position: %w", err)
			}
		}

		e.logger.Info("liquidity removed",
			zap.String("pool_id", updated.ID),
			zap.String("owner", owner),
			zap.String("amount0", amount0.String()),
			zap.String("amount1", amount1.String()),
			zap.String("lp_burned", req.LPAmount.String()),
			zap.String("impermanent_loss_pct", lossPct.String()),
		)
		e.appendJournal(storage.JournalEntry{
			Kind:     "remove_liquidity",
			PoolID:   updated.ID,
			Owner:    owner,
			Amount0:  amount0,
			Amount1:  amount1,
			LPDelta:  req.LPAmount.Neg(),
			Reserve0: updated.Reserve0,
			Reserve1: updated.Reserve1,
			Version:  updated.Version,
			At:       now,
		})

		result = &RemoveLiquidityResult{
			Pool:               updated,
			Amount0:            amount0,
			Amount1:            amount1,
			LPBurned:           req.LPAmount,
			ImpermanentLossPct: lossPct,
			Position:           position,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
