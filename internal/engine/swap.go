package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexCore/internal/amm"
	"dexCore/internal/model"
	"dexCore/internal/storage"
)

// quoteAgainst prices amountIn against the reserve side matching tokenIn.
// The caller passes a normalized address; a token outside the pair is an
// invalid parameter.
func quoteAgainst(pool *model.Pool, tokenIn string, amountIn, tolerance decimal.Decimal) (*amm.SwapQuote, model.Token, model.Token, bool, error) {
	switch tokenIn {
	case pool.Token0.Address:
		quote, err := amm.Quote(amountIn, pool.Reserve0, pool.Reserve1, pool.FeeRate, tolerance)
		return quote, pool.Token0, pool.Token1, true, err
	case pool.Token1.Address:
		quote, err := amm.Quote(amountIn, pool.Reserve1, pool.Reserve0, pool.FeeRate, tolerance)
		return quote, pool.Token1, pool.Token0, false, err
	default:
		return nil, model.Token{}, model.Token{}, false, fmt.Errorf("%w: token %s not in pool %s", amm.ErrInvalidParameter, tokenIn, pool.ID)
	}
}

// QuoteSwap prices a swap against current reserves without touching pool
// state. Quotes above the execution ceiling still succeed; the warning
// tells the caller execution would be rejected.
func (e *Engine) QuoteSwap(ctx context.Context, req SwapRequest) (*QuoteResult, error) {
	tokenIn, err := model.NormalizeAddress(req.TokenIn)
	if err != nil {
		return nil, fmt.Errorf("%w: token in: %v", amm.ErrInvalidParameter, err)
	}

	pool, err := e.pools.FindByID(ctx, req.PoolID)
	if err != nil {
		return nil, fmt.Errorf("load pool: %w", err)
	}

	quote, in, out, _, err := quoteAgainst(pool, tokenIn, req.AmountIn, req.SlippageTolerance)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if quote.PriceImpactPct.GreaterThan(e.cfg.WarnPriceImpactPct) {
		warnings = append(warnings, fmt.Sprintf("price impact %s%% exceeds warning threshold %s%%",
			quote.PriceImpactPct, e.cfg.WarnPriceImpactPct))
		e.logger.Warn("high price impact quote",
			zap.String("pool_id", pool.ID),
			zap.String("token_in", in.Symbol),
			zap.String("price_impact_pct", quote.PriceImpactPct.String()),
		)
	}
	if quote.PriceImpactPct.GreaterThan(e.cfg.MaxPriceImpactPct) {
		warnings = append(warnings, fmt.Sprintf("price impact %s%% exceeds execution ceiling %s%%; this swap would be rejected",
			quote.PriceImpactPct, e.cfg.MaxPriceImpactPct))
	}

	return &QuoteResult{Pool: pool, TokenIn: in, TokenOut: out, Quote: quote, Warnings: warnings}, nil
}

// ExecuteSwap applies a swap to the pool, moving both reserves and
// recording volume and fee statistics. The trade is rejected when price
// impact crosses the ceiling, when output falls below the request's
// minimum, or when the risk scanner vetoes it.
func (e *Engine) ExecuteSwap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	tokenIn, err := model.NormalizeAddress(req.TokenIn)
	if err != nil {
		return nil, fmt.Errorf("%w: token in: %v", amm.ErrInvalidParameter, err)
	}
	if req.MinimumOutput.Sign() < 0 {
		return nil, fmt.Errorf("%w: minimum output %s", amm.ErrInvalidAmount, req.MinimumOutput)
	}
	owner := req.Owner
	if owner != "" {
		if owner, err = model.NormalizeAddress(owner); err != nil {
			return nil, fmt.Errorf("%w: owner: %v", amm.ErrInvalidParameter, err)
		}
	}

	lock := e.lockFor(req.PoolID)
	lock.Lock()
	defer lock.Unlock()

	var result *SwapResult
	err = e.withConflictRetry(ctx, req.PoolID, func(ctx context.Context) error {
		pool, err := e.pools.FindByID(ctx, req.PoolID)
		if err != nil {
			return fmt.Errorf("load pool: %w", err)
		}

		quote, in, out, zeroForOne, err := quoteAgainst(pool, tokenIn, req.AmountIn, req.SlippageTolerance)
		if err != nil {
			return err
		}
		if quote.PriceImpactPct.GreaterThan(e.cfg.MaxPriceImpactPct) {
			return fmt.Errorf("%w: impact %s%% over ceiling %s%%",
				ErrPriceImpactTooHigh, quote.PriceImpactPct, e.cfg.MaxPriceImpactPct)
		}
		if req.MinimumOutput.Sign() > 0 && quote.OutputAmount.LessThan(req.MinimumOutput) {
			return fmt.Errorf("%w: output %s below floor %s",
				ErrSlippageExceeded, quote.OutputAmount, req.MinimumOutput)
		}
		if e.scanner != nil {
			if err := e.scanner.ScanSwap(ctx, pool, quote); err != nil {
				return fmt.Errorf("risk scan rejected swap: %w", err)
			}
		}

		now := e.now().UTC()
		if zeroForOne {
			pool.Reserve0 = pool.Reserve0.Add(quote.InputAmount)
			pool.Reserve1 = pool.Reserve1.Sub(quote.OutputAmount)
			pool.Volume0 = pool.Volume0.Add(quote.InputAmount)
			pool.Fees0 = pool.Fees0.Add(quote.FeeAmount)
		} else {
			pool.Reserve1 = pool.Reserve1.Add(quote.InputAmount)
			pool.Reserve0 = pool.Reserve0.Sub(quote.OutputAmount)
			pool.Volume1 = pool.Volume1.Add(quote.InputAmount)
			pool.Fees1 = pool.Fees1.Add(quote.FeeAmount)
		}
		pool.SwapCount++
		pool.UpdatedAt = now

		updated, err := e.pools.Update(ctx, pool)
		if err != nil {
			return err
		}

		var warnings []string
		if quote.PriceImpactPct.GreaterThan(e.cfg.WarnPriceImpactPct) {
			warnings = append(warnings, fmt.Sprintf("price impact %s%% exceeds warning threshold %s%%",
				quote.PriceImpactPct, e.cfg.WarnPriceImpactPct))
		}

		e.logger.Info("swap executed",
			zap.String("pool_id", updated.ID),
			zap.String("token_in", in.Symbol),
			zap.String("token_out", out.Symbol),
			zap.String("amount_in", quote.InputAmount.String()),
			zap.String("amount_out", quote.OutputAmount.String()),
			zap.String("price_impact_pct", quote.PriceImpactPct.String()),
		)
		e.appendJournal(storage.JournalEntry{
			Kind:      "swap",
			PoolID:    updated.ID,
			Owner:     owner,
			TokenIn:   in.Address,
			TokenOut:  out.Address,
			AmountIn:  quote.InputAmount,
			AmountOut: quote.OutputAmount,
			Reserve0:  updated.Reserve0,
			Reserve1:  updated.Reserve1,
			Version:   updated.Version,
			At:        now,
		})

		result = &SwapResult{Pool: updated, TokenIn: in, TokenOut: out, Quote: quote, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
