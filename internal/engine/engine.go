package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexCore/internal/amm"
	"dexCore/internal/model"
	"dexCore/internal/risk"
	"dexCore/internal/storage"
)

// Config holds the engine's operating thresholds.
type Config struct {
	// MaxPriceImpactPct is the hard execution ceiling: swaps whose price
	// impact exceeds it fail.
	MaxPriceImpactPct decimal.Decimal
	// WarnPriceImpactPct attaches a warning to results above it.
	WarnPriceImpactPct decimal.Decimal
	// MaxRetries bounds re-attempts after a version conflict.
	MaxRetries int
	// RetryBackoff is the initial delay between conflict retries.
	RetryBackoff time.Duration
}

// DefaultConfig returns the standard thresholds: 10% impact ceiling, 5%
// warning, 3 conflict retries starting at 25ms backoff.
func DefaultConfig() Config {
	return Config{
		MaxPriceImpactPct:  decimal.NewFromInt(10),
		WarnPriceImpactPct: decimal.NewFromInt(5),
		MaxRetries:         3,
		RetryBackoff:       25 * time.Millisecond,
	}
}

// Engine orchestrates pool and position state transitions. Every mutating
// operation is a serialized read-compute-write per pool: an in-process
// keyed lock covers the whole span, and the repository's versioned update
// is the cross-process serialization point, retried on conflict up to
// Config.MaxRetries.
type Engine struct {
	pools     storage.PoolRepository
	positions storage.PositionRepository
	scanner   risk.Scanner
	journal   *storage.Journal
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time

	mu        sync.Mutex
	poolLocks map[string]*sync.Mutex
}

// Option customizes an Engine beyond its required collaborators.
type Option func(*Engine)

// WithScanner installs a pre-trade risk scanner consulted before swap
// execution. A scanner error vetoes the swap.
func WithScanner(scanner risk.Scanner) Option {
	return func(e *Engine) { e.scanner = scanner }
}

// WithJournal installs an operation journal receiving one entry per
// committed mutating operation.
func WithJournal(journal *storage.Journal) Option {
	return func(e *Engine) { e.journal = journal }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine over the given repositories.
func New(cfg Config, pools storage.PoolRepository, positions storage.PositionRepository, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPriceImpactPct.Sign() <= 0 {
		cfg.MaxPriceImpactPct = DefaultConfig().MaxPriceImpactPct
	}
	if cfg.WarnPriceImpactPct.Sign() <= 0 {
		cfg.WarnPriceImpactPct = DefaultConfig().WarnPriceImpactPct
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}

	e := &Engine{
		pools:     pools,
		positions: positions,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		poolLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lockFor returns the mutex serializing mutations of one pool. Locks are
// per pool; operations on different pools never contend.
func (e *Engine) lockFor(poolID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.poolLocks[poolID]
	if !ok {
		lock = &sync.Mutex{}
		e.poolLocks[poolID] = lock
	}
	return lock
}

// withConflictRetry runs one read-compute-write attempt, re-running it with
// exponential backoff while the repository reports a version conflict.
// Exhausting the retry budget surfaces ErrConcurrentModification.
func (e *Engine) withConflictRetry(ctx context.Context, poolID string, fn func(context.Context) error) error {
	delay := e.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, storage.ErrVersionConflict) {
			return err
		}
		if attempt >= e.cfg.MaxRetries {
			return fmt.Errorf("%w: pool %s still conflicted after %d attempts",
				ErrConcurrentModification, poolID, attempt+1)
		}

		e.logger.Debug("version conflict, retrying",
			zap.String("pool_id", poolID),
			zap.Int("attempt", attempt+1),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

func (e *Engine) appendJournal(entry storage.JournalEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(entry); err != nil {
		e.logger.Warn("journal append failed",
			zap.String("kind", entry.Kind),
			zap.String("pool_id", entry.PoolID),
			zap.Error(err),
		)
	}
}

// GetPool returns the pool by ID.
func (e *Engine) GetPool(ctx context.Context, id string) (*model.Pool, error) {
	return e.pools.FindByID(ctx, id)
}

// FindPoolByPair returns the pool holding the unordered token pair.
func (e *Engine) FindPoolByPair(ctx context.Context, tokenA, tokenB string) (*model.Pool, error) {
	a, err := model.NormalizeAddress(tokenA)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", amm.ErrInvalidParameter, err)
	}
	b, err := model.NormalizeAddress(tokenB)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", amm.ErrInvalidParameter, err)
	}
	return e.pools.FindByPair(ctx, a, b)
}

// ListPools returns all pools.
func (e *Engine) ListPools(ctx context.Context) ([]*model.Pool, error) {
	return e.pools.List(ctx)
}

// GetPosition returns one owner's position in a pool.
func (e *Engine) GetPosition(ctx context.Context, owner, poolID string) (*model.LiquidityPosition, error) {
	normalized, err := model.NormalizeAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", amm.ErrInvalidParameter, err)
	}
	return e.positions.FindPosition(ctx, normalized, poolID)
}

func validateFraction(name string, value decimal.Decimal) error {
	if value.Sign() < 0 || value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s %s outside [0, 1)", amm.ErrInvalidParameter, name, value)
	}
	return nil
}
