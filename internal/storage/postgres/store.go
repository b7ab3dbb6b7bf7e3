package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dexCore/internal/model"
	"dexCore/internal/storage"
)

// Store provides Postgres persistence for pools and positions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the schema when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			pool_id text PRIMARY KEY,
			token0_address text NOT NULL,
			token0_symbol text NOT NULL,
			token0_decimals smallint NOT NULL,
			token1_address text NOT NULL,
			token1_symbol text NOT NULL,
			token1_decimals smallint NOT NULL,
			reserve0 numeric NOT NULL,
			reserve1 numeric NOT NULL,
			total_lp_supply numeric NOT NULL,
			fee_rate numeric NOT NULL,
			swap_count bigint NOT NULL DEFAULT 0,
			volume0 numeric NOT NULL DEFAULT 0,
			volume1 numeric NOT NULL DEFAULT 0,
			fees0 numeric NOT NULL DEFAULT 0,
			fees1 numeric NOT NULL DEFAULT 0,
			version bigint NOT NULL,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS pools_pair_idx
			ON pools (token0_address, token1_address)`,
		`CREATE TABLE IF NOT EXISTS positions (
			owner_address text NOT NULL,
			pool_id text NOT NULL REFERENCES pools (pool_id),
			lp_balance numeric NOT NULL,
			entry_price_ratio numeric NOT NULL,
			created_at timestamptz NOT NULL,
			updated_at timestamptz NOT NULL,
			PRIMARY KEY (owner_address, pool_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

const poolColumns = `pool_id,
	token0_address, token0_symbol, token0_decimals,
	token1_address, token1_symbol, token1_decimals,
	reserve0::text, reserve1::text, total_lp_supply::text, fee_rate::text,
	swap_count, volume0::text, volume1::text, fees0::text, fees1::text,
	version, created_at, updated_at`

func scanPool(row pgx.Row) (*model.Pool, error) {
	var (
		pool               model.Pool
		decimals0          int16
		decimals1          int16
		swapCount, version int64
		raw                = make([]string, 8)
	)
	if err := row.Scan(&pool.ID,
		&pool.Token0.Address, &pool.Token0.Symbol, &decimals0,
		&pool.Token1.Address, &pool.Token1.Symbol, &decimals1,
		&raw[0], &raw[1], &raw[2], &raw[3],
		&swapCount, &raw[4], &raw[5], &raw[6], &raw[7],
		&version, &pool.CreatedAt, &pool.UpdatedAt,
	); err != nil {
		return nil, err
	}

	fields := []struct {
		dst  *decimal.Decimal
		name string
	}{
		{&pool.Reserve0, "reserve0"},
		{&pool.Reserve1, "reserve1"},
		{&pool.TotalLPSupply, "total_lp_supply"},
		{&pool.FeeRate, "fee_rate"},
		{&pool.Volume0, "volume0"},
		{&pool.Volume1, "volume1"},
		{&pool.Fees0, "fees0"},
		{&pool.Fees1, "fees1"},
	}
	for i, field := range fields {
		value, err := decimal.NewFromString(raw[i])
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", field.name, err)
		}
		*field.dst = value
	}

	pool.Token0.Decimals = uint8(decimals0)
	pool.Token1.Decimals = uint8(decimals1)
	pool.SwapCount = uint64(swapCount)
	pool.Version = uint64(version)
	return &pool, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools WHERE pool_id = $1`, id)
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, id)
		}
		return nil, err
	}
	return pool, nil
}

func (s *Store) FindByPair(ctx context.Context, tokenA, tokenB string) (*model.Pool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM pools
		WHERE (token0_address = $1 AND token1_address = $2)
		   OR (token0_address = $2 AND token1_address = $1)`, tokenA, tokenB)
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: pair %s/%s", storage.ErrPoolNotFound, tokenA, tokenB)
		}
		return nil, err
	}
	return pool, nil
}

func (s *Store) Create(ctx context.Context, pool *model.Pool) (*model.Pool, error) {
	created := pool.Clone()
	created.Version = 1

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			pool_id,
			token0_address, token0_symbol, token0_decimals,
			token1_address, token1_symbol, token1_decimals,
			reserve0, reserve1, total_lp_supply, fee_rate,
			swap_count, volume0, volume1, fees0, fees1,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		created.ID,
		created.Token0.Address, created.Token0.Symbol, int16(created.Token0.Decimals),
		created.Token1.Address, created.Token1.Symbol, int16(created.Token1.Decimals),
		created.Reserve0.String(), created.Reserve1.String(),
		created.TotalLPSupply.String(), created.FeeRate.String(),
		int64(created.SwapCount),
		created.Volume0.String(), created.Volume1.String(),
		created.Fees0.String(), created.Fees1.String(),
		int64(created.Version), created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrPoolExists, pool.ID)
		}
		return nil, err
	}
	return created, nil
}

// Update persists pool state only when the stored version still matches the
// version the caller read, then bumps it. A lost race surfaces as
// ErrVersionConflict so the caller can re-read and retry.
func (s *Store) Update(ctx context.Context, pool *model.Pool) (*model.Pool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools SET
			reserve0 = $3, reserve1 = $4, total_lp_supply = $5,
			swap_count = $6, volume0 = $7, volume1 = $8, fees0 = $9, fees1 = $10,
			version = version + 1, updated_at = $11
		WHERE pool_id = $1 AND version = $2
	`,
		pool.ID, int64(pool.Version),
		pool.Reserve0.String(), pool.Reserve1.String(), pool.TotalLPSupply.String(),
		int64(pool.SwapCount),
		pool.Volume0.String(), pool.Volume1.String(),
		pool.Fees0.String(), pool.Fees1.String(),
		pool.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pools WHERE pool_id = $1)`, pool.ID)
		if err := row.Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, pool.ID)
		}
		return nil, fmt.Errorf("%w: pool %s at version %d", storage.ErrVersionConflict, pool.ID, pool.Version)
	}

	updated := pool.Clone()
	updated.Version++
	return updated, nil
}

func (s *Store) List(ctx context.Context) ([]*model.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM pools ORDER BY pool_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []*model.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

const positionColumns = `owner_address, pool_id, lp_balance::text, entry_price_ratio::text, created_at, updated_at`

func scanPosition(row pgx.Row) (*model.LiquidityPosition, error) {
	var (
		position         model.LiquidityPosition
		lpBalance, ratio string
	)
	if err := row.Scan(&position.Owner, &position.PoolID, &lpBalance, &ratio,
		&position.CreatedAt, &position.UpdatedAt); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(lpBalance)
	if err != nil {
		return nil, fmt.Errorf("parse lp_balance: %w", err)
	}
	entryRatio, err := decimal.NewFromString(ratio)
	if err != nil {
		return nil, fmt.Errorf("parse entry_price_ratio: %w", err)
	}
	position.LPBalance = balance
	position.EntryPriceRatio = entryRatio
	return &position, nil
}

func (s *Store) FindPosition(ctx context.Context, owner, poolID string) (*model.LiquidityPosition, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions
		WHERE owner_address = $1 AND pool_id = $2`, owner, poolID)
	position, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: owner %s pool %s", storage.ErrPositionNotFound, owner, poolID)
		}
		return nil, err
	}
	return position, nil
}

func (s *Store) UpsertPosition(ctx context.Context, position *model.LiquidityPosition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			owner_address, pool_id, lp_balance, entry_price_ratio, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_address, pool_id)
		DO UPDATE SET
			lp_balance = EXCLUDED.lp_balance,
			entry_price_ratio = EXCLUDED.entry_price_ratio,
			updated_at = EXCLUDED.updated_at
	`,
		position.Owner, position.PoolID,
		position.LPBalance.String(), position.EntryPriceRatio.String(),
		position.CreatedAt, position.UpdatedAt,
	)
	return err
}

func (s *Store) DeletePosition(ctx context.Context, owner, poolID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions
		WHERE owner_address = $1 AND pool_id = $2`, owner, poolID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: owner %s pool %s", storage.ErrPositionNotFound, owner, poolID)
	}
	return nil
}

func (s *Store) PoolPositions(ctx context.Context, poolID string) ([]*model.LiquidityPosition, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions
		WHERE pool_id = $1 ORDER BY owner_address`, poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*model.LiquidityPosition
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
