package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dexCore/internal/model"
)

const (
	tokenX = "0x1000000000000000000000000000000000000001"
	tokenY = "0x2000000000000000000000000000000000000002"
	owner1 = "0xaaaa000000000000000000000000000000000001"
	owner2 = "0xbbbb000000000000000000000000000000000002"
)

func testPool() *model.Pool {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.Pool{
		ID:            model.PoolID(tokenX, tokenY),
		Token0:        model.Token{Address: tokenX, Symbol: "AAA", Decimals: 18},
		Token1:        model.Token{Address: tokenY, Symbol: "BBB", Decimals: 18},
		Reserve0:      decimal.RequireFromString("1000000"),
		Reserve1:      decimal.RequireFromString("2000000"),
		TotalLPSupply: decimal.RequireFromString("999000"),
		FeeRate:       decimal.RequireFromString("0.003"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testPosition(owner string) *model.LiquidityPosition {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &model.LiquidityPosition{
		Owner:           owner,
		PoolID:          model.PoolID(tokenX, tokenY),
		LPBalance:       decimal.RequireFromString("500"),
		EntryPriceRatio: decimal.RequireFromString("2"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestMemoryStoreCreateAndFind(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testPool())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("new pool version: got %d, want 1", created.Version)
	}

	found, err := store.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !found.Reserve0.Equal(created.Reserve0) {
		t.Fatalf("reserve mismatch: %s != %s", found.Reserve0, created.Reserve0)
	}

	if _, err := store.FindByID(ctx, "unknown"); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Create(ctx, testPool()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.Create(ctx, testPool()); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists for same id, got %v", err)
	}

	// A different id holding the same pair is still a duplicate.
	other := testPool()
	other.ID = "0xsomethingelse"
	if _, err := store.Create(ctx, other); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("expected ErrPoolExists for same pair, got %v", err)
	}
}

func TestMemoryStoreFindByPairEitherOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testPool())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	forward, err := store.FindByPair(ctx, tokenX, tokenY)
	if err != nil {
		t.Fatalf("forward lookup failed: %v", err)
	}
	reverse, err := store.FindByPair(ctx, tokenY, tokenX)
	if err != nil {
		t.Fatalf("reverse lookup failed: %v", err)
	}
	if forward.ID != created.ID || reverse.ID != created.ID {
		t.Fatalf("pair lookups disagree: %s / %s / %s", forward.ID, reverse.ID, created.ID)
	}
}

func TestMemoryStoreUpdateVersionCheck(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testPool())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	current := created.Clone()
	current.Reserve0 = current.Reserve0.Add(decimal.RequireFromString("5"))
	updated, err := store.Update(ctx, current)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("updated version: got %d, want 2", updated.Version)
	}

	// A second write from the same stale read loses.
	stale := created.Clone()
	stale.Reserve0 = stale.Reserve0.Add(decimal.RequireFromString("7"))
	if _, err := store.Update(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	missing := testPool()
	missing.ID = "0xmissing"
	if _, err := store.Update(ctx, missing); !errors.Is(err, ErrPoolNotFound) {
		t.Fatalf("expected ErrPoolNotFound, got %v", err)
	}
}

func TestMemoryStoreCloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testPool())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	created.Reserve0 = decimal.RequireFromString("1")
	created.Token0.Symbol = "MUTATED"

	found, err := store.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !found.Reserve0.Equal(decimal.RequireFromString("1000000")) {
		t.Fatalf("stored reserve mutated through returned copy: %s", found.Reserve0)
	}
	if found.Token0.Symbol != "AAA" {
		t.Fatalf("stored token mutated through returned copy: %s", found.Token0.Symbol)
	}
}

func TestMemoryStorePositions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	poolID := model.PoolID(tokenX, tokenY)

	if _, err := store.FindPosition(ctx, owner1, poolID); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}

	if err := store.UpsertPosition(ctx, testPosition(owner2)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := store.UpsertPosition(ctx, testPosition(owner1)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	found, err := store.FindPosition(ctx, owner1, poolID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !found.LPBalance.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("balance mismatch: %s", found.LPBalance)
	}

	positions, err := store.PoolPositions(ctx, poolID)
	if err != nil {
		t.Fatalf("pool positions failed: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("position count: got %d, want 2", len(positions))
	}
	if positions[0].Owner != owner1 || positions[1].Owner != owner2 {
		t.Fatalf("positions not sorted by owner: %s, %s", positions[0].Owner, positions[1].Owner)
	}

	if err := store.DeletePosition(ctx, owner1, poolID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := store.DeletePosition(ctx, owner1, poolID); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound on second delete, got %v", err)
	}
	if _, err := store.FindPosition(ctx, owner1, poolID); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound after delete, got %v", err)
	}
}
