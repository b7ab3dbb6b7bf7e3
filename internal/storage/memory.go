package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dexCore/internal/model"
)

// MemoryStore implements both repositories over mutex-guarded maps. Records
// are deep-copied on every boundary so callers never alias stored state.
type MemoryStore struct {
	mu        sync.RWMutex
	pools     map[string]*model.Pool
	positions map[string]*model.LiquidityPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:     make(map[string]*model.Pool),
		positions: make(map[string]*model.LiquidityPosition),
	}
}

func positionKey(owner, poolID string) string {
	return owner + "/" + poolID
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pool, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	return pool.Clone(), nil
}

func (s *MemoryStore) FindByPair(_ context.Context, tokenA, tokenB string) (*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pool := s.findByPairLocked(tokenA, tokenB); pool != nil {
		return pool.Clone(), nil
	}
	return nil, fmt.Errorf("%w: pair %s/%s", ErrPoolNotFound, tokenA, tokenB)
}

func (s *MemoryStore) findByPairLocked(tokenA, tokenB string) *model.Pool {
	for _, pool := range s.pools {
		if (pool.Token0.Address == tokenA && pool.Token1.Address == tokenB) ||
			(pool.Token0.Address == tokenB && pool.Token1.Address == tokenA) {
			return pool
		}
	}
	return nil
}

func (s *MemoryStore) Create(_ context.Context, pool *model.Pool) (*model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[pool.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, pool.ID)
	}
	if existing := s.findByPairLocked(pool.Token0.Address, pool.Token1.Address); existing != nil {
		return nil, fmt.Errorf("%w: pair %s/%s held by pool %s",
			ErrPoolExists, pool.Token0.Address, pool.Token1.Address, existing.ID)
	}

	stored := pool.Clone()
	stored.Version = 1
	s.pools[stored.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, pool *model.Pool) (*model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.pools[pool.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, pool.ID)
	}
	if current.Version != pool.Version {
		return nil, fmt.Errorf("%w: pool %s is at version %d, presented %d",
			ErrVersionConflict, pool.ID, current.Version, pool.Version)
	}

	stored := pool.Clone()
	stored.Version++
	s.pools[pool.ID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*model.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]*model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool.Clone())
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })
	return pools, nil
}

func (s *MemoryStore) FindPosition(_ context.Context, owner, poolID string) (*model.LiquidityPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.positions[positionKey(owner, poolID)]
	if !ok {
		return nil, fmt.Errorf("%w: owner %s pool %s", ErrPositionNotFound, owner, poolID)
	}
	return position.Clone(), nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, position *model.LiquidityPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[positionKey(position.Owner, position.PoolID)] = position.Clone()
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, owner, poolID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKey(owner, poolID)
	if _, ok := s.positions[key]; !ok {
		return fmt.Errorf("%w: owner %s pool %s", ErrPositionNotFound, owner, poolID)
	}
	delete(s.positions, key)
	return nil
}

func (s *MemoryStore) PoolPositions(_ context.Context, poolID string) ([]*model.LiquidityPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]*model.LiquidityPosition, 0)
	for _, position := range s.positions {
		if position.PoolID == poolID {
			positions = append(positions, position.Clone())
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Owner < positions[j].Owner })
	return positions, nil
}

// Snapshot returns copies of every stored pool and position, in stable
// order.
func (s *MemoryStore) Snapshot() ([]*model.Pool, []*model.LiquidityPosition) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pools := make([]*model.Pool, 0, len(s.pools))
	for _, pool := range s.pools {
		pools = append(pools, pool.Clone())
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].ID < pools[j].ID })

	positions := make([]*model.LiquidityPosition, 0, len(s.positions))
	for _, position := range s.positions {
		positions = append(positions, position.Clone())
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].PoolID != positions[j].PoolID {
			return positions[i].PoolID < positions[j].PoolID
		}
		return positions[i].Owner < positions[j].Owner
	})

	return pools, positions
}

// Restore replaces the store contents with the given records.
func (s *MemoryStore) Restore(pools []*model.Pool, positions []*model.LiquidityPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools = make(map[string]*model.Pool, len(pools))
	for _, pool := range pools {
		s.pools[pool.ID] = pool.Clone()
	}
	s.positions = make(map[string]*model.LiquidityPosition, len(positions))
	for _, position := range positions {
		s.positions[positionKey(position.Owner, position.PoolID)] = position.Clone()
	}
}
