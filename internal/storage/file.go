package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dexCore/internal/model"
)

// FileStore is a MemoryStore persisted as a JSON snapshot on disk. The
// snapshot loads at construction; Flush rewrites it atomically
// (write-to-temp, then rename).
type FileStore struct {
	*MemoryStore
	path string

	flushMu sync.Mutex
}

type fileSnapshot struct {
	Pools     []*model.Pool              `json:"pools"`
	Positions []*model.LiquidityPosition `json:"positions"`
	SavedAt   string                     `json:"saved_at"`
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}

	store := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snapshot fileSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	store.Restore(snapshot.Pools, snapshot.Positions)

	return store, nil
}

// Flush writes the current contents to the state file.
func (s *FileStore) Flush() error {
	pools, positions := s.Snapshot()

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	data, err := json.Marshal(fileSnapshot{
		Pools:     pools,
		Positions: positions,
		SavedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}

	return nil
}
