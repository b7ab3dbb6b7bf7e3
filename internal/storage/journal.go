package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry records one committed state transition.
type JournalEntry struct {
	Kind      string          `json:"kind"`
	PoolID    string          `json:"pool_id"`
	Owner     string          `json:"owner,omitempty"`
	TokenIn   string          `json:"token_in,omitempty"`
	TokenOut  string          `json:"token_out,omitempty"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	AmountOut decimal.Decimal `json:"amount_out"`
	Amount0   decimal.Decimal `json:"amount0"`
	Amount1   decimal.Decimal `json:"amount1"`
	LPDelta   decimal.Decimal `json:"lp_delta"`
	Reserve0  decimal.Decimal `json:"reserve0"`
	Reserve1  decimal.Decimal `json:"reserve1"`
	Version   uint64          `json:"version"`
	At        time.Time       `json:"at"`
}

// Journal appends committed operations to a JSONL file.
type Journal struct {
	path string
	mu   sync.Mutex
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Append writes the entries as JSON lines.
func (j *Journal) Append(entries ...JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write journal entry: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}

	return nil
}
