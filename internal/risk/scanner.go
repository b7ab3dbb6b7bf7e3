package risk

import (
	"context"
	"errors"

	"dexCore/internal/amm"
	"dexCore/internal/model"
)

// ErrUnimplemented reports that no real analysis backs the configured
// scanner.
var ErrUnimplemented = errors.New("risk scan not implemented")

// Scanner vets a priced swap before execution. A non-nil error vetoes the
// swap; the engine never substitutes a fabricated verdict for a missing
// scan.
type Scanner interface {
	ScanSwap(ctx context.Context, pool *model.Pool, quote *amm.SwapQuote) error
}

// Unimplemented is the honest default Scanner: it refuses rather than
// pretend a scan happened.
type Unimplemented struct{}

func (Unimplemented) ScanSwap(context.Context, *model.Pool, *amm.SwapQuote) error {
	return ErrUnimplemented
}
