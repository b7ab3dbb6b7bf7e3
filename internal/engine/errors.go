package engine

import "errors"

// Error kinds surfaced by the engine, in addition to the math-layer kinds
// that pass through unchanged. Callers match with errors.Is.
var (
	ErrIdenticalTokens        = errors.New("identical tokens")
	ErrDuplicatePair          = errors.New("duplicate pair")
	ErrSlippageExceeded       = errors.New("slippage exceeded")
	ErrPriceImpactTooHigh     = errors.New("price impact too high")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrConcurrentModification = errors.New("concurrent modification")
)
