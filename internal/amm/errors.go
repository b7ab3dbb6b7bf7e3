package amm

import "errors"

// Error kinds surfaced by the math layer. Callers match with errors.Is;
// every failure path wraps one of these.
var (
	ErrInvalidAmount                = errors.New("invalid amount")
	ErrInvalidParameter             = errors.New("invalid parameter")
	ErrInsufficientLiquidity        = errors.New("insufficient liquidity")
	ErrInsufficientInitialLiquidity = errors.New("insufficient initial liquidity")
)
