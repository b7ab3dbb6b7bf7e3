package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token identifies one asset of a trading pair.
type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Equal reports whether two tokens are the same asset.
func (t Token) Equal(other Token) bool {
	return t.Address == other.Address
}

// SortTokens returns the pair in canonical order (ascending address).
func SortTokens(a, b Token) (Token, Token) {
	if a.Address > b.Address {
		return b, a
	}
	return a, b
}

// NormalizeAddress validates a hex account address and returns its
// canonical lowercase form.
func NormalizeAddress(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}
	return strings.ToLower(common.HexToAddress(input).Hex()), nil
}

// ParseTokenSpec parses an "address:symbol:decimals" token description.
func ParseTokenSpec(spec string) (Token, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 3 {
		return Token{}, fmt.Errorf("invalid token spec %q: want address:symbol:decimals", spec)
	}

	address, err := NormalizeAddress(parts[0])
	if err != nil {
		return Token{}, err
	}

	symbol := strings.TrimSpace(parts[1])
	if symbol == "" {
		return Token{}, fmt.Errorf("invalid token spec %q: empty symbol", spec)
	}

	decimals, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
	if err != nil {
		return Token{}, fmt.Errorf("invalid token spec %q: bad decimals: %w", spec, err)
	}

	return Token{
		Address:  address,
		Symbol:   symbol,
		Decimals: uint8(decimals),
	}, nil
}
