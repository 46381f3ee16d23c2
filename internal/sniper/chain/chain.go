// Package chain normalizes chain names shared by the token caches, search
// results and live signals.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Chain is a tradable network.
type Chain string

const (
	BSC    Chain = "bsc"
	Solana Chain = "solana"
)

// Option is the chain selection of a sniper config.
type Option string

const (
	OptionBSC    Option = "bsc"
	OptionSolana Option = "solana"
	OptionBoth   Option = "both"
)

// Normalize maps a raw chain name to a Chain. Matching is case-insensitive
// and exact; anything else is unresolved.
func Normalize(raw string) (Chain, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bsc", "binance-smart-chain":
		return BSC, true
	case "sol", "solana":
		return Solana, true
	default:
		return "", false
	}
}

// IsAllowed reports whether a config selecting opt may trade on c.
func IsAllowed(opt Option, c Chain) bool {
	if opt == OptionBoth {
		return true
	}
	return string(opt) == string(c)
}

// FromAddress infers the chain from the address shape: 0x-prefixed
// addresses are BSC, everything else Solana.
func FromAddress(addr string) Chain {
	if strings.HasPrefix(addr, "0x") {
		return BSC
	}
	return Solana
}

// ValidAddress reports whether addr has the shape of a token address on c.
func ValidAddress(c Chain, addr string) bool {
	switch c {
	case BSC:
		return common.IsHexAddress(addr) && strings.HasPrefix(addr, "0x")
	case Solana:
		b, err := base58.Decode(addr)
		return err == nil && len(b) == 32
	default:
		return false
	}
}
