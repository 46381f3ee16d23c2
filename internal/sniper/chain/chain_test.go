package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want Chain
		ok   bool
	}{
		{"BSC", BSC, true},
		{"bsc", BSC, true},
		{"Binance-Smart-Chain", BSC, true},
		{"Solana", Solana, true},
		{"SOL", Solana, true},
		{" solana ", Solana, true},
		{"eth", "", false},
		{"binance", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed(OptionBoth, BSC))
	assert.True(t, IsAllowed(OptionBoth, Solana))
	assert.True(t, IsAllowed(OptionBSC, BSC))
	assert.False(t, IsAllowed(OptionSolana, BSC))
	assert.False(t, IsAllowed(OptionBSC, Solana))
	assert.False(t, IsAllowed(Option(""), Solana))
}

func TestFromAddress(t *testing.T) {
	assert.Equal(t, BSC, FromAddress("0x55d398326f99059fF775485246999027B3197955"))
	assert.Equal(t, Solana, FromAddress("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress(BSC, "0x55d398326f99059fF775485246999027B3197955"))
	assert.False(t, ValidAddress(BSC, "55d398326f99059fF775485246999027B3197955"))
	assert.False(t, ValidAddress(BSC, "0x1234"))

	assert.True(t, ValidAddress(Solana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"))
	assert.False(t, ValidAddress(Solana, "0OIl-not-base58"))
	assert.False(t, ValidAddress(Solana, "abc"))

	assert.False(t, ValidAddress(Chain("eth"), "0x55d398326f99059fF775485246999027B3197955"))
}
