package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestNormalizeSlippage
func TestNormalizeSlippage(t *testing.T) {
	cases := map[string]int{
		"0.5":    50,
		"1":      100,
		"2.5%":   250,
		" 3 ":    300,
		"0":      1,
		"0.004":  1,
		"-5":     1,
		"0.125":  13,
		"abc":    DefaultSlippageBps,
		"":       DefaultSlippageBps,
		"1e999":  DefaultSlippageBps,
		".75":    75,
		"1e1":    1000,
		"12abc3": 1200,
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeSlippage(in), in)
	}
}

// go test -v --run TestNormalizeAmount
func TestNormalizeAmount(t *testing.T) {
	cases := map[string]string{
		"0.01":     "0.01",
		"1":        "1",
		"0.5 BNB":  "0.5 BNB",
		"0":        FallbackAmount,
		"-1":       FallbackAmount,
		"":         FallbackAmount,
		"abc":      FallbackAmount,
		"1e999":    FallbackAmount,
		"1e-99999": FallbackAmount,
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeAmount(in), in)
	}
}

func TestNumericString(t *testing.T) {
	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(`{"amount":0.05,"slippage":"1.5","gasFee":null,"chain":"bsc","type":"both"}`), &cfg))
	assert.Equal(t, NumericString("0.05"), cfg.Amount)
	assert.Equal(t, NumericString("1.5"), cfg.Slippage)
	assert.Equal(t, NumericString(""), cfg.GasFee)

	var n NumericString
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &n))
}
