package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// FallbackAmount is spent when the requested amount is not a positive number.
	FallbackAmount = "0.001"
	// DefaultSlippageBps applies when the configured slippage is not a number.
	DefaultSlippageBps = 100
)

// numberPrefix matches the leading decimal literal of a string; trailing
// garbage is ignored ("1.5 BNB" reads as 1.5).
var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseNumber reads the leading number of raw. Values beyond float64 range
// are rejected.
func parseNumber(raw string) (decimal.Decimal, bool) {
	lit := numberPrefix.FindString(strings.TrimSpace(raw))
	if lit == "" {
		return decimal.Decimal{}, false
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return decimal.Decimal{}, false
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// NormalizeSlippage converts a percentage to basis points, at least 1.
func NormalizeSlippage(percent string) int {
	d, ok := parseNumber(percent)
	if !ok {
		return DefaultSlippageBps
	}
	bps := math.Floor(d.InexactFloat64()*100 + 0.5)
	if bps < 1 {
		return 1
	}
	if bps > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(bps)
}

// NormalizeAmount returns amount unchanged when it reads as a number above
// zero and FallbackAmount otherwise.
func NormalizeAmount(amount string) string {
	d, ok := parseNumber(amount)
	if !ok || !d.IsPositive() {
		return FallbackAmount
	}
	return amount
}

// NumericString accepts a JSON string or number and keeps its text.
type NumericString string

func (n *NumericString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*n = NumericString(num.String())
	return nil
}

func (n NumericString) String() string {
	return string(n)
}
