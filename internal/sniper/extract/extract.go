// Package extract pulls trade signals out of post text.
package extract

import (
	"regexp"
	"strings"

	"tweetsniper/internal/sniper/chain"
)

var (
	evmRe    = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
	base58Re = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
	tickerRe = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{0,14})\b`)
)

// ignored holds cashtags that are common words or acronyms, not tokens.
var ignored = map[string]struct{}{}

func init() {
	for _, s := range []string{
		"DYOR", "IRL", "APP", "CEO", "CTO", "KBW", "TOKEN", "UI", "UX", "UIUX", "DEX", "US",
		"AND", "OR", "NOT", "QE", "BUILD", "DM", "AI", "FUD", "SEC", "IN", "CZ", "YOLO", "ATH",
		"GM", "AM", "PM", "RWA", "IF", "CEX", "BBW", "FOX", "QA", "KOL", "CA", "JUST", "DAT",
		"CAUTION", "KYC", "GAS", "SG", "ALERT", "AFTER", "TLDR", "YOUR", "CVC", "BC", "BUIDL",
		"AUM", "UAE", "ZH", "VIP", "PS", "UTC", "IOS", "AMA", "MEME", "TVL", "FYI", "EU",
		"BREAKING", "UK",
	} {
		ignored[s] = struct{}{}
	}
}

// Signal is the trading intent found in one post.
type Signal struct {
	ContractAddress string
	ChainHint       string
	Tickers         []string
}

// HasContract reports whether the text named a contract address directly.
func (s Signal) HasContract() bool {
	return s.ContractAddress != ""
}

// Extract finds the first contract address and every cashtag in text.
func Extract(text string) Signal {
	var sig Signal
	sig.ContractAddress, sig.ChainHint = contractAddress(text)
	sig.Tickers = Tickers(text)
	return sig
}

func contractAddress(text string) (string, string) {
	if addr := evmRe.FindString(text); addr != "" {
		return addr, string(chain.BSC)
	}
	for _, cand := range base58Re.FindAllString(text, -1) {
		if chain.ValidAddress(chain.Solana, cand) {
			return cand, string(chain.Solana)
		}
	}
	return "", ""
}

// Tickers returns the uppercased cashtags of text in order of appearance,
// without duplicates or ignored words.
func Tickers(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range tickerRe.FindAllStringSubmatch(text, -1) {
		sym := strings.ToUpper(m[1])
		if _, skip := ignored[sym]; skip {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
