package dispatch

import (
	"context"
	"fmt"

	"tweetsniper/internal/sniper/chain"
	"tweetsniper/internal/sniper/extract"
	"tweetsniper/internal/sniper/token"
	"tweetsniper/pkg/swap"
)

// SniperType selects which signal kinds may trigger a trade.
type SniperType string

const (
	TypeCA       SniperType = "ca"
	TypeKeywords SniperType = "keywords"
	TypeBoth     SniperType = "both"
)

// Config is the user's sniper configuration as sent by the UI.
type Config struct {
	Accounts  []string      `json:"accounts"`
	Chain     chain.Option  `json:"chain"`
	Type      SniperType    `json:"type"`
	Amount    NumericString `json:"amount"`
	Slippage  NumericString `json:"slippage"`
	GasFee    NumericString `json:"gasFee"`
	UpdatedAt string        `json:"updatedAt"`
}

// Wallet holds the signing keys used for each chain.
type Wallet struct {
	EVMPrivateKey string
	SolPrivateKey string
}

func (w Wallet) keyFor(c chain.Chain) string {
	if c == chain.BSC {
		return w.EVMPrivateKey
	}
	return w.SolPrivateKey
}

// TradeResult is one executed buy.
type TradeResult struct {
	Hash  string      `json:"hash"`
	Chain chain.Chain `json:"chain"`
}

// Outcome classifies a single trade candidate.
type Outcome int

const (
	OutcomeTraded Outcome = iota
	OutcomeChainNotAllowed
	OutcomeUnknownChain
	OutcomeNotFound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTraded:
		return "traded"
	case OutcomeChainNotAllowed:
		return "chain_not_allowed"
	case OutcomeUnknownChain:
		return "unknown_chain"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt records what happened to one candidate. Err is set only for
// OutcomeFailed.
type Attempt struct {
	Symbol          string
	ContractAddress string
	Chain           chain.Chain
	Source          string
	Outcome         Outcome
	Err             error
}

// Report lists the executed trades and every candidate considered, in order.
type Report struct {
	Trades   []TradeResult
	Attempts []Attempt
}

// Request is a single dispatch call. Amount overrides Config.Amount when set.
type Request struct {
	Signal extract.Signal
	Config Config
	Amount *string
	Wallet Wallet
}

type Resolver interface {
	Resolve(ctx context.Context, symbol string) (token.Resolution, bool)
	Remember(rec token.Record) error
}

type Swapper interface {
	Swap(ctx context.Context, req swap.Request) (swap.Result, error)
}
