package swap

import "errors"

// ErrNoHash is returned when the executor answers without a transaction hash.
var ErrNoHash = errors.New("swap response has no transaction hash")

// Request buys TokenAddress with Amount of the chain's native coin.
type Request struct {
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"`
	SlippageBps  int    `json:"slippageBps"`
	PrivateKey   string `json:"privateKey"`
	GasFee       string `json:"gasFee,omitempty"`
}

type Result struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}
