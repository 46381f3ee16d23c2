package tokensearch

// SearchResponse is the envelope returned by the token search API.
type SearchResponse struct {
	Data  []Token `json:"data"`
	Error string  `json:"error,omitempty"`
}

// Token is one search hit.
type Token struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	TokenID string `json:"token_id"` // contract address
	Chain   string `json:"chain"`    // raw chain name, e.g. "binance-smart-chain"
}
