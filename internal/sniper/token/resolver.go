package token

import (
	"context"
	"sync"

	"tweetsniper/internal/sniper/chain"
	"tweetsniper/pkg/tokensearch"

	"go.uber.org/zap"
)

// Searcher is the external token lookup used on a cache miss.
type Searcher interface {
	SearchTokens(ctx context.Context, query string, limit int) ([]tokensearch.Token, error)
}

// Source tells where a resolution came from.
type Source int

const (
	SourceCache Source = iota
	SourceSearch
)

func (s Source) String() string {
	if s == SourceSearch {
		return "search"
	}
	return "cache"
}

// Resolution is a resolved ticker.
type Resolution struct {
	Token  Record
	Source Source
}

// Resolver maps tickers to tokens, cache first. The cache is the ordered list
// of CSV files in cachePaths; Remember appends to writeBackPath, which is
// expected to be one of them.
type Resolver struct {
	cachePaths    []string
	writeBackPath string
	search        Searcher
	logger        *zap.Logger

	mu sync.Mutex
}

func NewResolver(cachePaths []string, writeBackPath string, search Searcher, logger *zap.Logger) *Resolver {
	return &Resolver{
		cachePaths:    cachePaths,
		writeBackPath: writeBackPath,
		search:        search,
		logger:        logger.Named("resolver"),
	}
}

// Lookup scans the cache files for symbol. Unreadable files count as misses.
func (r *Resolver) Lookup(symbol string) (Record, bool) {
	key := NormalizeSymbol(symbol)
	if key == "" {
		return Record{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, path := range r.cachePaths {
		rec, ok, err := scanCSV(path, key)
		if err != nil {
			r.logger.Warn("token cache unreadable", zap.String("file", path), zap.Error(err))
			continue
		}
		if ok {
			return rec, true
		}
	}
	return Record{}, false
}

// Resolve returns the token for symbol from the cache, or else from the
// external search. A miss on both is reported as false, not as an error.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Resolution, bool) {
	key := NormalizeSymbol(symbol)
	if key == "" {
		return Resolution{}, false
	}

	if rec, ok := r.Lookup(key); ok {
		return Resolution{Token: rec, Source: SourceCache}, true
	}

	if r.search == nil {
		return Resolution{}, false
	}

	tokens, err := r.search.SearchTokens(ctx, key, 1)
	if err != nil {
		r.logger.Warn("token search failed", zap.String("symbol", key), zap.Error(err))
		return Resolution{}, false
	}
	if len(tokens) == 0 || tokens[0].TokenID == "" {
		r.logger.Info("no token found", zap.String("symbol", key))
		return Resolution{}, false
	}

	hit := tokens[0]
	if c, ok := chain.Normalize(hit.Chain); ok && !chain.ValidAddress(c, hit.TokenID) {
		r.logger.Info("search hit has a malformed address",
			zap.String("symbol", key), zap.String("chain", hit.Chain), zap.String("ca", hit.TokenID))
		return Resolution{}, false
	}

	return Resolution{
		Token: Record{
			Name:            hit.Name,
			Symbol:          hit.Symbol,
			ContractAddress: hit.TokenID,
			Chain:           hit.Chain,
		},
		Source: SourceSearch,
	}, true
}

// Remember appends rec to the write-back cache.
func (r *Resolver) Remember(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := appendCSV(r.writeBackPath, rec); err != nil {
		return err
	}
	r.logger.Info("remembered token",
		zap.String("symbol", rec.Symbol), zap.String("ca", rec.ContractAddress), zap.String("chain", rec.Chain))
	return nil
}
