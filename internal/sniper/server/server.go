// Package server wires the sniper HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tweetsniper/config"
	"tweetsniper/internal/sniper/api"
	"tweetsniper/internal/sniper/chain"
	"tweetsniper/internal/sniper/dispatch"
	"tweetsniper/internal/sniper/extract"
	"tweetsniper/internal/sniper/token"
	"tweetsniper/pkg/storage/postgres"
	"tweetsniper/pkg/swap"
	"tweetsniper/pkg/tokensearch"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	Resolver   *token.Resolver
	Dispatcher *dispatch.Dispatcher

	db     *postgres.PostgresClient
	http   *http.Server
	logger *zap.Logger
}

// Deps are the external collaborators of the service. Nil fields are built
// from config.
type Deps struct {
	Wallets  api.WalletStore
	Searcher token.Searcher
	Swappers map[chain.Chain]dispatch.Swapper
}

// StartServer connects the wallet database, builds the resolver and
// dispatcher and starts serving the API.
func StartServer(ctx context.Context, cfg *config.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	s := &Server{logger: logger}

	if deps.Wallets == nil {
		db, err := postgres.Open(cfg.Postgres, cfg.Log.Environment)
		if err != nil {
			return nil, fmt.Errorf("failed to open wallet store: %w", err)
		}
		s.db = db
		deps.Wallets = db
		if !db.IsHealthy(ctx) {
			logger.Warn("wallet database not reachable yet")
		}
	}

	if deps.Searcher == nil && cfg.TokenSearch.BaseURL != "" {
		deps.Searcher = tokensearch.NewRESTClient(cfg.TokenSearch.BaseURL, cfg.TokenSearch.Timeout)
	}
	if deps.Searcher == nil {
		logger.Warn("token search disabled, tickers resolve from cache only")
	}

	if deps.Swappers == nil {
		deps.Swappers = make(map[chain.Chain]dispatch.Swapper)
		if cfg.Swap.BSCURL != "" {
			deps.Swappers[chain.BSC] = swap.NewClient(cfg.Swap.BSCURL, cfg.Swap.Timeout)
		}
		if cfg.Swap.SolanaURL != "" {
			deps.Swappers[chain.Solana] = swap.NewClient(cfg.Swap.SolanaURL, cfg.Swap.Timeout)
		}
	}

	s.Resolver = token.NewResolver(
		[]string{cfg.Sniper.TokenMappingPath, cfg.Sniper.WriteBackPath},
		cfg.Sniper.WriteBackPath,
		deps.Searcher,
		logger,
	)
	s.Dispatcher = dispatch.New(s.Resolver, deps.Swappers, logger)

	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger))
	api.New(deps.Wallets, s.Dispatcher, extract.Extract, logger).RegisterRoutes(r)

	s.http = &http.Server{
		Addr:              cfg.Sniper.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("sniper api listening", zap.String("addr", cfg.Sniper.ListenAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("sniper api failed", zap.Error(err))
		}
	}()

	return s, nil
}

// Shutdown drains in-flight requests and closes the wallet database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
