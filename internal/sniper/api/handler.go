// Package api serves the trade dispatch endpoint.
package api

import (
	"context"
	"time"

	"tweetsniper/internal/sniper/dispatch"
	"tweetsniper/internal/sniper/extract"
	"tweetsniper/pkg/storage/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WalletStore interface {
	FindWallet(ctx context.Context, userID string) (*postgres.WalletRecord, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Report
}

// Extractor turns post text into a signal.
type Extractor func(text string) extract.Signal

type Handler struct {
	wallets    WalletStore
	dispatcher Dispatcher
	extract    Extractor
	logger     *zap.Logger
}

func New(wallets WalletStore, dispatcher Dispatcher, extractor Extractor, logger *zap.Logger) *Handler {
	if extractor == nil {
		extractor = extract.Extract
	}
	return &Handler{
		wallets:    wallets,
		dispatcher: dispatcher,
		extract:    extractor,
		logger:     logger.Named("api"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/api/sniper/auto-trade", h.AutoTrade)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
