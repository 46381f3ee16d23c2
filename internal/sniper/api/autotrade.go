package api

import (
	"errors"
	"net/http"
	"strings"

	"tweetsniper/internal/sniper/dispatch"
	"tweetsniper/pkg/storage/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AutoTradeRequest is the body of POST /api/sniper/auto-trade.
type AutoTradeRequest struct {
	Text   string                  `json:"text"`
	Config *dispatch.Config        `json:"config"`
	Amount *dispatch.NumericString `json:"amount"`
	UserID dispatch.NumericString  `json:"userId"`
}

type AutoTradeResponse struct {
	Trades []dispatch.TradeResult `json:"trades"`
}

func emptyTrades() AutoTradeResponse {
	return AutoTradeResponse{Trades: []dispatch.TradeResult{}}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// AutoTrade extracts a signal from the posted text and trades it with the
// caller's wallet.
func (h *Handler) AutoTrade(c *gin.Context) {
	var req AutoTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid auto-trade body", zap.Error(err))
		c.JSON(http.StatusBadRequest, emptyTrades())
		return
	}

	userID := strings.TrimSpace(req.UserID.String())
	if req.Text == "" || req.Config == nil || userID == "" {
		c.JSON(http.StatusBadRequest, emptyTrades())
		return
	}

	ctx := c.Request.Context()

	wallet, err := h.wallets.FindWallet(ctx, userID)
	if errors.Is(err, postgres.ErrWalletNotFound) {
		c.JSON(http.StatusUnauthorized, emptyTrades())
		return
	}
	if err != nil {
		h.logger.Error("wallet lookup failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, emptyTrades())
		return
	}

	dreq := dispatch.Request{
		Signal: h.extract(req.Text),
		Config: *req.Config,
		Wallet: dispatch.Wallet{
			EVMPrivateKey: wallet.EVMPrivateKey,
			SolPrivateKey: wallet.SolPrivateKey,
		},
	}
	if req.Amount != nil {
		amount := req.Amount.String()
		dreq.Amount = &amount
	}

	report := h.dispatcher.Dispatch(ctx, dreq)

	h.logger.Info("auto-trade dispatched",
		zap.String("user_id", userID),
		zap.Int("attempts", len(report.Attempts)),
		zap.Int("trades", len(report.Trades)),
	)

	resp := emptyTrades()
	resp.Trades = append(resp.Trades, report.Trades...)
	c.JSON(http.StatusOK, resp)
}
