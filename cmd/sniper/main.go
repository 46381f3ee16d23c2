package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tweetsniper/config"
	"tweetsniper/internal/sniper/server"
	"tweetsniper/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New("sniper", cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if cfg.Log.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.StartServer(ctx, cfg, server.Deps{}, log)
	if err != nil {
		log.Fatal("sniper failed", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("shutting down sniper")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Warn("sniper shutdown", zap.Error(err))
	}
}
