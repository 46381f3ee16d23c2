package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tweetsniper/config"
	"tweetsniper/internal/relay/collector"
	"tweetsniper/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New("relay", cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// run relay
	c, err := collector.StartCollector(ctx, cfg, log)
	if err != nil {
		log.Fatal("relay failed", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("shutting down relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		log.Warn("relay shutdown", zap.Error(err))
	}
}
