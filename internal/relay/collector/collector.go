package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tweetsniper/config"
	"tweetsniper/internal/relay/archive"
	"tweetsniper/internal/relay/broadcast"
	"tweetsniper/internal/relay/mirror"
	"tweetsniper/pkg/relay"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Collector owns the upstream client, the local relay server and the archive.
type Collector struct {
	Client  *relay.WSClient
	Hub     *broadcast.Hub
	Archive *archive.Store

	server *http.Server
	redis  *redis.Client
	logger *zap.Logger
}

// StartCollector wires the relay pipeline and starts serving. For every
// upstream frame the local broadcast runs first, then the archive write.
func StartCollector(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	if cfg.Relay.UpstreamURL == "" {
		return nil, errors.New("relay.upstream_url is required")
	}

	client := relay.NewWSClient(relay.Options{
		URL:              cfg.Relay.UpstreamURL,
		Accounts:         cfg.Relay.Accounts,
		ReconnectDelay:   cfg.Relay.ReconnectDelay,
		SubscribeStagger: cfg.Relay.SubscribeStagger,
		WriteTimeout:     cfg.Relay.WriteTimeout,
	}, logger)

	hub := broadcast.NewHub(client.Status, logger)
	store := archive.NewStore(cfg.Archive.Path, logger)

	c := &Collector{
		Client:  client,
		Hub:     hub,
		Archive: store,
		logger:  logger,
	}

	client.OnMessage(hub.Publish)
	client.OnUserUpdate(store.HandleUserUpdate)

	// Optional Redis mirror
	if cfg.Redis.URL != "" {
		rdb, err := mirror.Dial(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = rdb
		client.OnMessage(mirror.New(rdb, cfg.Redis.Channel, logger).Publish)
		logger.Info("mirroring relay frames to redis", zap.String("channel", cfg.Redis.Channel))
	}

	c.server = &http.Server{
		Addr:              cfg.Relay.ListenAddr,
		Handler:           hub,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("local relay server listening", zap.String("addr", cfg.Relay.ListenAddr))
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("local relay server failed", zap.Error(err))
		}
	}()

	logger.Info("starting upstream relay", zap.Int("accounts", len(cfg.Relay.Accounts)))
	client.Start()

	return c, nil
}

// Shutdown stops the upstream client and the local server.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.Client.Stop()

	err := c.server.Shutdown(ctx)
	if c.redis != nil {
		if cerr := c.redis.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
