package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher is the subset of the Redis client the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// Redis republishes every relayed frame on a Redis channel so consumers in
// other processes see the same stream as local WebSocket subscribers.
type Redis struct {
	pub     Publisher
	channel string
	timeout time.Duration
	logger  *zap.Logger
}

func New(pub Publisher, channel string, logger *zap.Logger) *Redis {
	return &Redis{
		pub:     pub,
		channel: channel,
		timeout: 2 * time.Second,
		logger:  logger.Named("mirror"),
	}
}

// Dial connects to addr, which may be host:port or a redis:// URL.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Publish forwards msg. Failures are logged and never block the relay for
// longer than the publish timeout.
func (r *Redis) Publish(msg []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.pub.Publish(ctx, r.channel, msg).Err(); err != nil {
		r.logger.Warn("failed to mirror frame", zap.String("channel", r.channel), zap.Error(err))
	}
}
