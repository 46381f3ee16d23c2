package mirror

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePublisher struct {
	channel string
	msgs    [][]byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.channel = channel
	f.msgs = append(f.msgs, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedis_Publish(t *testing.T) {
	pub := &fakePublisher{}
	m := New(pub, "updates", zap.NewNop())

	m.Publish([]byte(`{"type":"connected"}`))

	assert.Equal(t, "updates", pub.channel)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, `{"type":"connected"}`, string(pub.msgs[0]))
}

func TestRedis_PublishErrorIsSwallowed(t *testing.T) {
	m := New(&fakePublisher{err: errors.New("down")}, "updates", zap.NewNop())
	assert.NotPanics(t, func() { m.Publish([]byte(`{}`)) })
}

func TestDial(t *testing.T) {
	origNewClient := newRedisClient
	origPing := pingRedis
	t.Cleanup(func() {
		newRedisClient = origNewClient
		pingRedis = origPing
	})

	var capturedAddr string
	newRedisClient = func(opts *redis.Options) *redis.Client {
		capturedAddr = opts.Addr
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error { return nil }

	client, err := Dial(context.Background(), "redis://cache:6380/0")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "cache:6380", capturedAddr)

	pingRedis = func(ctx context.Context, client *redis.Client) error { return errors.New("refused") }
	_, err = Dial(context.Background(), "localhost:6379")
	require.Error(t, err)
}
