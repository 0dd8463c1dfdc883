//go:build integration

package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerguard/internal/platform/config"
	"ledgerguard/pkg/testutil/containers"
)

func TestNewConnects(t *testing.T) {
	redisC := containers.NewRedisContainer(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{
		URL:          redisC.URL,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		LockKey:      "it:lock",
		CursorKey:    "it:cursor",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
	assert.Equal(t, "it:lock", client.LockKey())
	assert.Equal(t, "it:cursor", client.CursorKey())

	name, err := client.ClientGetName(ctx).Result()
	require.NoError(t, err)
	assert.Equal(t, "ledgerguard", name)
}
