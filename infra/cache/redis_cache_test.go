//go:build redis
// +build redis

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisCache starts a Redis container and returns a cache connected to it.
func setupRedisCache(tb testing.TB) *RedisCache {
	tb.Helper()
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0.5",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		tb.Fatalf("Failed to start container: %v", err)
	}
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		tb.Fatalf("Failed to get mapped port: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("Failed to get container host: %v", err)
	}

	c, err := NewRedisCache("redis://"+host+":"+port.Port(), "test:", time.Minute, nil)
	if err != nil {
		tb.Fatalf("Failed to create redis cache: %v", err)
	}
	tb.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "theme", "dark"))
	v, ok, err := c.Get(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, c.Delete(ctx, "theme"))
	_, ok, err = c.Get(ctx, "theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_BehindSettingsStore(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()
	store := NewSettingsStore(mapStore{"volume": "7"}, c, nil)

	v, err := store.GetSetting(ctx, "volume")
	require.NoError(t, err)
	assert.Equal(t, "7", *v)

	cached, ok, err := c.Get(ctx, "volume")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "7", cached)
}

type mapStore map[string]string

func (m mapStore) GetSetting(_ context.Context, key string) (*string, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m mapStore) SetSetting(_ context.Context, key string, value *string) error {
	if value == nil {
		delete(m, key)
		return nil
	}
	m[key] = *value
	return nil
}

func (m mapStore) All(context.Context) (map[string]string, error) {
	return m, nil
}
