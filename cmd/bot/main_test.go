package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/cache"
	"quantDashboard/internal/config"
)

func TestNewCacheDefaultsToMemory(t *testing.T) {
	c, closeCache, err := newCache(config.Default().Cache, zerolog.Nop())
	require.NoError(t, err)
	defer closeCache()
	assert.IsType(t, &cache.Memory{}, c)

	c.Set(context.Background(), "k", []byte("v"))
	got, ok := c.Get(context.Background(), "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestNewCacheRedis(t *testing.T) {
	cfg := config.Default().Cache
	cfg.RedisURL = "redis://localhost:6379/0"
	c, closeCache, err := newCache(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeCache()
	assert.IsType(t, &cache.Redis{}, c)

	cfg.RedisURL = "not a url"
	_, _, err = newCache(cfg, zerolog.Nop())
	assert.Error(t, err)
}
