package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	src := []byte("png")
	m.Set(ctx, "k", src)
	src[0] = 'x'

	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("png"), got)

	now = now.Add(time.Minute)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)

	_, ok = m.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestRedisGetSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, 10*time.Minute, "quant:", zerolog.Nop())
	ctx := context.Background()

	mock.ExpectSet("quant:chart", []byte("img"), 10*time.Minute).SetVal("OK")
	c.Set(ctx, "chart", []byte("img"))

	mock.ExpectGet("quant:chart").SetVal("img")
	got, ok := c.Get(ctx, "chart")
	require.True(t, ok)
	assert.Equal(t, []byte("img"), got)

	mock.ExpectGet("quant:missing").RedisNil()
	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	mock.ExpectGet("quant:broken").SetErr(errors.New("connection refused"))
	_, ok = c.Get(ctx, "broken")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
