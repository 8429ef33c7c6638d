package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetMiss(t *testing.T) {
	_, kv := setupTestRedis(t)
	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_SetGet(t *testing.T) {
	mr, kv := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "salesops:cpi-import:last", `{"inserted":3}`, time.Minute))
	v, err := kv.Get(ctx, "salesops:cpi-import:last")
	require.NoError(t, err)
	assert.Equal(t, `{"inserted":3}`, v)

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "salesops:cpi-import:last")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_SetNXAndDeleteIfEqual(t *testing.T) {
	_, kv := setupTestRedis(t)
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "lock", "owner-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := kv.DeleteIfEqual(ctx, "lock", "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = kv.DeleteIfEqual(ctx, "lock", "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	ok, err = kv.SetNX(ctx, "lock", "owner-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryKV_Expiry(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = kv.SetNX(ctx, "lock", "b", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = kv.SetNX(ctx, "lock", "b", time.Minute)
	assert.True(t, ok)

	v, err := kv.Get(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	deleted, _ := kv.DeleteIfEqual(ctx, "lock", "a")
	assert.False(t, deleted)
	deleted, _ = kv.DeleteIfEqual(ctx, "lock", "b")
	assert.True(t, deleted)
}
