package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
)

func newMiniRedisStore(t *testing.T, opts checkpoint.RedisOptions) (*miniredis.Miniredis, *checkpoint.RedisStore) {
	t.Helper()
	srv := miniredis.RunT(t)
	store := checkpoint.NewRedisStore(redis.NewClient(&redis.Options{Addr: srv.Addr()}), opts)
	t.Cleanup(func() { _ = store.Close() })
	return srv, store
}

func TestRedisStore_Layout(t *testing.T) {
	ctx := context.Background()
	srv, store := newMiniRedisStore(t, checkpoint.RedisOptions{KeyPrefix: "qb:"})

	require.NoError(t, store.Save(ctx, "s1", []byte("one")))
	require.NoError(t, store.Save(ctx, "s1", []byte("two")))

	assert.Equal(t, "two", srv.HGet("qb:run:s1", "data"))
	assert.Equal(t, "2", srv.HGet("qb:run:s1", "sequence"))
	members, err := srv.Members("qb:runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, members)
	assert.Zero(t, srv.TTL("qb:run:s1"))
}

func TestRedisStore_TTLExpiresAndPrunesIndex(t *testing.T) {
	ctx := context.Background()
	srv, store := newMiniRedisStore(t, checkpoint.RedisOptions{KeyPrefix: "qb:", TTL: time.Minute})

	require.NoError(t, store.Save(ctx, "old", []byte("a")))
	assert.Equal(t, time.Minute, srv.TTL("qb:run:old"))

	srv.FastForward(2 * time.Minute)
	require.NoError(t, store.Save(ctx, "new", []byte("b")))

	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "new", infos[0].RunID)
	assert.Equal(t, 1, infos[0].Sequence)

	members, err := srv.Members("qb:runs")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, members)
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	srv, store := newMiniRedisStore(t, checkpoint.RedisOptions{})
	srv.Close()

	err := store.Save(ctx, "s1", []byte("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save checkpoint")

	_, err = store.Load(ctx, "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, checkpoint.ErrNotFound)

	_, err = store.List(ctx)
	assert.Error(t, err)
}

func TestDialRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	store, err := checkpoint.DialRedis(context.Background(), srv.Addr(), "", 0, checkpoint.RedisOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "s1", []byte("a")))
	require.NoError(t, store.Close())

	srv.Close()
	_, err = checkpoint.DialRedis(context.Background(), srv.Addr(), "", 0, checkpoint.RedisOptions{})
	assert.ErrorContains(t, err, "ping redis")
}
