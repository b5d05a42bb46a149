package checkpoint_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Len(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save(ctx, "session-1", []byte("a")))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Save(ctx, "session-1", []byte("b")))
	assert.Equal(t, 1, store.Len(), "same session overwrites")

	require.NoError(t, store.Save(ctx, "session-2", []byte("x")))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete(ctx, "session-1"))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	data := []byte("original")
	require.NoError(t, store.Save(ctx, "session-1", data))
	data[0] = 'X'

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)

	loaded[0] = 'Y'
	again, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
