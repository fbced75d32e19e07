package memcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyconquers/expo-update-server-x/internal/cache/memcache"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := memcache.New()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_ExpiredEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := memcache.New()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet_MissingKeyIsMissNotError(t *testing.T) {
	ctx := context.Background()
	store := memcache.New()
	_, ok, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
