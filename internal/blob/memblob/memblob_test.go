package memblob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyconquers/expo-update-server-x/internal/blob"
	"github.com/entropyconquers/expo-update-server-x/internal/blob/memblob"
)

func TestPutGetExists(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()

	require.NoError(t, store.Put(ctx, "k", strings.NewReader("v")))

	rc, err := store.Get(ctx, "k")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v", string(data))

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGet_MissingKeyIsErrNotFound(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()
	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, blob.ErrNotFound))
}

func TestDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	store := memblob.New()
	require.NoError(t, store.Put(ctx, "updates/x/a", strings.NewReader("AA")))
	require.NoError(t, store.Put(ctx, "updates/x/b", strings.NewReader("B")))
	require.NoError(t, store.Put(ctx, "updates/y/c", strings.NewReader("CCC")))

	freed, err := store.DeleteByPrefix(ctx, "updates/x/")
	require.NoError(t, err)
	assert.Equal(t, int64(3), freed)
	assert.ElementsMatch(t, []string{"updates/y/c"}, store.Keys())
}
