package descriptor_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropyconquers/expo-update-server-x/internal/blob/memblob"
	"github.com/entropyconquers/expo-update-server-x/internal/descriptor"
)

const sampleMetadata = `{
	"fileMetadata": {
		"ios": {
			"assets": [
				{"path": "assets/a.png", "ext": "png"},
				{"path": "assets/b.png", "ext": "png"}
			],
			"bundle": "bundles/ios.js"
		},
		"android": {
			"assets": [],
			"bundle": "bundles/android.js"
		}
	}
}`

func seedStore(t *testing.T, updateID string) *memblob.Store {
	t.Helper()
	store := memblob.New()
	ctx := context.Background()
	put := func(rel, content string) {
		require.NoError(t, store.Put(ctx, "updates/"+updateID+"/"+rel, strings.NewReader(content)))
	}
	put("assets/a.png", "AAA")
	put("assets/b.png", "BBB")
	put("bundles/ios.js", "console.log('ios')")
	put("bundles/android.js", "console.log('android')")
	return store
}

func TestBuild_PreservesOrderAndFields(t *testing.T) {
	ctx := context.Background()
	updateID := "00000000-0000-0000-0000-000000000001"
	store := seedStore(t, updateID)
	createdAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m, err := descriptor.Build(ctx, store, "https://updates.example.com", updateID, []byte(sampleMetadata), "ios", "1.0.0", createdAt)
	require.NoError(t, err)

	assert.Equal(t, updateID, m.ID)
	assert.Equal(t, "1.0.0", m.RuntimeVersion)
	require.Len(t, m.Assets, 2)
	assert.Contains(t, m.Assets[0].URL, "assets%2Fa.png")
	assert.Contains(t, m.Assets[1].URL, "assets%2Fb.png")
	assert.Equal(t, ".png", m.Assets[0].FileExtension)
	assert.Equal(t, "application/octet-stream", m.Assets[0].ContentType)

	assert.Equal(t, ".bundle", m.LaunchAsset.FileExtension)
	assert.Equal(t, "application/javascript", m.LaunchAsset.ContentType)
	assert.Contains(t, m.LaunchAsset.URL, "bundles%2Fios.js")
}

func TestBuild_EmptyAssetsLaunchOnly(t *testing.T) {
	ctx := context.Background()
	updateID := "00000000-0000-0000-0000-000000000002"
	store := seedStore(t, updateID)

	m, err := descriptor.Build(ctx, store, "https://updates.example.com", updateID, []byte(sampleMetadata), "android", "1.0.0", time.Now())
	require.NoError(t, err)
	assert.Empty(t, m.Assets)
	assert.NotEmpty(t, m.LaunchAsset.Hash)
}

func TestBuild_AbsentPlatformIsNotFound(t *testing.T) {
	ctx := context.Background()
	updateID := "00000000-0000-0000-0000-000000000003"
	store := seedStore(t, updateID)

	_, err := descriptor.Build(ctx, store, "https://updates.example.com", updateID, []byte(sampleMetadata), "windows", "1.0.0", time.Now())
	require.Error(t, err)
}

func TestBuild_DeterministicHash(t *testing.T) {
	ctx := context.Background()
	updateID := "00000000-0000-0000-0000-000000000004"
	store := seedStore(t, updateID)

	m1, err := descriptor.Build(ctx, store, "https://updates.example.com", updateID, []byte(sampleMetadata), "ios", "1.0.0", time.Now())
	require.NoError(t, err)
	m2, err := descriptor.Build(ctx, store, "https://updates.example.com", updateID, []byte(sampleMetadata), "ios", "1.0.0", time.Now())
	require.NoError(t, err)
	assert.Equal(t, m1.Assets[0].Hash, m2.Assets[0].Hash)
	assert.Equal(t, m1.Assets[0].Key, m2.Assets[0].Key)
}
