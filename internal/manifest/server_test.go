package manifest_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/entropyconquers/expo-update-server-x/internal/blob/memblob"
	"github.com/entropyconquers/expo-update-server-x/internal/cache/memcache"
	"github.com/entropyconquers/expo-update-server-x/internal/manifest"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
)

const sampleMetadata = `{
	"fileMetadata": {
		"ios": {
			"assets": [{"path": "assets/a.png", "ext": "png"}],
			"bundle": "bundles/ios.js"
		}
	}
}`

func newTestStore(t *testing.T) *meta.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, meta.AutoMigrate(db))
	return meta.NewStore(db)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seedReleasedUpload(t *testing.T, store *meta.Store, blobs *memblob.Store, project, version, channel string) string {
	t.Helper()
	ctx := context.Background()
	updateID := uuid.NewString()

	require.NoError(t, blobs.Put(ctx, "updates/"+updateID+"/assets/a.png", strings.NewReader("AAA")))
	require.NoError(t, blobs.Put(ctx, "updates/"+updateID+"/bundles/ios.js", strings.NewReader("console.log(1)")))

	now := time.Now()
	u := &meta.Upload{
		ID:                uuid.NewString(),
		Project:           project,
		Version:           version,
		ReleaseChannel:    channel,
		Status:            meta.StatusReleased,
		UpdateID:          updateID,
		AssetMetadataJSON: sampleMetadata,
		CreatedAt:         now,
		ReleasedAt:        &now,
	}
	require.NoError(t, store.CreateUpload(ctx, u))
	return u.ID
}

func TestResolve_UnreleasedProjectIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	srv := manifest.New(store, memblob.New(), memcache.New(), "https://updates.example.com", testLogger())

	_, err := srv.Resolve(ctx, "demo", "1.0.0", "production", "ios", false)
	require.Error(t, err)
}

func TestResolve_HappyPathAndCacheHit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	blobs := memblob.New()
	require.NoError(t, store.CreateApp(ctx, &meta.App{Slug: "demo", AutoCleanupEnabled: true}))
	seedReleasedUpload(t, store, blobs, "demo", "1.0.0", "production")

	srv := manifest.New(store, blobs, memcache.New(), "https://updates.example.com", testLogger())

	resp1, err := srv.Resolve(ctx, "demo", "1.0.0", "production", "ios", false)
	require.NoError(t, err)
	assert.Contains(t, string(resp1.ManifestJSON), "assets%2Fa.png")
	assert.Empty(t, resp1.SignatureHeader)

	resp2, err := srv.Resolve(ctx, "demo", "1.0.0", "production", "ios", false)
	require.NoError(t, err)
	assert.Equal(t, resp1.ManifestJSON, resp2.ManifestJSON)
}

func TestResolve_SigningWithoutKeyIsConfigError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	blobs := memblob.New()
	require.NoError(t, store.CreateApp(ctx, &meta.App{Slug: "demo", AutoCleanupEnabled: true}))
	seedReleasedUpload(t, store, blobs, "demo", "1.0.0", "production")

	srv := manifest.New(store, blobs, memcache.New(), "https://updates.example.com", testLogger())
	_, err := srv.Resolve(ctx, "demo", "1.0.0", "production", "ios", true)
	require.Error(t, err)
}

func TestResolve_CacheKeyIsPerPlatform(t *testing.T) {
	key1 := manifest.CacheKey("demo", "1.0.0", "production", "ios")
	key2 := manifest.CacheKey("demo", "1.0.0", "production", "android")
	assert.NotEqual(t, key1, key2)
}

func TestEncode_MultipartStructure(t *testing.T) {
	resp := &manifest.Response{ManifestJSON: []byte(`{"a":1}`), SignatureHeader: `sig="abc", keyid="main"`}
	env := manifest.Encode(resp)

	body := string(env.Body)
	assert.True(t, strings.HasPrefix(body, "--"+env.Boundary+"\r\n"))
	assert.Contains(t, body, "name=\"manifest\"")
	assert.Contains(t, body, "expo-signature: "+resp.SignatureHeader+"\r\n")
	assert.Contains(t, body, `{"a":1}`)
	assert.Contains(t, body, "name=\"extensions\"")
	assert.True(t, strings.HasSuffix(body, "--"+env.Boundary+"--\r\n"))
	assert.Contains(t, env.ContentType, env.Boundary)
}

func TestEncode_NoSignatureHeaderOmitted(t *testing.T) {
	resp := &manifest.Response{ManifestJSON: []byte(`{}`)}
	env := manifest.Encode(resp)
	assert.NotContains(t, string(env.Body), "expo-signature:")
}
