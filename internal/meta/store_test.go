package meta_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/entropyconquers/expo-update-server-x/internal/meta"
)

func newTestStore(t *testing.T) *meta.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, meta.AutoMigrate(db))
	return meta.NewStore(db)
}

func TestAppCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	app := &meta.App{Slug: "demo", DisplayName: "Demo", AutoCleanupEnabled: true}
	require.NoError(t, store.CreateApp(ctx, app))

	got, err := store.GetApp(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, "Demo", got.DisplayName)
	require.False(t, got.HasKeyPair())

	got.CertificatePEM = "cert"
	got.PrivateKeyPEM = "key"
	require.NoError(t, store.SaveApp(ctx, got))
	got2, err := store.GetApp(ctx, "demo")
	require.NoError(t, err)
	require.True(t, got2.HasKeyPair())

	require.NoError(t, store.DeleteApp(ctx, "demo"))
	_, err = store.GetApp(ctx, "demo")
	require.ErrorIs(t, err, meta.ErrNotFound)
}

func TestUploadOrderingAndStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		u := &meta.Upload{
			ID:             uuid.NewString(),
			Project:        "demo",
			Version:        "1.0.0",
			ReleaseChannel: "production",
			Status:         meta.StatusReady,
			UpdateID:       uuid.NewString(),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.CreateUpload(ctx, u))
	}

	ups, err := store.ListByProjectChannel(ctx, "demo", "production")
	require.NoError(t, err)
	require.Len(t, ups, 3)
	require.True(t, ups[0].CreatedAt.Before(ups[1].CreatedAt))
	require.True(t, ups[1].CreatedAt.Before(ups[2].CreatedAt))

	stats, err := store.UploadStats(ctx, "demo")
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalUploads)
	require.Equal(t, int64(0), stats.ReleasedUploads)
}
