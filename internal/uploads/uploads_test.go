package uploads_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/entropyconquers/expo-update-server-x/internal/cleanup"
	"github.com/entropyconquers/expo-update-server-x/internal/lockmap"
	"github.com/entropyconquers/expo-update-server-x/internal/logging"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
	"github.com/entropyconquers/expo-update-server-x/internal/uploads"
)

type stubCoordinator struct {
	invalidated []string
}

func (s *stubCoordinator) InvalidateRelease(ctx context.Context, project, version, channel string) {
	s.invalidated = append(s.invalidated, project+":"+version+":"+channel)
}

func (s *stubCoordinator) ReleaseRetention(ctx context.Context, project, channel string) (cleanup.Result, error) {
	return cleanup.Result{}, nil
}

func newService(t *testing.T) (*uploads.Service, *meta.Store, *stubCoordinator) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, meta.AutoMigrate(db))
	store := meta.NewStore(db)
	coord := &stubCoordinator{}
	svc := uploads.New(store, lockmap.New(), coord, logging.New(nil, 100))
	return svc, store, coord
}

func seedUpload(t *testing.T, store *meta.Store, project, channel string, createdAt time.Time) *meta.Upload {
	t.Helper()
	u := &meta.Upload{
		ID:             uuid.NewString(),
		Project:        project,
		Version:        "1.0.0",
		ReleaseChannel: channel,
		Status:         meta.StatusReady,
		UpdateID:       uuid.NewString(),
		CreatedAt:      createdAt,
	}
	require.NoError(t, store.CreateUpload(context.Background(), u))
	return u
}

func TestRelease_SingleReleaseInvariant(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	base := time.Now().Add(-time.Hour)
	u1 := seedUpload(t, store, "demo", "production", base)
	u2 := seedUpload(t, store, "demo", "production", base.Add(time.Minute))

	_, err := svc.Release(ctx, nil, u1.ID)
	require.NoError(t, err)

	result, err := svc.Release(ctx, nil, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusReleased, result.Upload.Status)
	assert.NotNil(t, result.Upload.ReleasedAt)

	ups, err := store.ListByProjectChannel(ctx, "demo", "production")
	require.NoError(t, err)
	released := 0
	for _, u := range ups {
		if u.Status == meta.StatusReleased {
			released++
		}
	}
	assert.Equal(t, 1, released)
}

func TestRelease_RollbackDemotesAndPromotes(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	base := time.Now().Add(-time.Hour)
	u1 := seedUpload(t, store, "demo", "production", base)
	u2 := seedUpload(t, store, "demo", "production", base.Add(time.Minute))
	u3 := seedUpload(t, store, "demo", "production", base.Add(2*time.Minute))

	_, err := svc.Release(ctx, nil, u2.ID)
	require.NoError(t, err)

	result, err := svc.Release(ctx, nil, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusReleased, result.Upload.Status)

	got2, err := store.GetUpload(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusReady, got2.Status, "newly-demoted upload should return to ready, not obsolete")

	got3, err := store.GetUpload(ctx, u3.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.StatusReady, got3.Status, "sibling newer than the released upload remains ready")
}

func TestRelease_NamespacedRouteMismatchIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService(t)
	u1 := seedUpload(t, store, "demo", "production", time.Now())

	other := "not-demo"
	_, err := svc.Release(ctx, &other, u1.ID)
	require.Error(t, err)
}

func TestRelease_InvokesCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	svc, store, coord := newService(t)
	u1 := seedUpload(t, store, "demo", "production", time.Now())

	_, err := svc.Release(ctx, nil, u1.ID)
	require.NoError(t, err)
	assert.Contains(t, coord.invalidated, "demo:1.0.0:production")
}

func TestCreate_StartsReady(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	u, err := svc.Create(ctx, uploads.CreateInput{
		ID:             uuid.NewString(),
		Project:        "demo",
		Version:        "1.0.0",
		ReleaseChannel: "production",
		UpdateID:       uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, meta.StatusReady, u.Status)
}
