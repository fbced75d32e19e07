// Package cleanup implements the Cleanup Coordinator: obsolete-upload
// retention GC after a release transition, and cascade deletion of an
// app's uploads/blobs/cache entries on app delete, per spec.md §4.10
// and §4.8's "Delete" operation.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/entropyconquers/expo-update-server-x/internal/blob"
	"github.com/entropyconquers/expo-update-server-x/internal/cache"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
)

// RetentionLimit is the number of most-recent obsolete uploads per
// (project, channel) kept around, per spec.md §4.10.
const RetentionLimit = 30

var platforms = []string{"ios", "android"}

// Result reports how much a coordinator call reclaimed, surfaced to
// the caller for inclusion in the release response payload.
type Result struct {
	DeletedCount int
	FreedSpace   int64
}

// Coordinator cascades deletions across Meta, Blob, and Cache.
type Coordinator struct {
	store  *meta.Store
	blobs  blob.Store
	cache  cache.Store
	logger *slog.Logger
}

// New builds a Coordinator from the three injected stores.
func New(store *meta.Store, blobs blob.Store, cache cache.Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, blobs: blobs, cache: cache, logger: logger.With(slog.String("component", "cleanup"))}
}

// ReleaseRetention enumerates obsolete uploads for (project, channel),
// newest first, and deletes every one past the first RetentionLimit.
// Skipped entirely if the app is absent or has cleanup disabled.
func (c *Coordinator) ReleaseRetention(ctx context.Context, project, channel string) (Result, error) {
	app, err := c.store.GetApp(ctx, project)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return Result{}, nil
		}
		return Result{}, err
	}
	if !app.AutoCleanupEnabled {
		return Result{}, nil
	}

	obsolete, err := c.store.ListObsolete(ctx, project, channel)
	if err != nil {
		return Result{}, err
	}
	if len(obsolete) <= RetentionLimit {
		return Result{}, nil
	}

	var result Result
	for _, u := range obsolete[RetentionLimit:] {
		freed := c.deleteUploadBlobs(ctx, &u)
		if err := c.store.DeleteUpload(ctx, u.ID); err != nil {
			c.logger.Error("failed to delete obsolete upload row", "upload_id", u.ID, "err", err)
			continue
		}
		result.DeletedCount++
		result.FreedSpace += freed
	}
	return result, nil
}

// AppCascade deletes every upload belonging to slug, their Blob
// objects, and invalidates the manifest cache for every (version,
// channel, platform) combination that was ever released or ready
// under this app, then removes the app row itself. Blob deletion
// failures are logged but never abort the cascade.
func (c *Coordinator) AppCascade(ctx context.Context, slug string) error {
	uploads, err := c.store.ListByProject(ctx, slug)
	if err != nil {
		return err
	}

	for _, u := range uploads {
		c.deleteUploadBlobs(ctx, &u)
		for _, platform := range platforms {
			key := fmt.Sprintf("manifest:%s:%s:%s:%s", u.Project, u.Version, u.ReleaseChannel, platform)
			if err := c.cache.Delete(ctx, key); err != nil {
				c.logger.Error("failed to invalidate cache entry during app cascade", "key", key, "err", err)
			}
		}
		if err := c.store.DeleteUpload(ctx, u.ID); err != nil {
			c.logger.Error("failed to delete upload row during app cascade", "upload_id", u.ID, "err", err)
		}
	}

	return c.store.DeleteApp(ctx, slug)
}

// deleteUploadBlobs removes an upload's archive and every object
// under its update tree, returning the bytes freed under the update
// tree (the archive's own size is not counted). Failures are
// logged and swallowed: orphaned blobs are acceptable per spec.md §5.
func (c *Coordinator) deleteUploadBlobs(ctx context.Context, u *meta.Upload) int64 {
	var freed int64
	if u.Path != "" {
		if err := c.blobs.Delete(ctx, u.Path); err != nil {
			c.logger.Error("failed to delete archive blob", "key", u.Path, "err", err)
		}
	}
	if u.UpdateID != "" {
		n, err := c.blobs.DeleteByPrefix(ctx, fmt.Sprintf("updates/%s/", u.UpdateID))
		if err != nil {
			c.logger.Error("failed to delete update assets", "update_id", u.UpdateID, "err", err)
		}
		freed += n
	}
	return freed
}

// InvalidateRelease deletes the manifest cache entries for both
// platforms of (project, version, channel), per spec.md §4.5 step 5.
func (c *Coordinator) InvalidateRelease(ctx context.Context, project, version, channel string) {
	for _, platform := range platforms {
		key := fmt.Sprintf("manifest:%s:%s:%s:%s", project, version, channel, platform)
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Error("failed to invalidate cache entry", "key", key, "err", err)
		}
	}
}
