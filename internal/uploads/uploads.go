// Package uploads implements the Upload Registry and its release
// state machine, per spec.md §4.5.
//
// Release transitions are serialized per (project, channel) through a
// lockmap.Registry mutex, guarding a GORM transaction that performs
// the atomic compare-and-set over every sibling row — the explicit
// per-(project,channel) serialization primitive spec.md §9 calls for.
// Grounded on the resource-state-machine structuring in
// BigKAA-goartstore's internal/domain/mode package.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/cleanup"
	"github.com/entropyconquers/expo-update-server-x/internal/lockmap"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
)

// ReleaseCoordinator is the subset of the Cleanup Coordinator the
// Upload Registry invokes after a successful release transition.
type ReleaseCoordinator interface {
	InvalidateRelease(ctx context.Context, project, version, channel string)
	ReleaseRetention(ctx context.Context, project, channel string) (cleanup.Result, error)
}

// CreateInput is what the Upload Endpoint (§4.9) hands the registry
// once the Archive Extractor has succeeded.
type CreateInput struct {
	ID                       string
	Project                  string
	Version                  string
	ReleaseChannel           string
	Path                     string
	UpdateID                 string
	AppDescriptorJSON        string
	DependencyDescriptorJSON string
	AssetMetadataJSON        string
	OriginalFilename         string
	GitBranch                *string
	GitCommit                *string
}

// ReleaseResult bundles the released upload with the retention GC
// counts, for inclusion in the release response payload.
type ReleaseResult struct {
	Upload  *meta.Upload
	Cleanup cleanup.Result
}

// Service implements upload ingestion and the release state machine.
type Service struct {
	store       *meta.Store
	locks       *lockmap.Registry
	coordinator ReleaseCoordinator
	logger      *slog.Logger
}

// New builds a Service.
func New(store *meta.Store, locks *lockmap.Registry, coordinator ReleaseCoordinator, logger *slog.Logger) *Service {
	return &Service{store: store, locks: locks, coordinator: coordinator, logger: logger.With(slog.String("component", "uploads"))}
}

// Create inserts a new upload row in the initial "ready" state.
func (s *Service) Create(ctx context.Context, in CreateInput) (*meta.Upload, error) {
	u := &meta.Upload{
		ID:                       in.ID,
		Project:                  in.Project,
		Version:                  in.Version,
		ReleaseChannel:           in.ReleaseChannel,
		Status:                   meta.StatusReady,
		Path:                     in.Path,
		UpdateID:                 in.UpdateID,
		AppDescriptorJSON:        in.AppDescriptorJSON,
		DependencyDescriptorJSON: in.DependencyDescriptorJSON,
		AssetMetadataJSON:        in.AssetMetadataJSON,
		OriginalFilename:         in.OriginalFilename,
		GitBranch:                in.GitBranch,
		GitCommit:                in.GitCommit,
	}
	if err := s.store.CreateUpload(ctx, u); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create upload", err)
	}
	return u, nil
}

// Get returns one upload by id.
func (s *Service) Get(ctx context.Context, id string) (*meta.Upload, error) {
	u, err := s.store.GetUpload(ctx, id)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("upload %q not found", id))
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load upload", err)
	}
	return u, nil
}

// List returns every upload, newest first.
func (s *Service) List(ctx context.Context) ([]meta.Upload, error) {
	ups, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list uploads", err)
	}
	return ups, nil
}

// Release performs the state transition in spec.md §4.5: every other
// upload sharing (project, channel) is demoted to obsolete (if older)
// or promoted to ready (if newer, supporting rollback), and uploadID
// becomes released. routeSlug, when non-nil, is the namespaced route's
// {slug} segment; a mismatch against the upload's project is a
// not-found, not a bad-request, per spec.md §4.5 step 1.
func (s *Service) Release(ctx context.Context, routeSlug *string, uploadID string) (*ReleaseResult, error) {
	upload, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("upload %q not found", uploadID))
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load upload", err)
	}
	if routeSlug != nil && *routeSlug != upload.Project {
		return nil, apperr.New(apperr.NotFound, fmt.Sprintf("upload %q does not belong to app %q", uploadID, *routeSlug))
	}

	project, channel := upload.Project, upload.ReleaseChannel
	lockKey := project + "\x00" + channel
	targetCreatedAt := upload.CreatedAt

	err = s.locks.With(lockKey, func() error {
		return s.store.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var siblings []meta.Upload
			if err := tx.Where("project = ? AND release_channel = ?", project, channel).Find(&siblings).Error; err != nil {
				return err
			}
			for i := range siblings {
				sib := &siblings[i]
				if sib.ID == uploadID {
					continue
				}
				var newStatus meta.UploadStatus
				switch {
				case sib.CreatedAt.Before(targetCreatedAt):
					newStatus = meta.StatusObsolete
				case sib.CreatedAt.After(targetCreatedAt):
					newStatus = meta.StatusReady
				default:
					continue
				}
				if sib.Status == newStatus {
					continue
				}
				if err := tx.Model(&meta.Upload{}).Where("id = ?", sib.ID).Update("status", newStatus).Error; err != nil {
					return err
				}
			}

			now := time.Now().UTC()
			return tx.Model(&meta.Upload{}).Where("id = ?", uploadID).Updates(map[string]interface{}{
				"status":      meta.StatusReleased,
				"released_at": now,
			}).Error
		})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to commit release transition", err)
	}

	released, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to reload released upload", err)
	}

	s.coordinator.InvalidateRelease(ctx, project, released.Version, channel)
	cleanupResult, err := s.coordinator.ReleaseRetention(ctx, project, channel)
	if err != nil {
		s.logger.Error("release retention GC failed", "project", project, "channel", channel, "err", err)
		cleanupResult = cleanup.Result{}
	}

	return &ReleaseResult{Upload: released, Cleanup: cleanupResult}, nil
}
