package meta

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by Store methods when a row is absent,
// translated from gorm.ErrRecordNotFound so callers never need to
// import gorm directly.
var ErrNotFound = errors.New("meta: not found")

// Store is the transactional row store for apps and uploads.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an already-connected *gorm.DB.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying *gorm.DB for callers (the Upload Registry)
// that need to run their own multi-row transactions, e.g. the release
// state transition in spec.md §4.5/§5.
func (s *Store) DB() *gorm.DB { return s.db }

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Apps ---

func (s *Store) CreateApp(ctx context.Context, app *App) error {
	return s.db.WithContext(ctx).Create(app).Error
}

func (s *Store) GetApp(ctx context.Context, slug string) (*App, error) {
	var app App
	if err := s.db.WithContext(ctx).First(&app, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &app, nil
}

func (s *Store) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := s.db.WithContext(ctx).Order("slug asc").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (s *Store) SaveApp(ctx context.Context, app *App) error {
	return s.db.WithContext(ctx).Save(app).Error
}

func (s *Store) DeleteApp(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Delete(&App{}, "slug = ?", slug).Error
}

// --- Uploads ---

func (s *Store) CreateUpload(ctx context.Context, u *Upload) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *Store) GetUpload(ctx context.Context, id string) (*Upload, error) {
	var u Upload
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// ListByProjectChannel returns every upload for (project, channel),
// oldest first, matching the total order invariant in spec.md §3.
func (s *Store) ListByProjectChannel(ctx context.Context, project, channel string) ([]Upload, error) {
	var ups []Upload
	err := s.db.WithContext(ctx).
		Where("project = ? AND release_channel = ?", project, channel).
		Order("created_at asc").
		Find(&ups).Error
	return ups, err
}

// ListObsolete returns obsolete uploads for (project, channel), newest
// first, for the Cleanup Coordinator's skip-first-N retention rule.
func (s *Store) ListObsolete(ctx context.Context, project, channel string) ([]Upload, error) {
	var ups []Upload
	err := s.db.WithContext(ctx).
		Where("project = ? AND release_channel = ? AND status = ?", project, channel, StatusObsolete).
		Order("created_at desc").
		Find(&ups).Error
	return ups, err
}

// ListByProject returns every upload for a project, for cascade delete.
func (s *Store) ListByProject(ctx context.Context, project string) ([]Upload, error) {
	var ups []Upload
	err := s.db.WithContext(ctx).Where("project = ?", project).Find(&ups).Error
	return ups, err
}

// GetReleasedUpload resolves the single released upload for
// (project, version, channel), per spec.md §4.6 step 2.
func (s *Store) GetReleasedUpload(ctx context.Context, project, version, channel string) (*Upload, error) {
	var u Upload
	err := s.db.WithContext(ctx).
		Where("project = ? AND version = ? AND release_channel = ? AND status = ?", project, version, channel, StatusReleased).
		Order("created_at desc").
		First(&u).Error
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) ListAll(ctx context.Context) ([]Upload, error) {
	var ups []Upload
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&ups).Error
	return ups, err
}

func (s *Store) DeleteUpload(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Upload{}, "id = ?", id).Error
}

// Stats aggregates per-app upload statistics for App Registry "Get".
type Stats struct {
	TotalUploads    int64
	ReleasedUploads int64
	LastUpdate      *time.Time
	LastRelease     *time.Time
}

func (s *Store) UploadStats(ctx context.Context, project string) (Stats, error) {
	var stats Stats
	if err := s.db.WithContext(ctx).Model(&Upload{}).Where("project = ?", project).Count(&stats.TotalUploads).Error; err != nil {
		return stats, err
	}
	if err := s.db.WithContext(ctx).Model(&Upload{}).Where("project = ? AND status = ?", project, StatusReleased).Count(&stats.ReleasedUploads).Error; err != nil {
		return stats, err
	}
	var latest Upload
	if err := s.db.WithContext(ctx).Where("project = ?", project).Order("created_at desc").First(&latest).Error; err == nil {
		t := latest.CreatedAt
		stats.LastUpdate = &t
	}
	var latestReleased Upload
	if err := s.db.WithContext(ctx).Where("project = ? AND status = ?", project, StatusReleased).Order("released_at desc").First(&latestReleased).Error; err == nil {
		stats.LastRelease = latestReleased.ReleasedAt
	}
	return stats, nil
}
