// Package apps implements the App Registry: app lifecycle (create,
// attach certificate, update settings, list, get, delete-with-cascade),
// per spec.md §4.8.
//
// Grounded on the teacher's handlers/app.go and handlers/settings.go
// CRUD shape (GORM First/Create/Save/Where chains), extended with
// go-playground/validator/v10 struct-tag validation following
// l3montree-dev-devguard's shared.V singleton usage.
package apps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
	"github.com/entropyconquers/expo-update-server-x/internal/pemcodec"
)

// V is the package-level struct validator.
var V = validator.New()

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CreateInput is the register-app request body, per spec.md §4.8.
type CreateInput struct {
	Slug        string `validate:"required"`
	DisplayName string
	Description string
	OwnerEmail  string `validate:"omitempty,email"`
}

// SettingsInput is the settings-update request body. Currently just
// autoCleanupEnabled, per spec.md §4.8.
type SettingsInput struct {
	AutoCleanupEnabled bool
}

// CertificateStatus is the derived field List/Get expose instead of
// the raw PEM material.
type CertificateStatus string

const (
	CertificateConfigured    CertificateStatus = "configured"
	CertificateNotConfigured CertificateStatus = "not_configured"
)

// View is the List/Get response shape.
type View struct {
	Slug               string
	DisplayName        string
	Description        string
	OwnerEmail         string
	AutoCleanupEnabled bool
	CertificateStatus  CertificateStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Detail extends View with the aggregate upload statistics Get returns.
type Detail struct {
	View
	TotalUploads    int64
	ReleasedUploads int64
	LastUpdate      *time.Time
	LastRelease     *time.Time
}

// CascadeDeleter is the subset of the Cleanup Coordinator the App
// Registry needs for Delete's cascade.
type CascadeDeleter interface {
	AppCascade(ctx context.Context, slug string) error
}

// Registry implements app lifecycle operations over the Meta store.
type Registry struct {
	store   *meta.Store
	cascade CascadeDeleter
	logger  *slog.Logger
}

// New builds a Registry.
func New(store *meta.Store, cascade CascadeDeleter, logger *slog.Logger) *Registry {
	return &Registry{store: store, cascade: cascade, logger: logger.With(slog.String("component", "apps"))}
}

// Create registers a new app. The slug pattern and duplicate checks
// are enforced here; certificate fields start null.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*meta.App, error) {
	if err := V.Struct(in); err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "invalid app registration", err)
	}
	if !slugPattern.MatchString(in.Slug) {
		return nil, apperr.New(apperr.BadRequest, "slug must match ^[A-Za-z0-9_-]+$")
	}
	if _, err := r.store.GetApp(ctx, in.Slug); err == nil {
		return nil, apperr.New(apperr.Conflict, fmt.Sprintf("app %q already exists", in.Slug))
	} else if !errors.Is(err, meta.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "failed to check for existing app", err)
	}

	app := &meta.App{
		Slug:               in.Slug,
		DisplayName:        in.DisplayName,
		Description:        in.Description,
		OwnerEmail:         in.OwnerEmail,
		AutoCleanupEnabled: true,
	}
	if err := r.store.CreateApp(ctx, app); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to create app", err)
	}
	return app, nil
}

// AttachCertificate normalizes and stores a certificate/private-key
// pair. Both PEMs must individually pass the PEM Codec.
func (r *Registry) AttachCertificate(ctx context.Context, slug, certPEM, keyPEM string) (*meta.App, error) {
	app, err := r.getOrNotFound(ctx, slug)
	if err != nil {
		return nil, err
	}
	cert, err := pemcodec.NormalizeCertificate(certPEM)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "certificate PEM is malformed", err)
	}
	key, err := pemcodec.NormalizePrivateKey(keyPEM)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "private key PEM is malformed", err)
	}
	app.CertificatePEM = cert.PEM
	app.PrivateKeyPEM = key.PEM
	if err := r.store.SaveApp(ctx, app); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to save app certificate", err)
	}
	return app, nil
}

// Certificate returns the app's normalized certificate PEM, for the
// GET /certificate/{slug} endpoint.
func (r *Registry) Certificate(ctx context.Context, slug string) (string, error) {
	app, err := r.getOrNotFound(ctx, slug)
	if err != nil {
		return "", err
	}
	if app.CertificatePEM == "" {
		return "", apperr.New(apperr.NotFound, fmt.Sprintf("app %q has no certificate configured", slug))
	}
	return app.CertificatePEM, nil
}

// UpdateSettings updates autoCleanupEnabled.
func (r *Registry) UpdateSettings(ctx context.Context, slug string, in SettingsInput) (*meta.App, error) {
	app, err := r.getOrNotFound(ctx, slug)
	if err != nil {
		return nil, err
	}
	app.AutoCleanupEnabled = in.AutoCleanupEnabled
	if err := r.store.SaveApp(ctx, app); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to save app settings", err)
	}
	return app, nil
}

// List returns every app with its derived certificateStatus.
func (r *Registry) List(ctx context.Context) ([]View, error) {
	apps, err := r.store.ListApps(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list apps", err)
	}
	views := make([]View, len(apps))
	for i := range apps {
		views[i] = toView(&apps[i])
	}
	return views, nil
}

// Get returns one app plus its aggregate upload statistics.
func (r *Registry) Get(ctx context.Context, slug string) (*Detail, error) {
	app, err := r.getOrNotFound(ctx, slug)
	if err != nil {
		return nil, err
	}
	stats, err := r.store.UploadStats(ctx, slug)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load upload statistics", err)
	}
	return &Detail{
		View:            toView(app),
		TotalUploads:    stats.TotalUploads,
		ReleasedUploads: stats.ReleasedUploads,
		LastUpdate:      stats.LastUpdate,
		LastRelease:     stats.LastRelease,
	}, nil
}

// Delete removes the app and cascades to every upload, Blob object,
// and cache entry it owns.
func (r *Registry) Delete(ctx context.Context, slug string) error {
	if _, err := r.getOrNotFound(ctx, slug); err != nil {
		return err
	}
	if err := r.cascade.AppCascade(ctx, slug); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to cascade delete app", err)
	}
	return nil
}

func (r *Registry) getOrNotFound(ctx context.Context, slug string) (*meta.App, error) {
	app, err := r.store.GetApp(ctx, slug)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("app %q not found", slug))
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to load app", err)
	}
	return app, nil
}

func toView(a *meta.App) View {
	status := CertificateNotConfigured
	if a.HasKeyPair() {
		status = CertificateConfigured
	}
	return View{
		Slug:               a.Slug,
		DisplayName:        a.DisplayName,
		Description:        a.Description,
		OwnerEmail:         a.OwnerEmail,
		AutoCleanupEnabled: a.AutoCleanupEnabled,
		CertificateStatus:  status,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
}
