// Package manifest implements the Manifest Server: cache-then-Meta
// resolution of a (project, version, channel, platform) manifest,
// optional signing, and the multipart/mixed wire encoding, per
// spec.md §4.6 and §6.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/blob"
	"github.com/entropyconquers/expo-update-server-x/internal/cache"
	"github.com/entropyconquers/expo-update-server-x/internal/descriptor"
	"github.com/entropyconquers/expo-update-server-x/internal/meta"
	"github.com/entropyconquers/expo-update-server-x/internal/pemcodec"
	"github.com/entropyconquers/expo-update-server-x/internal/signer"
)

// CacheTTL is how long a synthesized manifest lives in the Cache, per
// spec.md §4.6 step 6.
const CacheTTL = 300 * time.Second

// Response is what the HTTP Surface turns into a multipart/mixed body.
type Response struct {
	ManifestJSON    []byte
	SignatureHeader string
}

// cachedEnvelope is the Cache value shape: the manifest bytes and
// signature header are cached together so a cache hit never needs to
// touch Meta, Blob, or the Signer again.
type cachedEnvelope struct {
	ManifestJSON    []byte `json:"manifestJson"`
	SignatureHeader string `json:"signatureHeader"`
}

// Server resolves manifests, per spec.md §4.6's algorithm.
type Server struct {
	store     *meta.Store
	blobs     blob.Store
	cache     cache.Store
	publicURL string
	logger    *slog.Logger
}

// New builds a Server.
func New(store *meta.Store, blobs blob.Store, cache cache.Store, publicURL string, logger *slog.Logger) *Server {
	return &Server{store: store, blobs: blobs, cache: cache, publicURL: publicURL, logger: logger.With(slog.String("component", "manifest"))}
}

// CacheKey builds the manifest cache key for (project, version, channel, platform).
func CacheKey(project, version, channel, platform string) string {
	return fmt.Sprintf("manifest:%s:%s:%s:%s", project, version, channel, platform)
}

// Resolve runs the cache-then-Meta algorithm and returns the manifest
// bytes and, if requested and the app has a private key, a signature
// header value.
func (s *Server) Resolve(ctx context.Context, project, version, channel, platform string, wantSignature bool) (*Response, error) {
	key := CacheKey(project, version, channel, platform)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Error("cache read failed, falling back to Meta", "key", key, "err", err)
	} else if ok {
		var env cachedEnvelope
		if err := json.Unmarshal(raw, &env); err == nil {
			return &Response{ManifestJSON: env.ManifestJSON, SignatureHeader: env.SignatureHeader}, nil
		}
		s.logger.Error("cache entry unreadable, falling back to Meta", "key", key)
	}

	upload, err := s.store.GetReleasedUpload(ctx, project, version, channel)
	if err != nil {
		if errors.Is(err, meta.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, fmt.Sprintf("no released upload for %s/%s/%s", project, version, channel))
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to resolve released upload", err)
	}

	app, err := s.store.GetApp(ctx, project)
	if err != nil && !errors.Is(err, meta.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "failed to load owning app", err)
	}
	if errors.Is(err, meta.ErrNotFound) {
		app = nil
	}

	record, err := descriptor.Build(ctx, s.blobs, s.publicURL, upload.UpdateID, []byte(upload.AssetMetadataJSON), platform, upload.Version, upload.CreatedAt)
	if err != nil {
		return nil, err
	}
	manifestJSON, err := json.Marshal(record)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to serialize manifest", err)
	}

	var sigHeader string
	if wantSignature {
		if app == nil || !app.HasKeyPair() {
			return nil, apperr.New(apperr.Config, "signing requested but app has no private key configured")
		}
		normKey, err := pemcodec.NormalizePrivateKey(app.PrivateKeyPEM)
		if err != nil {
			return nil, apperr.Wrap(apperr.Config, "stored private key is malformed", err)
		}
		sigB64, err := signer.Sign(manifestJSON, normKey)
		if err != nil {
			return nil, apperr.Wrap(apperr.Config, "failed to sign manifest", err)
		}
		sigHeader = signer.HeaderValue(sigB64)
	}

	if raw, err := json.Marshal(cachedEnvelope{ManifestJSON: manifestJSON, SignatureHeader: sigHeader}); err != nil {
		s.logger.Error("failed to marshal cache envelope", "key", key, "err", err)
	} else if err := s.cache.Set(ctx, key, raw, CacheTTL); err != nil {
		s.logger.Error("failed to write manifest cache entry", "key", key, "err", err)
	}

	return &Response{ManifestJSON: manifestJSON, SignatureHeader: sigHeader}, nil
}
