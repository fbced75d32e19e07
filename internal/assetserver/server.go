// Package assetserver implements the Asset Server: streaming bytes
// from Blob under a strict path policy, per spec.md §4.7.
//
// Grounded on BigKAA-goartstore's internal/service/download.go
// pre-flight validation pattern — reject before touching storage,
// never after.
package assetserver

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/blob"
)

// Server streams asset bytes out of Blob.
type Server struct {
	blobs blob.Store
}

// New builds a Server.
func New(blobs blob.Store) *Server {
	return &Server{blobs: blobs}
}

// PathSafe rejects keys containing ".." or starting with "/", per
// spec.md §4.7's path policy.
func PathSafe(key string) bool {
	if key == "" {
		return false
	}
	if strings.HasPrefix(key, "/") {
		return false
	}
	return !strings.Contains(key, "..")
}

// Stream returns a reader over key's bytes, or a Forbidden error for
// a policy-violating key and a NotFound error for an absent one.
func (s *Server) Stream(ctx context.Context, key string) (io.ReadCloser, error) {
	if !PathSafe(key) {
		return nil, apperr.New(apperr.Forbidden, "asset key is not permitted")
	}
	rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "asset not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "failed to read asset", err)
	}
	return rc, nil
}
