// Package handlers adapts the engine's components to Fiber, following
// the teacher's handlers package layout: one file per concern, thin
// functions that parse the request, call a component, and shape the
// response. Unlike the teacher's package-level database.DB access,
// every handler here hangs off a Handlers struct built once in
// cmd/server/main.go and injected with the components it calls.
package handlers

import (
	"log/slog"

	"github.com/entropyconquers/expo-update-server-x/internal/apps"
	"github.com/entropyconquers/expo-update-server-x/internal/assetserver"
	"github.com/entropyconquers/expo-update-server-x/internal/blob"
	"github.com/entropyconquers/expo-update-server-x/internal/manifest"
	"github.com/entropyconquers/expo-update-server-x/internal/uploads"
)

// Handlers holds every component the HTTP surface dispatches into.
type Handlers struct {
	Apps            *apps.Registry
	Uploads         *uploads.Service
	Manifest        *manifest.Server
	Assets          *assetserver.Server
	Blobs           blob.Store
	UploadSecretKey string
	Logger          *slog.Logger
}

// New builds a Handlers.
func New(appsReg *apps.Registry, uploadsSvc *uploads.Service, manifestSrv *manifest.Server, assetSrv *assetserver.Server, blobs blob.Store, uploadSecretKey string, logger *slog.Logger) *Handlers {
	return &Handlers{
		Apps:            appsReg,
		Uploads:         uploadsSvc,
		Manifest:        manifestSrv,
		Assets:          assetSrv,
		Blobs:           blobs,
		UploadSecretKey: uploadSecretKey,
		Logger:          logger.With(slog.String("component", "http")),
	}
}
