// Package server wires the HTTP surface: every endpoint in spec.md §6
// mapped to its handler, following the teacher's flat
// RegisterRoutes(app) idiom.
package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entropyconquers/expo-update-server-x/internal/server/handlers"
)

// RegisterRoutes attaches every route in the external interface table
// to app.
func RegisterRoutes(app *fiber.App, h *handlers.Handlers) {
	app.Get("/", h.Health)

	app.Post("/register-app", h.RegisterApp)
	app.Put("/apps/:slug/certificate", h.AttachCertificate)
	app.Get("/certificate/:slug", h.Certificate)
	app.Get("/apps", h.ListApps)
	app.Get("/apps/:slug", h.GetApp)
	app.Put("/apps/:slug/settings", h.UpdateSettings)
	app.Delete("/apps/:slug", h.DeleteApp)

	app.Post("/upload", h.Upload)
	app.Put("/release/:uploadId", h.ReleaseLegacy)
	app.Put("/apps/:slug/release/:uploadId", h.Release)

	app.Get("/manifest", h.HandleManifest)
	app.Get("/assets", h.HandleAssets)
	app.Get("/uploads", h.ListUploads)
}
