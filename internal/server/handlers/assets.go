package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
)

// HandleAssets handles GET /assets, streaming bytes from Blob under the
// Asset Server's path policy, per spec.md §4.7.
func (h *Handlers) HandleAssets(c *fiber.Ctx) error {
	key := c.Query("asset")
	if key == "" {
		return apperr.New(apperr.BadRequest, "asset query parameter is required")
	}
	contentType := c.Query("contentType")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rc, err := h.Assets.Stream(c.Context(), key)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	c.Set(fiber.HeaderContentType, contentType)
	return c.SendStream(rc)
}
