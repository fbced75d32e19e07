package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entropyconquers/expo-update-server-x/internal/apperr"
	"github.com/entropyconquers/expo-update-server-x/internal/manifest"
)

func queryOrHeader(c *fiber.Ctx, query, header string) string {
	if v := c.Query(query); v != "" {
		return v
	}
	return c.Get(header)
}

// HandleManifest handles GET /manifest, emitting the bit-exact multipart
// response described in spec.md §6.
func (h *Handlers) HandleManifest(c *fiber.Ctx) error {
	project := queryOrHeader(c, "project", "expo-project")
	platform := queryOrHeader(c, "platform", "expo-platform")
	version := queryOrHeader(c, "version", "expo-runtime-version")
	channel := queryOrHeader(c, "channel", "expo-channel-name")

	if project == "" || version == "" || channel == "" {
		return apperr.New(apperr.BadRequest, "project, version, and channel are required")
	}
	if platform != "ios" && platform != "android" {
		return apperr.New(apperr.BadRequest, "platform must be \"ios\" or \"android\"")
	}

	wantSignature := c.Get("expo-expect-signature") != ""
	resp, err := h.Manifest.Resolve(c.Context(), project, version, channel, platform, wantSignature)
	if err != nil {
		return err
	}

	env := manifest.Encode(resp)
	c.Set(fiber.HeaderContentType, env.ContentType)
	c.Set("expo-protocol-version", "0")
	c.Set("expo-sfv-version", "0")
	c.Set(fiber.HeaderCacheControl, "private, max-age=0")
	return c.Send(env.Body)
}
