package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entropyconquers/expo-update-server-x/internal/apps"
)

// RegisterApp handles POST /register-app.
func (h *Handlers) RegisterApp(c *fiber.Ctx) error {
	var in apps.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed json body")
	}
	app, err := h.Apps.Create(c.Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// AttachCertificate handles PUT /apps/{slug}/certificate.
func (h *Handlers) AttachCertificate(c *fiber.Ctx) error {
	var in struct {
		Certificate string `json:"certificate"`
		PrivateKey  string `json:"privateKey"`
	}
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed json body")
	}
	app, err := h.Apps.AttachCertificate(c.Context(), c.Params("slug"), in.Certificate, in.PrivateKey)
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// Certificate handles GET /certificate/{slug}, returning the PEM as a
// text/plain attachment.
func (h *Handlers) Certificate(c *fiber.Ctx) error {
	slug := c.Params("slug")
	pem, err := h.Apps.Certificate(c.Context(), slug)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, "attachment; filename=\""+slug+".pem\"")
	return c.SendString(pem)
}

// ListApps handles GET /apps.
func (h *Handlers) ListApps(c *fiber.Ctx) error {
	views, err := h.Apps.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(views)
}

// GetApp handles GET /apps/{slug}.
func (h *Handlers) GetApp(c *fiber.Ctx) error {
	detail, err := h.Apps.Get(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

// UpdateSettings handles PUT /apps/{slug}/settings.
func (h *Handlers) UpdateSettings(c *fiber.Ctx) error {
	var in apps.SettingsInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed json body")
	}
	app, err := h.Apps.UpdateSettings(c.Context(), c.Params("slug"), in)
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// DeleteApp handles DELETE /apps/{slug}.
func (h *Handlers) DeleteApp(c *fiber.Ctx) error {
	if err := h.Apps.Delete(c.Context(), c.Params("slug")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": true})
}
