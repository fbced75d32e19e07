package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Health answers GET / with a short liveness JSON body.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":   "expo-update-server-x",
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}
