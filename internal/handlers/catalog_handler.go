package handlers

import (
	"github.com/gofiber/fiber/v2"

	"mindmail/internal/models"
)

// CatalogHandler serves the fixed display tables a client needs to render
// pickers.
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/moods", h.HandleMoods)
	router.Get("/recurrences", h.HandleRecurrences)
	router.Get("/presets", h.HandlePresets)
}

func (h *CatalogHandler) HandleMoods(c *fiber.Ctx) error {
	return c.JSON(models.Moods())
}

func (h *CatalogHandler) HandleRecurrences(c *fiber.Ctx) error {
	return c.JSON(models.Recurrences())
}

func (h *CatalogHandler) HandlePresets(c *fiber.Ctx) error {
	return c.JSON(models.Presets())
}
