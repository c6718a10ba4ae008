package refdata

import (
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the read-only reference-data routes plus the admin reload.
type Handlers struct {
	Store    *Store
	AdminKey string
}

// Countries handles GET /api/v1/reference/countries.
func (h *Handlers) Countries(c *fiber.Ctx) error {
	countries, err := h.Store.Countries(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Countries", countries)
}

// Natures handles GET /api/v1/reference/data-natures.
func (h *Handlers) Natures(c *fiber.Ctx) error {
	natures, err := h.Store.Natures(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Data natures", natures)
}

// Mechanisms handles GET /api/v1/reference/transfer-mechanisms.
func (h *Handlers) Mechanisms(c *fiber.Ctx) error {
	mechanisms, err := h.Store.Mechanisms(c.Context())
	if err != nil {
		return err
	}
	return response.Success(c, "Transfer mechanisms", mechanisms)
}

// Reload handles POST /api/v1/reference/reload — explicit admin action, the
// only cache invalidation these tables get.
func (h *Handlers) Reload(c *fiber.Ctx) error {
	if h.AdminKey == "" || c.Get("X-Admin-Key") != h.AdminKey {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authorized")
	}
	if err := h.Store.Reload(c.Context()); err != nil {
		return err
	}
	return response.Success(c, "Reference data reloaded", nil)
}
