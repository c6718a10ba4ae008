package classification

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes data-category routes.
type Handlers struct {
	Service *Service
}

// CreateCategory handles POST /api/v1/data-categories.
func (h *Handlers) CreateCategory(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	var in CreateCategoryInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.CreateCategory(c.Context(), orgID, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Data category created", created)
}

// ListCategories handles GET /api/v1/data-categories?active=true.
func (h *Handlers) ListCategories(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activeOnly := c.Query("active") == "true"
	cats, err := h.Service.ListCategories(c.Context(), orgID, activeOnly)
	if err != nil {
		return err
	}
	return response.Success(c, "Data categories", cats)
}

// GetCategory handles GET /api/v1/data-categories/:id.
func (h *Handlers) GetCategory(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	found, err := h.Service.GetCategory(c.Context(), orgID, categoryID)
	if err != nil {
		return err
	}
	return response.Success(c, "Data category", found)
}

// UpdateCategory handles PATCH /api/v1/data-categories/:id.
func (h *Handlers) UpdateCategory(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.UpdateCategory(c.Context(), orgID, categoryID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Data category updated", updated)
}

// DeactivateCategory handles DELETE /api/v1/data-categories/:id (soft).
func (h *Handlers) DeactivateCategory(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	deactivated, err := h.Service.DeactivateCategory(c.Context(), orgID, categoryID)
	if err != nil {
		return err
	}
	return response.Success(c, "Data category deactivated", deactivated)
}

// LinkNature handles POST /api/v1/data-categories/:id/natures/:natureId.
func (h *Handlers) LinkNature(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	natureID, err := uuid.Parse(c.Params("natureId"))
	if err != nil {
		return apperrors.NotFound("data nature")
	}
	linked, err := h.Service.LinkNature(c.Context(), orgID, categoryID, natureID)
	if err != nil {
		return err
	}
	return response.Success(c, "Nature linked", linked)
}

// UnlinkNature handles DELETE /api/v1/data-categories/:id/natures/:natureId.
func (h *Handlers) UnlinkNature(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	natureID, err := uuid.Parse(c.Params("natureId"))
	if err != nil {
		return apperrors.NotFound("data nature")
	}
	unlinked, err := h.Service.UnlinkNature(c.Context(), orgID, categoryID, natureID)
	if err != nil {
		return err
	}
	return response.Success(c, "Nature unlinked", unlinked)
}

// SetOverride handles PUT /api/v1/data-categories/:id/override.
func (h *Handlers) SetOverride(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	var in OverrideInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.SetOverride(c.Context(), orgID, categoryID, in)
	if err != nil {
		return err
	}
	return response.Success(c, "Override set", updated)
}

// ClearOverride handles DELETE /api/v1/data-categories/:id/override.
func (h *Handlers) ClearOverride(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	categoryID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("data category")
	}
	updated, err := h.Service.ClearOverride(c.Context(), orgID, categoryID)
	if err != nil {
		return err
	}
	return response.Success(c, "Override cleared", updated)
}
