package assets

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes digital-asset routes.
type Handlers struct {
	Service *Service
}

// CreateAsset handles POST /api/v1/assets.
func (h *Handlers) CreateAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	var in CreateAssetInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.Create(c.Context(), orgID, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Digital asset created", created)
}

// ListAssets handles GET /api/v1/assets?active=true.
func (h *Handlers) ListAssets(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activeOnly := c.Query("active") == "true"
	list, err := h.Service.List(c.Context(), orgID, activeOnly)
	if err != nil {
		return err
	}
	return response.Success(c, "Digital assets", list)
}

// GetAsset handles GET /api/v1/assets/:id.
func (h *Handlers) GetAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	assetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("digital asset")
	}
	found, err := h.Service.Get(c.Context(), orgID, assetID)
	if err != nil {
		return err
	}
	return response.Success(c, "Digital asset", found)
}

// UpdateAsset handles PATCH /api/v1/assets/:id.
func (h *Handlers) UpdateAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	assetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("digital asset")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.Update(c.Context(), orgID, assetID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Digital asset updated", updated)
}

// DeactivateAsset handles DELETE /api/v1/assets/:id (soft).
func (h *Handlers) DeactivateAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	assetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("digital asset")
	}
	deactivated, err := h.Service.Deactivate(c.Context(), orgID, assetID)
	if err != nil {
		return err
	}
	return response.Success(c, "Digital asset deactivated", deactivated)
}
