package activities

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes processing-activity routes.
type Handlers struct {
	Service *Service
}

// CreateActivity handles POST /api/v1/activities.
func (h *Handlers) CreateActivity(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	var in CreateActivityInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.Create(c.Context(), orgID, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Processing activity created", created)
}

// ListActivities handles GET /api/v1/activities?active=true.
func (h *Handlers) ListActivities(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activeOnly := c.Query("active") == "true"
	list, err := h.Service.List(c.Context(), orgID, activeOnly)
	if err != nil {
		return err
	}
	return response.Success(c, "Processing activities", list)
}

// GetActivity handles GET /api/v1/activities/:id.
func (h *Handlers) GetActivity(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	found, err := h.Service.Get(c.Context(), orgID, activityID)
	if err != nil {
		return err
	}
	return response.Success(c, "Processing activity", found)
}

// UpdateActivity handles PATCH /api/v1/activities/:id.
func (h *Handlers) UpdateActivity(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.Update(c.Context(), orgID, activityID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Processing activity updated", updated)
}

// DeactivateActivity handles DELETE /api/v1/activities/:id (soft).
func (h *Handlers) DeactivateActivity(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	deactivated, err := h.Service.Deactivate(c.Context(), orgID, activityID)
	if err != nil {
		return err
	}
	return response.Success(c, "Processing activity deactivated", deactivated)
}

// LinkRecipient handles POST /api/v1/activities/:id/recipients/:recipientId.
func (h *Handlers) LinkRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	recipientID, err := uuid.Parse(c.Params("recipientId"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	if err := h.Service.LinkRecipient(c.Context(), orgID, activityID, recipientID); err != nil {
		return err
	}
	return response.Success(c, "Recipient linked", nil)
}

// UnlinkRecipient handles DELETE /api/v1/activities/:id/recipients/:recipientId.
func (h *Handlers) UnlinkRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	recipientID, err := uuid.Parse(c.Params("recipientId"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	if err := h.Service.UnlinkRecipient(c.Context(), orgID, activityID, recipientID); err != nil {
		return err
	}
	return response.Success(c, "Recipient unlinked", nil)
}

// LinkAsset handles POST /api/v1/activities/:id/assets/:assetId.
func (h *Handlers) LinkAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	assetID, err := uuid.Parse(c.Params("assetId"))
	if err != nil {
		return apperrors.NotFound("digital asset")
	}
	if err := h.Service.LinkAsset(c.Context(), orgID, activityID, assetID); err != nil {
		return err
	}
	return response.Success(c, "Digital asset linked", nil)
}

// UnlinkAsset handles DELETE /api/v1/activities/:id/assets/:assetId.
func (h *Handlers) UnlinkAsset(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	assetID, err := uuid.Parse(c.Params("assetId"))
	if err != nil {
		return apperrors.NotFound("digital asset")
	}
	if err := h.Service.UnlinkAsset(c.Context(), orgID, activityID, assetID); err != nil {
		return err
	}
	return response.Success(c, "Digital asset unlinked", nil)
}
