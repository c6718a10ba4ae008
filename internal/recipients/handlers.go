package recipients

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes recipient routes.
type Handlers struct {
	Service *Service
}

// CreateRecipient handles POST /api/v1/recipients.
func (h *Handlers) CreateRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	var in CreateRecipientInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.Create(c.Context(), orgID, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Recipient created", created)
}

// ListRecipients handles GET /api/v1/recipients?active=true.
func (h *Handlers) ListRecipients(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activeOnly := c.Query("active") == "true"
	list, err := h.Service.List(c.Context(), orgID, activeOnly)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipients", list)
}

// GetRecipient handles GET /api/v1/recipients/:id.
func (h *Handlers) GetRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	found, err := h.Service.Get(c.Context(), orgID, recipientID)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipient", found)
}

// UpdateRecipient handles PATCH /api/v1/recipients/:id.
func (h *Handlers) UpdateRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.Update(c.Context(), orgID, recipientID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipient updated", updated)
}

// DeactivateRecipient handles DELETE /api/v1/recipients/:id (soft).
func (h *Handlers) DeactivateRecipient(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	deactivated, err := h.Service.Deactivate(c.Context(), orgID, recipientID)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipient deactivated", deactivated)
}

// GetTree handles GET /api/v1/recipients/:id/tree.
func (h *Handlers) GetTree(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	nodes, err := h.Service.GetDescendantTree(c.Context(), orgID, recipientID)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipient tree", nodes)
}

// GetAncestors handles GET /api/v1/recipients/:id/ancestors.
func (h *Handlers) GetAncestors(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	recipientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("recipient")
	}
	chain, err := h.Service.GetAncestorChain(c.Context(), orgID, recipientID)
	if err != nil {
		return err
	}
	return response.Success(c, "Recipient ancestors", chain)
}
