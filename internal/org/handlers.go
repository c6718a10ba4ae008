package org

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes organization routes.
type Handlers struct {
	Service *Service
}

// CreateOrg handles POST /api/v1/orgs. Open route: org creation happens
// before any session exists for it.
func (h *Handlers) CreateOrg(c *fiber.Ctx) error {
	var in CreateOrgInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.Create(c.Context(), in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Organization created", created)
}

// GetOrg handles GET /api/v1/orgs/me.
func (h *Handlers) GetOrg(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	found, err := h.Service.Get(c.Context(), orgID)
	if err != nil {
		return err
	}
	return response.Success(c, "Organization", found)
}

// UpdateOrg handles PATCH /api/v1/orgs/me.
func (h *Handlers) UpdateOrg(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.Update(c.Context(), orgID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Organization updated", updated)
}
