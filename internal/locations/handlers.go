package locations

import (
	"encoding/json"

	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes location routes. The same handler set is registered under
// both /recipients/:id/locations and /assets/:id/locations; Kind tells the
// two registrations apart.
type Handlers struct {
	Service *Service
	Kind    OwnerKind
}

func (h *Handlers) owner(c *fiber.Ctx) (Owner, error) {
	ownerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return Owner{}, apperrors.NotFound(string(h.Kind))
	}
	return Owner{Kind: h.Kind, ID: ownerID}, nil
}

// CreateLocation handles POST .../:id/locations.
func (h *Handlers) CreateLocation(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var in CreateLocationInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	created, err := h.Service.Create(c.Context(), orgID, owner, in)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Location created", created)
}

// ListLocations handles GET .../:id/locations?all=true.
func (h *Handlers) ListLocations(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	var (
		locs []Location
	)
	if c.Query("all") == "true" {
		locs, err = h.Service.ListAllForOwner(c.Context(), orgID, owner)
	} else {
		locs, err = h.Service.ListActiveForOwner(c.Context(), orgID, owner)
	}
	if err != nil {
		return err
	}
	return response.Success(c, "Locations", locs)
}

// GetLocation handles GET .../:id/locations/:locationId.
func (h *Handlers) GetLocation(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	locationID, err := uuid.Parse(c.Params("locationId"))
	if err != nil {
		return apperrors.NotFound("location")
	}
	found, err := h.Service.Get(c.Context(), orgID, owner, locationID)
	if err != nil {
		return err
	}
	return response.Success(c, "Location", found)
}

// UpdateLocation handles PATCH .../:id/locations/:locationId. Country changes
// are rejected here; they go through Move.
func (h *Handlers) UpdateLocation(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	locationID, err := uuid.Parse(c.Params("locationId"))
	if err != nil {
		return apperrors.NotFound("location")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	updated, err := h.Service.Update(c.Context(), orgID, owner, locationID, fields)
	if err != nil {
		return err
	}
	return response.Success(c, "Location updated", updated)
}

// MoveLocation handles POST .../:id/locations/:locationId/move.
func (h *Handlers) MoveLocation(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	locationID, err := uuid.Parse(c.Params("locationId"))
	if err != nil {
		return apperrors.NotFound("location")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.Validation("", "invalid request body")
	}
	moved, err := h.Service.Move(c.Context(), orgID, owner, locationID, fields)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Location moved", moved)
}

// DeactivateLocation handles DELETE .../:id/locations/:locationId (soft).
func (h *Handlers) DeactivateLocation(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	owner, err := h.owner(c)
	if err != nil {
		return err
	}
	locationID, err := uuid.Parse(c.Params("locationId"))
	if err != nil {
		return apperrors.NotFound("location")
	}
	deactivated, err := h.Service.Deactivate(c.Context(), orgID, owner, locationID)
	if err != nil {
		return err
	}
	return response.Success(c, "Location deactivated", deactivated)
}

// ListByCountry handles GET /api/v1/locations/by-country/:countryId. It spans
// both owner variants, so it is registered once, not per kind.
func (h *Handlers) ListByCountry(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	countryID, err := uuid.Parse(c.Params("countryId"))
	if err != nil {
		return apperrors.NotFound("country")
	}
	activeOnly := c.Query("active") != "false"
	locs, err := h.Service.ListByCountry(c.Context(), orgID, countryID, activeOnly)
	if err != nil {
		return err
	}
	return response.Success(c, "Locations", locs)
}
