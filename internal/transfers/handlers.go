package transfers

import (
	"ropa-backend/internal/middleware"
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers exposes cross-border transfer reporting routes.
type Handlers struct {
	Service *Service
}

// Report handles GET /api/v1/transfers/report.
func (h *Handlers) Report(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	report, err := h.Service.DetectCrossBorderTransfers(c.Context(), orgID)
	if err != nil {
		return err
	}
	return response.Success(c, "Cross-border transfer report", report)
}

// ActivityAnalysis handles GET /api/v1/activities/:id/transfer-analysis.
func (h *Handlers) ActivityAnalysis(c *fiber.Ctx) error {
	orgID, _ := middleware.OrgIDFromLocals(c)
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperrors.NotFound("processing activity")
	}
	analysis, err := h.Service.GetActivityTransferAnalysis(c.Context(), orgID, activityID)
	if err != nil {
		return err
	}
	return response.Success(c, "Activity transfer analysis", analysis)
}
