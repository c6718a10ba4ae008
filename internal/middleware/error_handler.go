package middleware

import (
	"ropa-backend/internal/pkg/apperrors"
	"ropa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the global error handler. Taxonomy errors keep their message
// and field details; anything untranslated stays an opaque 500 so storage
// errors never leak upward.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Message, e.Code, nil)
	}
	code := apperrors.HTTPStatus(err)
	message := err.Error()
	if code == fiber.StatusInternalServerError {
		message = "Internal Server Error"
	}
	return response.Error(c, message, code, apperrors.Details(err))
}
