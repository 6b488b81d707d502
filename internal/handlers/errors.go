package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"katalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

const invalidDataMessage = "The given data was invalid."

// respondError maps the service error taxonomy onto HTTP responses.
func respondError(c *fiber.Ctx, log *slog.Logger, err error) error {
	var ve *services.ValidationError
	var ce *services.ConflictError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": invalidDataMessage,
			"errors":  ve.Fields,
		})
	case errors.As(err, &ce):
		if ce.Code == services.CodeUnitChangeForbidden {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": ce.Code,
				"errors":  fiber.Map{"unit_id": []string{ce.Message}},
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":    ce.Code,
			"message": ce.Message,
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Resource not found.",
		})
	}

	log.ErrorContext(c.UserContext(), "request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Server Error",
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// paramID reads the :id route parameter. Anything but a positive integer
// cannot name a row, so it is reported as not found.
func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, services.ErrNotFound
	}
	return uint(id), nil
}

// statusInput is the body of the status toggle endpoints.
type statusInput struct {
	IsActive *bool `json:"is_active"`
}

func (in statusInput) validate() error {
	if in.IsActive == nil {
		ve := services.NewValidationError()
		ve.Add("is_active", "The is active field is required.")
		return ve
	}
	return nil
}
