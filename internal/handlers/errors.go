package handlers

import (
	"errors"

	"seyon/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps a service error onto its HTTP status and {msg} body.
// Anything unrecognised is logged and reported as a 500 without detail.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"msg":    "Validation failed",
			"errors": validationErr.Fields,
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		return message(c, fiber.StatusBadRequest, "Invalid Credentials")
	case errors.Is(err, services.ErrUnauthorized):
		return message(c, fiber.StatusUnauthorized, "Authorization denied")
	case errors.Is(err, services.ErrMissingFile):
		return message(c, fiber.StatusBadRequest, "Please upload an image")
	case errors.Is(err, services.ErrTooManyFiles):
		return message(c, fiber.StatusBadRequest, "Only one image may be uploaded")
	case errors.Is(err, services.ErrUnsupportedMediaType):
		return message(c, fiber.StatusUnsupportedMediaType, "Images Only!")
	case errors.Is(err, services.ErrFileTooLarge):
		return message(c, fiber.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, services.ErrNotFound):
		return message(c, fiber.StatusNotFound, "Project not found")
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return message(c, fiber.StatusInternalServerError, "Server Error")
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"msg": msg})
}
