package handlers

import (
	"errors"

	"tournament-registration/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// StatusFor maps the service error set onto HTTP status codes.
func StatusFor(err error) int {
	var (
		validationErr  *services.ValidationError
		notFoundErr    *services.NotFoundError
		decodeErr      *services.DecodeError
		configErr      *services.ConfigurationError
		upstreamErr    *services.UpstreamError
		persistenceErr *services.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return fiber.StatusNotFound
	case errors.As(err, &decodeErr):
		return fiber.StatusBadRequest
	case errors.As(err, &configErr):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &upstreamErr):
		return fiber.StatusBadGateway
	case errors.As(err, &persistenceErr):
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// publicMessage returns the text shown to API clients for err. Internal
// details stay in the logs.
func publicMessage(err error, status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusNotFound:
		var decodeErr *services.DecodeError
		if errors.As(err, &decodeErr) {
			return "Invalid " + decodeErr.Source
		}
		return err.Error()
	case fiber.StatusServiceUnavailable:
		return "Service is not configured"
	case fiber.StatusBadGateway:
		return "osu! API request failed"
	default:
		return "Internal server error"
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Int("status", status).Msg("[API] request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": publicMessage(err, status)})
}

// errorHandler is the fiber fallback for errors returned by handlers.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}
