package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/backend"
	"github.com/spigell/interview-coach/internal/identity"
)

const internalError = "Internal server error"

// upstreamError maps a provider failure to a response. Backend answers keep their
// status; anything else is an internal error.
func upstreamError(err error, fallback string) error {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return fiber.NewError(apiErr.StatusCode, backend.MessageOr(err, fallback))
	case errors.Is(err, identity.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: Invalid token")
	default:
		return err
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := internalError

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		status = ferr.Code
		message = ferr.Message
	} else {
		s.requestLogger(c).Error("request failed", zap.Error(err))
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
