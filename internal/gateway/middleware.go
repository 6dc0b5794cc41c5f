package gateway

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/logger"
)

const HeaderRequestID = "X-Request-ID"

const (
	localRequestID = "request_id"
	localUserID    = "user_id"
	localToken     = "token"
)

// requestID tags every request with an id, echoes it back and logs the outcome.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(HeaderRequestID))
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(localRequestID, id)
	c.Set(HeaderRequestID, id)

	started := time.Now()
	err := c.Next()
	if err != nil {
		// render now so the logged status is the one sent
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}

	s.requestLogger(c).Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(started)),
	)
	return nil
}

// authenticate verifies the bearer token and stores the user id and raw token.
func (s *Server) authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: No token provided")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	userID, err := s.verifier.Verify(token)
	if err != nil {
		s.requestLogger(c).Debug("token rejected", zap.Error(err))
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized: Invalid token")
	}

	c.Locals(localUserID, userID)
	c.Locals(localToken, token)
	c.SetUserContext(identity.WithUser(c.UserContext(), userID))
	return c.Next()
}

func (s *Server) requestLogger(c *fiber.Ctx) *zap.Logger {
	requestID, _ := c.Locals(localRequestID).(string)
	userID, _ := c.Locals(localUserID).(string)
	return logger.WithFields(s.logger, logger.StringFields(
		logger.StringField{Key: logger.FieldRequestID, Value: requestID},
		logger.StringField{Key: logger.FieldUserID, Value: userID},
	)...)
}

func userOf(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func tokenOf(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}
