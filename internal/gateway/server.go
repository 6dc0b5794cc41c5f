// Package gateway serves the thin HTTP routes between the web client and the
// analysis backend.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/provider"
	"github.com/spigell/interview-coach/internal/ratelimit"
)

const (
	defaultService = "interview-coach"
	bodyLimit      = 4 * 1024 * 1024
)

type Options struct {
	Provider provider.Provider
	Verifier *identity.Verifier
	// Limiter guards analysis creation. Nil means an in-memory limiter.
	Limiter ratelimit.Limiter
	Logger  *zap.Logger

	// AllowOrigins is passed to the cors middleware. Empty means "*".
	AllowOrigins string
	Service      string
	Cache        CacheTTL
}

type Server struct {
	app       *fiber.App
	provider  provider.Provider
	verifier  *identity.Verifier
	limiter   ratelimit.Limiter
	cache     *records
	validator *validator.Validate
	logger    *zap.Logger
	service   string
}

func New(opts Options) (*Server, error) {
	if opts.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.Service) == "" {
		opts.Service = defaultService
	}
	if strings.TrimSpace(opts.AllowOrigins) == "" {
		opts.AllowOrigins = "*"
	}

	s := &Server{
		provider:  opts.Provider,
		verifier:  opts.Verifier,
		limiter:   opts.Limiter,
		cache:     newRecords(opts.Cache),
		validator: validator.New(),
		logger:    opts.Logger,
		service:   opts.Service,
	}

	app := fiber.New(fiber.Config{
		AppName:               opts.Service,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + HeaderRequestID,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(s.requestID)

	s.registerRoutes(app)
	s.app = app

	return s, nil
}

func (s *Server) registerRoutes(app *fiber.App) {
	app.Get("/health", s.health)

	api := app.Group("/api", s.authenticate)
	api.Post("/analysis", s.createAnalysis)
	api.Get("/analysis/:id", s.getAnalysis)
	api.Get("/analyses", s.listAnalyses)
	api.Post("/interview", s.generateInterview)
	api.Post("/interview/followup", s.followup)
	api.Get("/interview/:id", s.getInterview)
	api.Post("/feedback", s.analyzeFeedback)
	api.Get("/feedback/:id", s.getFeedback)
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("gateway listening", zap.String("addr", addr), zap.String("service", s.service))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": s.service})
}
