// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"solcast/internal/cache"
	"solcast/internal/config"
	"solcast/internal/database"
	"solcast/internal/featureflags"
	"solcast/internal/livekit"
	"solcast/internal/middleware"
	"solcast/internal/models"
	"solcast/internal/paypal"
	"solcast/internal/repository"
	"solcast/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MediaClient is everything the server needs from the media service: the
// active-room directory plus ingress/token provisioning. *livekit.Client
// satisfies it.
type MediaClient interface {
	service.RoomDirectory
	service.MediaProvisioner
}

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	app    *fiber.App
	media  MediaClient

	userRepo    repository.UserRepository
	streamRepo  repository.StreamRepository
	followRepo  repository.FollowRepository
	blockRepo   repository.BlockRepository
	chatRepo    repository.ChatRepository
	solcitoRepo repository.SolcitoRepository

	catalogService *service.CatalogService
	chatService    *service.ChatService
	streamService  *service.StreamService
	solcitoService *service.SolcitoService

	featureFlags *featureflags.Manager
}

// NewServer creates a server instance with all dependencies built from config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	media := livekit.NewClient(cfg.LiveKitAPIURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	processor := paypal.NewClient(cfg.PayPalAPIBase, cfg.PayPalClientID, cfg.PayPalClientSecret)

	return NewServerWithDeps(cfg, db, cache.GetClient(), media, processor)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it to swap the media and payment collaborators for fakes.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, media MediaClient, processor service.PaymentProcessor) (*Server, error) {
	middleware.InitMiddleware(cfg)
	middleware.InitAuthRedis(redisClient)

	server := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		media:        media,
		userRepo:     repository.NewUserRepository(db),
		streamRepo:   repository.NewStreamRepository(db),
		followRepo:   repository.NewFollowRepository(db),
		blockRepo:    repository.NewBlockRepository(db),
		chatRepo:     repository.NewChatRepository(db),
		solcitoRepo:  repository.NewSolcitoRepository(db),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}

	server.catalogService = service.NewCatalogService(media, server.streamRepo, server.followRepo, server.blockRepo)
	server.chatService = service.NewChatService(server.chatRepo, server.streamRepo, server.userRepo,
		server.followRepo, server.blockRepo, server.solcitoRepo)
	server.streamService = service.NewStreamService(server.streamRepo, server.userRepo, media)
	server.solcitoService = service.NewSolcitoService(server.solcitoRepo, server.userRepo, processor, cfg.AppURL)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.MetricsMiddleware())
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())
	app.Use(middleware.TracingMiddleware())

	// CORS before anything that can short-circuit, so browser clients still
	// get CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	middleware.InitMetrics(app, "solcast-api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Solcast Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)

	// Catalog: public, personalized when a token is present
	catalog := api.Group("/catalog", middleware.OptionalAuth)
	catalog.Get("/", s.GetCatalog)
	catalog.Get("/categories", s.GetCategories)
	catalog.Get("/categories/:name", s.GetCategoryByName)

	// Feature flags for the current viewer
	api.Get("/feature-flags", middleware.OptionalAuth, s.GetFeatureFlags)

	// Public chat read; polled by viewers every couple of seconds
	api.Get("/streams/:id/chat", middleware.OptionalAuth, s.GetChatFeed)

	// Viewer playback token; anonymous viewers get a generated identity
	api.Get("/livekit/token", middleware.OptionalAuth, s.GetViewerToken)

	// Storefront catalog and capture redirect are public
	api.Get("/solcitos/packages", s.GetSolcitoPackages)
	api.Get("/payments/paypal/success", s.PayPalSuccess)

	// Own profile must be registered before the generic :username channel
	// route or "me" would be treated as a username.
	api.Get("/users/me", middleware.AuthRequired, s.GetMyProfile)

	// Public channel pages
	api.Get("/users/:username", middleware.OptionalAuth, s.GetChannel)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Put("/me", s.UpdateMyProfile)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Post("/:id/block", s.BlockUser)
	users.Delete("/:id/block", s.UnblockUser)

	streams := protected.Group("/streams")
	streams.Put("/me", s.UpdateMyStream)
	streams.Post("/:id/chat", middleware.RateLimit(
		s.redis, 30, time.Minute, "stream_chat"), s.SendChatMessage)
	streams.Delete("/:id/chat/messages/:messageId", s.DeleteChatMessage)
	streams.Delete("/:id/chat", s.ClearChat)
	streams.Patch("/:id/chat/settings", s.UpdateChatSettings)

	protected.Post("/become-streamer", s.BecomeStreamer)

	solcitos := protected.Group("/solcitos")
	solcitos.Get("/balance", s.GetSolcitoBalance)
	solcitos.Get("/transactions", s.GetSolcitoTransactions)
	solcitos.Post("/gift", s.GiftSolcitos)

	protected.Post("/payments/paypal/orders", s.CreatePayPalOrder)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// GetFeatureFlags returns configured feature flags and evaluated state for the
// current viewer.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "Solcast API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.ErrorContext(c.UserContext(), "unhandled request error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	slog.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "error", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
