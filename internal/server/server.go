// Package server exposes the interaction service over HTTP.
package server

import (
	"context"
	"time"

	"campusfeed/internal/config"
	"campusfeed/internal/middleware"
	"campusfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// Server holds the HTTP dependencies and provides handlers.
type Server struct {
	config         *config.Config
	svc            *service.InteractionService
	redis          *redis.Client
	auth           *middleware.Auth
	promMiddleware *fiberprometheus.FiberPrometheus
}

// NewServer creates a Server. rdb may be nil; rate limiting then fails open.
func NewServer(cfg *config.Config, svc *service.InteractionService, rdb *redis.Client) *Server {
	return &Server{
		config:         cfg,
		svc:            svc,
		redis:          rdb,
		auth:           middleware.NewAuth(cfg.JWTSecret),
		promMiddleware: middleware.InitMetrics("campusfeed"),
	}
}

// NewApp returns a Fiber app with the middleware stack and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "campusfeed",
		BodyLimit:    1 * 1024 * 1024,
		Immutable:    true,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	posts := api.Group("/posts")

	// Auth runs per route so the actor is known before rate limiting.
	withActor := func(h ...fiber.Handler) []fiber.Handler {
		return append([]fiber.Handler{s.auth.Required, middleware.ContextMiddleware()}, h...)
	}
	limit := s.config.RateLimitPerMinute
	if limit <= 0 {
		limit = 30
	}
	writeLimit := middleware.RateLimit(s.redis, limit, time.Minute, "comment_write")

	posts.Post("/", withActor(middleware.RateLimit(s.redis, limit, time.Minute, "create_post"), s.CreatePost)...)
	posts.Get("/:id", s.auth.Optional, middleware.ContextMiddleware(), s.GetPost)

	posts.Post("/:id/like", withActor(s.LikePost)...)
	posts.Post("/:id/reactions", withActor(s.ToggleReaction)...)
	posts.Post("/:id/comments", withActor(writeLimit, s.AddComment)...)
	posts.Post("/:id/comments/:commentId/like", withActor(s.LikeComment)...)
	posts.Post("/:id/comments/:commentId/replies", withActor(writeLimit, s.AddReply)...)
	posts.Post("/:id/comments/:commentId/replies/:replyId/like", withActor(s.LikeReply)...)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports whether the post store and, when configured, Redis answer.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	storeStatus := "healthy"
	if err := s.svc.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	// Redis only backs the cache, events and rate limits, so it never fails readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if storeStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
		},
		"backend": s.config.StoreBackend,
	})
}
