// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Geometrically/fabricate/internal/cache"
	"github.com/Geometrically/fabricate/internal/config"
	"github.com/Geometrically/fabricate/internal/database"
	"github.com/Geometrically/fabricate/internal/filehost"
	"github.com/Geometrically/fabricate/internal/middleware"
	"github.com/Geometrically/fabricate/internal/models"
	"github.com/Geometrically/fabricate/internal/observability"
	"github.com/Geometrically/fabricate/internal/repository"
	"github.com/Geometrically/fabricate/internal/search"
	"github.com/Geometrically/fabricate/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const indexQueueCapacity = 256

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	host           filehost.FileHost
	index          search.Index
	queue          *search.Queue
	traceShutdown  func(context.Context) error

	projectRepo      repository.ProjectRepository
	versionRepo      repository.VersionRepository
	teamRepo         repository.TeamRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	reportRepo       repository.ReportRepository
	lookupRepo       repository.LookupRepository

	projectService      *service.ProjectService
	versionService      *service.VersionService
	teamService         *service.TeamService
	userService         *service.UserService
	notificationService *service.NotificationService
	reportService       *service.ReportService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	host, err := filehost.NewLocalHost(cfg.FileHostPath)
	if err != nil {
		return nil, fmt.Errorf("file host init failed: %w", err)
	}

	index, err := search.NewMeiliIndex(cfg.MeilisearchURL, cfg.MeilisearchKey)
	if err != nil {
		return nil, fmt.Errorf("search index init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, host, index)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis/blob-store
// and optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, host filehost.FileHost, index search.Index) (*Server, error) {
	middleware.InitMiddleware(cfg)

	traceShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "fabricate-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampler,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	lookupRepo := repository.NewLookupRepository(db)
	projectRepo := repository.NewProjectRepository(db, lookupRepo)
	versionRepo := repository.NewVersionRepository(db, lookupRepo)
	teamRepo := repository.NewTeamRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	reportRepo := repository.NewReportRepository(db, lookupRepo)

	prom := fiberprometheus.New("fabricate-api")
	queue := search.NewQueue(index, middleware.Logger, indexQueueCapacity)

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   prom,
		traceShutdown:    traceShutdown,
		host:             host,
		index:            index,
		queue:            queue,
		projectRepo:      projectRepo,
		versionRepo:      versionRepo,
		teamRepo:         teamRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		reportRepo:       reportRepo,
		lookupRepo:       lookupRepo,
	}

	server.projectService = service.NewProjectService(
		projectRepo, versionRepo, teamRepo, userRepo, lookupRepo,
		host, index, queue, cfg.CDNURL, middleware.Logger,
	)
	server.versionService = service.NewVersionService(
		versionRepo, projectRepo, teamRepo, lookupRepo,
		host, cfg.CDNURL, cfg.DownloadPepper, middleware.Logger,
	)
	server.teamService = service.NewTeamService(teamRepo, userRepo, notificationRepo)
	server.userService = service.NewUserService(userRepo, projectRepo, teamRepo)
	server.notificationService = service.NewNotificationService(notificationRepo)
	server.reportService = service.NewReportService(reportRepo, projectRepo, versionRepo, userRepo, lookupRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// OpenTelemetry server spans; runs before ContextMiddleware so the span
	// context reaches the service layers.
	app.Use(middleware.Tracing())

	// Resolve bearer tokens to a caller identity everywhere; route groups
	// that need a caller enforce it with AuthRequired.
	app.Use(middleware.OptionalAuth)

	// Context middleware to propagate request ID and caller
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api/v1")

	// Tag routes (lookup-table listings, public)
	tag := api.Group("/tag")
	tag.Get("/category", s.GetCategories)
	tag.Get("/loader", s.GetLoaders)
	tag.Get("/game_version", s.GetGameVersions)
	tag.Get("/license", s.GetLicenses)
	tag.Get("/donation_platform", s.GetDonationPlatforms)
	tag.Get("/report_type", s.GetReportTypes)

	// Project routes. Public reads resolve visibility from the optional
	// caller; creation is rate limited per user.
	api.Get("/projects", s.GetProjects)
	api.Post("/project", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "create_project"), s.CreateProject)
	project := api.Group("/project")
	project.Get("/:id/version", s.GetProjectVersions)
	project.Post("/:id/version", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "create_version"), s.CreateVersion)
	project.Patch("/:id/icon", middleware.AuthRequired, s.SetProjectIcon)
	project.Post("/:id/follow", middleware.AuthRequired, s.FollowProject)
	project.Delete("/:id/follow", middleware.AuthRequired, s.UnfollowProject)
	project.Get("/:id", s.GetProject)
	project.Patch("/:id", middleware.AuthRequired, s.EditProject)
	project.Delete("/:id", middleware.AuthRequired, s.DeleteProject)

	// Version routes
	api.Get("/versions", s.GetVersions)
	version := api.Group("/version")
	version.Post("/:id/download", s.RecordDownload)
	version.Post("/:id/file", middleware.AuthRequired, s.AddVersionFile)
	version.Get("/:id", s.GetVersion)
	version.Patch("/:id", middleware.AuthRequired, s.EditVersion)
	version.Delete("/:id", middleware.AuthRequired, s.DeleteVersion)

	// File-hash routes (sha1 by default, sha512 via ?algorithm=)
	versionFile := api.Group("/version_file")
	versionFile.Get("/:hash", s.GetVersionByHash)
	versionFile.Delete("/:hash", middleware.AuthRequired, s.DeleteFileByHash)

	// Team routes
	team := api.Group("/team")
	team.Get("/:id/members", s.GetTeamMembers)
	team.Post("/:id/members", middleware.AuthRequired, s.AddTeamMember)
	team.Patch("/:id/members/:userId", middleware.AuthRequired, s.EditTeamMember)
	team.Delete("/:id/members/:userId", middleware.AuthRequired, s.RemoveTeamMember)
	team.Post("/:id/join", middleware.AuthRequired, s.JoinTeam)

	// User routes. Specific /user/:id/:resource routes and the literal
	// /user/follows route come before the generic /user/:id.
	api.Get("/users", s.GetUsers)
	user := api.Group("/user")
	user.Get("/", middleware.AuthRequired, s.GetCurrentUser)
	user.Get("/follows", middleware.AuthRequired, s.GetFollowedProjects)
	user.Get("/:id/projects", s.GetUserProjects)
	user.Get("/:id/teams", s.GetUserTeams)
	user.Get("/:id", s.GetUser)
	user.Patch("/:id", middleware.AuthRequired, s.EditUser)

	// Notification routes (always scoped to the caller)
	api.Get("/notifications", middleware.AuthRequired, s.GetNotifications)
	notification := api.Group("/notification", middleware.AuthRequired)
	notification.Get("/:id", s.GetNotification)
	notification.Patch("/:id", s.MarkNotificationRead)
	notification.Delete("/:id", s.DeleteNotification)

	// Report routes
	api.Post("/report", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "create_report"), s.CreateReport)
	api.Get("/report", middleware.AuthRequired, middleware.ModeratorRequired, s.GetReports)
	api.Delete("/report/:id", middleware.AuthRequired, s.DeleteReport)

	// Moderation routes
	moderation := api.Group("/moderation", middleware.AuthRequired, middleware.ModeratorRequired)
	moderation.Get("/projects", s.GetModerationProjects)
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

	// Redis is a soft dependency: caching and rate limiting degrade without
	// it, so its state is reported but does not flip readiness.
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

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Fabricate API",
		BodyLimit: 512 * 1024 * 1024, // mod files can be large
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fiberErr, ok := err.(*fiber.Error); ok {
				return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message})
			}
			return models.RespondWithError(c, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	s.queue.Start()

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Drain pending index writes before closing connections.
	if s.queue != nil {
		s.queue.Stop()
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	if s.traceShutdown != nil {
		if terr := s.traceShutdown(ctx); terr != nil {
			log.Printf("error shutting down tracer: %v", terr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
