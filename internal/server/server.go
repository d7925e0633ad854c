// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "pariposhan/docs" // swagger docs
	"pariposhan/internal/cache"
	"pariposhan/internal/config"
	"pariposhan/internal/database"
	"pariposhan/internal/featureflags"
	"pariposhan/internal/middleware"
	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/policy"
	"pariposhan/internal/repository"
	"pariposhan/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	verifier       middleware.TokenVerifier
	tickets        *ticketStore
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	itemService       *service.ItemService
	commentService    *service.CommentService
	reactionService   *service.ReactionService
	productService    *service.ProductService
	moderationService *service.ModerationService
	consoleService    *service.ConsoleService
	reconciler        *service.CounterReconciler
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding. A nil redisClient runs the server single-node.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	itemRepo := repository.NewItemRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	productRepo := repository.NewProductRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	reportRepo := repository.NewReportRepository(db)
	counterRepo := repository.NewCounterRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("pariposhan-api"),
		verifier: middleware.TokenVerifier{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		tickets:      newTicketStore(redisClient),
		notifier:     notifications.NewNotifier(redisClient),
		hub:          notifications.NewHub(),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}

	pub := server.notifier
	server.itemService = service.NewItemService(itemRepo, reactionRepo, server.featureFlags, pub)
	server.commentService = service.NewCommentService(commentRepo, productRepo, pub)
	server.reactionService = service.NewReactionService(reactionRepo, productRepo, pub)
	server.productService = service.NewProductService(productRepo, reviewRepo, reportRepo, reactionRepo, server.featureFlags, pub)
	server.moderationService = service.NewModerationService(reportRepo, server.itemService, server.commentService, server.productService, pub)
	server.consoleService = service.NewConsoleService(itemRepo, productRepo, reportRepo)
	server.reconciler = service.NewCounterReconciler(counterRepo, cfg.ReconcileBatchSize, pub)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
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

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Pariposhan Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Catalog: public reads, viewer-aware when a token is present
	items := api.Group("/items")
	items.Get("/", s.OptionalAuth(), s.ListItems)
	items.Get("/:kind/:id/comments", s.GetComments)
	items.Get("/:kind/:id", s.OptionalAuth(), s.GetItem)
	items.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "create_item"), s.CreateItem)
	items.Post("/:kind/:id/reactions/toggle", s.AuthRequired(), middleware.RateLimit(
		s.redis, 60, time.Minute, "toggle_reaction"), s.ToggleReaction)
	items.Post("/:kind/:id/comments", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	items.Delete("/:kind/:id", s.AuthRequired(), s.DeleteItem)

	api.Delete("/comments/:id", s.AuthRequired(), s.DeleteComment)
	api.Post("/reports", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, 10*time.Minute, "file_report"), s.FileReport)

	products := api.Group("/products")
	products.Get("/", s.OptionalAuth(), s.ListProducts)
	products.Get("/:id/reviews", s.ListReviews)
	products.Get("/:id", s.OptionalAuth(), s.GetProduct)
	products.Post("/", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "submit_product"), s.SubmitProduct)
	products.Post("/:id/reviews", s.AuthRequired(), middleware.RateLimit(
		s.redis, 3, time.Minute, "submit_review"), s.SubmitReview)

	api.Get("/feature-flags", s.OptionalAuth(), s.GetFeatureFlags)

	// WebSocket ticket issuance, then the upgrade itself
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	// Moderator console
	admin := api.Group("/admin", s.AuthRequired(), middleware.RequireRole(policy.RoleModerator))
	admin.Get("/dashboard", s.GetDashboard)
	admin.Get("/reports", s.GetOpenReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)
	admin.Get("/products/pending", s.GetPendingProducts)
	admin.Post("/products/:id/approve", s.ApproveProduct)
	admin.Post("/products/:id/reject", s.RejectProduct)
	admin.Get("/content", s.GetContentIndex)
	admin.Delete("/items/:kind/:id", s.RemoveContent)
	admin.Post("/reconcile", s.RunReconcile)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", middleware.RequireRole(policy.RoleAdmin), s.SetFeatureFlag)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a
// single node without it is ready once the database answers.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "pariposhan",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"websockets": s.hub.ConnectionCount(),
		"time":       time.Now(),
	})
}

// AuthRequired returns the authentication middleware. WebSocket upgrades may
// present a single-use ticket instead of a bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// Only the upgrade path redeems tickets.
		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			p, err := s.tickets.Redeem(c.UserContext(), ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
			}
			s.attachPrincipal(c, p)
			return c.Next()
		}

		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		p, jti, err := s.verifier.Verify(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError(err.Error()))
		}

		if jti != "" && s.isRevoked(c.UserContext(), jti) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Token has been revoked"))
		}

		s.attachPrincipal(c, p)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid bearer token is present
// and otherwise continues anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return c.Next()
		}
		p, jti, err := s.verifier.Verify(tokenString)
		if err != nil || (jti != "" && s.isRevoked(c.UserContext(), jti)) {
			return c.Next()
		}
		s.attachPrincipal(c, p)
		return c.Next()
	}
}

func (s *Server) attachPrincipal(c *fiber.Ctx, p policy.Principal) {
	middleware.SetPrincipal(c, p)
	c.SetUserContext(middleware.WithPrincipal(c.UserContext(), p))
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && n > 0
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Pariposhan API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the realtime hub, starts the counter reconciler and serves
// HTTP until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	go func() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start hub wiring",
				slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
		}
	}()
	go s.reconciler.Run(s.shutdownCtx, s.config.ReconcileInterval)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops hub wiring and the reconciler loop
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
