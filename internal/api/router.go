package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/hookline/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/hookline/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/hookline/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/hookline/internal/dispatch"
	"github.com/saturnino-fabrica-de-software/hookline/internal/publisher"
	"github.com/saturnino-fabrica-de-software/hookline/internal/repository"
	"github.com/saturnino-fabrica-de-software/hookline/internal/stats"
)

type Dependencies struct {
	TenantRepo     *repository.TenantRepository
	WebhookRepo    *repository.WebhookRepository
	DeliveryRepo   *repository.DeliveryRepository
	EventRepo      *repository.EventRepository
	Publisher      *publisher.Publisher
	Stats          *stats.Service
	LastUsedWorker *middleware.LastUsedWorker
	DB             *pgxpool.Pool
	Dispatch       dispatch.Config
}

type Router struct {
	app          *fiber.App
	logger       *slog.Logger
	deps         *Dependencies
	rateLimiter  *middleware.RateLimiter
	pool         *dispatch.Pool
	cancelWorker context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Hookline API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var db handler.Pinger
	if r.deps != nil && r.deps.DB != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group with authentication
	v1 := r.app.Group("/v1")

	// Only configure authenticated routes if dependencies were provided
	if r.deps != nil {
		// Delivery worker pool
		sender := dispatch.NewSender()
		r.pool = dispatch.NewPool(r.deps.DeliveryRepo, r.deps.WebhookRepo, sender, r.logger, r.deps.Dispatch)

		ctx, cancel := context.WithCancel(context.Background())
		r.cancelWorker = cancel
		go r.pool.Run(ctx)

		// Auth middleware
		authDeps := middleware.AuthDependencies{
			TenantRepo: r.deps.TenantRepo,
		}
		if r.deps.LastUsedWorker != nil {
			authDeps.Tracker = r.deps.LastUsedWorker
		}
		v1.Use(middleware.Auth(authDeps))

		// Rate limiting (per tenant) - must come after auth to have tenant context
		r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		v1.Use(r.rateLimiter.Handler())

		// Event routes
		eventsHandler := handler.NewEventsHandler(r.deps.Publisher, r.deps.EventRepo, r.deps.Stats, r.logger)
		v1.Post("/events", eventsHandler.Publish)
		v1.Get("/events", eventsHandler.List)
		v1.Get("/events/:id", eventsHandler.Get)
		v1.Get("/stats/events", eventsHandler.Stats)

		// Webhook routes
		webhooksHandler := handler.NewWebhooksHandler(r.deps.WebhookRepo, r.deps.DeliveryRepo, r.deps.Stats, r.logger)
		v1.Post("/webhooks", webhooksHandler.Create)
		v1.Get("/webhooks", webhooksHandler.List)
		v1.Get("/webhooks/:id", webhooksHandler.Get)
		v1.Put("/webhooks/:id", webhooksHandler.Update)
		v1.Delete("/webhooks/:id", webhooksHandler.Delete)
		v1.Get("/webhooks/:id/deliveries", webhooksHandler.Deliveries)
		v1.Get("/webhooks/:id/stats", webhooksHandler.Stats)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop the delivery worker pool
	if r.cancelWorker != nil {
		r.cancelWorker()
	}
	if r.pool != nil {
		r.pool.Stop()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
