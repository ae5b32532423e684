// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/princecjqlara/Tokkobeta/app/dto"
	"github.com/princecjqlara/Tokkobeta/app/handlers"
	"github.com/princecjqlara/Tokkobeta/app/middleware"
	"github.com/princecjqlara/Tokkobeta/config"
	"github.com/princecjqlara/Tokkobeta/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app             *fiber.App
	cfg             *config.ProductionConfig
	authMiddleware  *middleware.AuthMiddleware
	authHandler     handlers.AuthHandlerInterface
	pageHandler     handlers.PageHandlerInterface
	contactHandler  handlers.ContactHandlerInterface
	tagHandler      handlers.TagHandlerInterface
	campaignHandler handlers.CampaignHandlerInterface
	messageHandler  handlers.MessageHandlerInterface
	webhookHandler  handlers.WebhookHandlerInterface
	cronHandler     handlers.CronHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	authHandler handlers.AuthHandlerInterface,
	pageHandler handlers.PageHandlerInterface,
	contactHandler handlers.ContactHandlerInterface,
	tagHandler handlers.TagHandlerInterface,
	campaignHandler handlers.CampaignHandlerInterface,
	messageHandler handlers.MessageHandlerInterface,
	webhookHandler handlers.WebhookHandlerInterface,
	cronHandler handlers.CronHandlerInterface,
) Router {
	// Configure Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Tokkobeta API",
		ServerHeader: "Tokkobeta",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:             app,
		cfg:             cfg,
		authMiddleware:  authMiddleware,
		authHandler:     authHandler,
		pageHandler:     pageHandler,
		contactHandler:  contactHandler,
		tagHandler:      tagHandler,
		campaignHandler: campaignHandler,
		messageHandler:  messageHandler,
		webhookHandler:  webhookHandler,
		cronHandler:     cronHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Prometheus scrape endpoint
	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.PrometheusPath
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.authHandler.Health)

	// Messenger webhook, Facebook authenticates with its own signature
	api.Get("/facebook/webhook", r.webhookHandler.VerifyWebhook)
	api.Post("/facebook/webhook", r.webhookHandler.ReceiveWebhook)

	// Cron sweep, authorized by the shared cron secret. GET is registered too
	// because some hosted cron providers only issue GET requests.
	api.Get("/cron/sync", r.cronHandler.SyncAllPages)
	api.Post("/cron/sync", r.cronHandler.SyncAllPages)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks and webhook deliveries
			return c.Path() == "/api/v1/health" || c.Path() == "/api/v1/facebook/webhook"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth")

	// Apply stricter rate limiting to auth endpoints
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))

	// Auth endpoints
	auth.Post("/login", r.authHandler.Login)
	auth.Post("/refresh", r.authHandler.RefreshToken)
	auth.Post("/logout", r.authHandler.Logout)

	// Everything below requires a valid session
	protected := api.Group("", r.authMiddleware.Authenticate())

	// Page endpoints
	protected.Get("/pages", r.pageHandler.ListPages)
	protected.Get("/facebook/pages", r.pageHandler.ListFacebookPages)
	protected.Post("/facebook/connect", r.pageHandler.ConnectPage)
	protected.Post("/pages/:pageId/sync", r.pageHandler.SyncPage)
	protected.Get("/pages/:pageId/sync", r.pageHandler.LastSyncResult)

	// Contact endpoints
	protected.Get("/pages/:pageId/contacts", r.contactHandler.ListContacts)
	protected.Get("/pages/:pageId/contacts/export", r.contactHandler.ExportContacts)
	protected.Delete("/pages/:pageId/contacts/bulk", r.contactHandler.BulkDeleteContacts)
	protected.Post("/pages/:pageId/contacts/bulk-add-tags", r.contactHandler.BulkAddTags)
	protected.Post("/pages/:pageId/contacts/bulk-remove-tags", r.contactHandler.BulkRemoveTags)

	// Tag endpoints
	protected.Get("/tags", r.tagHandler.ListTags)
	protected.Post("/tags", r.tagHandler.CreateTag)
	protected.Put("/tags/:tagId", r.tagHandler.UpdateTag)
	protected.Delete("/tags/:tagId", r.tagHandler.DeleteTag)
	protected.Post("/tags/bulk-delete", r.tagHandler.BulkDeleteTags)

	// Campaign endpoints
	protected.Get("/campaigns", r.campaignHandler.ListCampaigns)
	protected.Post("/campaigns", r.campaignHandler.CreateCampaign)
	protected.Get("/campaigns/:campaignId", r.campaignHandler.GetCampaign)
	protected.Put("/campaigns/:campaignId", r.campaignHandler.UpdateCampaign)
	protected.Delete("/campaigns/:campaignId", r.campaignHandler.DeleteCampaign)
	protected.Post("/campaigns/:campaignId/send", r.campaignHandler.SendCampaign)
	protected.Post("/campaigns/:campaignId/cancel", r.campaignHandler.CancelCampaign)

	// Ad-hoc message delivery
	protected.Post("/facebook/messages/send", r.messageHandler.SendMessages)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000, // 1 year
		HSTSExcludeSubdomains: false,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           utils.CORSMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for spreadsheet downloads, XLSX is already deflated
			return strings.Contains(c.Path(), "/export")
		},
	}))

	// Prometheus HTTP metrics
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks in production
			return c.Path() == "/api/v1/health"
		},
	}))

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
