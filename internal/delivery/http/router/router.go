package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"wizesign/internal/config"
	"wizesign/internal/delivery/http/handler"
)

type Router struct {
	app             *fiber.App
	config          *config.Config
	documentHandler *handler.DocumentHandler
	healthHandler   *handler.HealthHandler
}

func NewRouter(
	cfg *config.Config,
	documentHandler *handler.DocumentHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    32 * 1024 * 1024, // intake payloads carry base64 PDFs
		ErrorHandler: customErrorHandler,
	})

	return &Router{
		app:             app,
		config:          cfg,
		documentHandler: documentHandler,
		healthHandler:   healthHandler,
	}
}

func (r *Router) Setup() *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	// Health check route
	r.app.Get("/health", r.healthHandler.Health)

	// API v1 routes
	api := r.app.Group("/api/v1")
	{
		documents := api.Group("/documents")
		{
			documents.Post("/create", r.documentHandler.Create)
			documents.Get("", r.documentHandler.List)
			documents.Get("/by-token/:token", r.documentHandler.GetByToken)
			documents.Get("/:id", r.documentHandler.Get)
			documents.Post("/:id/sign", r.documentHandler.Sign)
			documents.Get("/:id/download", r.documentHandler.Download)
			documents.Post("/:id/send-otp", r.documentHandler.SendOtp)
			documents.Post("/:id/verify-otp", r.documentHandler.VerifyOtp)
			documents.Post("/:id/send-whatsapp", r.documentHandler.SendWhatsApp)
		}
	}

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"error": fiber.Map{
			"code":    code,
			"message": err.Error(),
		},
	})
}
