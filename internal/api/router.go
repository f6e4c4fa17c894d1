package api

import (
	"ledgerlens/internal/api/handlers"
	"ledgerlens/pkg/auth"
	"ledgerlens/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Account     *handlers.AccountHandler
	Document    *handlers.DocumentHandler
	Transaction *handlers.TransactionHandler
	Rule        *handlers.RuleHandler
}

func SetupRouter(
	h Handlers,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	accounts := protected.Group("/accounts")
	accounts.Post("", h.Account.CreateAccount)
	accounts.Get("", h.Account.ListAccounts)

	documents := protected.Group("/documents")
	documents.Post("/upload", h.Document.UploadDocument)
	documents.Get("", h.Document.ListDocuments)
	documents.Get("/:id", h.Document.GetDocument)
	documents.Post("/:id/confirm", h.Document.ConfirmImport)

	transactions := protected.Group("/transactions")
	transactions.Get("", h.Transaction.ListTransactions)
	transactions.Put("/:id/category", h.Transaction.UpdateCategory)

	protected.Get("/categories", h.Transaction.ListCategories)

	rules := protected.Group("/rules")
	rules.Get("", h.Rule.ListRules)
	rules.Post("", h.Rule.CreateRule)

	return app
}
