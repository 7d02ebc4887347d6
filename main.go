package main

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"cafewifi/internal/config"
	"cafewifi/internal/database"
	"cafewifi/internal/forms"
	"cafewifi/internal/handlers"
	"cafewifi/internal/middleware"
	"cafewifi/internal/repositories"
	"cafewifi/internal/services"
	"cafewifi/internal/sessions"
	"cafewifi/internal/views"
	"cafewifi/pkg/rabbitmq"
)

const csrfCookieName = "csrf_"

// App is the assembled web application and the resources it owns.
type App struct {
	Fiber *fiber.App
	Auth  *services.AuthService
	Cafes *services.CafeService

	db *gorm.DB
	mq *rabbitmq.Client
}

// NewApp connects to the database (and broker, when configured) and wires
// repositories, services, sessions and routes into a Fiber app.
func NewApp(cfg config.Config) (*App, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		closeDB(db)
		return nil, err
	}

	a := &App{db: db}

	// A nil *rabbitmq.Client must not end up inside the interface.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		a.mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			closeDB(db)
			return nil, err
		}
		publisher = a.mq
	}

	cafeRepo := repositories.NewGORMCafeRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	a.Cafes = services.NewCafeService(cafeRepo, publisher)
	a.Auth = services.NewAuthService(userRepo, cfg.JWTSecret, cfg.BcryptCost)

	sm := sessions.NewManager(sessions.Config{
		Expiration:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
	})
	validate := forms.NewValidator()
	policy := services.DeletePolicy{Mode: cfg.DeletePolicy, AdminEmail: cfg.AdminEmail}

	cafeHandler := handlers.NewCafeHandler(a.Cafes, sm, validate, policy)
	authHandler := handlers.NewAuthHandler(a.Auth, sm, validate)
	apiHandler := handlers.NewAPIHandler(a.Cafes, a.Auth, validate, policy)

	app := fiber.New(fiber.Config{
		AppName:      "Coffee & Wifi",
		Views:        views.New(),
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(encryptcookie.New(encryptcookie.Config{
		Key:    cookieKey(cfg.SecretKey),
		Except: []string{csrfCookieName},
	}))
	if cfg.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			Next:           isAPIRequest,
			KeyLookup:      "form:_csrf",
			CookieName:     csrfCookieName,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
			CookieHTTPOnly: true,
			CookieSecure:   cfg.CookieSecure,
			Expiration:     time.Hour,
			ContextKey:     handlers.CSRFContextKey,
		}))
	}

	// --- Health Check Endpoint ---
	app.Get("/health", a.handleHealth)

	// --- API Routes ---
	apiHandler.RegisterRoutes(app.Group("/api/v1"))

	// --- Pages ---
	pages := app.Group("", middleware.LoadUser(sm, a.Auth))
	cafeHandler.RegisterRoutes(pages)
	authHandler.RegisterRoutes(pages)

	a.Fiber = app
	return a, nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := "healthy"
	code := fiber.StatusOK
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.Ping() != nil {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"time":     time.Now().Format(time.RFC3339),
		"rabbitMQ": a.mq != nil,
	})
}

// Close releases the broker connection and the database pool.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	errs = append(errs, database.Close(a.db))
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) {
	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

func isAPIRequest(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// cookieKey derives the AES-256 cookie encryption key from the configured secret.
func cookieKey(secret string) string {
	sum := sha256.Sum256([]byte("cookie:" + secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// errorHandler renders unexpected failures as an error page, or JSON under /api.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Something went wrong, please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Method(), c.Path(), err)
	}

	if isAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
	if renderErr := c.Status(code).Render("error", fiber.Map{"Status": code, "Message": message}); renderErr != nil {
		return c.Status(code).SendString(message)
	}
	return nil
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error releasing resources: %v", err)
		}
	}()

	if app.mq != nil {
		err := app.mq.ConsumeCafeEvents(func(event rabbitmq.CafeEvent) error {
			log.Printf("Cafe event %s: cafe %d %s at %s", event.Type, event.CafeID, event.Name, event.OccurredAt.Format(time.RFC3339))
			return nil
		})
		if err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	log.Printf("Starting server on port %s (delete policy: %s)", cfg.AppPort, cfg.DeletePolicy)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Printf("Server stopped: %v", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
}
