package middleware

import (
	"log"
	"strings"

	"cafewifi/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenAuthenticator validates API tokens and loads their users.
type TokenAuthenticator interface {
	ValidateToken(token string) (uint, error)
	UserByID(id uint) (*models.User, error)
}

// AuthRequired is a Fiber middleware to check for a valid JWT bearer token.
func AuthRequired(auth TokenAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		user, err := auth.UserByID(userID)
		if err != nil {
			log.Printf("Token refers to unknown user %d: %v", userID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		SetCurrentUser(c, user)
		return c.Next()
	}
}
