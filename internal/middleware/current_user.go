package middleware

import (
	"log"

	"cafewifi/internal/models"

	"github.com/gofiber/fiber/v2"
)

const userLocalsKey = "user"

// UserLookup resolves a user ID to its account.
type UserLookup interface {
	UserByID(id uint) (*models.User, error)
}

// SessionReader reports which user, if any, a request's session is bound to.
type SessionReader interface {
	UserID(c *fiber.Ctx) (uint, bool)
}

// LoadUser resolves the session's user on every request and stores it in the
// request locals. A missing session or a failed lookup leaves the request anonymous.
func LoadUser(sessions SessionReader, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := sessions.UserID(c); ok {
			user, err := users.UserByID(id)
			if err != nil {
				log.Printf("Session refers to unknown user %d: %v", id, err)
			} else {
				SetCurrentUser(c, user)
			}
		}
		return c.Next()
	}
}

// SetCurrentUser records the authenticated user for the rest of the request.
func SetCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(userLocalsKey, user)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalsKey).(*models.User)
	return user
}
