package handlers

import (
	"log"

	"cafewifi/internal/middleware"
	"cafewifi/internal/sessions"

	"github.com/gofiber/fiber/v2"
)

// CSRFContextKey is the locals key the csrf middleware stores the form token under.
const CSRFContextKey = "csrf"

// render writes a page with the current user, pending flashes and CSRF token filled in.
// extra messages are shown after the queued ones.
func render(c *fiber.Ctx, sm *sessions.Manager, status int, name string, data fiber.Map, extra ...string) error {
	if data == nil {
		data = fiber.Map{}
	}
	flashes, err := sm.PopFlashes(c)
	if err != nil {
		log.Printf("Error reading flash messages: %v", err)
	}
	data["Flashes"] = append(flashes, extra...)
	data["User"] = middleware.CurrentUser(c)
	if token, ok := c.Locals(CSRFContextKey).(string); ok {
		data["CSRF"] = token
	}
	return c.Status(status).Render(name, data)
}

// flashRedirect queues msg for the next page and redirects to location.
func flashRedirect(c *fiber.Ctx, sm *sessions.Manager, location, msg string) error {
	if err := sm.AddFlash(c, msg); err != nil {
		log.Printf("Error storing flash message: %v", err)
	}
	return c.Redirect(location)
}
