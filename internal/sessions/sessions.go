// Package sessions binds browser sessions to logged-in users and carries flash messages.
package sessions

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	CookieName = "cafe_session"

	userIDKey  = "user_id"
	flashesKey = "flashes"
)

// Config holds session cookie settings.
type Config struct {
	Expiration   time.Duration
	CookieSecure bool
}

// Manager wraps the fiber session store. A session is either anonymous
// or bound to exactly one user ID.
type Manager struct {
	store *session.Store
}

// NewManager creates a Manager backed by fiber's in-memory session storage.
func NewManager(cfg Config) *Manager {
	return &Manager{
		store: session.New(session.Config{
			Expiration:     cfg.Expiration,
			KeyLookup:      "cookie:" + CookieName,
			CookieHTTPOnly: true,
			CookieSecure:   cfg.CookieSecure,
			CookieSameSite: fiber.CookieSameSiteLaxMode,
		}),
	}
}

// Login binds the session to userID under a fresh session ID.
func (m *Manager) Login(c *fiber.Ctx, userID uint) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(userIDKey, userID)
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout destroys the session. It is a no-op for anonymous visitors.
func (m *Manager) Logout(c *fiber.Ctx) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Fresh() {
		return nil
	}
	if err := sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// UserID returns the user bound to the session, if any.
func (m *Manager) UserID(c *fiber.Ctx) (uint, bool) {
	sess, err := m.store.Get(c)
	if err != nil || sess.Fresh() {
		return 0, false
	}
	id, ok := sess.Get(userIDKey).(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// AddFlash queues a message to be shown on the next rendered page.
func (m *Manager) AddFlash(c *fiber.Ctx, msg string) error {
	sess, err := m.store.Get(c)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	flashes, _ := sess.Get(flashesKey).([]string)
	sess.Set(flashesKey, append(flashes, msg))
	if err := sess.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// PopFlashes returns and clears the queued messages.
func (m *Manager) PopFlashes(c *fiber.Ctx) ([]string, error) {
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	flashes, _ := sess.Get(flashesKey).([]string)
	if len(flashes) == 0 {
		return nil, nil
	}
	sess.Delete(flashesKey)
	if err := sess.Save(); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return flashes, nil
}
