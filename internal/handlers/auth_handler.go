package handlers

import (
	"errors"
	"log"

	"cafewifi/internal/forms"
	"cafewifi/internal/services"
	"cafewifi/internal/sessions"

	"github.com/gofiber/fiber/v2"
)

const (
	msgUnknownEmail  = "That email does not exist, please try again."
	msgWrongPassword = "Password incorrect, please try again."
	msgEmailTaken    = "You've already signed up with that email, log in instead!"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *sessions.Manager
	validate    *forms.Validator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, sm *sessions.Manager, validate *forms.Validator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sm,
		validate:    validate,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/login", h.HandleLoginForm)
	router.Post("/login", h.HandleLogin)
	router.Get("/logout", h.HandleLogout)
	router.Get("/register", h.HandleRegisterForm)
	router.Post("/register", h.HandleRegister)
}

// HandleLoginForm renders the login form.
func (h *AuthHandler) HandleLoginForm(c *fiber.Ctx) error {
	return h.renderLogin(c, fiber.StatusOK, forms.LoginForm{}, nil)
}

// HandleLogin authenticates the submitted credentials and logs the session in.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var form forms.LoginForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing login form: %v", err)
		return h.renderLogin(c, fiber.StatusBadRequest, form, nil, "The form could not be read, please try again.")
	}
	if errs := form.Validate(h.validate); len(errs) > 0 {
		return h.renderLogin(c, fiber.StatusUnprocessableEntity, form, errs)
	}

	user, err := h.authService.Authenticate(form.Email, form.Password)
	switch {
	case errors.Is(err, services.ErrUnknownEmail):
		return h.renderLogin(c, fiber.StatusUnauthorized, form, nil, msgUnknownEmail)
	case errors.Is(err, services.ErrWrongPassword):
		return h.renderLogin(c, fiber.StatusUnauthorized, form, nil, msgWrongPassword)
	case err != nil:
		log.Printf("Error during login for %s: %v", form.Email, err)
		return err
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		log.Printf("Error starting session for user %d: %v", user.ID, err)
		return err
	}
	return c.Redirect("/cafes")
}

func (h *AuthHandler) renderLogin(c *fiber.Ctx, status int, form forms.LoginForm, errs forms.FieldErrors, msgs ...string) error {
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	form.Password = ""
	return render(c, h.sessions, status, "login", fiber.Map{"Form": form, "Errors": errs}, msgs...)
}

// HandleLogout ends the session. Anonymous visitors are simply redirected.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		log.Printf("Error ending session: %v", err)
	}
	return c.Redirect("/cafes")
}

// HandleRegisterForm renders the registration form.
func (h *AuthHandler) HandleRegisterForm(c *fiber.Ctx) error {
	return h.renderRegister(c, fiber.StatusOK, forms.RegisterForm{}, nil)
}

// HandleRegister creates the account and logs it in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var form forms.RegisterForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing register form: %v", err)
		return h.renderRegister(c, fiber.StatusBadRequest, form, nil, "The form could not be read, please try again.")
	}
	if errs := form.Validate(h.validate); len(errs) > 0 {
		return h.renderRegister(c, fiber.StatusUnprocessableEntity, form, errs)
	}

	user, err := h.authService.Register(form.Email, form.Password, form.Name)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return flashRedirect(c, h.sessions, "/login", msgEmailTaken)
		}
		log.Printf("Error registering user: %v", err)
		return err
	}

	log.Printf("Registered user %d", user.ID)
	if err := h.sessions.Login(c, user.ID); err != nil {
		log.Printf("Error starting session for user %d: %v", user.ID, err)
		return err
	}
	return c.Redirect("/cafes")
}

func (h *AuthHandler) renderRegister(c *fiber.Ctx, status int, form forms.RegisterForm, errs forms.FieldErrors, msgs ...string) error {
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	form.Password = ""
	return render(c, h.sessions, status, "register", fiber.Map{"Form": form, "Errors": errs}, msgs...)
}
