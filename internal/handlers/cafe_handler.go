package handlers

import (
	"errors"
	"log"

	"cafewifi/internal/forms"
	"cafewifi/internal/middleware"
	"cafewifi/internal/models"
	"cafewifi/internal/services"
	"cafewifi/internal/sessions"

	"github.com/gofiber/fiber/v2"
)

// CafeHandler serves the landing page and the cafe pages.
type CafeHandler struct {
	service  *services.CafeService
	sessions *sessions.Manager
	validate *forms.Validator
	policy   services.DeletePolicy
}

// NewCafeHandler creates a new CafeHandler.
func NewCafeHandler(service *services.CafeService, sm *sessions.Manager, validate *forms.Validator, policy services.DeletePolicy) *CafeHandler {
	return &CafeHandler{
		service:  service,
		sessions: sm,
		validate: validate,
		policy:   policy,
	}
}

// RegisterRoutes registers the cafe routes with the Fiber app.
func (h *CafeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/", h.HandleHome)
	router.Get("/add", h.HandleAddForm)
	router.Post("/add", h.HandleAddCafe)
	router.Get("/cafes", h.HandleListCafes)
	router.Get("/delete", h.HandleDeleteCafe)
}

// HandleHome renders the landing page.
func (h *CafeHandler) HandleHome(c *fiber.Ctx) error {
	return render(c, h.sessions, fiber.StatusOK, "index", nil)
}

// HandleAddForm renders an empty cafe form.
func (h *CafeHandler) HandleAddForm(c *fiber.Ctx) error {
	return h.renderForm(c, fiber.StatusOK, forms.CafeForm{}, nil)
}

// HandleAddCafe validates the submitted form and stores the cafe.
func (h *CafeHandler) HandleAddCafe(c *fiber.Ctx) error {
	var form forms.CafeForm
	if err := c.BodyParser(&form); err != nil {
		log.Printf("Error parsing cafe form: %v", err)
		return h.renderForm(c, fiber.StatusBadRequest, form, nil, "The form could not be read, please try again.")
	}

	if errs := form.Validate(h.validate); len(errs) > 0 {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, form, errs)
	}

	cafe, err := form.Cafe()
	if err != nil {
		return h.renderForm(c, fiber.StatusUnprocessableEntity, form, nil, err.Error())
	}

	if err := h.service.AddCafe(cafe); err != nil {
		if errors.Is(err, services.ErrDuplicateName) {
			return h.renderForm(c, fiber.StatusConflict, form, nil, "A cafe called "+form.Name+" already exists.")
		}
		log.Printf("Error adding cafe %q: %v", form.Name, err)
		return err
	}

	log.Printf("Added cafe %d (%s)", cafe.ID, cafe.Name)
	return c.Redirect("/cafes")
}

func (h *CafeHandler) renderForm(c *fiber.Ctx, status int, form forms.CafeForm, errs forms.FieldErrors, msgs ...string) error {
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	return render(c, h.sessions, status, "add", fiber.Map{
		"Form":          form,
		"Errors":        errs,
		"CoffeeOptions": models.CoffeeScale.Options(),
		"WifiOptions":   models.WifiScale.Options(),
		"PowerOptions":  models.PowerScale.Options(),
	}, msgs...)
}

// HandleListCafes renders every cafe.
func (h *CafeHandler) HandleListCafes(c *fiber.Ctx) error {
	cafes, err := h.service.ListCafes()
	if err != nil {
		log.Printf("Error listing cafes: %v", err)
		return err
	}
	return render(c, h.sessions, fiber.StatusOK, "cafes", fiber.Map{
		"Cafes":     cafes,
		"CanDelete": h.policy.Allows(middleware.CurrentUser(c)),
	})
}

// HandleDeleteCafe deletes the cafe named by the id query parameter.
// Deleting a cafe that does not exist is a no-op.
func (h *CafeHandler) HandleDeleteCafe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if !h.policy.Allows(user) {
		if user == nil && h.policy.RequiresLogin() {
			return flashRedirect(c, h.sessions, "/login", "Please log in to delete cafes.")
		}
		return flashRedirect(c, h.sessions, "/cafes", "Only the admin can delete cafes.")
	}

	id := c.QueryInt("id", 0)
	if id <= 0 {
		return flashRedirect(c, h.sessions, "/cafes", "No such cafe.")
	}

	if err := h.service.DeleteCafe(uint(id)); err != nil {
		if !errors.Is(err, services.ErrCafeNotFound) {
			log.Printf("Error deleting cafe %d: %v", id, err)
			return err
		}
	} else {
		log.Printf("Deleted cafe %d", id)
	}
	return c.Redirect("/cafes")
}
