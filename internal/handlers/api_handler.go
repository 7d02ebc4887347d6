package handlers

import (
	"errors"
	"fmt"
	"log"

	"cafewifi/internal/forms"
	"cafewifi/internal/middleware"
	"cafewifi/internal/models"
	"cafewifi/internal/services"

	"github.com/gofiber/fiber/v2"
)

// APIHandler serves the JSON API under /api/v1.
type APIHandler struct {
	cafes    *services.CafeService
	auth     *services.AuthService
	validate *forms.Validator
	policy   services.DeletePolicy
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(cafes *services.CafeService, auth *services.AuthService, validate *forms.Validator, policy services.DeletePolicy) *APIHandler {
	return &APIHandler{
		cafes:    cafes,
		auth:     auth,
		validate: validate,
		policy:   policy,
	}
}

// RegisterRoutes registers the API routes on router.
func (h *APIHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/cafes", h.HandleListCafes)
	router.Get("/cafes/:id", h.HandleGetCafe)
	router.Post("/auth/token", h.HandleIssueToken)
	router.Delete("/cafes/:id", middleware.AuthRequired(h.auth), h.HandleDeleteCafe)
}

// CafeResponse is the JSON form of a cafe, with ratings as both level and label.
type CafeResponse struct {
	models.Cafe
	Coffee string `json:"coffee"`
	Wifi   string `json:"wifi"`
	Power  string `json:"power"`
}

// HandleListCafes returns every cafe as JSON.
func (h *APIHandler) HandleListCafes(c *fiber.Ctx) error {
	cafes, err := h.cafes.ListCafes()
	if err != nil {
		log.Printf("Error listing cafes: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cafes",
		})
	}

	resp := make([]CafeResponse, 0, len(cafes))
	for _, cafe := range cafes {
		resp = append(resp, newCafeResponse(cafe))
	}
	return c.JSON(resp)
}

func newCafeResponse(cafe models.Cafe) CafeResponse {
	return CafeResponse{
		Cafe:   cafe,
		Coffee: cafe.CoffeeLabel(),
		Wifi:   cafe.WifiLabel(),
		Power:  cafe.PowerLabel(),
	}
}

// HandleGetCafe returns a single cafe as JSON.
func (h *APIHandler) HandleGetCafe(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid cafe ID",
		})
	}

	cafe, err := h.cafes.GetCafe(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrCafeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Cafe with ID %d not found", id),
			})
		}
		log.Printf("Error getting cafe %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cafe",
		})
	}
	return c.JSON(newCafeResponse(*cafe))
}

// HandleIssueToken exchanges credentials for a bearer token.
func (h *APIHandler) HandleIssueToken(c *fiber.Ctx) error {
	var req forms.LoginForm
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if errs := req.Validate(h.validate); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errs,
		})
	}

	user, err := h.auth.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnknownEmail) || errors.Is(err, services.ErrWrongPassword) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication failed",
				"error":   err.Error(),
			})
		}
		log.Printf("Error during token login for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not authenticate",
		})
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		log.Printf("Error issuing token for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not issue token",
		})
	}
	return c.JSON(fiber.Map{"token": token})
}

// HandleDeleteCafe deletes a cafe for a token holder the delete policy allows.
func (h *APIHandler) HandleDeleteCafe(c *fiber.Ctx) error {
	if !h.policy.Allows(middleware.CurrentUser(c)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Not allowed to delete cafes",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid cafe ID",
		})
	}

	if err := h.cafes.DeleteCafe(uint(id)); err != nil {
		if errors.Is(err, services.ErrCafeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Cafe with ID %d not found", id),
			})
		}
		log.Printf("Error deleting cafe %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete cafe",
		})
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Cafe %d deleted successfully", id),
	})
}
