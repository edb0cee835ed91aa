package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mindmail/internal/logger"
	"mindmail/internal/services"
)

// UserHandler handles HTTP requests for onboarding and the user's data.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, validate *validator.Validate, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validate,
		logger:   logger.OrNop(log),
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/user", h.HandleOnboard)
	router.Get("/user", h.HandleGetUser)
	router.Delete("/data", h.HandleClearData)
}

// OnboardRequest represents the request body for onboarding.
type OnboardRequest struct {
	Name string `json:"name" validate:"personname"`
}

// HandleOnboard saves the user and completes onboarding.
func (h *UserHandler) HandleOnboard(c *fiber.Ctx) error {
	var req OnboardRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.service.Onboard(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, h.logger, "Could not complete onboarding", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Welcome to MindMail",
		"user":    user,
	})
}

// HandleGetUser returns the onboarded user.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.CurrentUser(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve user", err)
	}
	return c.JSON(user)
}

// HandleClearData wipes every record and pending delivery.
func (h *UserHandler) HandleClearData(c *fiber.Ctx) error {
	if err := h.service.ClearAllData(c.UserContext()); err != nil {
		return respondError(c, h.logger, "Could not clear data", err)
	}
	return c.JSON(fiber.Map{"message": "All data cleared"})
}
