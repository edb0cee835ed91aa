package handlers

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mindmail/internal/logger"
	"mindmail/internal/models"
	"mindmail/internal/services"
)

// LetterHandler handles HTTP requests for letters.
type LetterHandler struct {
	service  *services.LetterService
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

// NewLetterHandler creates a new LetterHandler.
func NewLetterHandler(service *services.LetterService, validate *validator.Validate, opts Options, log *zap.Logger) *LetterHandler {
	return &LetterHandler{
		service:  service,
		validate: validate,
		opts:     opts,
		logger:   logger.OrNop(log),
	}
}

// RegisterRoutes registers the letter routes with the Fiber app.
func (h *LetterHandler) RegisterRoutes(router fiber.Router) {
	letterRoutes := router.Group("/letters")
	letterRoutes.Get("/", h.HandleGetLetters)
	letterRoutes.Post("/", h.HandleComposeLetter)
	letterRoutes.Post("/reconcile", h.HandleReconcile)
	letterRoutes.Post("/reschedule", h.HandleReschedule)
	letterRoutes.Get("/pending", h.HandlePendingCount)
	letterRoutes.Get("/:id", h.HandleGetLetterByID)
	letterRoutes.Delete("/:id", h.HandleDeleteLetter)
}

// ComposeRequest represents the request body for a new letter. The delivery
// date is scheduled_date when given, else the preset's date, else tomorrow
// at noon.
type ComposeRequest struct {
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	Preset        string     `json:"preset" validate:"omitempty,preset"`
	Recurrence    string     `json:"recurrence" validate:"omitempty,recurrence"`
}

// HandleGetLetters lists letters, optionally filtered by ?status=scheduled|delivered.
func (h *LetterHandler) HandleGetLetters(c *fiber.Ctx) error {
	var (
		letters []models.Letter
		err     error
	)
	switch status := c.Query("status"); status {
	case "":
		letters, err = h.service.All(c.UserContext())
	case "scheduled":
		letters, err = h.service.Scheduled(c.UserContext())
	case "delivered":
		letters, err = h.service.Delivered(c.UserContext())
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": fmt.Sprintf("Unknown status %q, expected scheduled or delivered", status),
		})
	}
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve letters", err)
	}
	if letters == nil {
		letters = []models.Letter{}
	}
	return c.JSON(letters)
}

// HandleGetLetterByID retrieves a single letter by its ID.
func (h *LetterHandler) HandleGetLetterByID(c *fiber.Ctx) error {
	letter, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve letter", err)
	}
	return c.JSON(letter)
}

// HandleComposeLetter saves and schedules a new letter.
func (h *LetterHandler) HandleComposeLetter(c *fiber.Ctx) error {
	var req ComposeRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}

	recurrence := models.RecurrenceOnce
	if req.Recurrence != "" {
		r, err := models.ParseRecurrence(req.Recurrence)
		if err != nil {
			return respondError(c, h.logger, "Invalid recurrence", err)
		}
		recurrence = r
	}

	var scheduled time.Time
	switch {
	case req.ScheduledDate != nil:
		scheduled = *req.ScheduledDate
	case req.Preset != "":
		p, err := models.ParseTimePreset(req.Preset)
		if err != nil {
			return respondError(c, h.logger, "Invalid preset", err)
		}
		scheduled = h.service.DeliveryDateFor(p)
	default:
		scheduled = h.service.DefaultDeliveryDate()
	}

	letter, err := h.service.Compose(c.UserContext(), models.LetterDraft{
		Subject:       h.opts.clean(req.Subject),
		Body:          h.opts.clean(req.Body),
		ScheduledDate: scheduled,
		Recurrence:    recurrence,
	})
	if err != nil {
		return respondError(c, h.logger, "Could not create letter", err)
	}
	return c.Status(fiber.StatusCreated).JSON(letter)
}

// HandleDeleteLetter cancels and deletes a letter.
func (h *LetterHandler) HandleDeleteLetter(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, "Could not delete letter", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Letter %s deleted", id),
	})
}

// HandleReconcile delivers every letter whose time has come.
func (h *LetterHandler) HandleReconcile(c *fiber.Ctx) error {
	delivered, err := h.service.Reconcile(c.UserContext())
	if err != nil && len(delivered) == 0 {
		return respondError(c, h.logger, "Could not reconcile letters", err)
	}
	if delivered == nil {
		delivered = []models.Letter{}
	}
	resp := fiber.Map{
		"delivered": delivered,
		"count":     len(delivered),
	}
	if err != nil {
		h.logger.Warn("reconcile partially failed", zap.Error(err))
		resp["error"] = err.Error()
	}
	return c.JSON(resp)
}

// HandlePendingCount reports how many letters are still waiting for delivery.
func (h *LetterHandler) HandlePendingCount(c *fiber.Ctx) error {
	n, err := h.service.PendingCount(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "Could not count letters", err)
	}
	return c.JSON(fiber.Map{"pending": n})
}

// HandleReschedule re-registers triggers for every future letter.
func (h *LetterHandler) HandleReschedule(c *fiber.Ctx) error {
	n, err := h.service.RescheduleAll(c.UserContext())
	if err != nil {
		if n == 0 {
			return respondError(c, h.logger, "Could not reschedule letters", err)
		}
		h.logger.Warn("reschedule partially failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"scheduled": n})
}
