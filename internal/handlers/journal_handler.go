package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mindmail/internal/errs"
	"mindmail/internal/logger"
	"mindmail/internal/models"
	"mindmail/internal/services"
	"mindmail/internal/validation"
)

// JournalHandler handles HTTP requests for journal entries.
type JournalHandler struct {
	service  *services.JournalService
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(service *services.JournalService, validate *validator.Validate, opts Options, log *zap.Logger) *JournalHandler {
	return &JournalHandler{
		service:  service,
		validate: validate,
		opts:     opts,
		logger:   logger.OrNop(log),
	}
}

// RegisterRoutes registers the journal routes with the Fiber app.
func (h *JournalHandler) RegisterRoutes(router fiber.Router) {
	journalRoutes := router.Group("/journal")
	journalRoutes.Get("/", h.HandleListEntries)
	journalRoutes.Get("/remaining", h.HandleRemaining)
	journalRoutes.Get("/:date", h.HandleGetEntry)
	journalRoutes.Put("/:date", h.HandleSaveEntry)
	journalRoutes.Delete("/entries/:id", h.HandleDeleteEntry)
}

// JournalRequest represents the request body for saving a day's entry.
type JournalRequest struct {
	Mood           string `json:"mood" validate:"required,mood"`
	Struggle       string `json:"struggle" validate:"required"`
	Gratitude      string `json:"gratitude" validate:"required"`
	Memory         string `json:"memory" validate:"required"`
	LookingForward string `json:"looking_forward" validate:"required"`
}

// HandleListEntries retrieves all entries, newest first.
func (h *JournalHandler) HandleListEntries(c *fiber.Ctx) error {
	entries, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve journal entries", err)
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	return c.JSON(entries)
}

// HandleRemaining reports how many characters a journal answer has left,
// given the draft in ?text=.
func (h *JournalHandler) HandleRemaining(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"remaining": h.service.RemainingCharacters(h.opts.clean(c.Query("text"))),
		"max":       validation.MaxTextLength,
	})
}

// HandleGetEntry retrieves the entry for one day.
func (h *JournalHandler) HandleGetEntry(c *fiber.Ctx) error {
	day, err := models.ParseDateKey(c.Params("date"), h.opts.location())
	if err != nil {
		return respondError(c, h.logger, "Invalid date, expected YYYY-MM-DD", fmt.Errorf("%w: %v", errs.ErrInvalidInput, err))
	}

	entry, err := h.service.Get(c.UserContext(), day)
	if err != nil {
		return respondError(c, h.logger, "Could not retrieve journal entry", err)
	}
	return c.JSON(entry)
}

// HandleSaveEntry creates or replaces the entry for one day.
func (h *JournalHandler) HandleSaveEntry(c *fiber.Ctx) error {
	day, err := models.ParseDateKey(c.Params("date"), h.opts.location())
	if err != nil {
		return respondError(c, h.logger, "Invalid date, expected YYYY-MM-DD", fmt.Errorf("%w: %v", errs.ErrInvalidInput, err))
	}

	var req JournalRequest
	if ok, err := bind(c, h.validate, &req); !ok {
		return err
	}
	mood, err := models.ParseMood(req.Mood)
	if err != nil {
		return respondError(c, h.logger, "Invalid mood", err)
	}

	entry, err := h.service.SaveEntry(c.UserContext(), models.JournalInput{
		Date:           day,
		Mood:           mood,
		Struggle:       h.opts.clean(req.Struggle),
		Gratitude:      h.opts.clean(req.Gratitude),
		Memory:         h.opts.clean(req.Memory),
		LookingForward: h.opts.clean(req.LookingForward),
	})
	if err != nil {
		return respondError(c, h.logger, "Could not save journal entry", err)
	}
	return c.JSON(entry)
}

// HandleDeleteEntry deletes an entry by its ID.
func (h *JournalHandler) HandleDeleteEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return respondError(c, h.logger, "Could not delete journal entry", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Journal entry %s deleted", id),
	})
}
