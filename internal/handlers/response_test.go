package handlers

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"mindmail/internal/errs"
	"mindmail/internal/validation"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&validation.Error{Reason: validation.EmptyText}, fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", errs.ErrInvalidInput), fiber.StatusBadRequest},
		{fmt.Errorf("letter x: %w", errs.ErrNotFound), fiber.StatusNotFound},
		{errs.ErrPermissionDenied, fiber.StatusForbidden},
		{fmt.Errorf("%w (100)", errs.ErrMaxLettersExceeded), fiber.StatusUnprocessableEntity},
		{errs.ErrScheduledTooSoon, fiber.StatusUnprocessableEntity},
		{errs.Corrupted("k", fmt.Errorf("bad json")), fiber.StatusInternalServerError},
		{fmt.Errorf("disk full"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestNewValidator_Tags(t *testing.T) {
	v := NewValidator()
	type req struct {
		Name       string `json:"name" validate:"personname"`
		Mood       string `json:"mood" validate:"mood"`
		Recurrence string `json:"recurrence" validate:"recurrence"`
		Preset     string `json:"preset" validate:"preset"`
	}

	assert.NoError(t, v.Struct(req{Name: "Zoë", Mood: "😊", Recurrence: "daily", Preset: "custom"}))
	assert.Error(t, v.Struct(req{Name: "Zoë", Mood: "happy", Recurrence: "daily", Preset: "custom"}))
	assert.Error(t, v.Struct(req{Name: "Zoë", Mood: "mixed", Recurrence: "weekly", Preset: "custom"}))
	assert.Error(t, v.Struct(req{Name: "Zoë!", Mood: "mixed", Recurrence: "once", Preset: "one_year"}))
}
