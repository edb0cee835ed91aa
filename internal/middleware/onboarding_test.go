package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"mindmail/internal/middleware"
)

type staticChecker struct {
	done bool
	err  error
}

func (s staticChecker) IsOnboarded(context.Context) (bool, error) {
	return s.done, s.err
}

func newApp(checker middleware.OnboardingChecker) *fiber.App {
	app := fiber.New()
	app.Get("/open", func(c *fiber.Ctx) error { return c.SendString("open") })
	protected := app.Group("", middleware.OnboardingRequired(checker, nil))
	protected.Get("/closed", func(c *fiber.Ctx) error { return c.SendString("closed") })
	return app
}

func TestOnboardingRequired(t *testing.T) {
	tests := []struct {
		name    string
		checker staticChecker
		path    string
		status  int
	}{
		{"open route", staticChecker{}, "/open", http.StatusOK},
		{"not onboarded", staticChecker{}, "/closed", http.StatusForbidden},
		{"onboarded", staticChecker{done: true}, "/closed", http.StatusOK},
		{"check fails", staticChecker{err: errors.New("corrupted")}, "/closed", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.checker).Test(httptest.NewRequest(http.MethodGet, tt.path, nil), -1)
			assert.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
