package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"mindmail/internal/logger"
)

// OnboardingChecker reports whether onboarding has been completed.
type OnboardingChecker interface {
	IsOnboarded(ctx context.Context) (bool, error)
}

// OnboardingRequired is a Fiber middleware that rejects requests until the
// user has completed onboarding.
func OnboardingRequired(users OnboardingChecker, log *zap.Logger) fiber.Handler {
	log = logger.OrNop(log)
	return func(c *fiber.Ctx) error {
		done, err := users.IsOnboarded(c.UserContext())
		if err != nil {
			log.Error("onboarding check failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not check onboarding status",
				"error":   err.Error(),
			})
		}
		if !done {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Complete onboarding first: POST /api/v1/user",
			})
		}
		return c.Next()
	}
}
