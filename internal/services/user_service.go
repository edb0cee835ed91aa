package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/errs"
	"mindmail/internal/logger"
	"mindmail/internal/models"
)

// UserStore is the part of storage the UserService needs.
type UserStore interface {
	SaveUser(ctx context.Context, user models.User) error
	LoadUser(ctx context.Context) (*models.User, error)
	SetOnboardingCompleted(ctx context.Context, done bool) error
	IsOnboardingCompleted(ctx context.Context) (bool, error)
	ClearAllData(ctx context.Context) error
}

// TriggerCanceller drops every pending delivery trigger.
type TriggerCanceller interface {
	CancelAll()
}

// UserService handles onboarding and the user's profile.
type UserService struct {
	store    UserStore
	triggers TriggerCanceller
	clock    clock.Clock
	logger   *zap.Logger
}

// NewUserService creates a new UserService. triggers may be nil.
func NewUserService(store UserStore, triggers TriggerCanceller, clk clock.Clock, log *zap.Logger) *UserService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &UserService{
		store:    store,
		triggers: triggers,
		clock:    clk,
		logger:   logger.OrNop(log),
	}
}

// Onboard validates name, saves the user and marks onboarding complete.
func (s *UserService) Onboard(ctx context.Context, name string) (models.User, error) {
	user, err := models.NewUser(name, s.clock.Now())
	if err != nil {
		return models.User{}, err
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("failed to save user: %w", err)
	}
	if err := s.store.SetOnboardingCompleted(ctx, true); err != nil {
		return models.User{}, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	s.logger.Info("user onboarded", zap.Time("created_at", user.CreatedAt))
	return user, nil
}

// CurrentUser returns the saved user or errs.ErrNotFound.
func (s *UserService) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := s.store.LoadUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user: %w", errs.ErrNotFound)
	}
	return user, nil
}

func (s *UserService) IsOnboarded(ctx context.Context) (bool, error) {
	return s.store.IsOnboardingCompleted(ctx)
}

// ClearAllData cancels pending deliveries and wipes every stored record.
func (s *UserService) ClearAllData(ctx context.Context) error {
	if s.triggers != nil {
		s.triggers.CancelAll()
	}
	if err := s.store.ClearAllData(ctx); err != nil {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	return nil
}
