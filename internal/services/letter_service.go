package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/errs"
	"mindmail/internal/logger"
	"mindmail/internal/models"
)

// LetterStore is the part of storage the LetterService needs.
type LetterStore interface {
	UpsertLetter(ctx context.Context, letter models.Letter) error
	LoadLetter(ctx context.Context, id string) (*models.Letter, error)
	LoadAllLetters(ctx context.Context) ([]models.Letter, error)
	LoadScheduledLetters(ctx context.Context) ([]models.Letter, error)
	LoadDeliveredLetters(ctx context.Context) ([]models.Letter, error)
	PendingLetterCount(ctx context.Context) (int, error)
	DeleteLetter(ctx context.Context, id string) error
}

// DeliveryScheduler registers and reconciles letter deliveries.
type DeliveryScheduler interface {
	Schedule(ctx context.Context, letter models.Letter) error
	Cancel(id string)
	Reconcile(ctx context.Context, now time.Time) ([]models.Letter, error)
	RescheduleAll(ctx context.Context) (int, error)
}

// PermissionGate answers whether future notifications may be registered.
type PermissionGate interface {
	CanSchedule(ctx context.Context) (bool, error)
}

// LetterConfig tunes letter composition. Zero values take the defaults.
type LetterConfig struct {
	BodyPolicy       models.BodyPolicy
	MinScheduleDelay time.Duration
}

// LetterService handles business logic related to letters.
type LetterService struct {
	store     LetterStore
	scheduler DeliveryScheduler
	gate      PermissionGate
	policy    models.BodyPolicy
	minDelay  time.Duration
	clock     clock.Clock
	logger    *zap.Logger
}

// NewLetterService creates a new LetterService.
func NewLetterService(store LetterStore, scheduler DeliveryScheduler, gate PermissionGate, cfg LetterConfig, clk clock.Clock, log *zap.Logger) *LetterService {
	if cfg.BodyPolicy == (models.BodyPolicy{}) {
		cfg.BodyPolicy = models.DefaultBodyPolicy()
	}
	if cfg.MinScheduleDelay < models.MinScheduleDelay {
		cfg.MinScheduleDelay = models.MinScheduleDelay
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &LetterService{
		store:     store,
		scheduler: scheduler,
		gate:      gate,
		policy:    cfg.BodyPolicy,
		minDelay:  cfg.MinScheduleDelay,
		clock:     clk,
		logger:    logger.OrNop(log),
	}
}

// Compose validates draft, saves the letter and schedules its delivery.
// Nothing is saved when notifications are not permitted. A scheduling
// failure after the save is logged and the letter is kept; reconcile will
// deliver it on time.
func (s *LetterService) Compose(ctx context.Context, draft models.LetterDraft) (models.Letter, error) {
	if s.gate != nil {
		allowed, err := s.gate.CanSchedule(ctx)
		if err != nil {
			return models.Letter{}, fmt.Errorf("permission check: %w", err)
		}
		if !allowed {
			return models.Letter{}, errs.ErrPermissionDenied
		}
	}

	now := s.clock.Now()
	letter, err := models.NewLetter(draft, s.policy, now)
	if err != nil {
		return models.Letter{}, err
	}
	if letter.ScheduledDate.Sub(now) < s.minDelay {
		return models.Letter{}, errs.ErrScheduledTooSoon
	}

	if err := s.store.UpsertLetter(ctx, letter); err != nil {
		return models.Letter{}, fmt.Errorf("failed to save letter: %w", err)
	}

	if err := s.scheduler.Schedule(ctx, letter); err != nil {
		s.logger.Error("letter saved but not scheduled", zap.String("id", letter.ID), zap.Error(err))
	}
	return letter, nil
}

// Get returns the letter with id or errs.ErrNotFound.
func (s *LetterService) Get(ctx context.Context, id string) (*models.Letter, error) {
	letter, err := s.store.LoadLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	if letter == nil {
		return nil, fmt.Errorf("letter %s: %w", id, errs.ErrNotFound)
	}
	return letter, nil
}

func (s *LetterService) All(ctx context.Context) ([]models.Letter, error) {
	return s.store.LoadAllLetters(ctx)
}

// Scheduled returns undelivered letters, soonest first.
func (s *LetterService) Scheduled(ctx context.Context) ([]models.Letter, error) {
	return s.store.LoadScheduledLetters(ctx)
}

// Delivered returns the inbox, most recently delivered first.
func (s *LetterService) Delivered(ctx context.Context) ([]models.Letter, error) {
	return s.store.LoadDeliveredLetters(ctx)
}

func (s *LetterService) PendingCount(ctx context.Context) (int, error) {
	return s.store.PendingLetterCount(ctx)
}

// Delete cancels the letter's trigger and removes it.
func (s *LetterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	s.scheduler.Cancel(id)
	if err := s.store.DeleteLetter(ctx, id); err != nil {
		return fmt.Errorf("failed to delete letter %s: %w", id, err)
	}
	s.logger.Info("letter deleted", zap.String("id", id))
	return nil
}

// Reconcile delivers every letter whose time has come.
func (s *LetterService) Reconcile(ctx context.Context) ([]models.Letter, error) {
	return s.scheduler.Reconcile(ctx, s.clock.Now())
}

// RescheduleAll re-registers triggers for every future letter.
func (s *LetterService) RescheduleAll(ctx context.Context) (int, error) {
	return s.scheduler.RescheduleAll(ctx)
}

// DefaultDeliveryDate is where a new letter's date picker starts.
func (s *LetterService) DefaultDeliveryDate() time.Time {
	return models.DefaultDeliveryDate(s.clock.Now())
}

// DeliveryDateFor resolves a preset against today. The custom preset falls
// back to DefaultDeliveryDate.
func (s *LetterService) DeliveryDateFor(p models.TimePreset) time.Time {
	if p == "" || p == models.PresetCustom {
		return s.DefaultDeliveryDate()
	}
	return p.FutureDate(s.clock.Now())
}
