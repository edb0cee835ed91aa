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
	"mindmail/internal/validation"
)

// JournalStore is the part of storage the JournalService needs.
type JournalStore interface {
	UpsertJournalEntry(ctx context.Context, entry models.JournalEntry) error
	LoadAllJournalEntries(ctx context.Context) ([]models.JournalEntry, error)
	LoadJournalEntry(ctx context.Context, date time.Time) (*models.JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, id string) error
}

// JournalService handles business logic related to journal entries.
type JournalService struct {
	store  JournalStore
	clock  clock.Clock
	logger *zap.Logger
}

// NewJournalService creates a new JournalService.
func NewJournalService(store JournalStore, clk clock.Clock, log *zap.Logger) *JournalService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &JournalService{store: store, clock: clk, logger: logger.OrNop(log)}
}

// SaveEntry creates the entry for in.Date's day, or rewrites the existing one
// keeping its id and creation time. Days after today are refused.
func (s *JournalService) SaveEntry(ctx context.Context, in models.JournalInput) (models.JournalEntry, error) {
	now := s.clock.Now()
	if !models.IsValidJournalDate(in.Date, now) {
		return models.JournalEntry{}, fmt.Errorf("%w: %s is in the future", errs.ErrInvalidInput, models.DateKey(in.Date))
	}

	existing, err := s.store.LoadJournalEntry(ctx, in.Date)
	if err != nil {
		return models.JournalEntry{}, err
	}

	var entry models.JournalEntry
	if existing != nil {
		entry, err = existing.Revise(in, now)
	} else {
		entry, err = models.NewJournalEntry(in, now)
	}
	if err != nil {
		return models.JournalEntry{}, err
	}

	if err := s.store.UpsertJournalEntry(ctx, entry); err != nil {
		return models.JournalEntry{}, fmt.Errorf("failed to save journal entry: %w", err)
	}
	s.logger.Info("journal entry saved",
		zap.String("id", entry.ID),
		zap.String("date", entry.DateKey()),
		zap.Bool("updated", existing != nil),
	)
	return entry, nil
}

// List returns every entry, newest day first.
func (s *JournalService) List(ctx context.Context) ([]models.JournalEntry, error) {
	return s.store.LoadAllJournalEntries(ctx)
}

// Get returns the entry for date's day or errs.ErrNotFound.
func (s *JournalService) Get(ctx context.Context, date time.Time) (*models.JournalEntry, error) {
	entry, err := s.store.LoadJournalEntry(ctx, date)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("journal entry for %s: %w", models.DateKey(date), errs.ErrNotFound)
	}
	return entry, nil
}

func (s *JournalService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteJournalEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete journal entry %s: %w", id, err)
	}
	return nil
}

// RemainingCharacters is how much room a journal answer has left.
func (s *JournalService) RemainingCharacters(text string) int {
	return validation.RemainingCharacters(text, validation.MaxTextLength)
}
