package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindmail/internal/errs"
	"mindmail/internal/logger"
	"mindmail/internal/models"
	"mindmail/internal/repositories"
)

// StorageConfig tunes a StorageService. Zero values take the defaults.
type StorageConfig struct {
	Keys                repositories.Keys
	MaxScheduledLetters int
}

// StorageService persists the user, journal entries and letters as whole
// collections in a KVStore. Every mutation loads the collection, changes it
// and writes it back; a mutex keeps those cycles from interleaving.
type StorageService struct {
	kv           repositories.KVStore
	keys         repositories.Keys
	maxScheduled int
	logger       *zap.Logger

	mu sync.Mutex
}

// NewStorageService creates a new StorageService.
func NewStorageService(kv repositories.KVStore, cfg StorageConfig, log *zap.Logger) *StorageService {
	if cfg.Keys == (repositories.Keys{}) {
		cfg.Keys = repositories.NewKeys("")
	}
	if cfg.MaxScheduledLetters <= 0 {
		cfg.MaxScheduledLetters = models.MaxScheduledLetters
	}
	return &StorageService{
		kv:           kv,
		keys:         cfg.Keys,
		maxScheduled: cfg.MaxScheduledLetters,
		logger:       logger.OrNop(log),
	}
}

// Ping checks the backing store.
func (s *StorageService) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// --- User ---

// SaveUser overwrites the stored user.
func (s *StorageService) SaveUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repositories.SaveValue(ctx, s.kv, s.keys.User, user)
}

// LoadUser returns nil when no user has been saved yet.
func (s *StorageService) LoadUser(ctx context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repositories.LoadValue[models.User](ctx, s.kv, s.keys.User)
}

func (s *StorageService) SetOnboardingCompleted(ctx context.Context, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repositories.SaveValue(ctx, s.kv, s.keys.OnboardingCompleted, done)
}

// IsOnboardingCompleted is false until the flag has been saved.
func (s *StorageService) IsOnboardingCompleted(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, err := repositories.LoadValue[bool](ctx, s.kv, s.keys.OnboardingCompleted)
	if err != nil || done == nil {
		return false, err
	}
	return *done, nil
}

// --- Journal entries ---

// UpsertJournalEntry replaces any entry on the same calendar day with entry.
func (s *StorageService) UpsertJournalEntry(ctx context.Context, entry models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := repositories.LoadCollection[models.JournalEntry](ctx, s.kv, s.keys.JournalEntries)
	if err != nil {
		return err
	}

	day := entry.DateKey()
	kept := entries[:0]
	for _, e := range entries {
		if e.DateKey() != day {
			kept = append(kept, e)
		}
	}
	kept = append(kept, entry)

	if err := repositories.SaveCollection(ctx, s.kv, s.keys.JournalEntries, kept); err != nil {
		return err
	}
	s.logger.Debug("journal entry saved", zap.String("id", entry.ID), zap.String("date", day))
	return nil
}

// LoadAllJournalEntries returns every entry, newest day first.
func (s *StorageService) LoadAllJournalEntries(ctx context.Context) ([]models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := repositories.LoadCollection[models.JournalEntry](ctx, s.kv, s.keys.JournalEntries)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}

// LoadJournalEntry returns the entry for date's calendar day, or nil.
func (s *StorageService) LoadJournalEntry(ctx context.Context, date time.Time) (*models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := repositories.LoadCollection[models.JournalEntry](ctx, s.kv, s.keys.JournalEntries)
	if err != nil {
		return nil, err
	}
	day := models.DateKey(models.StartOfDay(date))
	for i := range entries {
		if entries[i].DateKey() == day {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// DeleteJournalEntry removes the entry with id. Deleting an unknown id is a no-op.
func (s *StorageService) DeleteJournalEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := repositories.LoadCollection[models.JournalEntry](ctx, s.kv, s.keys.JournalEntries)
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return repositories.SaveCollection(ctx, s.kv, s.keys.JournalEntries, kept)
}

// --- Letters ---

// UpsertLetter saves letter, replacing any letter with the same id. A new
// letter is refused with errs.ErrMaxLettersExceeded once the undelivered cap
// is reached, before anything is written.
func (s *StorageService) UpsertLetter(ctx context.Context, letter models.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters, err := repositories.LoadCollection[models.Letter](ctx, s.kv, s.keys.Letters)
	if err != nil {
		return err
	}

	exists := false
	pending := 0
	for _, l := range letters {
		if l.ID == letter.ID {
			exists = true
		}
		if !l.IsDelivered {
			pending++
		}
	}
	if !exists && pending >= s.maxScheduled {
		return fmt.Errorf("%w (%d)", errs.ErrMaxLettersExceeded, s.maxScheduled)
	}

	kept := letters[:0]
	for _, l := range letters {
		if l.ID != letter.ID {
			kept = append(kept, l)
		}
	}
	kept = append(kept, letter)

	if err := repositories.SaveCollection(ctx, s.kv, s.keys.Letters, kept); err != nil {
		return err
	}
	s.logger.Debug("letter saved", zap.String("id", letter.ID), zap.Bool("new", !exists))
	return nil
}

// LoadAllLetters returns every letter in storage order.
func (s *StorageService) LoadAllLetters(ctx context.Context) ([]models.Letter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return repositories.LoadCollection[models.Letter](ctx, s.kv, s.keys.Letters)
}

// LoadLetter returns the letter with id, or nil.
func (s *StorageService) LoadLetter(ctx context.Context, id string) (*models.Letter, error) {
	letters, err := s.LoadAllLetters(ctx)
	if err != nil {
		return nil, err
	}
	for i := range letters {
		if letters[i].ID == id {
			return &letters[i], nil
		}
	}
	return nil, nil
}

// LoadScheduledLetters returns undelivered letters, soonest first.
func (s *StorageService) LoadScheduledLetters(ctx context.Context) ([]models.Letter, error) {
	letters, err := s.LoadAllLetters(ctx)
	if err != nil {
		return nil, err
	}
	out := filterLetters(letters, false)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

// LoadDeliveredLetters returns delivered letters, most recently delivered first.
func (s *StorageService) LoadDeliveredLetters(ctx context.Context) ([]models.Letter, error) {
	letters, err := s.LoadAllLetters(ctx)
	if err != nil {
		return nil, err
	}
	out := filterLetters(letters, true)
	sort.SliceStable(out, func(i, j int) bool {
		return deliveredAt(out[i]).After(deliveredAt(out[j]))
	})
	return out, nil
}

// PendingLetterCount is the number of undelivered letters.
func (s *StorageService) PendingLetterCount(ctx context.Context) (int, error) {
	letters, err := s.LoadAllLetters(ctx)
	if err != nil {
		return 0, err
	}
	return len(filterLetters(letters, false)), nil
}

// MarkDelivered stamps the letter with id as delivered at at and returns the
// stored copy. changed is false when the letter was already delivered: it
// keeps its original delivery time and nothing is written.
func (s *StorageService) MarkDelivered(ctx context.Context, id string, at time.Time) (letter models.Letter, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters, err := repositories.LoadCollection[models.Letter](ctx, s.kv, s.keys.Letters)
	if err != nil {
		return models.Letter{}, false, err
	}

	for i, l := range letters {
		if l.ID != id {
			continue
		}
		if l.IsDelivered {
			return l, false, nil
		}
		letters[i] = l.MarkAsDelivered(at)
		if err := repositories.SaveCollection(ctx, s.kv, s.keys.Letters, letters); err != nil {
			return models.Letter{}, false, err
		}
		s.logger.Info("letter delivered", zap.String("id", id), zap.Time("delivered_at", at))
		return letters[i], true, nil
	}
	return models.Letter{}, false, fmt.Errorf("letter %s: %w", id, errs.ErrNotFound)
}

// DeleteLetter removes the letter with id. Deleting an unknown id is a no-op.
func (s *StorageService) DeleteLetter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	letters, err := repositories.LoadCollection[models.Letter](ctx, s.kv, s.keys.Letters)
	if err != nil {
		return err
	}
	kept := letters[:0]
	for _, l := range letters {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	return repositories.SaveCollection(ctx, s.kv, s.keys.Letters, kept)
}

// ClearAllData removes every key the app writes. It keeps going after a
// failure and reports all of them.
func (s *StorageService) ClearAllData(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []error
	for _, key := range s.keys.All() {
		if err := repositories.DeleteKey(ctx, s.kv, key); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		s.logger.Warn("all data cleared")
	}
	return errors.Join(failed...)
}

func filterLetters(letters []models.Letter, delivered bool) []models.Letter {
	out := make([]models.Letter, 0, len(letters))
	for _, l := range letters {
		if l.IsDelivered == delivered {
			out = append(out, l)
		}
	}
	return out
}

func deliveredAt(l models.Letter) time.Time {
	if l.DeliveredAt == nil {
		return time.Time{}
	}
	return *l.DeliveredAt
}
