package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"mindmail/internal/errs"
	"mindmail/internal/validation"
)

// JournalEntry is one day's reflection. There is at most one per calendar day;
// the store enforces that, not the entry.
type JournalEntry struct {
	ID             string    `json:"id" validate:"required"`
	Date           time.Time `json:"date" validate:"required"` // midnight of the entry's day
	Mood           Mood      `json:"mood" validate:"required"`
	Struggle       string    `json:"struggle" validate:"required"`
	Gratitude      string    `json:"gratitude" validate:"required"`
	Memory         string    `json:"memory" validate:"required"`
	LookingForward string    `json:"looking_forward" validate:"required"`
	CreatedAt      time.Time `json:"created_at" validate:"required"`
	ModifiedAt     time.Time `json:"modified_at" validate:"required"`
}

// JournalInput is the raw, unvalidated content of an entry.
type JournalInput struct {
	Date           time.Time
	Mood           Mood
	Struggle       string
	Gratitude      string
	Memory         string
	LookingForward string
}

// NewJournalEntry validates in and builds a fresh entry with a new id.
func NewJournalEntry(in JournalInput, now time.Time) (JournalEntry, error) {
	e, err := buildJournalEntry(in)
	if err != nil {
		return JournalEntry{}, err
	}
	e.ID = uuid.New().String()
	e.CreatedAt = now
	e.ModifiedAt = now
	return e, nil
}

// Revise builds the replacement for e from in. The id and creation time are
// kept and the modification time is refreshed.
func (e JournalEntry) Revise(in JournalInput, now time.Time) (JournalEntry, error) {
	next, err := buildJournalEntry(in)
	if err != nil {
		return JournalEntry{}, err
	}
	next.ID = e.ID
	next.CreatedAt = e.CreatedAt
	next.ModifiedAt = now
	return next, nil
}

// DateKey is the entry's day as YYYY-MM-DD.
func (e JournalEntry) DateKey() string {
	return DateKey(e.Date)
}

func buildJournalEntry(in JournalInput) (JournalEntry, error) {
	if !in.Mood.Valid() {
		return JournalEntry{}, fmt.Errorf("%w: unknown mood %q", errs.ErrInvalidInput, string(in.Mood))
	}

	fields := []*string{&in.Struggle, &in.Gratitude, &in.Memory, &in.LookingForward}
	for _, f := range fields {
		clean, err := validation.ValidateText(*f, validation.MaxTextLength)
		if err != nil {
			return JournalEntry{}, err
		}
		*f = clean
	}

	return JournalEntry{
		Date:           StartOfDay(in.Date),
		Mood:           in.Mood,
		Struggle:       in.Struggle,
		Gratitude:      in.Gratitude,
		Memory:         in.Memory,
		LookingForward: in.LookingForward,
	}, nil
}

// IsValidJournalDate reports whether day is today or earlier.
func IsValidJournalDate(day, now time.Time) bool {
	return !StartOfDay(day).After(StartOfDay(now.In(day.Location())))
}
