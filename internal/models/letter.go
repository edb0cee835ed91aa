package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindmail/internal/errs"
	"mindmail/internal/validation"
)

const (
	MaxSubjectLength     = 50
	DefaultMinBodyLength = 1
	DefaultMaxBodyLength = 500

	// MaxScheduledLetters caps how many undelivered letters may exist at once.
	MaxScheduledLetters = 100

	// MinScheduleDelay keeps a letter from being scheduled so close to now
	// that it would fire while it is still being saved.
	MinScheduleDelay = 60 * time.Second
)

// Letter is a message to the user's future self. It moves from scheduled to
// delivered exactly once and never back.
type Letter struct {
	ID            string     `json:"id" validate:"required"`
	Subject       *string    `json:"subject,omitempty"`
	Body          string     `json:"body"`
	ScheduledDate time.Time  `json:"scheduled_date" validate:"required"`
	Recurrence    Recurrence `json:"recurrence" validate:"required"`
	CreatedAt     time.Time  `json:"created_at" validate:"required"`
	IsDelivered   bool       `json:"is_delivered"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty" validate:"required_if=IsDelivered true"`
}

// LetterDraft is the raw content of a letter being composed.
type LetterDraft struct {
	Subject       string
	Body          string
	ScheduledDate time.Time
	Recurrence    Recurrence
}

// BodyPolicy bounds the length of a letter body. MinLength of zero allows an
// empty body.
type BodyPolicy struct {
	MinLength int
	MaxLength int
}

func DefaultBodyPolicy() BodyPolicy {
	return BodyPolicy{MinLength: DefaultMinBodyLength, MaxLength: DefaultMaxBodyLength}
}

// NewLetter validates d against policy and the minimum schedule delay.
func NewLetter(d LetterDraft, policy BodyPolicy, now time.Time) (Letter, error) {
	var subject *string
	if trimmed := strings.TrimSpace(validation.StripControl(d.Subject)); trimmed != "" {
		clean, err := validation.ValidateText(trimmed, MaxSubjectLength)
		if err != nil {
			return Letter{}, err
		}
		subject = &clean
	}

	body, err := validation.ValidateTextRange(d.Body, policy.MinLength, policy.MaxLength)
	if err != nil {
		return Letter{}, err
	}

	if !d.Recurrence.Valid() {
		return Letter{}, fmt.Errorf("%w: unknown recurrence %q", errs.ErrInvalidInput, string(d.Recurrence))
	}

	if d.ScheduledDate.Sub(now) < MinScheduleDelay {
		return Letter{}, errs.ErrScheduledTooSoon
	}

	return Letter{
		ID:            uuid.New().String(),
		Subject:       subject,
		Body:          body,
		ScheduledDate: d.ScheduledDate,
		Recurrence:    d.Recurrence,
		CreatedAt:     now,
	}, nil
}

// MarkAsDelivered returns a delivered copy of l stamped with at. A letter that
// is already delivered is returned unchanged.
func (l Letter) MarkAsDelivered(at time.Time) Letter {
	if l.IsDelivered {
		return l
	}
	l.IsDelivered = true
	l.DeliveredAt = &at
	return l
}

// IsDue reports whether l is still scheduled and its time has come.
func (l Letter) IsDue(now time.Time) bool {
	return !l.IsDelivered && !l.ScheduledDate.After(now)
}

// SubjectText returns the subject or "" when there is none.
func (l Letter) SubjectText() string {
	if l.Subject == nil {
		return ""
	}
	return *l.Subject
}
