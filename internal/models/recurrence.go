package models

import (
	"fmt"

	"mindmail/internal/errs"
)

// Recurrence is how often a letter is delivered.
type Recurrence string

const (
	RecurrenceOnce  Recurrence = "once"
	RecurrenceDaily Recurrence = "daily"
)

// RecurrenceDisplay is how a recurrence option is shown to the user.
type RecurrenceDisplay struct {
	Recurrence  Recurrence `json:"recurrence"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

var recurrences = []RecurrenceDisplay{
	{RecurrenceOnce, "One Time", "Receive this letter once"},
	{RecurrenceDaily, "Daily Reminder", "Get this reminder every day"},
}

// Recurrences returns the display table for every recurrence.
func Recurrences() []RecurrenceDisplay {
	out := make([]RecurrenceDisplay, len(recurrences))
	copy(out, recurrences)
	return out
}

func (r Recurrence) display() (RecurrenceDisplay, bool) {
	for _, d := range recurrences {
		if d.Recurrence == r {
			return d, true
		}
	}
	return RecurrenceDisplay{}, false
}

func (r Recurrence) Valid() bool {
	_, ok := r.display()
	return ok
}

func (r Recurrence) Label() string {
	d, _ := r.display()
	return d.Label
}

func (r Recurrence) Description() string {
	d, _ := r.display()
	return d.Description
}

// Repeats reports whether the delivery trigger re-arms after firing.
func (r Recurrence) Repeats() bool {
	return r == RecurrenceDaily
}

func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown recurrence %q", errs.ErrInvalidInput, s)
	}
	return r, nil
}

func (r Recurrence) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown recurrence %q", string(r))
	}
	return []byte(r), nil
}

func (r *Recurrence) UnmarshalText(b []byte) error {
	parsed, err := ParseRecurrence(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
