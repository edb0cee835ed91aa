package scheduler

import (
	"time"

	"mindmail/internal/models"
)

const (
	notificationTitle = "You have a letter from past you! 💌"
	notificationBody  = "Open MindMail to read your message"
)

// Content is what the user sees when a trigger fires. LetterID lets the
// handler resolve the letter without a separate lookup table.
type Content struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	LetterID string `json:"letter_id"`
}

// Trigger is a timed notification registered with a TriggerCenter. A
// one-shot trigger fires at Start. A repeating trigger first fires at Start
// and then every day at Start's wall-clock hour and minute.
type Trigger struct {
	ID      string
	Start   time.Time
	Repeats bool
	Content Content
}

// TriggerFor builds the delivery trigger for letter, identified by its id.
func TriggerFor(letter models.Letter) Trigger {
	body := notificationBody
	if s := letter.SubjectText(); s != "" {
		body = s
	}
	return Trigger{
		ID:      letter.ID,
		Start:   letter.ScheduledDate,
		Repeats: letter.Recurrence.Repeats(),
		Content: Content{
			Title:    notificationTitle,
			Body:     body,
			LetterID: letter.ID,
		},
	}
}

// NextFire is the first time strictly after after at which t fires. ok is
// false when a one-shot trigger has already passed.
func (t Trigger) NextFire(after time.Time) (next time.Time, ok bool) {
	if t.Start.After(after) {
		return t.Start, true
	}
	if !t.Repeats {
		return time.Time{}, false
	}

	loc := t.Start.Location()
	local := after.In(loc)
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, t.Start.Hour(), t.Start.Minute(), 0, 0, loc)
	if !candidate.After(after) {
		candidate = time.Date(y, m, d+1, t.Start.Hour(), t.Start.Minute(), 0, 0, loc)
	}
	return candidate, true
}
