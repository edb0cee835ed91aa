package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmail/internal/models"
	"mindmail/internal/scheduler"
)

func TestTriggerFor(t *testing.T) {
	subject := "Hi"
	at := time.Date(2025, 11, 1, 8, 15, 0, 0, time.UTC)

	withSubject := scheduler.TriggerFor(models.Letter{ID: "l1", Subject: &subject, ScheduledDate: at, Recurrence: models.RecurrenceOnce})
	assert.Equal(t, "l1", withSubject.ID)
	assert.Equal(t, "l1", withSubject.Content.LetterID)
	assert.Equal(t, "You have a letter from past you! 💌", withSubject.Content.Title)
	assert.Equal(t, "Hi", withSubject.Content.Body)
	assert.Equal(t, at, withSubject.Start)
	assert.False(t, withSubject.Repeats)

	daily := scheduler.TriggerFor(models.Letter{ID: "l2", ScheduledDate: at, Recurrence: models.RecurrenceDaily})
	assert.Equal(t, "Open MindMail to read your message", daily.Content.Body)
	assert.True(t, daily.Repeats)
}

func TestTrigger_NextFire(t *testing.T) {
	start := time.Date(2025, 11, 1, 8, 15, 30, 0, time.UTC)
	once := scheduler.Trigger{ID: "a", Start: start}
	daily := scheduler.Trigger{ID: "b", Start: start, Repeats: true}

	next, ok := once.NextFire(start.Add(-time.Hour))
	require.True(t, ok)
	assert.Equal(t, start, next)

	_, ok = once.NextFire(start)
	assert.False(t, ok, "a one-shot trigger fires once")

	next, ok = daily.NextFire(start)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 2, 8, 15, 0, 0, time.UTC), next)

	next, ok = daily.NextFire(time.Date(2025, 11, 5, 7, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 5, 8, 15, 0, 0, time.UTC), next, "same day when the hour has not come yet")

	next, ok = daily.NextFire(time.Date(2025, 11, 5, 9, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 6, 8, 15, 0, 0, time.UTC), next)
}

func TestTrigger_NextFireKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	start := time.Date(2025, 11, 1, 9, 0, 0, 0, loc)
	daily := scheduler.Trigger{ID: "d", Start: start, Repeats: true}

	next, ok := daily.NextFire(time.Date(2025, 11, 2, 12, 0, 0, 0, loc))
	require.True(t, ok)
	assert.Equal(t, 9, next.In(loc).Hour())
	assert.Equal(t, 3, next.In(loc).Day())
}
