// Package scheduler turns letters into timed delivery triggers and keeps
// delivery status honest when triggers are missed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindmail/internal/clock"
	"mindmail/internal/errs"
	"mindmail/internal/events"
	"mindmail/internal/logger"
	"mindmail/internal/metrics"
	"mindmail/internal/models"
)

// LetterStore is the part of storage the scheduler needs.
type LetterStore interface {
	LoadScheduledLetters(ctx context.Context) ([]models.Letter, error)
	LoadLetter(ctx context.Context, id string) (*models.Letter, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) (letter models.Letter, changed bool, err error)
}

// Options holds the optional collaborators of a Scheduler.
type Options struct {
	MinScheduleDelay time.Duration
	Clock            clock.Clock
	Metrics          metrics.Recorder
	Logger           *zap.Logger
}

// Scheduler registers delivery triggers and reconciles delivery status.
type Scheduler struct {
	store     LetterStore
	center    TriggerCenter
	publisher events.Publisher
	gate      PermissionGate
	minDelay  time.Duration
	clock     clock.Clock
	metrics   metrics.Recorder
	logger    *zap.Logger
}

// New creates a Scheduler. A nil publisher drops events; a nil gate always
// allows. A minimum delay below models.MinScheduleDelay is raised to it.
func New(store LetterStore, center TriggerCenter, publisher events.Publisher, gate PermissionGate, opts Options) *Scheduler {
	if opts.MinScheduleDelay < models.MinScheduleDelay {
		opts.MinScheduleDelay = models.MinScheduleDelay
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if publisher == nil {
		publisher = events.Multi{}
	}
	if gate == nil {
		gate = StaticPermission(true)
	}
	return &Scheduler{
		store:     store,
		center:    center,
		publisher: publisher,
		gate:      gate,
		minDelay:  opts.MinScheduleDelay,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    logger.OrNop(opts.Logger),
	}
}

// Schedule registers the delivery trigger for letter. It refuses letters due
// sooner than the minimum delay and delivered letters.
func (s *Scheduler) Schedule(_ context.Context, letter models.Letter) error {
	if letter.IsDelivered {
		return fmt.Errorf("letter %s is already delivered", letter.ID)
	}
	if letter.ScheduledDate.Sub(s.clock.Now()) < s.minDelay {
		return errs.ErrScheduledTooSoon
	}
	return s.register(letter)
}

func (s *Scheduler) register(letter models.Letter) error {
	if err := s.center.Add(TriggerFor(letter)); err != nil {
		s.metrics.RecordSchedulingFailure()
		return fmt.Errorf("%w: letter %s: %v", errs.ErrSchedulingFailed, letter.ID, err)
	}
	s.metrics.RecordScheduled()
	s.logger.Info("letter scheduled",
		zap.String("id", letter.ID),
		zap.Time("scheduled_date", letter.ScheduledDate),
		zap.String("recurrence", string(letter.Recurrence)),
	)
	return nil
}

// Cancel removes any pending trigger for id.
func (s *Scheduler) Cancel(id string) {
	s.center.Remove(id)
}

// CancelAll removes every pending trigger.
func (s *Scheduler) CancelAll() {
	s.center.RemoveAll()
}

// Reconcile marks every undelivered letter whose time is at or before now as
// delivered and announces each one. It keeps going past individual failures
// and returns the letters it delivered along with the joined errors.
func (s *Scheduler) Reconcile(ctx context.Context, now time.Time) ([]models.Letter, error) {
	scheduled, err := s.store.LoadScheduledLetters(ctx)
	if err != nil {
		s.metrics.RecordReconcile(0, err)
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	var delivered []models.Letter
	var failed []error
	for _, l := range scheduled {
		if !l.IsDue(now) {
			continue
		}
		d, changed, err := s.store.MarkDelivered(ctx, l.ID, now)
		if err != nil {
			failed = append(failed, err)
			continue
		}
		if !changed {
			// A trigger delivered it after the scheduled list was loaded.
			continue
		}
		if !d.Recurrence.Repeats() {
			s.center.Remove(d.ID)
		}
		delivered = append(delivered, d)
		s.metrics.RecordDelivered(string(events.SourceReconcile))
		s.publish(ctx, d, events.SourceReconcile, false)
	}

	err = errors.Join(failed...)
	s.metrics.RecordReconcile(len(delivered), err)
	if len(delivered) > 0 || err != nil {
		s.logger.Info("reconcile finished", zap.Int("delivered", len(delivered)), zap.Error(err))
	}
	return delivered, err
}

// Deliver is what happens when the trigger for letterID fires: the letter is
// marked delivered and announced. A repeating letter that was already
// delivered is announced again as a reminder without touching storage.
func (s *Scheduler) Deliver(ctx context.Context, letterID string) error {
	s.metrics.RecordTriggerFired()

	letter, err := s.store.LoadLetter(ctx, letterID)
	if err != nil {
		return err
	}
	if letter == nil {
		s.center.Remove(letterID)
		return fmt.Errorf("letter %s: %w", letterID, errs.ErrNotFound)
	}

	now := s.clock.Now()
	if letter.IsDelivered {
		if letter.Recurrence.Repeats() {
			reminder := *letter
			reminder.DeliveredAt = &now
			s.publish(ctx, reminder, events.SourceTrigger, true)
		}
		return nil
	}

	d, changed, err := s.store.MarkDelivered(ctx, letterID, now)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.metrics.RecordDelivered(string(events.SourceTrigger))
	s.publish(ctx, d, events.SourceTrigger, false)
	return nil
}

// HandleTrigger is the FireFunc for a TriggerCenter.
func (s *Scheduler) HandleTrigger(t Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Deliver(ctx, t.Content.LetterID); err != nil {
		s.logger.Error("trigger delivery failed", zap.String("letter_id", t.Content.LetterID), zap.Error(err))
	}
}

// RescheduleAll drops every pending trigger and registers one for each
// undelivered letter still in the future. Past-due letters are left for
// Reconcile. When notifications are not permitted nothing is registered and
// errs.ErrPermissionDenied is returned.
func (s *Scheduler) RescheduleAll(ctx context.Context) (int, error) {
	s.center.RemoveAll()

	allowed, err := s.gate.CanSchedule(ctx)
	if err != nil {
		return 0, fmt.Errorf("permission check: %w", err)
	}
	if !allowed {
		s.logger.Warn("notifications not permitted, no triggers registered")
		return 0, errs.ErrPermissionDenied
	}

	letters, err := s.store.LoadScheduledLetters(ctx)
	if err != nil {
		return 0, fmt.Errorf("reschedule: %w", err)
	}

	now := s.clock.Now()
	count := 0
	var failed []error
	for _, l := range letters {
		if !l.ScheduledDate.After(now) {
			continue
		}
		if err := s.register(l); err != nil {
			failed = append(failed, err)
			continue
		}
		count++
	}
	s.logger.Info("letters rescheduled", zap.Int("count", count))
	return count, errors.Join(failed...)
}

func (s *Scheduler) publish(ctx context.Context, l models.Letter, source events.Source, repeat bool) {
	evt := events.DeliveryEvent{
		LetterID: l.ID,
		Subject:  l.SubjectText(),
		Source:   source,
		Repeat:   repeat,
	}
	if l.DeliveredAt != nil {
		evt.DeliveredAt = *l.DeliveredAt
	}
	if err := s.publisher.PublishDelivery(ctx, evt); err != nil {
		s.logger.Warn("delivery event not published", zap.String("letter_id", l.ID), zap.Error(err))
	}
}
