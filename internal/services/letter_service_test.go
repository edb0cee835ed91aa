package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mindmail/internal/clock"
	"mindmail/internal/errs"
	"mindmail/internal/models"
	"mindmail/internal/services"
	"mindmail/internal/validation"
)

// MockLetterStore is a mock implementation of services.LetterStore
type MockLetterStore struct {
	mock.Mock
}

func (m *MockLetterStore) UpsertLetter(ctx context.Context, letter models.Letter) error {
	args := m.Called(ctx, letter)
	return args.Error(0)
}

func (m *MockLetterStore) LoadLetter(ctx context.Context, id string) (*models.Letter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Letter), args.Error(1)
}

func (m *MockLetterStore) letters(args mock.Arguments) ([]models.Letter, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Letter), args.Error(1)
}

func (m *MockLetterStore) LoadAllLetters(ctx context.Context) ([]models.Letter, error) {
	return m.letters(m.Called(ctx))
}

func (m *MockLetterStore) LoadScheduledLetters(ctx context.Context) ([]models.Letter, error) {
	return m.letters(m.Called(ctx))
}

func (m *MockLetterStore) LoadDeliveredLetters(ctx context.Context) ([]models.Letter, error) {
	return m.letters(m.Called(ctx))
}

func (m *MockLetterStore) PendingLetterCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLetterStore) DeleteLetter(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockScheduler is a mock implementation of services.DeliveryScheduler
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(ctx context.Context, letter models.Letter) error {
	args := m.Called(ctx, letter)
	return args.Error(0)
}

func (m *MockScheduler) Cancel(id string) {
	m.Called(id)
}

func (m *MockScheduler) Reconcile(ctx context.Context, now time.Time) ([]models.Letter, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Letter), args.Error(1)
}

func (m *MockScheduler) RescheduleAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockGate struct {
	mock.Mock
}

func (m *MockGate) CanSchedule(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

type letterFixture struct {
	store     *MockLetterStore
	scheduler *MockScheduler
	gate      *MockGate
	service   *services.LetterService
}

func newLetterFixture(cfg services.LetterConfig) letterFixture {
	f := letterFixture{
		store:     new(MockLetterStore),
		scheduler: new(MockScheduler),
		gate:      new(MockGate),
	}
	f.service = services.NewLetterService(f.store, f.scheduler, f.gate, cfg, clock.NewFake(testNow), nil)
	return f
}

func (f letterFixture) assertExpectations(t *testing.T) {
	f.store.AssertExpectations(t)
	f.scheduler.AssertExpectations(t)
	f.gate.AssertExpectations(t)
}

func draftIn(d time.Duration) models.LetterDraft {
	return models.LetterDraft{
		Subject:       "Hi",
		Body:          "Remember this summer",
		ScheduledDate: testNow.Add(d),
		Recurrence:    models.RecurrenceOnce,
	}
}

func TestLetterService_Compose(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()

	f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
	f.store.On("UpsertLetter", ctx, mock.AnythingOfType("models.Letter")).Return(nil).Once()
	f.scheduler.On("Schedule", ctx, mock.MatchedBy(func(l models.Letter) bool {
		return l.SubjectText() == "Hi" && !l.IsDelivered
	})).Return(nil).Once()

	letter, err := f.service.Compose(ctx, draftIn(time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, letter.ID)
	assert.Equal(t, "Remember this summer", letter.Body)
	assert.Equal(t, testNow, letter.CreatedAt)
	f.assertExpectations(t)
}

func TestLetterService_ComposeKeepsLetterWhenSchedulingFails(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()

	f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
	f.store.On("UpsertLetter", ctx, mock.AnythingOfType("models.Letter")).Return(nil).Once()
	f.scheduler.On("Schedule", ctx, mock.AnythingOfType("models.Letter")).Return(errs.ErrSchedulingFailed).Once()

	letter, err := f.service.Compose(ctx, draftIn(time.Hour))
	assert.NoError(t, err)
	assert.NotEmpty(t, letter.ID)
	f.assertExpectations(t)
	f.store.AssertNotCalled(t, "DeleteLetter", mock.Anything, mock.Anything)
}

func TestLetterService_ComposePermissionDenied(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()

	f.gate.On("CanSchedule", ctx).Return(false, nil).Once()
	_, err := f.service.Compose(ctx, draftIn(time.Hour))
	assert.ErrorIs(t, err, errs.ErrPermissionDenied)

	f.gate.On("CanSchedule", ctx).Return(false, fmt.Errorf("settings unavailable")).Once()
	_, err = f.service.Compose(ctx, draftIn(time.Hour))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings unavailable")

	f.assertExpectations(t)
	f.store.AssertNotCalled(t, "UpsertLetter", mock.Anything, mock.Anything)
}

func TestLetterService_ComposeRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("too soon", func(t *testing.T) {
		f := newLetterFixture(services.LetterConfig{})
		f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
		_, err := f.service.Compose(ctx, draftIn(30*time.Second))
		assert.ErrorIs(t, err, errs.ErrScheduledTooSoon)
		f.store.AssertNotCalled(t, "UpsertLetter", mock.Anything, mock.Anything)
	})

	t.Run("configured delay", func(t *testing.T) {
		f := newLetterFixture(services.LetterConfig{MinScheduleDelay: 10 * time.Minute})
		f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
		_, err := f.service.Compose(ctx, draftIn(5*time.Minute))
		assert.ErrorIs(t, err, errs.ErrScheduledTooSoon)
	})

	t.Run("body over policy", func(t *testing.T) {
		f := newLetterFixture(services.LetterConfig{BodyPolicy: models.BodyPolicy{MinLength: 1, MaxLength: 5}})
		f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
		_, err := f.service.Compose(ctx, draftIn(time.Hour))
		assert.True(t, validation.HasReason(err, validation.TextTooLong))
	})

	t.Run("cap reached", func(t *testing.T) {
		f := newLetterFixture(services.LetterConfig{})
		f.gate.On("CanSchedule", ctx).Return(true, nil).Once()
		f.store.On("UpsertLetter", ctx, mock.AnythingOfType("models.Letter")).
			Return(fmt.Errorf("%w (100)", errs.ErrMaxLettersExceeded)).Once()
		_, err := f.service.Compose(ctx, draftIn(time.Hour))
		assert.ErrorIs(t, err, errs.ErrMaxLettersExceeded)
		f.scheduler.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})
}

func TestLetterService_Delete(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()

	f.store.On("LoadLetter", ctx, "l1").Return(&models.Letter{ID: "l1"}, nil).Once()
	f.scheduler.On("Cancel", "l1").Return().Once()
	f.store.On("DeleteLetter", ctx, "l1").Return(nil).Once()
	assert.NoError(t, f.service.Delete(ctx, "l1"))

	f.store.On("LoadLetter", ctx, "nope").Return(nil, nil).Once()
	assert.ErrorIs(t, f.service.Delete(ctx, "nope"), errs.ErrNotFound)

	f.assertExpectations(t)
	f.scheduler.AssertNumberOfCalls(t, "Cancel", 1)
}

func TestLetterService_Lists(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()
	scheduled := []models.Letter{{ID: "a"}}
	delivered := []models.Letter{{ID: "b", IsDelivered: true}}

	f.store.On("LoadScheduledLetters", ctx).Return(scheduled, nil).Once()
	f.store.On("LoadDeliveredLetters", ctx).Return(delivered, nil).Once()
	f.store.On("LoadAllLetters", ctx).Return(append(scheduled, delivered...), nil).Once()
	f.store.On("PendingLetterCount", ctx).Return(1, nil).Once()

	got, err := f.service.Scheduled(ctx)
	assert.NoError(t, err)
	assert.Equal(t, scheduled, got)
	got, err = f.service.Delivered(ctx)
	assert.NoError(t, err)
	assert.Equal(t, delivered, got)
	got, err = f.service.All(ctx)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	n, err := f.service.PendingCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	f.assertExpectations(t)
}

func TestLetterService_ReconcileAndReschedule(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	ctx := context.Background()

	f.scheduler.On("Reconcile", ctx, testNow).Return([]models.Letter{{ID: "a"}}, nil).Once()
	f.scheduler.On("RescheduleAll", ctx).Return(3, nil).Once()

	delivered, err := f.service.Reconcile(ctx)
	assert.NoError(t, err)
	assert.Len(t, delivered, 1)

	n, err := f.service.RescheduleAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	f.assertExpectations(t)
}

func TestLetterService_DefaultDeliveryDate(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	assert.Equal(t, time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), f.service.DefaultDeliveryDate())
}

func TestLetterService_DeliveryDateFor(t *testing.T) {
	f := newLetterFixture(services.LetterConfig{})
	assert.Equal(t, time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC), f.service.DeliveryDateFor(models.PresetOneWeek))
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), f.service.DeliveryDateFor(models.PresetOneMonth))
	assert.Equal(t, f.service.DefaultDeliveryDate(), f.service.DeliveryDateFor(models.PresetCustom))
	assert.Equal(t, f.service.DefaultDeliveryDate(), f.service.DeliveryDateFor(""))
}
