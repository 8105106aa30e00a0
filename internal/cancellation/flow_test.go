package cancellation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stayhaven/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCanceller struct {
	mock.Mock
}

func (m *mockCanceller) CancelBooking(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func upcoming(id string) *model.Booking {
	return &model.Booking{
		ID:        id,
		Status:    model.StatusConfirmed,
		DateStart: now.AddDate(0, 0, 5),
		DateEnd:   now.AddDate(0, 0, 8),
	}
}

func TestOpen_OnlyConfirmedUpcoming(t *testing.T) {
	f := NewFlow(new(mockCanceller), nil, time.Second)

	cancelled := upcoming("b1")
	cancelled.Status = model.StatusCancelled
	assert.ErrorIs(t, f.Open(cancelled, now), ErrNotCancellable)

	started := upcoming("b2")
	started.DateStart = now.Add(-time.Hour)
	assert.ErrorIs(t, f.Open(started, now), ErrNotCancellable)

	assert.ErrorIs(t, f.Open(nil, now), ErrNotCancellable)
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.Open(upcoming("b3"), now))
	assert.Equal(t, StateConfirmPending, f.State())
	assert.Equal(t, "b3", f.BookingID())
}

func TestConfirm_Success(t *testing.T) {
	c := new(mockCanceller)
	c.On("CancelBooking", mock.Anything, "b1").Return(nil).Once()
	f := NewFlow(c, nil, time.Second)

	require.NoError(t, f.Open(upcoming("b1"), now))
	require.NoError(t, f.Confirm(context.Background()))
	assert.Equal(t, StateResolved, f.State())
	assert.Equal(t, OutcomeSuccess, f.Outcome())
	assert.False(t, f.Busy())
	c.AssertExpectations(t)
}

func TestConfirm_FailureReturnsToIdle(t *testing.T) {
	c := new(mockCanceller)
	c.On("CancelBooking", mock.Anything, "b1").Return(errors.New("service unavailable")).Once()
	f := NewFlow(c, nil, time.Second)

	require.NoError(t, f.Open(upcoming("b1"), now))
	err := f.Confirm(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
	assert.Equal(t, StateIdle, f.State())
	assert.Equal(t, OutcomeFailure, f.Outcome())

	// retriable after failure
	c.On("CancelBooking", mock.Anything, "b1").Return(nil).Once()
	require.NoError(t, f.Open(upcoming("b1"), now))
	require.NoError(t, f.Confirm(context.Background()))
}

func TestConfirm_WithoutDialog(t *testing.T) {
	f := NewFlow(new(mockCanceller), nil, time.Second)
	assert.ErrorIs(t, f.Confirm(context.Background()), ErrNoDialog)

	require.NoError(t, f.Open(upcoming("b1"), now))
	f.Dismiss()
	assert.Equal(t, StateIdle, f.State())
	assert.ErrorIs(t, f.Confirm(context.Background()), ErrNoDialog)
}

func TestConfirm_SingleRequestPerBooking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	c := new(mockCanceller)
	c.On("CancelBooking", mock.Anything, "b1").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	tracker := NewTracker()
	first := NewFlow(c, tracker, time.Second)
	second := NewFlow(c, tracker, time.Second)
	require.NoError(t, first.Open(upcoming("b1"), now))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		firstErr = first.Confirm(context.Background())
	}()

	<-started
	assert.True(t, first.Busy())
	assert.ErrorIs(t, first.Confirm(context.Background()), ErrInFlight)
	assert.ErrorIs(t, second.Open(upcoming("b1"), now), ErrInFlight)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, tracker.InFlight("b1"))
	c.AssertNumberOfCalls(t, "CancelBooking", 1)
}

func TestConfirm_Timeout(t *testing.T) {
	c := new(mockCanceller)
	c.On("CancelBooking", mock.Anything, "b1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded).Once()
	f := NewFlow(c, nil, 20*time.Millisecond)

	require.NoError(t, f.Open(upcoming("b1"), now))
	err := f.Confirm(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, f.State())
}
