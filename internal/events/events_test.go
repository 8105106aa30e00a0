package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()
	var got []Event
	bus.Subscribe(BookingCancelled, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(BookingCreated, func(Event) error {
		t.Fatal("unexpected delivery")
		return nil
	})

	require.NoError(t, bus.PublishJSON(BookingCancelled, 7, map[string]string{"booking_id": "b1"}))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].ChatID)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, got[0].Decode(&payload))
	assert.Equal(t, "b1", payload["booking_id"])
}

func TestPublishJoinsHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	errA := errors.New("a")
	calls := 0
	bus.Subscribe(SessionLogin, func(Event) error { calls++; return errA })
	bus.Subscribe(SessionLogin, func(Event) error { calls++; return nil })

	err := bus.Publish(Event{Type: SessionLogin})
	assert.ErrorIs(t, err, errA)
	assert.Equal(t, 2, calls)
}
