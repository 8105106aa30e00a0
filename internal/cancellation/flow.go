// Package cancellation drives the confirm dialog for cancelling a booking.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stayhaven/internal/model"
)

// State is the dialog state.
type State string

const (
	StateIdle           State = "idle"
	StateConfirmPending State = "confirm_pending"
	StateResolved       State = "resolved"
)

// Outcome is the result of the last resolved request.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrNotCancellable = errors.New("only confirmed upcoming bookings can be cancelled")
	ErrInFlight       = errors.New("cancellation already in progress")
	ErrNoDialog       = errors.New("no cancellation to confirm")
)

// Canceller calls the booking service.
type Canceller interface {
	CancelBooking(ctx context.Context, bookingID string) error
}

// Tracker remembers which booking ids have a cancel request in flight.
type Tracker struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[string]struct{})}
}

// Acquire marks id as in flight. It returns false if it already was.
func (t *Tracker) Acquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[id]; ok {
		return false
	}
	t.ids[id] = struct{}{}
	return true
}

// Release clears id.
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ids, id)
}

// InFlight reports whether id has a pending request.
func (t *Tracker) InFlight(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Flow is one cancel confirmation dialog.
type Flow struct {
	mu        sync.Mutex
	state     State
	outcome   Outcome
	bookingID string
	canceller Canceller
	tracker   *Tracker
	timeout   time.Duration
}

// NewFlow creates an idle dialog. A nil tracker gets a private one.
func NewFlow(c Canceller, tracker *Tracker, timeout time.Duration) *Flow {
	if tracker == nil {
		tracker = NewTracker()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Flow{
		state:     StateIdle,
		canceller: c,
		tracker:   tracker,
		timeout:   timeout,
	}
}

// State returns the dialog state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Outcome returns the result of the last request.
func (f *Flow) Outcome() Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// BookingID returns the booking the dialog is about.
func (f *Flow) BookingID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookingID
}

// Busy reports whether the affirmative action must be disabled.
func (f *Flow) Busy() bool {
	f.mu.Lock()
	id := f.bookingID
	f.mu.Unlock()
	return id != "" && f.tracker.InFlight(id)
}

// Open starts the dialog for b.
func (f *Flow) Open(b *model.Booking, now time.Time) error {
	if b == nil || !b.CanCancel(now) {
		return ErrNotCancellable
	}
	if f.tracker.InFlight(b.ID) {
		return ErrInFlight
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateConfirmPending
	f.outcome = OutcomeNone
	f.bookingID = b.ID
	return nil
}

// Dismiss closes the dialog without calling the service.
func (f *Flow) Dismiss() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateConfirmPending {
		f.state = StateIdle
		f.bookingID = ""
	}
}

// Confirm calls the service. The caller may mark the booking cancelled only when
// Confirm returns nil.
func (f *Flow) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateConfirmPending {
		f.mu.Unlock()
		return ErrNoDialog
	}
	id := f.bookingID
	f.mu.Unlock()

	if !f.tracker.Acquire(id) {
		return ErrInFlight
	}
	defer f.tracker.Release(id)

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	err := f.canceller.CancelBooking(callCtx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateIdle
		f.outcome = OutcomeFailure
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	f.state = StateResolved
	f.outcome = OutcomeSuccess
	return nil
}
