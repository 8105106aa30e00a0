package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stayhaven/internal/availability"
	"stayhaven/internal/model"
)

var (
	ErrNotAuthenticated = errors.New("please login to book a room")
	ErrDatesMissing     = errors.New("please select check-in and check-out dates")
	ErrUnitUnavailable  = errors.New("this room is not available for the selected dates")
	ErrEmptyStay        = errors.New("check-out must be at least one night after check-in")
	ErrNothingSelected  = errors.New("select a room number first")
	ErrRequestInFlight  = errors.New("booking request already sent")
)

// Viewer is the authentication state of whoever drives the dialog.
type Viewer interface {
	IsAuthenticated() bool
	AccountID() string
}

// Booker forwards a booking to the booking service.
type Booker interface {
	CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error)
}

// Selection is the unit picker of one room card.
type Selection struct {
	mu       sync.Mutex
	fsm      *FSM
	state    State
	hotelID  string
	room     model.Room
	checkIn  *time.Time
	checkOut *time.Time
	unit     int
	timeout  time.Duration
}

// New creates a selection for room with the dates currently chosen in the search.
func New(hotelID string, room model.Room, checkIn, checkOut *time.Time, timeout time.Duration) *Selection {
	return &Selection{
		fsm:      NewFSM(),
		state:    StateNoSelection,
		hotelID:  hotelID,
		room:     room,
		checkIn:  checkIn,
		checkOut: checkOut,
		timeout:  timeout,
	}
}

// State returns the current state.
func (s *Selection) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Unit returns the chosen unit number, zero when none.
func (s *Selection) Unit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNoSelection {
		return 0
	}
	return s.unit
}

// Room returns the room the selection belongs to.
func (s *Selection) Room() model.Room {
	return s.room
}

// HotelID returns the hotel the room belongs to.
func (s *Selection) HotelID() string {
	return s.hotelID
}

// Dates returns the current date range.
func (s *Selection) Dates() (checkIn, checkOut *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkIn, s.checkOut
}

// Units evaluates all units of the room for the current range.
func (s *Selection) Units() []availability.UnitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return availability.Units(&s.room, s.checkIn, s.checkOut)
}

// Nights is the length of the current range.
func (s *Selection) Nights() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkIn == nil || s.checkOut == nil {
		return 0
	}
	return model.NightsBetween(*s.checkIn, *s.checkOut)
}

// Select chooses a unit. A failed guard leaves the state as it was.
func (s *Selection) Select(v Viewer, number int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateBookingRequested {
		return ErrRequestInFlight
	}
	if v == nil || !v.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if !availability.IsNumberAvailable(&s.room, number, s.checkIn, s.checkOut) {
		return ErrUnitUnavailable
	}
	if s.checkIn == nil || s.checkOut == nil {
		return ErrDatesMissing
	}
	if model.NightsBetween(*s.checkIn, *s.checkOut) < 1 {
		return ErrEmptyStay
	}
	if !s.fsm.CanTransition(s.state, StateUnitChosen) {
		return fmt.Errorf("select unit in state %s", s.state)
	}
	s.unit = number
	s.state = StateUnitChosen
	return nil
}

// SetDates replaces the date range and re-validates a chosen unit.
// It reports whether an existing choice was dropped.
func (s *Selection) SetDates(checkIn, checkOut *time.Time) (invalidated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateBookingRequested {
		return false
	}
	s.checkIn, s.checkOut = checkIn, checkOut
	if s.state != StateUnitChosen {
		return false
	}
	if checkIn == nil || checkOut == nil ||
		model.NightsBetween(*checkIn, *checkOut) < 1 ||
		!availability.IsNumberAvailable(&s.room, s.unit, checkIn, checkOut) {
		s.state = StateNoSelection
		s.unit = 0
		return true
	}
	return false
}

// Clear drops the chosen unit.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateUnitChosen {
		s.state = StateNoSelection
		s.unit = 0
	}
}

// Confirm sends the chosen unit to the booking service.
// On rejection the dialog goes back to NoSelection and the error is returned.
func (s *Selection) Confirm(ctx context.Context, v Viewer, booker Booker) (*model.Booking, error) {
	s.mu.Lock()
	switch {
	case s.state == StateBookingRequested:
		s.mu.Unlock()
		return nil, ErrRequestInFlight
	case s.state != StateUnitChosen:
		s.mu.Unlock()
		return nil, ErrNothingSelected
	case v == nil || !v.IsAuthenticated():
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	nights := model.NightsBetween(*s.checkIn, *s.checkOut)
	req := model.BookingRequest{
		UserID:     v.AccountID(),
		HotelID:    s.hotelID,
		RoomID:     s.room.ID,
		RoomNumber: s.unit,
		DateStart:  model.Day(*s.checkIn),
		DateEnd:    model.Day(*s.checkOut),
		TotalPrice: s.room.TotalPrice(nights),
	}
	s.state = StateBookingRequested
	s.mu.Unlock()

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	created, err := booker.CreateBooking(callCtx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateNoSelection
		s.unit = 0
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return created, nil
}
