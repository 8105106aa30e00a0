// Package dashboard is the signed-in user's area: the bookings list with its
// cancel dialog and the editable profile.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"stayhaven/internal/cancellation"
	"stayhaven/internal/metrics"
	"stayhaven/internal/model"
)

var ErrUnknownBooking = errors.New("booking not found")

// Tab is the visible section of the dashboard.
type Tab string

const (
	TabBookings Tab = "bookings"
	TabProfile  Tab = "profile"
)

// Service is the part of the backend the dashboard talks to.
type Service interface {
	GetUserBookings(ctx context.Context, userID string) ([]model.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	UpdateUser(ctx context.Context, userID string, fields model.ProfileFields) (*model.User, error)
}

// Dashboard owns the bookings list of one user. Only the dashboard mutates it.
type Dashboard struct {
	mu       sync.Mutex
	user     model.User
	bookings []model.Booking
	loaded   bool
	tab      Tab

	editing bool
	saving  bool
	draft   model.ProfileFields

	svc     Service
	cancel  *cancellation.Flow
	timeout time.Duration
}

// New builds a dashboard for user. tracker is shared between dashboards so a
// booking has at most one cancel request in flight.
func New(user model.User, svc Service, tracker *cancellation.Tracker, timeout time.Duration) *Dashboard {
	if timeout <= 0 {
		timeout = cancellation.DefaultTimeout
	}
	return &Dashboard{
		user:    user,
		tab:     TabBookings,
		svc:     svc,
		cancel:  cancellation.NewFlow(svc, tracker, timeout),
		timeout: timeout,
	}
}

// Load fetches the bookings. On failure the previous list is kept.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	userID := d.user.ID
	d.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	list, err := d.svc.GetUserBookings(callCtx, userID)
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.bookings = list
	d.loaded = true
	return nil
}

// Loaded reports whether at least one Load succeeded.
func (d *Dashboard) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

// Bookings returns the list, most recent stay first.
func (d *Dashboard) Bookings() []model.Booking {
	d.mu.Lock()
	out := make([]model.Booking, len(d.bookings))
	copy(out, d.bookings)
	d.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateStart.After(out[j].DateStart)
	})
	return out
}

// Booking returns one booking by id.
func (d *Dashboard) Booking(id string) (model.Booking, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return model.Booking{}, false
}

// Cancellable returns the ids that may offer a cancel action at now.
func (d *Dashboard) Cancellable(now time.Time) []string {
	var ids []string
	for _, b := range d.Bookings() {
		if b.CanCancel(now) {
			ids = append(ids, b.ID)
		}
	}
	return ids
}

func (d *Dashboard) Tab() Tab {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

func (d *Dashboard) SetTab(t Tab) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == TabBookings || t == TabProfile {
		d.tab = t
	}
}

// RequestCancel opens the confirmation dialog for a booking.
func (d *Dashboard) RequestCancel(id string, now time.Time) error {
	b, ok := d.Booking(id)
	if !ok {
		return ErrUnknownBooking
	}
	return d.cancel.Open(&b, now)
}

// CancelDialog describes the open dialog. busy means the confirm button is disabled.
func (d *Dashboard) CancelDialog() (state cancellation.State, bookingID string, busy bool) {
	return d.cancel.State(), d.cancel.BookingID(), d.cancel.Busy()
}

// DismissCancel closes the dialog without a request.
func (d *Dashboard) DismissCancel() {
	d.cancel.Dismiss()
}

// ConfirmCancel sends the cancel request and marks the booking cancelled
// once the service accepted it.
func (d *Dashboard) ConfirmCancel(ctx context.Context) (model.Booking, error) {
	id := d.cancel.BookingID()
	if err := d.cancel.Confirm(ctx); err != nil {
		if !errors.Is(err, cancellation.ErrNoDialog) && !errors.Is(err, cancellation.ErrInFlight) {
			metrics.IncCancellation("failure")
		}
		return model.Booking{}, err
	}
	metrics.IncCancellation("success")

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bookings {
		if d.bookings[i].ID != id {
			continue
		}
		if d.bookings[i].Status.CanTransition(model.StatusCancelled) {
			d.bookings[i].Status = model.StatusCancelled
		}
		return d.bookings[i], nil
	}
	return model.Booking{ID: id, Status: model.StatusCancelled}, nil
}

// Replace swaps in a booking created elsewhere, or appends it.
func (d *Dashboard) Replace(b model.Booking) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.bookings {
		if d.bookings[i].ID == b.ID {
			d.bookings[i] = b
			return
		}
	}
	d.bookings = append(d.bookings, b)
}
