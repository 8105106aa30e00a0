package model

import (
	"errors"
	"fmt"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

var ErrInvalidBookingRange = errors.New("booking end must be after start")

var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusConfirmed: {StatusCancelled, StatusCompleted},
}

// CanTransition reports whether the status may move to next.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// HotelSummary is the hotel part embedded into a booking by the booking service.
type HotelSummary struct {
	ID      string   `json:"_id"`
	Name    string   `json:"name"`
	City    string   `json:"city"`
	Address string   `json:"address"`
	Photos  []string `json:"photos,omitempty"`
	Rating  float64  `json:"rating"`
}

// RoomSummary is the room part embedded into a booking by the booking service.
type RoomSummary struct {
	ID        string  `json:"_id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	MaxPeople int     `json:"maxPeople"`
}

// Booking is a reservation of one unit for a date range.
type Booking struct {
	ID         string        `json:"_id"`
	UserID     string        `json:"userId"`
	HotelID    string        `json:"hotelId"`
	RoomID     string        `json:"roomId"`
	RoomNumber int           `json:"roomNumber"`
	DateStart  time.Time     `json:"dateStart"`
	DateEnd    time.Time     `json:"dateEnd"`
	TotalPrice float64       `json:"totalPrice"`
	Status     BookingStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`

	Hotel *HotelSummary `json:"hotel,omitempty"`
	Room  *RoomSummary  `json:"room,omitempty"`
}

// Validate checks the booking invariants.
func (b *Booking) Validate() error {
	if !b.DateEnd.After(b.DateStart) {
		return fmt.Errorf("booking %s: %w", b.ID, ErrInvalidBookingRange)
	}
	if !b.Status.Valid() {
		return fmt.Errorf("booking %s: unknown status %q", b.ID, b.Status)
	}
	return nil
}

// Nights is the number of nights covered by the booking.
func (b *Booking) Nights() int {
	return NightsBetween(b.DateStart, b.DateEnd)
}

// IsUpcoming reports whether the stay has not started yet.
func (b *Booking) IsUpcoming(now time.Time) bool {
	return now.Before(b.DateStart)
}

// CanCancel reports whether the user may cancel the booking at now.
func (b *Booking) CanCancel(now time.Time) bool {
	return b.Status == StatusConfirmed && b.IsUpcoming(now)
}

// HotelName returns the embedded hotel name or a fallback built from the id.
func (b *Booking) HotelName() string {
	if b.Hotel != nil && b.Hotel.Name != "" {
		return b.Hotel.Name
	}
	return "Hotel " + b.HotelID
}

// RoomTitle returns the embedded room title or a fallback built from the id.
func (b *Booking) RoomTitle() string {
	if b.Room != nil && b.Room.Title != "" {
		return b.Room.Title
	}
	return "Room " + b.RoomID
}

// BookingRequest asks the booking service to reserve one unit.
type BookingRequest struct {
	UserID     string    `json:"userId"`
	HotelID    string    `json:"hotelId"`
	RoomID     string    `json:"roomId"`
	RoomNumber int       `json:"roomNumber"`
	DateStart  time.Time `json:"dateStart"`
	DateEnd    time.Time `json:"dateEnd"`
	TotalPrice float64   `json:"totalPrice"`
}
