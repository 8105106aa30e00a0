package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestBooking_Validate(t *testing.T) {
	ok := Booking{ID: "b1", DateStart: date(2025, 6, 8), DateEnd: date(2025, 6, 10), Status: StatusConfirmed}
	assert.NoError(t, ok.Validate())

	sameDay := Booking{ID: "b2", DateStart: date(2025, 6, 8), DateEnd: date(2025, 6, 8), Status: StatusConfirmed}
	assert.ErrorIs(t, sameDay.Validate(), ErrInvalidBookingRange)

	reversed := Booking{ID: "b3", DateStart: date(2025, 6, 10), DateEnd: date(2025, 6, 8), Status: StatusConfirmed}
	assert.ErrorIs(t, reversed.Validate(), ErrInvalidBookingRange)

	unknown := Booking{ID: "b4", DateStart: date(2025, 6, 8), DateEnd: date(2025, 6, 9), Status: "pending"}
	assert.Error(t, unknown.Validate())
}

func TestBooking_Nights(t *testing.T) {
	b := Booking{DateStart: date(2025, 6, 8), DateEnd: date(2025, 6, 12)}
	assert.Equal(t, 4, b.Nights())

	late := Booking{
		DateStart: time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC),
		DateEnd:   time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 1, late.Nights())
}

func TestBooking_CanCancel(t *testing.T) {
	now := date(2025, 6, 1)

	tests := []struct {
		name   string
		status BookingStatus
		start  time.Time
		want   bool
	}{
		{"confirmed upcoming", StatusConfirmed, date(2025, 6, 5), true},
		{"confirmed started", StatusConfirmed, date(2025, 5, 30), false},
		{"confirmed starts now", StatusConfirmed, now, false},
		{"cancelled upcoming", StatusCancelled, date(2025, 6, 5), false},
		{"completed", StatusCompleted, date(2025, 5, 1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Booking{Status: tt.status, DateStart: tt.start, DateEnd: tt.start.AddDate(0, 0, 2)}
			assert.Equal(t, tt.want, b.CanCancel(now))
		})
	}
}

func TestBookingStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusConfirmed.CanTransition(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransition(StatusCompleted))
	assert.False(t, StatusCancelled.CanTransition(StatusConfirmed))
	assert.False(t, StatusCompleted.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusCompleted))
}

func TestBooking_DecodeServicePayload(t *testing.T) {
	payload := `{
		"_id": "b1", "userId": "u1", "hotelId": "h1", "roomId": "r1", "roomNumber": 101,
		"dateStart": "2025-06-08T00:00:00.000Z", "dateEnd": "2025-06-11T00:00:00.000Z",
		"totalPrice": 897, "status": "confirmed", "createdAt": "2025-06-01T10:00:00Z",
		"hotel": {"_id": "h1", "name": "Grand Plaza Hotel", "city": "New York"},
		"room": {"_id": "r1", "title": "Deluxe King Room", "price": 299, "maxPeople": 2}
	}`

	var b Booking
	require.NoError(t, json.Unmarshal([]byte(payload), &b))
	assert.Equal(t, 101, b.RoomNumber)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, 3, b.Nights())
	assert.Equal(t, "Grand Plaza Hotel", b.HotelName())
	assert.Equal(t, "Deluxe King Room", b.RoomTitle())
	assert.NoError(t, b.Validate())
}

func TestRoom_Helpers(t *testing.T) {
	r := Room{Price: 120, MaxPeople: 2, RoomNumbers: []RoomUnit{{Number: 101}, {Number: 102}}}

	u, ok := r.FindUnit(102)
	assert.True(t, ok)
	assert.Equal(t, 102, u.Number)

	_, ok = r.FindUnit(999)
	assert.False(t, ok)

	assert.Equal(t, 360.0, r.TotalPrice(3))
	assert.Equal(t, 0.0, r.TotalPrice(0))
	assert.True(t, r.FitsGuests(2))
	assert.False(t, r.FitsGuests(3))
}

func TestUser_ProfileRoundTrip(t *testing.T) {
	u := User{ID: "u1", Username: "anna", Email: "anna@example.com", Country: "PL", City: "Krakow", IsAdmin: true}
	p := u.Profile()
	p.City = "Warsaw"

	updated := u.WithProfile(p)
	assert.Equal(t, "Warsaw", updated.City)
	assert.Equal(t, "u1", updated.ID)
	assert.True(t, updated.IsAdmin)
	assert.Equal(t, "Krakow", u.City)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}
