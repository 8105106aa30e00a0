package model

import "time"

// Hotel is a catalog entry as returned by the listing service.
type Hotel struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	City          string   `json:"city"`
	Address       string   `json:"address"`
	Photos        []string `json:"photos,omitempty"`
	Rating        float64  `json:"rating"`
	CheapestPrice float64  `json:"cheapestPrice"`
	RoomIDs       []string `json:"rooms,omitempty"`
}

// RoomUnit is a numbered physical room. UnavailableDates are blocked nights.
type RoomUnit struct {
	Number           int         `json:"number"`
	UnavailableDates []time.Time `json:"unavailableDates"`
}

// Room is a room type offered by a hotel.
type Room struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Desc        string     `json:"desc"`
	MaxPeople   int        `json:"maxPeople"`
	Price       float64    `json:"price"`
	RoomNumbers []RoomUnit `json:"roomNumbers"`
}

// FindUnit returns the unit with the given number.
func (r *Room) FindUnit(number int) (RoomUnit, bool) {
	for _, u := range r.RoomNumbers {
		if u.Number == number {
			return u, true
		}
	}
	return RoomUnit{}, false
}

// FitsGuests reports whether the room takes the requested number of guests.
func (r *Room) FitsGuests(guests int) bool {
	return guests <= 0 || r.MaxPeople >= guests
}

// TotalPrice is the price for the given number of nights.
func (r *Room) TotalPrice(nights int) float64 {
	if nights <= 0 {
		return 0
	}
	return r.Price * float64(nights)
}

// Day truncates t to its calendar date, keeping the date as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NightsBetween returns the number of calendar days between start and end.
func NightsBetween(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}
