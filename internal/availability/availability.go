// Package availability decides which room units can be booked for a date range.
package availability

import (
	"time"

	"stayhaven/internal/model"
)

// IsUnitAvailable reports whether unit has no blocked night inside [checkIn, checkOut].
// Both bounds are inclusive and compared by calendar date. A missing bound means no
// range was requested yet, so every unit counts as available.
func IsUnitAvailable(unit model.RoomUnit, checkIn, checkOut *time.Time) bool {
	if checkIn == nil || checkOut == nil {
		return true
	}
	from, to := model.Day(*checkIn), model.Day(*checkOut)
	for _, blocked := range unit.UnavailableDates {
		d := model.Day(blocked)
		if !d.Before(from) && !d.After(to) {
			return false
		}
	}
	return true
}

// IsNumberAvailable looks the unit up by number; unknown numbers are unavailable
// once a range is set.
func IsNumberAvailable(room *model.Room, number int, checkIn, checkOut *time.Time) bool {
	if checkIn == nil || checkOut == nil {
		return true
	}
	unit, ok := room.FindUnit(number)
	if !ok {
		return false
	}
	return IsUnitAvailable(unit, checkIn, checkOut)
}

// IsRoomAvailable reports whether at least one unit of room is available.
func IsRoomAvailable(room *model.Room, checkIn, checkOut *time.Time) bool {
	for _, u := range room.RoomNumbers {
		if IsUnitAvailable(u, checkIn, checkOut) {
			return true
		}
	}
	return false
}

// AvailableUnits returns the numbers of the available units in room order.
func AvailableUnits(room *model.Room, checkIn, checkOut *time.Time) []int {
	out := make([]int, 0, len(room.RoomNumbers))
	for _, u := range room.RoomNumbers {
		if IsUnitAvailable(u, checkIn, checkOut) {
			out = append(out, u.Number)
		}
	}
	return out
}

// UnitState pairs a unit number with its availability.
type UnitState struct {
	Number    int
	Available bool
}

// Units evaluates every unit of room for the range.
func Units(room *model.Room, checkIn, checkOut *time.Time) []UnitState {
	out := make([]UnitState, 0, len(room.RoomNumbers))
	for _, u := range room.RoomNumbers {
		out = append(out, UnitState{Number: u.Number, Available: IsUnitAvailable(u, checkIn, checkOut)})
	}
	return out
}
