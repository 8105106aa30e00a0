// Package search collects hotel search criteria and turns them into a listing query.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stayhaven/internal/model"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidGuests = errors.New("guests must be a positive number")
	ErrRangeOrder    = errors.New("check-out must not be before check-in")
	ErrPastDate      = errors.New("dates in the past cannot be selected")
)

// Criteria is a hotel search request.
type Criteria struct {
	City     string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   int
}

// HasDates reports whether both bounds are set.
func (c Criteria) HasDates() bool {
	return c.CheckIn != nil && c.CheckOut != nil
}

// Nights is the number of nights in the range, zero without dates.
func (c Criteria) Nights() int {
	if !c.HasDates() {
		return 0
	}
	return model.NightsBetween(*c.CheckIn, *c.CheckOut)
}

// Query serializes the non-empty fields. Guests is always present.
func (c Criteria) Query() url.Values {
	q := url.Values{}
	if c.City != "" {
		q.Set("city", c.City)
	}
	if c.CheckIn != nil {
		q.Set("checkIn", c.CheckIn.Format(dateLayout))
	}
	if c.CheckOut != nil {
		q.Set("checkOut", c.CheckOut.Format(dateLayout))
	}
	guests := c.Guests
	if guests < 1 {
		guests = 1
	}
	q.Set("guests", strconv.Itoa(guests))
	return q
}

// ParseQuery rebuilds criteria from a listing query. Unparseable fields are dropped.
func ParseQuery(q url.Values) Criteria {
	c := Criteria{City: strings.TrimSpace(q.Get("city")), Guests: 1}
	if t, err := parseDate(q.Get("checkIn")); err == nil {
		c.CheckIn = &t
	}
	if t, err := parseDate(q.Get("checkOut")); err == nil {
		c.CheckOut = &t
	}
	if c.HasDates() && c.CheckOut.Before(*c.CheckIn) {
		c.CheckOut = nil
	}
	if g, err := strconv.Atoi(q.Get("guests")); err == nil && g > 0 {
		c.Guests = g
	}
	return c
}

// Builder accumulates criteria field by field. Rejected input leaves the previous value in place.
type Builder struct {
	criteria Criteria
	now      func() time.Time
}

// NewBuilder starts from an empty search for one guest.
func NewBuilder() *Builder {
	return &Builder{criteria: Criteria{Guests: 1}, now: time.Now}
}

// FromCriteria starts from an existing search, e.g. a restored one.
func FromCriteria(c Criteria) *Builder {
	b := NewBuilder()
	b.criteria.City = c.City
	b.criteria.CheckIn, b.criteria.CheckOut = c.CheckIn, c.CheckOut
	if c.Guests > 0 {
		b.criteria.Guests = c.Guests
	}
	return b
}

// SetCity sets the free-text location.
func (b *Builder) SetCity(city string) {
	b.criteria.City = strings.TrimSpace(city)
}

// SetDateRange sets both bounds at once; either may be nil.
func (b *Builder) SetDateRange(from, to *time.Time) error {
	today := model.Day(b.now())
	var in, out *time.Time
	if from != nil {
		d := model.Day(*from)
		if d.Before(today) {
			return ErrPastDate
		}
		in = &d
	}
	if to != nil {
		d := model.Day(*to)
		if d.Before(today) {
			return ErrPastDate
		}
		out = &d
	}
	if in != nil && out != nil && out.Before(*in) {
		return ErrRangeOrder
	}
	b.criteria.CheckIn, b.criteria.CheckOut = in, out
	return nil
}

// SetGuests parses raw guest input. Only integers >= 1 are accepted.
func (b *Builder) SetGuests(raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidGuests, raw)
	}
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGuests, n)
	}
	b.criteria.Guests = n
	return nil
}

// Criteria returns a copy of the current criteria.
func (b *Builder) Criteria() Criteria {
	c := b.criteria
	if c.CheckIn != nil {
		in := *c.CheckIn
		c.CheckIn = &in
	}
	if c.CheckOut != nil {
		out := *c.CheckOut
		c.CheckOut = &out
	}
	return c
}

// Submit returns the listing query for the collected criteria.
func (b *Builder) Submit() url.Values {
	return b.criteria.Query()
}

// ParseDate accepts the formats users type into the chat.
func ParseDate(input string) (time.Time, error) {
	return parseDate(input)
}

func parseDate(input string) (time.Time, error) {
	formats := []string{
		dateLayout,
		"02.01.2006",
		"2.1.2006",
		"02/01/2006",
		time.RFC3339,
	}

	input = strings.TrimSpace(input)
	for _, format := range formats {
		if t, err := time.Parse(format, input); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date: %s", input)
}
