package search

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBuilder(now time.Time) *Builder {
	b := NewBuilder()
	b.now = func() time.Time { return now }
	return b
}

func ptr(t time.Time) *time.Time { return &t }

func TestBuilder_GuestsRejectsNonPositive(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.SetGuests("3"))

	err := b.SetGuests("-1")
	assert.ErrorIs(t, err, ErrInvalidGuests)
	assert.Equal(t, 3, b.Criteria().Guests)

	assert.ErrorIs(t, b.SetGuests("0"), ErrInvalidGuests)
	assert.ErrorIs(t, b.SetGuests("two"), ErrInvalidGuests)
	assert.Equal(t, 3, b.Criteria().Guests)
}

func TestBuilder_DefaultGuests(t *testing.T) {
	assert.Equal(t, 1, NewBuilder().Criteria().Guests)
}

func TestBuilder_DateRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	b := fixedBuilder(now)

	in := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SetDateRange(&in, &out))
	assert.Equal(t, 4, b.Criteria().Nights())

	err := b.SetDateRange(&out, &in)
	assert.ErrorIs(t, err, ErrRangeOrder)
	assert.Equal(t, in, *b.Criteria().CheckIn)

	past := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)
	assert.ErrorIs(t, b.SetDateRange(&past, &out), ErrPastDate)

	// today is selectable
	require.NoError(t, b.SetDateRange(ptr(now), nil))
	assert.NotNil(t, b.Criteria().CheckIn)
	assert.Nil(t, b.Criteria().CheckOut)

	// same-day range satisfies checkIn <= checkOut
	require.NoError(t, b.SetDateRange(&in, &in))
	assert.Equal(t, 0, b.Criteria().Nights())
}

func TestBuilder_CriteriaIsCopy(t *testing.T) {
	b := fixedBuilder(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	in := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SetDateRange(&in, nil))

	c := b.Criteria()
	*c.CheckIn = c.CheckIn.AddDate(0, 0, 5)
	assert.Equal(t, in, *b.Criteria().CheckIn)
}

func TestBuilder_Submit(t *testing.T) {
	b := fixedBuilder(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	q := b.Submit()
	assert.Equal(t, url.Values{"guests": {"1"}}, q)

	b.SetCity("  Lisbon ")
	in := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)
	out := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.SetDateRange(&in, &out))
	require.NoError(t, b.SetGuests("2"))

	q = b.Submit()
	assert.Equal(t, "Lisbon", q.Get("city"))
	assert.Equal(t, "2025-06-08", q.Get("checkIn"))
	assert.Equal(t, "2025-06-12", q.Get("checkOut"))
	assert.Equal(t, "2", q.Get("guests"))

	back := ParseQuery(q)
	assert.Equal(t, b.Criteria(), back)
}

func TestParseQuery_DropsInvalid(t *testing.T) {
	c := ParseQuery(url.Values{
		"checkIn":  {"2025-06-12"},
		"checkOut": {"2025-06-08"},
		"guests":   {"-4"},
	})
	assert.NotNil(t, c.CheckIn)
	assert.Nil(t, c.CheckOut)
	assert.Equal(t, 1, c.Guests)
	assert.Equal(t, "", c.City)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-06-08", "08.06.2025", "8.6.2025", "08/06/2025", "2025-06-08T10:00:00Z"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), d, in)
	}
	_, err := ParseDate("tomorrow")
	assert.Error(t, err)
}
