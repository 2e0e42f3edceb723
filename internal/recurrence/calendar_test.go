package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDateOnlyTruncates(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	stamp := time.Date(2024, time.March, 4, 23, 45, 12, 999, loc)
	got := DateOnly(stamp)
	assert.Equal(t, d(2024, time.March, 4), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestISOWeekday(t *testing.T) {
	assert.Equal(t, 1, ISOWeekday(d(2024, time.March, 4)))  // Monday
	assert.Equal(t, 6, ISOWeekday(d(2024, time.March, 9)))  // Saturday
	assert.Equal(t, 7, ISOWeekday(d(2024, time.March, 10))) // Sunday
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(d(2024, time.March, 4), d(2024, time.March, 4)))
	assert.Equal(t, 3, DaysBetween(d(2024, time.March, 4), d(2024, time.March, 7)))
	assert.Equal(t, -3, DaysBetween(d(2024, time.March, 7), d(2024, time.March, 4)))
	// across the Feb 29 leap day
	assert.Equal(t, 2, DaysBetween(d(2024, time.February, 28), d(2024, time.March, 1)))
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"plain", d(2024, time.January, 15), 1, d(2024, time.February, 15)},
		{"clamp to feb leap", d(2024, time.January, 31), 1, d(2024, time.February, 29)},
		{"clamp to feb non leap", d(2023, time.January, 31), 1, d(2023, time.February, 28)},
		{"clamp to short month", d(2024, time.March, 31), 1, d(2024, time.April, 30)},
		{"year rollover", d(2024, time.November, 30), 3, d(2025, time.February, 28)},
		{"multi year", d(2024, time.January, 31), 25, d(2026, time.February, 28)},
		{"zero", d(2024, time.May, 10), 0, d(2024, time.May, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AddMonthsClamped(tc.in, tc.n))
		})
	}
}

func TestEachDayInclusive(t *testing.T) {
	var seen []time.Time
	err := EachDay(d(2024, time.March, 4), d(2024, time.March, 6), func(day time.Time) bool {
		seen = append(seen, day)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d(2024, time.March, 4), d(2024, time.March, 5), d(2024, time.March, 6)}, seen)
}

func TestEachDayStopsEarly(t *testing.T) {
	count := 0
	err := EachDay(d(2024, time.March, 1), d(2024, time.March, 31), func(time.Time) bool {
		count++
		return count < 5
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestEachDayInvertedRange(t *testing.T) {
	err := EachDay(d(2024, time.March, 6), d(2024, time.March, 4), func(time.Time) bool { return true })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvertedRange)
}

func TestDaysSingleDay(t *testing.T) {
	days, err := Days(d(2024, time.March, 4), d(2024, time.March, 4))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{d(2024, time.March, 4)}, days)
}
