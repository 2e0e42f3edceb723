package recurrence

import (
	"fmt"
	"time"
)

// DateOnly truncates a timestamp to midnight UTC. All engine comparisons are
// calendar-date comparisons, so every time.Time entering this package is
// normalised through here first.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISOWeekday returns the ISO-8601 weekday of t: Monday=1 .. Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysBetween returns the number of calendar days from a to b. Negative when
// b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// AddMonthsClamped adds n calendar months to t, clamping the day-of-month to
// the last valid day of the resulting month. Jan 31 + 1 month is Feb 28 (or
// Feb 29 in a leap year), never Mar 3.
func AddMonthsClamped(t time.Time, n int) time.Time {
	t = DateOnly(t)
	year, month := t.Year(), int(t.Month())+n
	// normalise month into 1..12 shifting the year
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := t.Day()
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// EachDay walks every date in [from, to] inclusive, stopping early when fn
// returns false. It errors when from is after to.
func EachDay(from, to time.Time, fn func(time.Time) bool) error {
	from, to = DateOnly(from), DateOnly(to)
	if from.After(to) {
		return fmt.Errorf("%w: %s after %s", ErrInvertedRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !fn(d) {
			return nil
		}
	}
	return nil
}

// Days materialises EachDay into a slice.
func Days(from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	err := EachDay(from, to, func(d time.Time) bool {
		out = append(out, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func daysInMonth(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// weekStart returns the Monday of the ISO week containing t.
func weekStart(t time.Time) time.Time {
	t = DateOnly(t)
	return t.AddDate(0, 0, -(ISOWeekday(t) - 1))
}
