package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Frequency discriminates the recurrence pattern of a rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	// FrequencyCustom is a free weekday subset with no interval semantics,
	// equivalent to WEEKLY with an interval of 1.
	FrequencyCustom Frequency = "CUSTOM"
)

var (
	// ErrInvalidRule marks a rule whose fields are mutually inconsistent.
	// Always a construction-time failure, never transient.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrInvertedRange marks a date range whose start is after its end.
	ErrInvertedRange = errors.New("inverted date range")
)

// WeekdaySet is a set of ISO weekdays (Monday=1 .. Sunday=7).
type WeekdaySet map[int]struct{}

// NewWeekdaySet builds a set from ISO weekday codes.
func NewWeekdaySet(days ...int) WeekdaySet {
	set := make(WeekdaySet, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

// Has reports membership of an ISO weekday code.
func (s WeekdaySet) Has(day int) bool {
	_, ok := s[day]
	return ok
}

// List returns the sorted weekday codes.
func (s WeekdaySet) List() []int {
	out := make([]int, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// DateSet is a set of calendar dates, keyed by midnight-UTC timestamps.
type DateSet map[time.Time]struct{}

// NewDateSet normalises and collects the given dates.
func NewDateSet(dates ...time.Time) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[DateOnly(d)] = struct{}{}
	}
	return set
}

// Has reports whether the date (compared calendar-date only) is in the set.
func (s DateSet) Has(d time.Time) bool {
	_, ok := s[DateOnly(d)]
	return ok
}

// Rule is an immutable recurrence definition. Build one through NewRule so an
// inconsistent combination of fields cannot escape into the generator; rules
// are replaced wholesale, never field-edited.
type Rule struct {
	Frequency  Frequency
	Interval   int
	Weekdays   WeekdaySet
	DayOfMonth int
	Start      *time.Time
	End        *time.Time
	Excluded   DateSet
}

// NewRule validates and normalises a rule. The weekday set is required for
// WEEKLY and CUSTOM and forbidden otherwise; DayOfMonth is required for
// MONTHLY and forbidden otherwise; Start must not follow End.
func NewRule(r Rule) (Rule, error) {
	if r.Interval <= 0 {
		r.Interval = 1
	}
	switch r.Frequency {
	case FrequencyDaily:
		if len(r.Weekdays) > 0 || r.DayOfMonth != 0 {
			return Rule{}, fmt.Errorf("%w: daily rule must not carry weekdays or day-of-month", ErrInvalidRule)
		}
	case FrequencyWeekly, FrequencyCustom:
		if len(r.Weekdays) == 0 {
			return Rule{}, fmt.Errorf("%w: %s rule requires a non-empty weekday set", ErrInvalidRule, r.Frequency)
		}
		if r.DayOfMonth != 0 {
			return Rule{}, fmt.Errorf("%w: %s rule must not carry day-of-month", ErrInvalidRule, r.Frequency)
		}
		for d := range r.Weekdays {
			if d < 1 || d > 7 {
				return Rule{}, fmt.Errorf("%w: weekday %d outside 1..7", ErrInvalidRule, d)
			}
		}
		if r.Frequency == FrequencyCustom {
			r.Interval = 1
		}
	case FrequencyMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return Rule{}, fmt.Errorf("%w: monthly rule requires day-of-month in 1..31", ErrInvalidRule)
		}
		if len(r.Weekdays) > 0 {
			return Rule{}, fmt.Errorf("%w: monthly rule must not carry weekdays", ErrInvalidRule)
		}
	default:
		return Rule{}, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, r.Frequency)
	}

	if r.Start != nil {
		start := DateOnly(*r.Start)
		r.Start = &start
	}
	if r.End != nil {
		end := DateOnly(*r.End)
		r.End = &end
	}
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return Rule{}, fmt.Errorf("%w: rule start %s after end %s", ErrInvertedRange,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}

	if r.Excluded != nil {
		normalised := make(DateSet, len(r.Excluded))
		for d := range r.Excluded {
			normalised[DateOnly(d)] = struct{}{}
		}
		r.Excluded = normalised
	}
	return r, nil
}
