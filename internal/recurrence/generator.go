package recurrence

import (
	"fmt"
	"time"
)

// Generate expands rule into every occurrence date inside [from, to], both
// ends inclusive, intersected with the rule's own bounds. The result is
// sorted ascending, duplicate-free, and a pure function of its inputs, so a
// repeated call with the same arguments returns the same sequence. The query
// window only bounds generation; the cadence anchor is the rule's start date,
// so the same rule yields the same dates regardless of how it is windowed.
func Generate(rule Rule, from, to time.Time) ([]time.Time, error) {
	rule, err := NewRule(rule)
	if err != nil {
		return nil, err
	}
	from, to = DateOnly(from), DateOnly(to)
	if from.After(to) {
		return nil, fmt.Errorf("%w: window %s after %s", ErrInvertedRange,
			from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	// anchor drives cadence alignment; an open-start rule anchors on the
	// window so generation stays defined, at the cost of window-dependent
	// cadence for interval > 1
	anchor := from
	if rule.Start != nil {
		anchor = *rule.Start
	}

	lo, hi := from, to
	if rule.Start != nil && rule.Start.After(lo) {
		lo = *rule.Start
	}
	if rule.End != nil && rule.End.Before(hi) {
		hi = *rule.End
	}
	if lo.After(hi) {
		return nil, nil
	}

	var raw []time.Time
	switch rule.Frequency {
	case FrequencyDaily:
		raw = generateDaily(anchor, rule.Interval, lo, hi)
	case FrequencyWeekly:
		raw = generateWeekly(anchor, rule.Interval, rule.Weekdays, lo, hi)
	case FrequencyCustom:
		raw = generateWeekly(anchor, 1, rule.Weekdays, lo, hi)
	case FrequencyMonthly:
		raw = generateMonthly(anchor, rule.Interval, rule.DayOfMonth, lo, hi)
	}

	if len(rule.Excluded) == 0 {
		return raw, nil
	}
	kept := raw[:0]
	for _, d := range raw {
		if !rule.Excluded.Has(d) {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

func generateDaily(anchor time.Time, interval int, lo, hi time.Time) []time.Time {
	first := lo
	if offset := DaysBetween(anchor, lo); offset%interval != 0 {
		rem := offset % interval
		if rem < 0 {
			rem += interval
		}
		first = lo.AddDate(0, 0, interval-rem)
	}
	var out []time.Time
	for d := first; !d.After(hi); d = d.AddDate(0, 0, interval) {
		out = append(out, d)
	}
	return out
}

func generateWeekly(anchor time.Time, interval int, weekdays WeekdaySet, lo, hi time.Time) []time.Time {
	anchorWeek := weekStart(anchor)
	var out []time.Time
	_ = EachDay(lo, hi, func(d time.Time) bool {
		if !weekdays.Has(ISOWeekday(d)) {
			return true
		}
		weekIndex := DaysBetween(anchorWeek, weekStart(d)) / 7
		if weekIndex%interval == 0 {
			out = append(out, d)
		}
		return true
	})
	return out
}

func generateMonthly(anchor time.Time, interval, dayOfMonth int, lo, hi time.Time) []time.Time {
	var out []time.Time
	for k := 0; ; k++ {
		// clamp against each target month individually so a 31st rule
		// recovers to the 31st after passing through a short month
		firstOfMonth := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		firstOfMonth = AddMonthsClamped(firstOfMonth, k*interval)
		day := dayOfMonth
		if last := daysInMonth(firstOfMonth.Year(), firstOfMonth.Month()); day > last {
			day = last
		}
		candidate := firstOfMonth.AddDate(0, 0, day-1)
		if candidate.After(hi) {
			return out
		}
		if !candidate.Before(lo) {
			out = append(out, candidate)
		}
	}
}
