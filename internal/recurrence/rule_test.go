package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleDefaultsInterval(t *testing.T) {
	rule, err := NewRule(Rule{Frequency: FrequencyDaily})
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Interval)

	rule, err = NewRule(Rule{Frequency: FrequencyDaily, Interval: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Interval)
}

func TestNewRuleCustomForcesInterval(t *testing.T) {
	rule, err := NewRule(Rule{
		Frequency: FrequencyCustom,
		Interval:  4,
		Weekdays:  NewWeekdaySet(1, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rule.Interval)
}

func TestNewRuleNormalisesBoundsAndExclusions(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	start := time.Date(2024, time.January, 1, 18, 30, 0, 0, loc)
	end := time.Date(2024, time.June, 30, 6, 0, 0, 0, loc)
	rule, err := NewRule(Rule{
		Frequency: FrequencyDaily,
		Start:     &start,
		End:       &end,
		Excluded:  NewDateSet(time.Date(2024, time.January, 15, 9, 0, 0, 0, loc)),
	})
	require.NoError(t, err)
	assert.Equal(t, d(2024, time.January, 1), *rule.Start)
	assert.Equal(t, d(2024, time.June, 30), *rule.End)
	assert.True(t, rule.Excluded.Has(d(2024, time.January, 15)))
}

func TestNewRuleRejections(t *testing.T) {
	start := d(2024, time.June, 1)
	end := d(2024, time.January, 1)
	cases := []struct {
		name    string
		rule    Rule
		wantErr error
	}{
		{"daily with weekdays", Rule{Frequency: FrequencyDaily, Weekdays: NewWeekdaySet(1)}, ErrInvalidRule},
		{"daily with day of month", Rule{Frequency: FrequencyDaily, DayOfMonth: 10}, ErrInvalidRule},
		{"weekly without weekdays", Rule{Frequency: FrequencyWeekly}, ErrInvalidRule},
		{"custom without weekdays", Rule{Frequency: FrequencyCustom}, ErrInvalidRule},
		{"weekly with day of month", Rule{Frequency: FrequencyWeekly, Weekdays: NewWeekdaySet(1), DayOfMonth: 5}, ErrInvalidRule},
		{"weekday below range", Rule{Frequency: FrequencyWeekly, Weekdays: NewWeekdaySet(0)}, ErrInvalidRule},
		{"weekday above range", Rule{Frequency: FrequencyWeekly, Weekdays: NewWeekdaySet(8)}, ErrInvalidRule},
		{"monthly without day of month", Rule{Frequency: FrequencyMonthly}, ErrInvalidRule},
		{"monthly day of month too large", Rule{Frequency: FrequencyMonthly, DayOfMonth: 32}, ErrInvalidRule},
		{"monthly with weekdays", Rule{Frequency: FrequencyMonthly, DayOfMonth: 10, Weekdays: NewWeekdaySet(2)}, ErrInvalidRule},
		{"unknown frequency", Rule{Frequency: "YEARLY"}, ErrInvalidRule},
		{"start after end", Rule{Frequency: FrequencyDaily, Start: &start, End: &end}, ErrInvertedRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRule(tc.rule)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWeekdaySetList(t *testing.T) {
	set := NewWeekdaySet(5, 1, 3)
	assert.Equal(t, []int{1, 3, 5}, set.List())
	assert.True(t, set.Has(3))
	assert.False(t, set.Has(2))
}

func TestDateSetComparesDateOnly(t *testing.T) {
	set := NewDateSet(d(2024, time.April, 10))
	assert.True(t, set.Has(time.Date(2024, time.April, 10, 15, 4, 5, 0, time.UTC)))
	assert.False(t, set.Has(d(2024, time.April, 11)))
}
