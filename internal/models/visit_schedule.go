package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fieldops-io/fieldops-api/internal/recurrence"
)

// ScheduleFrequency mirrors recurrence.Frequency at the storage boundary.
type ScheduleFrequency string

const (
	ScheduleFrequencyDaily   ScheduleFrequency = "DAILY"
	ScheduleFrequencyWeekly  ScheduleFrequency = "WEEKLY"
	ScheduleFrequencyMonthly ScheduleFrequency = "MONTHLY"
	ScheduleFrequencyCustom  ScheduleFrequency = "CUSTOM"
)

// DateList persists a set of calendar dates as a JSONB array of YYYY-MM-DD
// strings.
type DateList []time.Time

// Value marshals the dates for persistence.
func (l DateList) Value() (driver.Value, error) {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Format(time.DateOnly)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal date list: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into the date list.
func (l *DateList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for DateList", value)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal date list: %w", err)
	}
	dates := make(DateList, 0, len(raw))
	for _, s := range raw {
		d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
		if err != nil {
			return fmt.Errorf("parse date %q: %w", s, err)
		}
		dates = append(dates, d)
	}
	*l = dates
	return nil
}

// VisitSchedule stores the recurrence definition attached to a route
// customer. The loose columns are only ever materialised through Rule so the
// engine sees a validated, closed variant instead of raw nullable fields.
type VisitSchedule struct {
	ID              string            `db:"id" json:"id"`
	TenantID        string            `db:"tenant_id" json:"tenant_id"`
	RouteID         string            `db:"route_id" json:"route_id"`
	RouteCustomerID string            `db:"route_customer_id" json:"route_customer_id"`
	Frequency       ScheduleFrequency `db:"frequency" json:"frequency"`
	IntervalCount   int               `db:"interval_count" json:"interval_count"`
	Weekdays        pq.Int64Array     `db:"weekdays" json:"weekdays"`
	DayOfMonth      *int              `db:"day_of_month" json:"day_of_month,omitempty"`
	StartDate       *time.Time        `db:"start_date" json:"start_date,omitempty"`
	EndDate         *time.Time        `db:"end_date" json:"end_date,omitempty"`
	ExcludeDates    DateList          `db:"exclude_dates" json:"exclude_dates,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// Rule builds the validated recurrence value object from the stored columns.
func (s VisitSchedule) Rule() (recurrence.Rule, error) {
	weekdays := make([]int, len(s.Weekdays))
	for i, d := range s.Weekdays {
		weekdays[i] = int(d)
	}
	dayOfMonth := 0
	if s.DayOfMonth != nil {
		dayOfMonth = *s.DayOfMonth
	}
	return recurrence.NewRule(recurrence.Rule{
		Frequency:  recurrence.Frequency(s.Frequency),
		Interval:   s.IntervalCount,
		Weekdays:   recurrence.NewWeekdaySet(weekdays...),
		DayOfMonth: dayOfMonth,
		Start:      s.StartDate,
		End:        s.EndDate,
		Excluded:   recurrence.NewDateSet(s.ExcludeDates...),
	})
}

// ScheduleFilter captures filtering criteria for listing schedules.
type ScheduleFilter struct {
	TenantID  string
	RouteID   string
	Frequency *ScheduleFrequency
	Page      int
	PageSize  int
}
