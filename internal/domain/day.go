package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayFormat is the ISO-8601 format used to represent days as strings.
const DayFormat = "2006-01-02"

// Day represents a date with day-level granularity, normalized to UTC midnight.
// All facts and snapshots are keyed by Day; intra-day time is never significant.
type Day struct {
	t time.Time
}

// NewDay returns a normalized Day for the given year, month and day.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an arbitrary instant to its UTC day.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return NewDay(y, m, d)
}

// Today returns the current UTC day.
func Today() Day { return DayOf(time.Now()) }

// Time returns the canonical representation of the day (midnight UTC).
func (d Day) Time() time.Time { return d.t }

// IsZero reports whether the day is the zero value.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly before x.
func (d Day) Before(x Day) bool { return d.t.Before(x.t) }

// After reports whether d is strictly after x.
func (d Day) After(x Day) bool { return d.t.After(x.t) }

// Equal reports whether d and x are the same day.
func (d Day) Equal(x Day) bool { return d.t.Equal(x.t) }

// AddDays returns a new Day shifted by n days (n may be negative).
func (d Day) AddDays(n int) Day {
	return DayOf(d.t.AddDate(0, 0, n))
}

// Next returns the following day.
func (d Day) Next() Day { return d.AddDays(1) }

// Min returns the earlier of d and x.
func (d Day) Min(x Day) Day {
	if x.Before(d) {
		return x
	}
	return d
}

// String formats the day in ISO-8601.
func (d Day) String() string { return d.t.Format(DayFormat) }

// ParseDay parses an ISO-8601 day string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q, want format %q: %w", s, DayFormat, err)
	}
	return DayOf(t), nil
}

// MustParseDay is like ParseDay but panics on error. Intended for tests and fixtures.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// MarshalJSON encodes the day as an ISO-8601 string.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes the day from an ISO-8601 string.
func (d *Day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	day, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = day
	return nil
}

var _ json.Marshaler = (*Day)(nil)
var _ json.Unmarshaler = (*Day)(nil)

// Month identifies a calendar month. Cash-flow snapshots are keyed by Month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing the given day.
func MonthOf(d Day) Month {
	return Month{Year: d.t.Year(), Month: d.t.Month()}
}

// ThisMonth returns the current UTC month.
func ThisMonth() Month { return MonthOf(Today()) }

// FirstDay returns the first day of the month.
func (m Month) FirstDay() Day { return NewDay(m.Year, m.Month, 1) }

// LastDay returns the last day of the month.
func (m Month) LastDay() Day { return NewDay(m.Year, m.Month+1, 1).AddDays(-1) }

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(NewDay(m.Year, m.Month+1, 1))
}

// Before reports whether m is strictly before x.
func (m Month) Before(x Month) bool {
	return m.FirstDay().Before(x.FirstDay())
}

// After reports whether m is strictly after x.
func (m Month) After(x Month) bool {
	return m.FirstDay().After(x.FirstDay())
}

// Contains reports whether the day falls inside the month.
func (m Month) Contains(d Day) bool { return MonthOf(d) == m }

// String formats the month as "2006-01".
func (m Month) String() string { return m.FirstDay().t.Format("2006-01") }

// DayRange is an inclusive range of days.
type DayRange struct {
	From Day
	To   Day
}

// Contains reports whether the day is inside the range, boundaries included.
func (r DayRange) Contains(d Day) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// MonthRange is an inclusive range of months.
type MonthRange struct {
	From Month
	To   Month
}
