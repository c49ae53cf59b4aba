package model

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day or zone component. Transfer
// dates, validity windows and due dates are all plain calendar days.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string { return d.t.Format(time.DateOnly) }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }

func (d Date) Year() int        { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int         { return d.t.Day() }

// Time returns the day as a time.Time at midnight UTC.
func (d Date) Time() time.Time { return d.t }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date { return DateOf(d.t.AddDate(0, 0, n)) }

// AddMonths returns the date n months later, clamping the day to the end of
// the target month (Jan 31 + 1 month = Feb 28/29, not Mar 2).
func (d Date) AddMonths(n int) Date {
	year, month := d.Year(), int(d.Month())+n
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	day := min(d.Day(), DaysInMonth(year, time.Month(month)))
	return NewDate(year, time.Month(month), day)
}

// AddYears returns the date n years later, clamping Feb 29 to Feb 28 in
// non-leap years.
func (d Date) AddYears(n int) Date {
	year := d.Year() + n
	day := min(d.Day(), DaysInMonth(year, d.Month()))
	return NewDate(year, d.Month(), day)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
