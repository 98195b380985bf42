package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar day with no time-of-day or location attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// At returns the instant at hour:minute of d in loc.
func (d Date) At(hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.At(0, 0, time.UTC).Weekday()
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.At(0, 0, time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.At(0, 0, time.UTC).Before(o.At(0, 0, time.UTC))
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return d.At(0, 0, time.UTC).Format(dateLayout)
}

// DaysBetween counts whole days from d to o (negative when o is before d).
func (d Date) DaysBetween(o Date) int {
	return int(o.At(0, 0, time.UTC).Sub(d.At(0, 0, time.UTC)).Hours() / 24)
}

// DayOfWeek maps d onto the clinic schedule convention: Monday=0 ... Sunday=6.
// It is the ISO-8601 weekday (Monday=1 ... Sunday=7) minus one. Every match of
// clinic hours against a date goes through here.
func DayOfWeek(d Date) int {
	return isoWeekday(d.Weekday()) - 1
}

func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}
