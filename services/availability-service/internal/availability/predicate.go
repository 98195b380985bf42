package availability

import (
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

// IsDateUnavailable reports whether date cannot be picked at clinic: there is
// no clinic, the date is a weekend for locale, or the clinic has no hours on
// that weekday.
func IsDateUnavailable(date calendar.Date, clinic *model.Clinic, locale calendar.Locale) bool {
	if clinic == nil {
		return true
	}
	if locale.IsWeekend(date) {
		return true
	}
	_, ok := clinic.HoursFor(calendar.DayOfWeek(date))
	return !ok
}

// DateAvailability is one day of a date-picker window.
type DateAvailability struct {
	Date        calendar.Date
	Unavailable bool
}

// DateRange evaluates IsDateUnavailable for every day in [from, to].
func DateRange(from, to calendar.Date, clinic *model.Clinic, locale calendar.Locale) []DateAvailability {
	if to.Before(from) {
		return nil
	}
	n := from.DaysBetween(to) + 1
	out := make([]DateAvailability, 0, n)
	for d := from; !to.Before(d); d = d.AddDays(1) {
		out = append(out, DateAvailability{Date: d, Unavailable: IsDateUnavailable(d, clinic, locale)})
	}
	return out
}
