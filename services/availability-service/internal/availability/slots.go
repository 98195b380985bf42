package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

// ErrInvalidWindow is returned when a clinic's opening time is not before its
// closing time. Windows crossing midnight are not supported.
var ErrInvalidWindow = errors.New("opening time must be before closing time")

// DaySlots is the slot picker state for one date. Enabled is false when no
// hour can be offered at all (no clinic, no operating hours that day).
type DaySlots struct {
	Slots   []model.Slot
	Enabled bool
}

// ComputeAvailableSlots lists the hour slots of date at clinic, marking the
// ones already taken by appointments. Appointment times are compared in the
// clinic's time zone, or UTC when the clinic has none.
func ComputeAvailableSlots(date calendar.Date, clinic *model.Clinic, appointments []model.ScheduledAppointment, locale calendar.Locale) (DaySlots, error) {
	return ComputeAvailableSlotsIn(date, clinic, appointments, locale, time.UTC)
}

// ComputeAvailableSlotsIn is ComputeAvailableSlots with an explicit fallback
// zone for clinics that do not declare one.
func ComputeAvailableSlotsIn(date calendar.Date, clinic *model.Clinic, appointments []model.ScheduledAppointment, locale calendar.Locale, fallback *time.Location) (DaySlots, error) {
	if clinic == nil || locale.IsWeekend(date) {
		return DaySlots{}, nil
	}
	hours, ok := clinic.HoursFor(calendar.DayOfWeek(date))
	if !ok {
		return DaySlots{}, nil
	}

	opening, err := calendar.ParseClock(hours.OpeningTime)
	if err != nil {
		return DaySlots{}, fmt.Errorf("clinic %d opening time: %w", clinic.ID, err)
	}
	closing, err := calendar.ParseClock(hours.ClosingTime)
	if err != nil {
		return DaySlots{}, fmt.Errorf("clinic %d closing time: %w", clinic.ID, err)
	}
	if !opening.Before(closing) {
		return DaySlots{}, fmt.Errorf("clinic %d on weekday %d (%s-%s): %w", clinic.ID, hours.DayOfWeek, opening, closing, ErrInvalidWindow)
	}

	taken := occupiedHours(date, appointments, clinic.Location(fallback))

	slots := make([]model.Slot, 0, closing.Hour-opening.Hour+1)
	for h := opening.Hour; h < closing.Hour || (h == closing.Hour && closing.Minute > 0); h++ {
		_, busy := taken[h]
		slots = append(slots, model.Slot{Hour: h, Minute: 0, Disabled: busy})
	}
	return DaySlots{Slots: slots, Enabled: true}, nil
}

// occupiedHours returns the start hours blocked on date. A plan whose length
// has a fractional hour also blocks the following hour.
func occupiedHours(date calendar.Date, appointments []model.ScheduledAppointment, loc *time.Location) map[int]struct{} {
	taken := make(map[int]struct{})
	for _, a := range appointments {
		local := a.Time.In(loc)
		if calendar.DateOf(local) != date {
			continue
		}
		taken[local.Hour()] = struct{}{}
		if a.Plan.Duration.SpillsOver() {
			taken[local.Hour()+1] = struct{}{}
		}
	}
	return taken
}

// IsSlotFree reports whether hour is offered and not taken on date.
func IsSlotFree(day DaySlots, hour, minute int) bool {
	if !day.Enabled || minute != 0 {
		return false
	}
	for _, s := range day.Slots {
		if s.Hour == hour {
			return !s.Disabled
		}
	}
	return false
}
