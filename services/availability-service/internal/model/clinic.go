package model

import (
	"strconv"
	"time"
)

type ClinicHours struct {
	DayOfWeek   int    `json:"day_of_week"`
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

type Plan struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	Duration    Duration `json:"duration"`
}

type Clinic struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	Address1    string        `json:"address1,omitempty"`
	Address2    string        `json:"address2,omitempty"`
	City        string        `json:"city,omitempty"`
	CountryCode string        `json:"country_code,omitempty"`
	MapsLink    string        `json:"maps_link,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Timezone    string        `json:"timezone,omitempty"`
	Plans       []Plan        `json:"plans"`
	Hours       []ClinicHours `json:"clinic_hours"`
}

func (c *Clinic) Key() string {
	return strconv.FormatInt(c.ID, 10)
}

// HoursFor returns the operating hours registered for a Monday-based weekday.
func (c *Clinic) HoursFor(dayOfWeek int) (ClinicHours, bool) {
	if c == nil {
		return ClinicHours{}, false
	}
	for _, h := range c.Hours {
		if h.DayOfWeek == dayOfWeek {
			return h, true
		}
	}
	return ClinicHours{}, false
}

func (c *Clinic) Plan(id int64) (Plan, bool) {
	if c == nil {
		return Plan{}, false
	}
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// Location resolves the clinic time zone, falling back when the clinic has
// none or names one the tz database does not know.
func (c *Clinic) Location(fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if c == nil || c.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// ScheduledAppointment is an existing booking as reported by the backend.
type ScheduledAppointment struct {
	ClinicID  int64     `json:"clinic_id"`
	Plan      Plan      `json:"plan"`
	Time      time.Time `json:"time"`
	Confirmed bool      `json:"confirmed"`
}

// Slot is one bookable hour of a day.
type Slot struct {
	Hour     int  `json:"hour"`
	Minute   int  `json:"minute"`
	Disabled bool `json:"disabled"`
}
