package availability

import (
	"testing"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

func TestIsDateUnavailable_NoClinic(t *testing.T) {
	if !IsDateUnavailable(wednesday, nil, enGB) {
		t.Fatal("expected every date unavailable without a clinic")
	}
}

func TestIsDateUnavailable_WeekendsRegardlessOfClinic(t *testing.T) {
	everyDay := &model.Clinic{ID: 2}
	for wd := 0; wd <= 6; wd++ {
		everyDay.Hours = append(everyDay.Hours, model.ClinicHours{DayOfWeek: wd, OpeningTime: "08:00", ClosingTime: "12:00"})
	}
	for _, c := range []*model.Clinic{weekdayClinic(), everyDay, {ID: 3}} {
		if !IsDateUnavailable(saturday, c, enGB) || !IsDateUnavailable(saturday.AddDays(1), c, enGB) {
			t.Fatalf("clinic %d: expected weekend unavailable", c.ID)
		}
	}

	// A Friday/Saturday weekend makes Sunday bookable for a seven-day clinic.
	sa := calendar.MustParseLocale("ar-SA")
	if IsDateUnavailable(saturday.AddDays(1), everyDay, sa) {
		t.Fatal("expected Sunday available under ar-SA")
	}
	if !IsDateUnavailable(saturday.AddDays(-1), everyDay, sa) {
		t.Fatal("expected Friday unavailable under ar-SA")
	}
}

func TestIsDateUnavailable_MatchesClinicHours(t *testing.T) {
	clinic := &model.Clinic{ID: 4, Hours: []model.ClinicHours{
		{DayOfWeek: 0, OpeningTime: "09:00", ClosingTime: "12:00"},
		{DayOfWeek: 2, OpeningTime: "09:00", ClosingTime: "12:00"},
	}}
	monday := wednesday.AddDays(-2)
	want := map[int]bool{0: false, 1: true, 2: false, 3: true, 4: true}
	for offset, unavailable := range want {
		d := monday.AddDays(offset)
		if got := IsDateUnavailable(d, clinic, enGB); got != unavailable {
			t.Fatalf("%s (%s): got unavailable=%v, want %v", d, d.Weekday(), got, unavailable)
		}
	}
}

func TestDateRange(t *testing.T) {
	monday := wednesday.AddDays(-2)
	days := DateRange(monday, monday.AddDays(6), weekdayClinic(), enGB)
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	for i, d := range days {
		wantUnavailable := i >= 5
		if d.Unavailable != wantUnavailable {
			t.Fatalf("%s: got unavailable=%v", d.Date, d.Unavailable)
		}
	}
	if got := DateRange(monday, monday.AddDays(-1), weekdayClinic(), enGB); got != nil {
		t.Fatalf("expected nil for inverted range, got %v", got)
	}
}
