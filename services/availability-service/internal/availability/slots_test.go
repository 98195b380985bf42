package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

var (
	enGB      = calendar.MustParseLocale("en-GB")
	wednesday = calendar.Date{Year: 2026, Month: time.January, Day: 28}
	saturday  = calendar.Date{Year: 2026, Month: time.January, Day: 31}
)

func weekdayClinic() *model.Clinic {
	c := &model.Clinic{ID: 1, Name: "Centro"}
	for wd := 0; wd <= 4; wd++ {
		c.Hours = append(c.Hours, model.ClinicHours{DayOfWeek: wd, OpeningTime: "09:00", ClosingTime: "17:00"})
	}
	return c
}

func bookedAt(d calendar.Date, hour int, duration string) model.ScheduledAppointment {
	dur, err := model.ParseDuration(duration)
	if err != nil {
		panic(err)
	}
	return model.ScheduledAppointment{
		ClinicID: 1,
		Plan:     model.Plan{ID: 1, Duration: dur},
		Time:     d.At(hour, 0, time.UTC),
	}
}

func disabledHours(day DaySlots) []int {
	var out []int
	for _, s := range day.Slots {
		if s.Disabled {
			out = append(out, s.Hour)
		}
	}
	return out
}

func TestComputeAvailableSlots_NoAppointments(t *testing.T) {
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), nil, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !day.Enabled {
		t.Fatal("expected slot picker enabled")
	}
	if len(day.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(day.Slots))
	}
	for i, s := range day.Slots {
		if s.Hour != 9+i || s.Minute != 0 || s.Disabled {
			t.Fatalf("unexpected slot %d: %+v", i, s)
		}
	}
}

func TestComputeAvailableSlots_WholeHourPlanBlocksOneSlot(t *testing.T) {
	appts := []model.ScheduledAppointment{bookedAt(wednesday, 10, "1.0")}
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), appts, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := disabledHours(day); !reflect.DeepEqual(got, []int{10}) {
		t.Fatalf("expected only 10:00 disabled, got %v", got)
	}
}

func TestComputeAvailableSlots_FractionalPlanSpillsOver(t *testing.T) {
	appts := []model.ScheduledAppointment{bookedAt(wednesday, 10, "1.5")}
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), appts, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := disabledHours(day); !reflect.DeepEqual(got, []int{10, 11}) {
		t.Fatalf("expected 10:00 and 11:00 disabled, got %v", got)
	}
}

func TestComputeAvailableSlots_ZeroFractionDoesNotSpill(t *testing.T) {
	for _, dur := range []string{"2.0", "2", "2.00", "3.0"} {
		appts := []model.ScheduledAppointment{bookedAt(wednesday, 10, dur)}
		day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), appts, enGB)
		if err != nil {
			t.Fatalf("duration %s: unexpected error: %v", dur, err)
		}
		if got := disabledHours(day); !reflect.DeepEqual(got, []int{10}) {
			t.Fatalf("duration %s: expected only 10:00 disabled, got %v", dur, got)
		}
	}
}

func TestComputeAvailableSlots_OverlappingAppointmentsCollapse(t *testing.T) {
	appts := []model.ScheduledAppointment{
		bookedAt(wednesday, 10, "1.5"),
		bookedAt(wednesday, 11, "1.0"),
		bookedAt(wednesday, 11, "1.0"),
	}
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), appts, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(day.Slots))
	}
	if got := disabledHours(day); !reflect.DeepEqual(got, []int{10, 11}) {
		t.Fatalf("expected 10:00 and 11:00 disabled, got %v", got)
	}
}

func TestComputeAvailableSlots_IgnoresOtherDays(t *testing.T) {
	appts := []model.ScheduledAppointment{
		bookedAt(wednesday.AddDays(-1), 10, "1.0"),
		bookedAt(wednesday.AddDays(7), 10, "1.0"),
	}
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), appts, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := disabledHours(day); len(got) != 0 {
		t.Fatalf("expected no disabled slots, got %v", got)
	}
}

func TestComputeAvailableSlots_ConvertsToClinicZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	clinic := weekdayClinic()
	clinic.Timezone = "America/Sao_Paulo"

	// 13:00 UTC is 10:00 in Sao Paulo.
	appts := []model.ScheduledAppointment{{
		ClinicID: 1,
		Plan:     model.Plan{Duration: model.Hours(1)},
		Time:     time.Date(2026, 1, 28, 13, 0, 0, 0, time.UTC),
	}}
	day, err := ComputeAvailableSlots(wednesday, clinic, appts, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := disabledHours(day); !reflect.DeepEqual(got, []int{10}) {
		t.Fatalf("expected 10:00 local disabled, got %v", got)
	}

	// 01:00 UTC on Thursday is still Wednesday 22:00 locally, outside the window,
	// and must not leak into Thursday's slots.
	late := []model.ScheduledAppointment{{
		ClinicID: 1,
		Time:     time.Date(2026, 1, 29, 1, 0, 0, 0, loc).UTC(),
	}}
	thursday, err := ComputeAvailableSlots(wednesday.AddDays(1), clinic, late, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := disabledHours(thursday); !reflect.DeepEqual(got, []int(nil)) {
		t.Fatalf("expected no disabled slots on Thursday, got %v", got)
	}
}

func TestComputeAvailableSlots_WeekendIsEmpty(t *testing.T) {
	day, err := ComputeAvailableSlots(saturday, weekdayClinic(), nil, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Enabled || len(day.Slots) != 0 {
		t.Fatalf("expected empty disabled result, got %+v", day)
	}
}

func TestComputeAvailableSlots_ClosedWeekday(t *testing.T) {
	clinic := weekdayClinic()
	clinic.Hours = append(clinic.Hours[:2], clinic.Hours[3:]...) // closed Wednesdays

	if !IsDateUnavailable(wednesday, clinic, enGB) {
		t.Fatal("expected Wednesday unavailable")
	}
	day, err := ComputeAvailableSlots(wednesday, clinic, nil, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Enabled || len(day.Slots) != 0 {
		t.Fatalf("expected empty disabled result, got %+v", day)
	}
}

func TestComputeAvailableSlots_NilClinic(t *testing.T) {
	day, err := ComputeAvailableSlots(wednesday, nil, []model.ScheduledAppointment{bookedAt(wednesday, 10, "1")}, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Enabled || len(day.Slots) != 0 {
		t.Fatalf("expected empty disabled result, got %+v", day)
	}
}

func TestComputeAvailableSlots_PartialClosingHour(t *testing.T) {
	clinic := weekdayClinic()
	clinic.Hours[2].OpeningTime = "08:30"
	clinic.Hours[2].ClosingTime = "12:30"

	day, err := ComputeAvailableSlots(wednesday, clinic, nil, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var hours []int
	for _, s := range day.Slots {
		hours = append(hours, s.Hour)
	}
	if !reflect.DeepEqual(hours, []int{8, 9, 10, 11, 12}) {
		t.Fatalf("unexpected hours %v", hours)
	}
}

func TestComputeAvailableSlots_MalformedHours(t *testing.T) {
	clinic := weekdayClinic()
	clinic.Hours[2].ClosingTime = "5pm"
	if _, err := ComputeAvailableSlots(wednesday, clinic, nil, enGB); !errors.Is(err, calendar.ErrInvalidClock) {
		t.Fatalf("expected ErrInvalidClock, got %v", err)
	}

	clinic = weekdayClinic()
	clinic.Hours[2].OpeningTime = "18:00"
	if _, err := ComputeAvailableSlots(wednesday, clinic, nil, enGB); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestComputeAvailableSlots_AscendingUniqueAndIdempotent(t *testing.T) {
	clinic := weekdayClinic()
	appts := []model.ScheduledAppointment{bookedAt(wednesday, 9, "1.5"), bookedAt(wednesday, 16, "1.5")}

	for d := wednesday.AddDays(-2); !wednesday.AddDays(2).Before(d); d = d.AddDays(1) {
		first, err := ComputeAvailableSlots(d, clinic, appts, enGB)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", d, err)
		}
		second, _ := ComputeAvailableSlots(d, clinic, appts, enGB)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s: results differ between calls", d)
		}
		if len(first.Slots) != 8 {
			t.Fatalf("%s: expected 8 slots, got %d", d, len(first.Slots))
		}
		for i := 1; i < len(first.Slots); i++ {
			if first.Slots[i].Hour <= first.Slots[i-1].Hour {
				t.Fatalf("%s: slots not strictly ascending: %+v", d, first.Slots)
			}
		}
	}
	if appts[0].Plan.Duration.Minutes != 90 {
		t.Fatal("input appointments were mutated")
	}
}

func TestIsSlotFree(t *testing.T) {
	day, err := ComputeAvailableSlots(wednesday, weekdayClinic(), []model.ScheduledAppointment{bookedAt(wednesday, 10, "1")}, enGB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsSlotFree(day, 9, 0) {
		t.Fatal("expected 09:00 free")
	}
	if IsSlotFree(day, 10, 0) {
		t.Fatal("expected 10:00 taken")
	}
	if IsSlotFree(day, 9, 30) || IsSlotFree(day, 18, 0) {
		t.Fatal("off-grid or out-of-window slots are never free")
	}
}
