package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Username: "tech", Password: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestListClinics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clinic/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "tech" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		_, _ = io.WriteString(w, `[{"id":7,"name":"Centro","plans":[{"id":1,"name":"Limpeza","duration":"1.5"}],
			"clinic_hours":[{"day_of_week":0,"opening_time":"09:00:00","closing_time":"17:00:00"}]}]`)
	})

	clinics, err := c.ListClinics(context.Background())
	if err != nil {
		t.Fatalf("list clinics: %v", err)
	}
	if len(clinics) != 1 || clinics[0].ID != 7 {
		t.Fatalf("unexpected clinics %+v", clinics)
	}
	if !clinics[0].Plans[0].Duration.SpillsOver() {
		t.Fatal("expected 1.5h plan to spill over")
	}
	if h, ok := clinics[0].HoursFor(0); !ok || h.ClosingTime != "17:00:00" {
		t.Fatalf("unexpected hours %+v", clinics[0].Hours)
	}
}

func TestListScheduled_FiltersByClinic(t *testing.T) {
	for name, body := range map[string]string{
		"array": `[
			{"appointment":{"clinic":{"id":7},"plan":1,"time":"2026-02-02T10:00:00Z","confirmed":true},"plan":{"id":1,"duration":1.5}},
			{"appointment":{"clinic":8,"plan":1,"time":"2026-02-02T11:00:00Z"},"plan":{"id":1,"duration":1}}
		]`,
		"envelope": `{"scheduled":[
			{"appointment":{"clinic":7,"plan":{"id":1,"duration":"1.5"},"time":"2026-02-02T10:00:00Z","confirmed":true}},
			{"appointment":{"clinic":8,"plan":1,"time":"2026-02-02T11:00:00Z"}}
		]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			appts, err := c.ListScheduled(context.Background(), 7)
			if err != nil {
				t.Fatalf("list scheduled: %v", err)
			}
			if len(appts) != 1 {
				t.Fatalf("expected one appointment for clinic 7, got %d", len(appts))
			}
			a := appts[0]
			if a.ClinicID != 7 || !a.Confirmed || a.Time.Hour() != 10 || !a.Plan.Duration.SpillsOver() {
				t.Fatalf("unexpected appointment %+v", a)
			}
		})
	}
}

func TestListScheduled_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	})
	appts, err := c.ListScheduled(context.Background(), 7)
	if err != nil || len(appts) != 0 {
		t.Fatalf("expected no appointments, got %v %v", appts, err)
	}
}

func TestSchedulePreAppointment(t *testing.T) {
	var got ScheduleRequest
	var key string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/appointment/schedule/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		key = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	at := time.Date(2026, 2, 2, 13, 0, 0, 0, time.UTC)
	err := c.SchedulePreAppointment(context.Background(), ScheduleRequest{
		Name: "Ana", Email: "ana@example.com", Phone: "11999990000", CountryCode: "+55",
		ClinicID: 7, PlanID: 1, Time: at,
	}, "key-1")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if key != "key-1" || got.ClinicID != 7 || !got.Time.Equal(at) {
		t.Fatalf("unexpected request %+v key=%q", got, key)
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slot taken", http.StatusConflict)
	})
	err := c.SchedulePreAppointment(context.Background(), ScheduleRequest{ClinicID: 1}, "")
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}); err == nil {
		t.Fatal("expected error")
	}
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("default base url: %v", err)
	}
	if c.baseURL.String() != "http://localhost:8000" {
		t.Fatalf("unexpected default %s", c.baseURL)
	}
}

func TestCreatePatient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/patient/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Errorf("missing basic auth")
		}
		var got map[string]string
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if got["birth_date"] != "1990-05-17" || got["country_code"] != "+55" {
			t.Errorf("unexpected body %v", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":31,"name":"Ana","email":"ana@example.com","phone":"11999990000","country_code":"+55","birth_date":"1990-05-17"}`)
	})

	p, err := c.CreatePatient(context.Background(), PatientRequest{
		Name: "Ana", Email: "ana@example.com", Phone: "11999990000", CountryCode: "+55", BirthDate: "1990-05-17",
	})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	if p.ID != "31" || p.Name != "Ana" {
		t.Fatalf("unexpected patient %+v", p)
	}
}

func TestCreatePatient_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"email":["patient with this email already exists."]}`, http.StatusBadRequest)
	})

	_, err := c.CreatePatient(context.Background(), PatientRequest{Name: "Ana"})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
}
