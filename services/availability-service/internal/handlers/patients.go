package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
)

// PatientRegistrar creates the patient record the backend expects before a
// pre-appointment.
type PatientRegistrar interface {
	CreatePatient(ctx context.Context, req backend.PatientRequest) (backend.Patient, error)
}

type PatientHandler struct {
	registrar PatientRegistrar
	logger    *slog.Logger
	fallback  *time.Location
	countries []CountryCode
	now       func() time.Time
}

func NewPatientHandler(registrar PatientRegistrar, logger *slog.Logger, fallback *time.Location, countries []CountryCode) *PatientHandler {
	if fallback == nil {
		fallback = time.UTC
	}
	if len(countries) == 0 {
		countries = DefaultCountryCodes
	}
	return &PatientHandler{registrar: registrar, logger: logger, fallback: fallback, countries: countries, now: time.Now}
}

type createPatientRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
	BirthDate   string `json:"birth_date"`
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.CountryCode = strings.TrimSpace(req.CountryCode)

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.BirthDate == "" {
		http.Error(w, "name, email, phone and birth_date are required", http.StatusBadRequest)
		return
	}
	if msg := validateContact(req.Email, req.Phone, req.CountryCode, h.countries); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	birth, err := calendar.ParseDate(strings.TrimSpace(req.BirthDate))
	if err != nil {
		http.Error(w, "invalid birth_date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	if !birth.Before(calendar.DateOf(h.now().In(h.fallback))) {
		http.Error(w, "birth_date must be in the past", http.StatusBadRequest)
		return
	}

	patient, err := h.registrar.CreatePatient(r.Context(), backend.PatientRequest{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
		BirthDate:   birth.String(),
	})
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && (se.Status == http.StatusBadRequest || se.Status == http.StatusConflict) {
			http.Error(w, "patient rejected by clinic backend", se.Status)
			return
		}
		h.logger.Error("create patient failed", "err", err)
		http.Error(w, "booking backend unavailable", http.StatusBadGateway)
		return
	}
	h.logger.Info("patient registered", "patient_id", patient.ID)
	httpx.WriteJSON(w, http.StatusCreated, patient)
}

// validateContact checks the contact fields shared by patient registration
// and pre-appointments. It returns the client-facing message, or "".
func validateContact(email, phone, countryCode string, countries []CountryCode) string {
	if _, err := mail.ParseAddress(email); err != nil {
		return "invalid email"
	}
	if !validPhone(phone) {
		return "invalid phone"
	}
	for _, c := range countries {
		if c.Code == countryCode {
			return ""
		}
	}
	return "unsupported country_code"
}
