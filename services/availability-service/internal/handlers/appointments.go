package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/events"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/metrics"
)

// Scheduler forwards a pre-appointment to the clinic backend.
type Scheduler interface {
	SchedulePreAppointment(ctx context.Context, req backend.ScheduleRequest, idempotencyKey string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.PreAppointmentRequested) error
}

// CountryCode is a dialling prefix offered next to the phone field.
type CountryCode struct {
	Code    string `json:"code"`
	Country string `json:"country"`
}

var DefaultCountryCodes = []CountryCode{{Code: "+55", Country: "Brasil"}}

type AppointmentHandler struct {
	catalog   Catalog
	scheduler Scheduler
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	fallback  *time.Location
	countries []CountryCode
}

func NewAppointmentHandler(cat Catalog, scheduler Scheduler, publisher EventPublisher, logger *slog.Logger, m *metrics.Metrics, fallback *time.Location, countries []CountryCode) *AppointmentHandler {
	if fallback == nil {
		fallback = time.UTC
	}
	if len(countries) == 0 {
		countries = DefaultCountryCodes
	}
	return &AppointmentHandler{
		catalog:   cat,
		scheduler: scheduler,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		fallback:  fallback,
		countries: countries,
	}
}

type createPreAppointmentRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
	ClinicID    int64  `json:"clinic_id"`
	PlanID      int64  `json:"plan_id"`
	Date        string `json:"date"`
	Hour        *int   `json:"hour"`
	Minute      int    `json:"minute"`
	Locale      string `json:"locale"`
}

type createPreAppointmentResponse struct {
	Status         string `json:"status"`
	ClinicID       int64  `json:"clinic_id"`
	PlanID         int64  `json:"plan_id"`
	Time           string `json:"time"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (h *AppointmentHandler) CountryCodes(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.countries)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPreAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.CountryCode = strings.TrimSpace(req.CountryCode)

	if req.Name == "" || req.Email == "" || req.Phone == "" || req.ClinicID <= 0 || req.PlanID <= 0 || req.Hour == nil {
		http.Error(w, "name, email, phone, clinic_id, plan_id, date and hour are required", http.StatusBadRequest)
		return
	}
	if *req.Hour < 0 || *req.Hour > 23 {
		http.Error(w, "hour must be between 0 and 23", http.StatusBadRequest)
		return
	}
	if req.Minute != 0 {
		http.Error(w, "minute must be 0 (slots start on the hour)", http.StatusBadRequest)
		return
	}
	if msg := validateContact(req.Email, req.Phone, req.CountryCode, h.countries); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	locale, err := calendar.ParseLocale(req.Locale)
	if err != nil {
		http.Error(w, "invalid locale", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	clinic, err := h.catalog.Clinic(ctx, req.ClinicID)
	if err != nil {
		h.writeLookupError(w, err, req.ClinicID)
		return
	}
	if _, err := h.catalog.Plan(ctx, req.ClinicID, req.PlanID); err != nil {
		h.writeLookupError(w, err, req.ClinicID)
		return
	}

	// The picker may have been rendered from a stale list; check again.
	appts, err := h.catalog.FreshAppointments(ctx, clinic.ID)
	if err != nil {
		h.logger.Error("list scheduled failed", "err", err, "clinic_id", clinic.ID)
		http.Error(w, "clinic directory unavailable", http.StatusBadGateway)
		return
	}
	day, err := availability.ComputeAvailableSlotsIn(date, clinic, appts, locale, h.fallback)
	if err != nil {
		h.logger.Warn("clinic schedule unusable", "err", err, "clinic_id", clinic.ID)
		http.Error(w, "clinic schedule unavailable", http.StatusUnprocessableEntity)
		return
	}
	if !availability.IsSlotFree(day, *req.Hour, 0) {
		h.metrics.ObservePreAppointment("conflict")
		http.Error(w, "slot is not available", http.StatusConflict)
		return
	}

	at := date.At(*req.Hour, 0, clinic.Location(h.fallback))
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	err = h.scheduler.SchedulePreAppointment(ctx, backend.ScheduleRequest{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CountryCode: req.CountryCode,
		ClinicID:    clinic.ID,
		PlanID:      req.PlanID,
		Time:        at,
	}, idempotencyKey)
	if err != nil {
		if backend.IsConflict(err) {
			h.metrics.ObservePreAppointment("conflict")
			_ = h.catalog.Invalidate(ctx, clinic.ID, "submission")
			http.Error(w, "slot is not available", http.StatusConflict)
			return
		}
		h.metrics.ObservePreAppointment("backend_error")
		h.logger.Error("schedule pre-appointment failed", "err", err, "clinic_id", clinic.ID)
		http.Error(w, "booking backend unavailable", http.StatusBadGateway)
		return
	}
	h.metrics.ObservePreAppointment("accepted")

	if err := h.catalog.Invalidate(ctx, clinic.ID, "submission"); err != nil {
		h.logger.Warn("invalidate after submission failed", "err", err, "clinic_id", clinic.ID)
	}
	if h.publisher != nil {
		if err := h.publisher.Publish(ctx, events.PreAppointmentRequested{
			ClinicID:       clinic.ID,
			PlanID:         req.PlanID,
			Time:           at,
			IdempotencyKey: idempotencyKey,
		}); err != nil {
			h.logger.Warn("publish pre-appointment event failed", "err", err, "clinic_id", clinic.ID)
		}
	}

	h.logger.Info("pre-appointment requested", "clinic_id", clinic.ID, "plan_id", req.PlanID, "time", at.Format(time.RFC3339))
	httpx.WriteJSON(w, http.StatusAccepted, createPreAppointmentResponse{
		Status:         "requested",
		ClinicID:       clinic.ID,
		PlanID:         req.PlanID,
		Time:           at.Format(time.RFC3339),
		IdempotencyKey: idempotencyKey,
	})
}

func (h *AppointmentHandler) writeLookupError(w http.ResponseWriter, err error, clinicID int64) {
	switch {
	case errors.Is(err, catalog.ErrClinicNotFound):
		http.Error(w, "clinic not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrPlanNotFound):
		http.Error(w, "plan not offered by clinic", http.StatusBadRequest)
	default:
		h.logger.Error("load clinic failed", "err", err, "clinic_id", clinicID)
		http.Error(w, "clinic directory unavailable", http.StatusBadGateway)
	}
}

func validPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 8 && digits <= 15
}
