package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/calendar"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/catalog"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

const (
	maxDateWindowDays     = 62
	defaultDateWindowDays = 30
)

// Catalog is the clinic data the handlers read.
type Catalog interface {
	Clinics(ctx context.Context) ([]model.Clinic, error)
	Clinic(ctx context.Context, clinicID int64) (*model.Clinic, error)
	Plan(ctx context.Context, clinicID, planID int64) (model.Plan, error)
	Appointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error)
	FreshAppointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error)
	Invalidate(ctx context.Context, clinicID int64, source string) error
	InvalidateAll(ctx context.Context, source string) error
}

type AvailabilityHandler struct {
	catalog  Catalog
	logger   *slog.Logger
	metrics  *metrics.Metrics
	fallback *time.Location
	now      func() time.Time
}

// NewAvailabilityHandler serves clinics, selectable dates and hour slots.
// fallback is the zone used for clinics without a time zone of their own.
func NewAvailabilityHandler(cat Catalog, logger *slog.Logger, m *metrics.Metrics, fallback *time.Location) *AvailabilityHandler {
	if fallback == nil {
		fallback = time.UTC
	}
	return &AvailabilityHandler{catalog: cat, logger: logger, metrics: m, fallback: fallback, now: time.Now}
}

type dateItem struct {
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Unavailable bool   `json:"unavailable"`
}

type datesResponse struct {
	ClinicID int64      `json:"clinic_id"`
	Locale   string     `json:"locale"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Dates    []dateItem `json:"dates"`
}

type slotItem struct {
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Time     string `json:"time"`
	Disabled bool   `json:"disabled"`
}

type slotsResponse struct {
	ClinicID    int64      `json:"clinic_id"`
	Date        string     `json:"date"`
	Locale      string     `json:"locale"`
	Unavailable bool       `json:"unavailable"`
	Enabled     bool       `json:"enabled"`
	Slots       []slotItem `json:"slots"`
	Error       string     `json:"error,omitempty"`
}

func (h *AvailabilityHandler) Clinics(w http.ResponseWriter, r *http.Request) {
	clinics, err := h.catalog.Clinics(r.Context())
	if err != nil {
		h.logger.Error("list clinics failed", "err", err)
		http.Error(w, "clinic directory unavailable", http.StatusBadGateway)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clinics)
}

func (h *AvailabilityHandler) Clinic(w http.ResponseWriter, r *http.Request) {
	clinic, ok := h.loadClinic(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, clinic)
}

func (h *AvailabilityHandler) Dates(w http.ResponseWriter, r *http.Request) {
	locale, err := calendar.ParseLocale(r.URL.Query().Get("locale"))
	if err != nil {
		http.Error(w, "invalid locale", http.StatusBadRequest)
		return
	}

	from := calendar.DateOf(h.now().In(h.fallback))
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		if from, err = calendar.ParseDate(raw); err != nil {
			http.Error(w, "invalid from (expected YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
	}
	to := from.AddDays(defaultDateWindowDays - 1)
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		if to, err = calendar.ParseDate(raw); err != nil {
			http.Error(w, "invalid to (expected YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}
	if from.DaysBetween(to)+1 > maxDateWindowDays {
		http.Error(w, fmt.Sprintf("date window exceeds %d days", maxDateWindowDays), http.StatusBadRequest)
		return
	}

	clinic, ok := h.loadClinic(w, r)
	if !ok {
		return
	}

	days := availability.DateRange(from, to, clinic, locale)
	resp := datesResponse{
		ClinicID: clinic.ID,
		Locale:   locale.String(),
		From:     from.String(),
		To:       to.String(),
		Dates:    make([]dateItem, 0, len(days)),
	}
	for _, d := range days {
		resp.Dates = append(resp.Dates, dateItem{
			Date:        d.Date.String(),
			Weekday:     d.Date.Weekday().String(),
			Unavailable: d.Unavailable,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	locale, err := calendar.ParseLocale(r.URL.Query().Get("locale"))
	if err != nil {
		http.Error(w, "invalid locale", http.StatusBadRequest)
		return
	}

	clinic, ok := h.loadClinic(w, r)
	if !ok {
		return
	}

	resp := slotsResponse{
		ClinicID:    clinic.ID,
		Date:        date.String(),
		Locale:      locale.String(),
		Unavailable: availability.IsDateUnavailable(date, clinic, locale),
		Slots:       []slotItem{},
	}
	if resp.Unavailable {
		h.metrics.ObserveSlotComputation("unavailable")
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}

	appts, err := h.catalog.Appointments(r.Context(), clinic.ID)
	if err != nil {
		h.logger.Error("list scheduled failed", "err", err, "clinic_id", clinic.ID)
		http.Error(w, "clinic directory unavailable", http.StatusBadGateway)
		return
	}

	day, err := availability.ComputeAvailableSlotsIn(date, clinic, appts, locale, h.fallback)
	if err != nil {
		h.logger.Warn("clinic schedule unusable", "err", err, "clinic_id", clinic.ID, "date", date.String())
		h.metrics.ObserveSlotComputation("invalid_schedule")
		resp.Error = "clinic schedule unavailable"
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}
	h.metrics.ObserveSlotComputation("ok")

	resp.Enabled = day.Enabled
	for _, s := range day.Slots {
		resp.Slots = append(resp.Slots, slotItem{
			Hour:     s.Hour,
			Minute:   s.Minute,
			Time:     calendar.Clock{Hour: s.Hour, Minute: s.Minute}.String(),
			Disabled: s.Disabled,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Invalidate drops one clinic's cached appointments.
func (h *AvailabilityHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := clinicIDParam(w, r)
	if !ok {
		return
	}
	if err := h.catalog.Invalidate(r.Context(), clinicID, "manual"); err != nil {
		h.logger.Error("invalidate failed", "err", err, "clinic_id", clinicID)
		http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateAll drops the whole catalog, clinic list included.
func (h *AvailabilityHandler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.InvalidateAll(r.Context(), "manual"); err != nil {
		h.logger.Error("invalidate all failed", "err", err)
		http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AvailabilityHandler) loadClinic(w http.ResponseWriter, r *http.Request) (*model.Clinic, bool) {
	clinicID, ok := clinicIDParam(w, r)
	if !ok {
		return nil, false
	}
	clinic, err := h.catalog.Clinic(r.Context(), clinicID)
	if err != nil {
		if errors.Is(err, catalog.ErrClinicNotFound) {
			http.Error(w, "clinic not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("load clinic failed", "err", err, "clinic_id", clinicID)
		http.Error(w, "clinic directory unavailable", http.StatusBadGateway)
		return nil, false
	}
	return clinic, true
}

func clinicIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("clinicID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
