package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/clinicslots/libs/httpx"
)

// Register mounts the public widget API on mux. The operator endpoints are
// mounted behind operator only when it is non-nil.
func Register(mux *http.ServeMux, avail *AvailabilityHandler, appts *AppointmentHandler, patients *PatientHandler, operator httpx.Middleware) {
	mux.HandleFunc("GET /api/v1/public/clinics", avail.Clinics)
	mux.HandleFunc("GET /api/v1/public/clinics/{clinicID}", avail.Clinic)
	mux.HandleFunc("GET /api/v1/public/clinics/{clinicID}/dates", avail.Dates)
	mux.HandleFunc("GET /api/v1/public/clinics/{clinicID}/slots", avail.Slots)
	mux.HandleFunc("GET /api/v1/public/country-codes", appts.CountryCodes)
	mux.HandleFunc("POST /api/v1/public/appointments", appts.Create)
	if patients != nil {
		mux.HandleFunc("POST /api/v1/public/patients", patients.Create)
	}

	if operator == nil {
		return
	}
	mux.Handle("POST /api/v1/clinics/{clinicID}/invalidate", operator(http.HandlerFunc(avail.Invalidate)))
	mux.Handle("POST /api/v1/catalog/invalidate", operator(http.HandlerFunc(avail.InvalidateAll)))
}
