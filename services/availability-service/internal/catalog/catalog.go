// Package catalog serves clinic data and scheduled appointments to the
// availability handlers, in front of a clinic directory.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

var (
	ErrClinicNotFound = errors.New("clinic not found")
	ErrPlanNotFound   = errors.New("plan not found")
)

// Directory is where clinics and their bookings actually live: the backend
// HTTP API or its database.
type Directory interface {
	ListClinics(ctx context.Context) ([]model.Clinic, error)
	ListScheduled(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error)
}

// loadTimeout bounds a directory load shared by several requests. Shared
// loads are detached from the first caller's cancellation.
const loadTimeout = 15 * time.Second

type Catalog struct {
	dir     Directory
	cache   Cache
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

func New(dir Directory, cache Cache, logger *slog.Logger, m *metrics.Metrics) *Catalog {
	if cache == nil {
		cache = NewMemoryCache(0, 0, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{dir: dir, cache: cache, logger: logger, metrics: m}
}

func (c *Catalog) Clinics(ctx context.Context) ([]model.Clinic, error) {
	clinics, ok, err := c.cache.Clinics(ctx)
	if err != nil {
		c.logger.Warn("catalog cache read failed", "kind", "clinics", "err", err)
	}
	c.metrics.ObserveCacheLookup("clinics", ok)
	if ok {
		return clinics, nil
	}

	v, err, _ := c.group.Do("clinics", func() (any, error) {
		ctx, cancel := detach(ctx)
		defer cancel()
		return c.loadClinics(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Clinic), nil
}

func (c *Catalog) Clinic(ctx context.Context, clinicID int64) (*model.Clinic, error) {
	clinics, err := c.Clinics(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clinics {
		if clinics[i].ID == clinicID {
			clinic := clinics[i]
			return &clinic, nil
		}
	}
	return nil, ErrClinicNotFound
}

// Plan returns one of the clinic's treatment plans.
func (c *Catalog) Plan(ctx context.Context, clinicID, planID int64) (model.Plan, error) {
	clinic, err := c.Clinic(ctx, clinicID)
	if err != nil {
		return model.Plan{}, err
	}
	p, ok := clinic.Plan(planID)
	if !ok {
		return model.Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// Appointments returns the clinic's scheduled appointments, possibly stale by
// up to the cache TTL.
func (c *Catalog) Appointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error) {
	appts, ok, err := c.cache.Appointments(ctx, clinicID)
	if err != nil {
		c.logger.Warn("catalog cache read failed", "kind", "appointments", "clinic_id", clinicID, "err", err)
	}
	c.metrics.ObserveCacheLookup("appointments", ok)
	if ok {
		return appts, nil
	}

	v, err, _ := c.group.Do("appointments:"+strconv.FormatInt(clinicID, 10), func() (any, error) {
		ctx, cancel := detach(ctx)
		defer cancel()
		return c.loadAppointments(ctx, clinicID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.ScheduledAppointment), nil
}

// FreshAppointments reads straight from the directory and refills the cache.
// It never joins a load already in flight, so the result reflects bookings
// made before the call.
func (c *Catalog) FreshAppointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error) {
	return c.loadAppointments(ctx, clinicID)
}

// Invalidate drops the clinic's cached appointments. source labels the
// trigger (kafka, submission, manual).
func (c *Catalog) Invalidate(ctx context.Context, clinicID int64, source string) error {
	c.metrics.ObserveInvalidation(source)
	if err := c.cache.Invalidate(ctx, clinicID); err != nil {
		return err
	}
	c.logger.Debug("catalog invalidated", "clinic_id", clinicID, "source", source)
	return nil
}

// InvalidateAll drops the clinic list and every appointment list.
func (c *Catalog) InvalidateAll(ctx context.Context, source string) error {
	c.metrics.ObserveInvalidation(source)
	return c.cache.InvalidateAll(ctx)
}

func (c *Catalog) loadClinics(ctx context.Context) ([]model.Clinic, error) {
	ctx, span := otel.Tracer("availability-service/catalog").Start(ctx, "catalog.load_clinics")
	defer span.End()

	start := time.Now()
	clinics, err := c.dir.ListClinics(ctx)
	c.metrics.ObserveDirectoryCall("list_clinics", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if clinics == nil {
		clinics = []model.Clinic{}
	}
	span.SetAttributes(attribute.Int("clinics.count", len(clinics)))
	if err := c.cache.StoreClinics(ctx, clinics); err != nil {
		c.logger.Warn("catalog cache write failed", "kind", "clinics", "err", err)
	}
	return clinics, nil
}

func (c *Catalog) loadAppointments(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error) {
	ctx, span := otel.Tracer("availability-service/catalog").Start(ctx, "catalog.load_appointments")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.id", clinicID))

	start := time.Now()
	appts, err := c.dir.ListScheduled(ctx, clinicID)
	c.metrics.ObserveDirectoryCall("list_scheduled", err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if appts == nil {
		appts = []model.ScheduledAppointment{}
	}
	appts = c.resolvePlans(ctx, clinicID, appts)
	span.SetAttributes(attribute.Int("appointments.count", len(appts)))
	if err := c.cache.StoreAppointments(ctx, clinicID, appts); err != nil {
		c.logger.Warn("catalog cache write failed", "kind", "appointments", "clinic_id", clinicID, "err", err)
	}
	return appts, nil
}

// resolvePlans fills in plans the directory only referenced by id. Without a
// duration a booking would never block the hour after it.
func (c *Catalog) resolvePlans(ctx context.Context, clinicID int64, appts []model.ScheduledAppointment) []model.ScheduledAppointment {
	var clinic *model.Clinic
	for i := range appts {
		p := appts[i].Plan
		if p.ID == 0 || p.Duration.Minutes != 0 {
			continue
		}
		if clinic == nil {
			var err error
			if clinic, err = c.Clinic(ctx, clinicID); err != nil {
				c.logger.Warn("resolve appointment plans failed", "clinic_id", clinicID, "err", err)
				return appts
			}
			appts = append([]model.ScheduledAppointment(nil), appts...)
		}
		if full, ok := clinic.Plan(p.ID); ok {
			appts[i].Plan = full
		} else {
			c.logger.Warn("appointment references unknown plan", "clinic_id", clinicID, "plan_id", p.ID)
		}
	}
	return appts
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
}
