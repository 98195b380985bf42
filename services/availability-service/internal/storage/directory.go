package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

// Querier is the read surface of *db.Pool used by the directory.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DirectoryRepository reads clinics and scheduled appointments straight from
// the booking backend's database, normally a read replica.
type DirectoryRepository struct {
	db Querier
}

func NewDirectoryRepository(db Querier) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) ListClinics(ctx context.Context) ([]model.Clinic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(title, ''), COALESCE(address1, ''), COALESCE(address2, ''),
			COALESCE(city, ''), COALESCE(country_code, ''), COALESCE(maps_link, ''),
			COALESCE(phone, ''), COALESCE(timezone, '')
		FROM clinics
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query clinics: %w", err)
	}
	var clinics []model.Clinic
	index := map[int64]int{}
	for rows.Next() {
		var c model.Clinic
		if err := rows.Scan(&c.ID, &c.Name, &c.Title, &c.Address1, &c.Address2, &c.City,
			&c.CountryCode, &c.MapsLink, &c.Phone, &c.Timezone); err != nil {
			rows.Close()
			return nil, err
		}
		index[c.ID] = len(clinics)
		clinics = append(clinics, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(clinics) == 0 {
		return clinics, nil
	}

	if err := r.loadHours(ctx, clinics, index); err != nil {
		return nil, err
	}
	if err := r.loadPlans(ctx, clinics, index); err != nil {
		return nil, err
	}
	return clinics, nil
}

func (r *DirectoryRepository) loadHours(ctx context.Context, clinics []model.Clinic, index map[int64]int) error {
	rows, err := r.db.Query(ctx, `
		SELECT clinic_id, day_of_week, to_char(opening_time, 'HH24:MI'), to_char(closing_time, 'HH24:MI')
		FROM clinic_hours
		ORDER BY clinic_id, day_of_week
	`)
	if err != nil {
		return fmt.Errorf("query clinic hours: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var clinicID int64
		var h model.ClinicHours
		if err := rows.Scan(&clinicID, &h.DayOfWeek, &h.OpeningTime, &h.ClosingTime); err != nil {
			return err
		}
		if i, ok := index[clinicID]; ok {
			clinics[i].Hours = append(clinics[i].Hours, h)
		}
	}
	return rows.Err()
}

func (r *DirectoryRepository) loadPlans(ctx context.Context, clinics []model.Clinic, index map[int64]int) error {
	rows, err := r.db.Query(ctx, `
		SELECT clinic_id, id, name, COALESCE(description, ''), COALESCE(price::text, ''), duration::text
		FROM plans
		ORDER BY clinic_id, id
	`)
	if err != nil {
		return fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var clinicID int64
		var p model.Plan
		var duration string
		if err := rows.Scan(&clinicID, &p.ID, &p.Name, &p.Description, &p.Price, &duration); err != nil {
			return err
		}
		if p.Duration, err = model.ParseDuration(duration); err != nil {
			return fmt.Errorf("plan %d: %w", p.ID, err)
		}
		if i, ok := index[clinicID]; ok {
			clinics[i].Plans = append(clinics[i].Plans, p)
		}
	}
	return rows.Err()
}

func (r *DirectoryRepository) ListScheduled(ctx context.Context, clinicID int64) ([]model.ScheduledAppointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.time, a.confirmed, p.id, p.name, p.duration::text
		FROM appointments a
		JOIN plans p ON p.id = a.plan_id
		WHERE a.clinic_id = $1
		ORDER BY a.time
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduledAppointment
	for rows.Next() {
		var (
			at       time.Time
			appt     model.ScheduledAppointment
			duration string
		)
		if err := rows.Scan(&at, &appt.Confirmed, &appt.Plan.ID, &appt.Plan.Name, &duration); err != nil {
			return nil, err
		}
		if appt.Plan.Duration, err = model.ParseDuration(duration); err != nil {
			return nil, fmt.Errorf("plan %d: %w", appt.Plan.ID, err)
		}
		appt.ClinicID = clinicID
		appt.Time = at
		out = append(out, appt)
	}
	return out, rows.Err()
}
