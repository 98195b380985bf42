package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/clinicslots/services/availability-service/internal/model"
)

type scheduledEntry struct {
	Appointment struct {
		Clinic    json.RawMessage `json:"clinic"`
		Plan      json.RawMessage `json:"plan"`
		Time      time.Time       `json:"time"`
		Confirmed bool            `json:"confirmed"`
	} `json:"appointment"`
	Plan *model.Plan `json:"plan"`
}

// decodeScheduled accepts both the bare array and the {"scheduled": [...]}
// envelope the backend has used.
func decodeScheduled(raw json.RawMessage) ([]scheduledEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var entries []scheduledEntry
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var envelope struct {
		Scheduled []scheduledEntry `json:"scheduled"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Scheduled, nil
}

func (e scheduledEntry) toModel() (model.ScheduledAppointment, bool) {
	clinicID, err := refID(e.Appointment.Clinic)
	if err != nil || clinicID == 0 || e.Appointment.Time.IsZero() {
		return model.ScheduledAppointment{}, false
	}

	var plan model.Plan
	switch {
	case e.Plan != nil:
		plan = *e.Plan
	default:
		if err := decodePlanRef(e.Appointment.Plan, &plan); err != nil {
			return model.ScheduledAppointment{}, false
		}
	}

	return model.ScheduledAppointment{
		ClinicID:  clinicID,
		Plan:      plan,
		Time:      e.Appointment.Time,
		Confirmed: e.Appointment.Confirmed,
	}, true
}

// refID reads a foreign key serialised either as a bare id or as the nested
// object.
func refID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing reference")
	}
	if raw[0] == '{' {
		var obj struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, err
		}
		return obj.ID, nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func decodePlanRef(raw json.RawMessage, plan *model.Plan) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return fmt.Errorf("missing plan")
	}
	if raw[0] == '{' {
		return json.Unmarshal(raw, plan)
	}
	id, err := refID(raw)
	if err != nil {
		return err
	}
	plan.ID = id
	return nil
}
