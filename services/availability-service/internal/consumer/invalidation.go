package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

const (
	TopicAppointmentScheduled = "booking.appointment.scheduled.v1"
	TopicAppointmentCanceled  = "booking.appointment.canceled.v1"
	TopicClinicUpdated        = "clinic.updated.v1"
)

// Invalidator is the part of the catalog the consumer drives.
type Invalidator interface {
	Invalidate(ctx context.Context, clinicID int64, source string) error
	InvalidateAll(ctx context.Context, source string) error
}

type clinicEvent struct {
	ClinicID int64 `json:"clinic_id"`
	Clinic   int64 `json:"clinic"`
}

func (e clinicEvent) id() int64 {
	if e.ClinicID != 0 {
		return e.ClinicID
	}
	return e.Clinic
}

// InvalidationHandler drops cached appointments when a booking changes and
// the whole catalog when a clinic's profile, plans or hours change.
func InvalidationHandler(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ev clinicEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}

		switch msg.Topic {
		case TopicClinicUpdated:
			logger.Info("clinic updated, dropping catalog", "clinic_id", ev.id())
			return inv.InvalidateAll(ctx, "kafka")
		default:
			if ev.id() == 0 {
				return fmt.Errorf("%s event without clinic id", msg.Topic)
			}
			return inv.Invalidate(ctx, ev.id(), "kafka")
		}
	}
}
