package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/clinicslots/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

const TopicPreAppointmentRequested = "booking.preappointment.requested.v1"

var ErrQueueFull = errors.New("event queue full")

// PreAppointmentRequested is emitted once the backend accepted a
// pre-appointment request.
type PreAppointmentRequested struct {
	EventID        string    `json:"event_id"`
	ClinicID       int64     `json:"clinic_id"`
	PlanID         int64     `json:"plan_id"`
	Time           time.Time `json:"time"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer Writer
	logger *slog.Logger
	queue  chan kafka.Message
}

type PublisherConfig struct {
	Brokers string
	Buffer  int
}

// NewPublisher returns a publisher writing to cfg.Brokers. With no brokers it
// accepts and discards events.
func NewPublisher(logger *slog.Logger, cfg PublisherConfig) *Publisher {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	var w Writer
	if len(brokers) > 0 {
		w = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}
	return newPublisher(w, logger, cfg.Buffer)
}

func newPublisher(w Writer, logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{writer: w, logger: logger, queue: make(chan kafka.Message, buffer)}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish queues ev for delivery. The trace context of ctx travels in the
// message headers.
func (p *Publisher) Publish(ctx context.Context, ev PreAppointmentRequested) error {
	if !p.Enabled() {
		return nil
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.RequestedAt.IsZero() {
		ev.RequestedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   TopicPreAppointmentRequested,
		Key:     []byte(strconv.FormatInt(ev.ClinicID, 10)),
		Value:   payload,
		Headers: kafkax.EventMeta{EventID: ev.EventID, EventType: TopicPreAppointmentRequested}.Headers(),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)

	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is done, then flushes what is left.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Warn("event publisher disabled (no kafka brokers configured)")
		return
	}
	defer p.writer.Close()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return
		case msg := <-p.queue:
			if err := p.writer.WriteMessages(ctx, msg); err != nil {
				p.logger.Error("event publish failed", "err", err, "event_id", kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID))
			}
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			if err := p.writer.WriteMessages(ctx, msg); err != nil {
				p.logger.Error("event publish failed during shutdown", "err", err)
				return
			}
		default:
			return
		}
	}
}
