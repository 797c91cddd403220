// README: Fire-and-forget booking event publisher on a RabbitMQ topic exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"lustre/internal/modules/booking"
)

// BookingEvent is the wire payload consumed by the external messaging
// collaborator (push notifications, emails). Consumers must tolerate unknown
// fields.
type BookingEvent struct {
	CorrelationID string    `json:"correlation_id"`
	Kind          string    `json:"kind"`
	BookingID     string    `json:"booking_id"`
	Status        string    `json:"status"`
	ServiceType   string    `json:"service_type"`
	WorkerID      string    `json:"worker_id,omitempty"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher struct {
	channel  *amqp.Channel
	exchange string
	log      *logrus.Logger
}

func NewPublisher(channel *amqp.Channel, exchange string, log *logrus.Logger) *Publisher {
	if log == nil {
		log = logrus.New()
	}
	return &Publisher{channel: channel, exchange: exchange, log: log}
}

// Publish emits one event with the kind as routing key (booking.created,
// booking.completed, booking.cancelled). Callers treat failures as
// non-fatal; a lost notification never rolls back a booking transition.
func (p *Publisher) Publish(ctx context.Context, kind string, b *booking.Booking) error {
	ev := BookingEvent{
		CorrelationID: uuid.NewString(),
		Kind:          kind,
		BookingID:     string(b.ID),
		Status:        string(b.Status),
		ServiceType:   b.ServiceType,
		Total:         b.Price.Total,
		Currency:      b.Price.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	if b.WorkerID != nil {
		ev.WorkerID = string(*b.WorkerID)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	if err := p.channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		kind,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: ev.CorrelationID,
			Body:          body,
		},
	); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}

	p.log.WithFields(logrus.Fields{"event": kind, "booking": b.ID}).Debug("booking event published")
	return nil
}
