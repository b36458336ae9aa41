package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/seatwise/reservations/pkg/events"
	"github.com/seatwise/reservations/pkg/logger"
)

const queueGroup = "notify"

// Consumer listens for reservation events and mails the guest. Delivery is
// best effort; a failed send is logged and the event is dropped.
type Consumer struct {
	bus    events.Subscriber
	mailer Mailer
}

func NewConsumer(bus events.Subscriber, mailer Mailer) *Consumer {
	return &Consumer{bus: bus, mailer: mailer}
}

// Start subscribes to all reservation subjects in a shared queue group so
// multiple instances split the load instead of double-mailing guests.
func (c *Consumer) Start() error {
	return c.bus.QueueSubscribe(events.ReservationAll, queueGroup, c.handle)
}

func (c *Consumer) handle(msg *events.Message) {
	var (
		email   string
		name    string
		subject string
		text    string
	)

	switch msg.Subject {
	case events.ReservationCreated:
		var ev events.ReservationCreatedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("failed to decode reservation event", "error", err, "subject", msg.Subject)
			return
		}
		email, name = ev.GuestEmail, ev.GuestName
		subject = "We received your reservation request"
		text = fmt.Sprintf(
			"Hi %s,\n\nWe received your reservation request for a party of %d on %s.\nWe will confirm it shortly.\n",
			ev.GuestName, ev.PartySize, formatArrival(ev.ArrivalTime))

	case events.ReservationUpdated:
		var ev events.ReservationUpdatedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("failed to decode reservation event", "error", err, "subject", msg.Subject)
			return
		}
		email, name = ev.GuestEmail, ev.GuestName
		subject = "Your reservation was updated"
		text = fmt.Sprintf(
			"Hi %s,\n\nYour reservation was updated. It is now set for %s.\n",
			ev.GuestName, formatArrival(ev.ArrivalTime))

	case events.ReservationCancelled:
		var ev events.ReservationCancelledEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("failed to decode reservation event", "error", err, "subject", msg.Subject)
			return
		}
		email, name = ev.GuestEmail, ev.GuestName
		subject = "Your reservation was cancelled"
		text = fmt.Sprintf(
			"Hi %s,\n\nYour reservation for %s has been cancelled.\nWe hope to see you another time.\n",
			ev.GuestName, formatArrival(ev.ArrivalTime))

	case events.ReservationStatusChanged:
		var ev events.ReservationStatusChangedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Error("failed to decode reservation event", "error", err, "subject", msg.Subject)
			return
		}
		// Only the approval is guest-facing; completion is bookkeeping.
		if ev.ToStatus != "APPROVED" {
			return
		}
		email, name = ev.GuestEmail, ev.GuestName
		subject = "Your reservation is confirmed"
		text = fmt.Sprintf(
			"Hi %s,\n\nYour reservation for %s is confirmed. See you then!\n",
			ev.GuestName, formatArrival(ev.ArrivalTime))

	default:
		// Audit entries and future subjects are not guest-facing.
		return
	}

	if email == "" {
		return
	}

	if _, err := c.mailer.Send(email, name, subject, text, ""); err != nil {
		logger.Error("failed to send reservation email",
			"error", err, "subject", msg.Subject, "to", email)
		return
	}
	logger.Debug("reservation email sent", "subject", msg.Subject, "to", email)
}

func formatArrival(t time.Time) string {
	return t.Format("Monday, January 2 at 15:04")
}
