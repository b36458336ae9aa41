package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatwise/reservations/pkg/events"
)

type sentMail struct {
	to      string
	subject string
	text    string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.sent = append(m.sent, sentMail{to: toEmail, subject: subject, text: text})
	return "msg-id", nil
}

func deliver(t *testing.T, c *Consumer, subject string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	c.handle(&events.Message{Subject: subject, Data: data, Timestamp: time.Now()})
}

func TestConsumerMailsOnCreate(t *testing.T) {
	mailer := &recordingMailer{}
	c := NewConsumer(nil, mailer)

	deliver(t, c, events.ReservationCreated, events.ReservationCreatedEvent{
		ReservationID: "r1",
		GuestEmail:    "alice@example.com",
		GuestName:     "Alice",
		ArrivalTime:   time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC),
		PartySize:     4,
	})

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].text, "party of 4")
}

func TestConsumerMailsOnCancel(t *testing.T) {
	mailer := &recordingMailer{}
	c := NewConsumer(nil, mailer)

	deliver(t, c, events.ReservationCancelled, events.ReservationCancelledEvent{
		ReservationID: "r1",
		GuestEmail:    "alice@example.com",
		GuestName:     "Alice",
		ArrivalTime:   time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC),
		Reason:        "guest_requested",
	})

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].subject, "cancelled")
}

func TestConsumerMailsOnlyApprovalStatusChanges(t *testing.T) {
	mailer := &recordingMailer{}
	c := NewConsumer(nil, mailer)

	deliver(t, c, events.ReservationStatusChanged, events.ReservationStatusChangedEvent{
		ReservationID: "r1",
		GuestEmail:    "alice@example.com",
		GuestName:     "Alice",
		FromStatus:    "APPROVED",
		ToStatus:      "COMPLETED",
	})
	assert.Empty(t, mailer.sent, "completion is not guest-facing")

	deliver(t, c, events.ReservationStatusChanged, events.ReservationStatusChangedEvent{
		ReservationID: "r1",
		GuestEmail:    "alice@example.com",
		GuestName:     "Alice",
		FromStatus:    "REQUESTED",
		ToStatus:      "APPROVED",
	})
	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].subject, "confirmed")
}

func TestConsumerIgnoresAuditAndGarbage(t *testing.T) {
	mailer := &recordingMailer{}
	c := NewConsumer(nil, mailer)

	c.handle(&events.Message{Subject: events.ReservationAudit, Data: []byte(`{}`)})
	c.handle(&events.Message{Subject: events.ReservationCreated, Data: []byte(`not json`)})

	assert.Empty(t, mailer.sent)
}
