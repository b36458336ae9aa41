package domain

import "time"

type AuditAction string

const (
	AuditCreated       AuditAction = "CREATED"
	AuditUpdated       AuditAction = "UPDATED"
	AuditCancelled     AuditAction = "CANCELLED"
	AuditStatusChanged AuditAction = "STATUS_CHANGED"
)

// AuditEntry records a single mutation. Entries are append-only; they are
// published on the event bus rather than stored by this service.
type AuditEntry struct {
	ReservationID string            `json:"reservation_id"`
	Action        AuditAction       `json:"action"`
	Actor         string            `json:"actor"`
	FromStatus    ReservationStatus `json:"from_status,omitempty"`
	ToStatus      ReservationStatus `json:"to_status,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}
