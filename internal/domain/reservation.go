package domain

import (
	"strings"
	"time"
)

type Reservation struct {
	ID          string            `json:"id"`
	ManageToken string            `json:"manage_token,omitempty"`
	Status      ReservationStatus `json:"status"`
	GuestName   string            `json:"guest_name"`
	GuestEmail  string            `json:"guest_email"`
	GuestPhone  string            `json:"guest_phone"`
	ArrivalTime time.Time         `json:"arrival_time"`
	PartySize   int               `json:"party_size"`
	Notes       string            `json:"notes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	UpdatedBy   string            `json:"updated_by,omitempty"`
}

// Draft is an unvalidated candidate reservation supplied to create.
type Draft struct {
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	GuestPhone  string    `json:"guest_phone"`
	ArrivalTime time.Time `json:"arrival_time"`
	PartySize   int       `json:"party_size"`
	Notes       string    `json:"notes"`
}

// Patch is a partial update merged onto an existing reservation.
// Nil fields are left untouched.
type Patch struct {
	GuestName   *string    `json:"guest_name,omitempty"`
	GuestPhone  *string    `json:"guest_phone,omitempty"`
	ArrivalTime *time.Time `json:"arrival_time,omitempty"`
	PartySize   *int       `json:"party_size,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// TouchesSchedule reports whether applying the patch can change the
// reservation's footprint in the capacity model.
func (p Patch) TouchesSchedule() bool {
	return p.ArrivalTime != nil || p.PartySize != nil
}

// Apply merges the patch onto a copy of r. Timestamps are not stamped here;
// that is the service's job.
func (p Patch) Apply(r Reservation) Reservation {
	if p.GuestName != nil {
		r.GuestName = *p.GuestName
	}
	if p.GuestPhone != nil {
		r.GuestPhone = *p.GuestPhone
	}
	if p.ArrivalTime != nil {
		r.ArrivalTime = *p.ArrivalTime
	}
	if p.PartySize != nil {
		r.PartySize = *p.PartySize
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

// Draft returns the reservation's mutable fields as a Draft so a merged
// update can be re-validated with the same rules as a create.
func (r Reservation) Draft() Draft {
	return Draft{
		GuestName:   r.GuestName,
		GuestEmail:  r.GuestEmail,
		GuestPhone:  r.GuestPhone,
		ArrivalTime: r.ArrivalTime,
		PartySize:   r.PartySize,
		Notes:       r.Notes,
	}
}

// IsOwner checks if the given email owns this reservation.
func (r Reservation) IsOwner(email string) bool {
	return strings.EqualFold(r.GuestEmail, email)
}

// Filter is the read-side predicate for list queries. Zero values mean
// "no constraint".
type Filter struct {
	StartTime  *time.Time         `json:"start_time,omitempty"`
	EndTime    *time.Time         `json:"end_time,omitempty"`
	Status     *ReservationStatus `json:"status,omitempty"`
	GuestName  string             `json:"guest_name,omitempty"`  // partial, case-insensitive
	GuestEmail string             `json:"guest_email,omitempty"` // exact
	PartySize  *int               `json:"party_size,omitempty"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the page to defaults: limit 20 when unset or over the
// cap, offset 0 when negative.
func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > MaxPageLimit {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type PaginatedResult struct {
	Items   []Reservation `json:"items"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"has_more"`
}

// Actor identifies who is asking for a mutation. Privileged actors (staff,
// admin) bypass guest-only guards.
type Actor struct {
	ID         string
	Name       string
	Privileged bool
}

var Guest = Actor{Name: "guest"}

// Staff is a convenience actor for internal callers acting with privilege.
func Staff(id, name string) Actor {
	return Actor{ID: id, Name: name, Privileged: true}
}
