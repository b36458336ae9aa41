package domain

import "strings"

type ReservationStatus string

const (
	StatusRequested ReservationStatus = "REQUESTED"
	StatusApproved  ReservationStatus = "APPROVED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch ReservationStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusRequested:
		return StatusRequested, true
	case StatusApproved:
		return StatusApproved, true
	case StatusCancelled:
		return StatusCancelled, true
	case StatusCompleted:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// transitions is the full lifecycle: REQUESTED can be approved or cancelled,
// APPROVED can be completed or cancelled, the rest is terminal.
var transitions = map[ReservationStatus][]ReservationStatus{
	StatusRequested: {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusCompleted, StatusCancelled},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition reports whether from -> to is a legal status change.
// Self-transitions are never legal.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

func (s ReservationStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}
