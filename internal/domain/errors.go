package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when an operation references a reservation id
// that does not exist.
var ErrNotFound = errors.New("reservation not found")

// Field error codes returned by the validation rule engine. These are
// stable identifiers; clients key on them, not on the messages.
const (
	CodeRequired                = "REQUIRED"
	CodeMinLength               = "MIN_LENGTH"
	CodeMaxLength               = "MAX_LENGTH"
	CodeInvalidFormat           = "INVALID_FORMAT"
	CodePastDateTime            = "PAST_DATETIME"
	CodeTooFarFuture            = "TOO_FAR_FUTURE"
	CodeOutsideBusinessHours    = "OUTSIDE_BUSINESS_HOURS"
	CodeClosedDay               = "CLOSED_DAY"
	CodeMinValue                = "MIN_VALUE"
	CodeMaxValue                = "MAX_VALUE"
	CodeAdvanceNoticeRequired   = "ADVANCE_NOTICE_REQUIRED"
	CodeSpecialApprovalRequired = "SPECIAL_APPROVAL_REQUIRED"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationError aggregates every failed check so callers can fix all
// fields in one round trip.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError means the capacity allocator rejected the requested time
// slot. It is advice to pick another time, not proof of a full room.
type ConflictError struct {
	ArrivalTime time.Time
	PartySize   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("no capacity for a party of %d around %s", e.PartySize, e.ArrivalTime.Format(time.RFC3339))
}

// InvalidTransitionError names both statuses so the caller can see exactly
// which edge of the state machine was refused.
type InvalidTransitionError struct {
	From ReservationStatus
	To   ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition reservation from %s to %s", e.From, e.To)
}

// Business rule identifiers carried by BusinessRuleError.
const (
	RuleCancelLeadTime        = "CANCEL_LEAD_TIME"
	RuleAlreadyCancelled      = "ALREADY_CANCELLED"
	RuleCannotCancelCompleted = "CANNOT_CANCEL_COMPLETED"
	RuleReservationImmutable  = "RESERVATION_IMMUTABLE"
	RulePrivilegedOnly        = "PRIVILEGED_ONLY"
)

// BusinessRuleError is a rejection for a named policy reason, distinct
// from per-field validation.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// StorageError wraps a failed store call. Retryable marks transient
// failures the caller may safely retry.
type StorageError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a storage failure worth retrying.
func IsRetryable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Retryable
}
