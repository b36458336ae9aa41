// Package validate is the reservation rule engine. It is pure: every check
// runs against an explicit "now" and a policy handed in at construction, so
// two calls with the same inputs always give the same answer.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/seatwise/reservations/internal/domain"
	"github.com/seatwise/reservations/pkg/config"
)

const (
	minNameLength  = 2
	maxNameLength  = 100
	maxEmailLength = 254
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

type Result struct {
	Errors []domain.FieldError
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err converts the result into a *domain.ValidationError, or nil when valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &domain.ValidationError{Fields: r.Errors}
}

type Engine struct {
	policy config.PolicyConfig
}

func NewEngine(policy config.PolicyConfig) *Engine {
	return &Engine{policy: policy}
}

// Validate runs every check and accumulates all failures rather than
// stopping at the first.
func (e *Engine) Validate(draft domain.Draft, now time.Time) Result {
	var res Result

	res.checkName(draft.GuestName)
	res.checkEmail(draft.GuestEmail)
	res.checkPhone(draft.GuestPhone)
	e.checkArrivalTime(&res, draft.ArrivalTime, now)
	e.checkPartySize(&res, draft.PartySize, draft.ArrivalTime, now)
	e.checkNotes(&res, draft.Notes)

	return res
}

func (r *Result) add(field, message, code string) {
	r.Errors = append(r.Errors, domain.FieldError{Field: field, Message: message, Code: code})
}

func (r *Result) checkName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.add("guest_name", "guest name is required", domain.CodeRequired)
		return
	}
	if len([]rune(name)) < minNameLength {
		r.add("guest_name", fmt.Sprintf("guest name must be at least %d characters", minNameLength), domain.CodeMinLength)
	}
	if len([]rune(name)) > maxNameLength {
		r.add("guest_name", fmt.Sprintf("guest name must be at most %d characters", maxNameLength), domain.CodeMaxLength)
	}
}

func (r *Result) checkEmail(email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		r.add("guest_email", "guest email is required", domain.CodeRequired)
		return
	}
	if len(email) > maxEmailLength {
		r.add("guest_email", fmt.Sprintf("guest email must be at most %d characters", maxEmailLength), domain.CodeMaxLength)
	}
	if !emailPattern.MatchString(email) {
		r.add("guest_email", "guest email is not a valid address", domain.CodeInvalidFormat)
	}
}

func (r *Result) checkPhone(phone string) {
	if strings.TrimSpace(phone) == "" {
		r.add("guest_phone", "guest phone is required", domain.CodeRequired)
		return
	}
	if !phonePattern.MatchString(NormalizePhone(phone)) {
		r.add("guest_phone", fmt.Sprintf("guest phone must contain %d-%d digits", minPhoneDigits, maxPhoneDigits), domain.CodeInvalidFormat)
	}
}

func (e *Engine) checkArrivalTime(r *Result, arrival, now time.Time) {
	if arrival.IsZero() {
		r.add("arrival_time", "arrival time is required", domain.CodeRequired)
		return
	}
	if !arrival.After(now) {
		r.add("arrival_time", "arrival time must be in the future", domain.CodePastDateTime)
		return
	}
	if arrival.Sub(now) > e.policy.AdvanceBookingHorizon {
		r.add("arrival_time", fmt.Sprintf("arrival time is beyond the %d-day booking horizon",
			int(e.policy.AdvanceBookingHorizon.Hours()/24)), domain.CodeTooFarFuture)
	}
	if arrival.Weekday() == e.policy.ClosedDay {
		r.add("arrival_time", fmt.Sprintf("the restaurant is closed on %s", e.policy.ClosedDay), domain.CodeClosedDay)
	}
	if h := arrival.Hour(); h < e.policy.OpeningHour || h >= e.policy.ClosingHour {
		r.add("arrival_time", fmt.Sprintf("arrival time must be between %02d:00 and %02d:00",
			e.policy.OpeningHour, e.policy.ClosingHour), domain.CodeOutsideBusinessHours)
	}
}

func (e *Engine) checkPartySize(r *Result, size int, arrival, now time.Time) {
	if size < e.policy.MinPartySize {
		r.add("party_size", fmt.Sprintf("party size must be at least %d", e.policy.MinPartySize), domain.CodeMinValue)
		return
	}
	if size > e.policy.MaxPartySize {
		r.add("party_size", fmt.Sprintf("party size must be at most %d", e.policy.MaxPartySize), domain.CodeMaxValue)
	}

	// Parties above the special-approval threshold are a hard stop no matter
	// how far out the arrival is. Below that, large parties only need notice.
	if size > e.policy.SpecialApprovalThreshold {
		r.add("party_size", fmt.Sprintf("parties larger than %d require special approval",
			e.policy.SpecialApprovalThreshold), domain.CodeSpecialApprovalRequired)
		return
	}
	if size > e.policy.LargePartyThreshold && !arrival.IsZero() && arrival.Sub(now) < e.policy.LargePartyNotice {
		r.add("party_size", fmt.Sprintf("parties larger than %d need %s advance notice",
			e.policy.LargePartyThreshold, e.policy.LargePartyNotice), domain.CodeAdvanceNoticeRequired)
	}
}

func (e *Engine) checkNotes(r *Result, notes string) {
	if len([]rune(notes)) > e.policy.MaxNotesLength {
		r.add("notes", fmt.Sprintf("notes must be at most %d characters", e.policy.MaxNotesLength), domain.CodeMaxLength)
	}
}

// NormalizePhone strips spaces, dashes and parentheses, keeping a single
// leading plus sign and digits.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		switch {
		case i == 0 && r == '+':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// stripped
		default:
			// keep the offending rune so the format check fails loudly
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeDraft trims identity fields in place before validation, so
// stored values never carry stray whitespace.
func NormalizeDraft(d domain.Draft) domain.Draft {
	d.GuestName = strings.TrimSpace(d.GuestName)
	d.GuestEmail = NormalizeEmail(d.GuestEmail)
	d.GuestPhone = NormalizePhone(d.GuestPhone)
	return d
}
