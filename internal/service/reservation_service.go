package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seatwise/reservations/internal/capacity"
	"github.com/seatwise/reservations/internal/domain"
	"github.com/seatwise/reservations/internal/repository"
	"github.com/seatwise/reservations/internal/validate"
	"github.com/seatwise/reservations/pkg/config"
	"github.com/seatwise/reservations/pkg/events"
	"github.com/seatwise/reservations/pkg/logger"
)

// ReservationService orchestrates the reservation lifecycle: validation,
// capacity admission, the status state machine, persistence, and the
// best-effort audit/notification side effects.
type ReservationService interface {
	Create(ctx context.Context, draft domain.Draft, idempotencyKey string) (*domain.Reservation, error)
	Get(ctx context.Context, id string) (*domain.Reservation, error)
	GetWithToken(ctx context.Context, id, token string) (*domain.Reservation, error)
	Update(ctx context.Context, id string, patch domain.Patch, actor domain.Actor) (*domain.Reservation, error)
	Cancel(ctx context.Context, id string, actor domain.Actor) (*domain.Reservation, error)
	ChangeStatus(ctx context.Context, id string, to domain.ReservationStatus, actor domain.Actor) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.Filter, page domain.Page) (*domain.PaginatedResult, error)
	GetByEmail(ctx context.Context, email string) ([]domain.Reservation, error)
}

type reservationService struct {
	repo            repository.ReservationRepository
	idempotencyRepo repository.IdempotencyRepository
	validator       *validate.Engine
	detector        *capacity.Detector
	bus             events.Publisher
	policy          config.PolicyConfig
}

func NewReservationService(
	repo repository.ReservationRepository,
	idempotencyRepo repository.IdempotencyRepository,
	detector *capacity.Detector,
	bus events.Publisher,
	policy config.PolicyConfig,
) ReservationService {
	return &reservationService{
		repo:            repo,
		idempotencyRepo: idempotencyRepo,
		validator:       validate.NewEngine(policy),
		detector:        detector,
		bus:             bus,
		policy:          policy,
	}
}

func (s *reservationService) Create(ctx context.Context, draft domain.Draft, idempotencyKey string) (*domain.Reservation, error) {
	draft = validate.NormalizeDraft(draft)

	now := time.Now().UTC()
	if err := s.validator.Validate(draft, now).Err(); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && s.idempotencyRepo != nil {
		existingID, err := s.idempotencyRepo.CheckOrCreate(ctx, idempotencyKey, "")
		if err != nil {
			return nil, &domain.StorageError{Op: "idempotency check", Err: err, Retryable: true}
		}
		if existingID != "" {
			existing, err := s.repo.FindByID(ctx, existingID)
			if err != nil {
				return nil, &domain.StorageError{Op: "find reservation", Err: err, Retryable: true}
			}
			if existing != nil {
				return existing, nil
			}
		}
	}

	// The window lock is held across check and persist so two concurrent
	// creates in overlapping windows cannot both pass the capacity check.
	unlock := s.detector.LockWindow(draft.ArrivalTime)
	defer unlock()

	if s.detector.HasConflict(ctx, draft.ArrivalTime, draft.PartySize, "") {
		return nil, &domain.ConflictError{ArrivalTime: draft.ArrivalTime, PartySize: draft.PartySize}
	}

	res := &domain.Reservation{
		ID:          uuid.NewString(),
		ManageToken: uuid.NewString(),
		Status:      domain.StatusRequested,
		GuestName:   draft.GuestName,
		GuestEmail:  draft.GuestEmail,
		GuestPhone:  draft.GuestPhone,
		ArrivalTime: draft.ArrivalTime,
		PartySize:   draft.PartySize,
		Notes:       draft.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Insert(ctx, res)
	if err != nil {
		return nil, &domain.StorageError{Op: "insert reservation", Err: err, Retryable: true}
	}

	if idempotencyKey != "" && s.idempotencyRepo != nil {
		if _, err := s.idempotencyRepo.CheckOrCreate(ctx, idempotencyKey, created.ID); err != nil {
			logger.ErrorContext(ctx, "failed to store idempotency record", "error", err, "reservation_id", created.ID)
		}
	}

	s.audit(ctx, domain.AuditEntry{
		ReservationID: created.ID,
		Action:        domain.AuditCreated,
		Actor:         "guest",
		ToStatus:      created.Status,
		Timestamp:     now,
	})
	s.publish(ctx, events.ReservationCreated, events.ReservationCreatedEvent{
		ReservationID: created.ID,
		GuestEmail:    created.GuestEmail,
		GuestName:     created.GuestName,
		ArrivalTime:   created.ArrivalTime,
		PartySize:     created.PartySize,
		CreatedAt:     created.CreatedAt,
	})

	return created, nil
}

func (s *reservationService) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, &domain.StorageError{Op: "find reservation", Err: err, Retryable: true}
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *reservationService) GetWithToken(ctx context.Context, id, token string) (*domain.Reservation, error) {
	res, err := s.repo.FindByIDWithToken(ctx, id, token)
	if err != nil {
		return nil, &domain.StorageError{Op: "find reservation", Err: err, Retryable: true}
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *reservationService) Update(ctx context.Context, id string, patch domain.Patch, actor domain.Actor) (*domain.Reservation, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.Status.Terminal() {
		return nil, &domain.BusinessRuleError{
			Rule:    domain.RuleReservationImmutable,
			Message: fmt.Sprintf("a %s reservation cannot be modified", strings.ToLower(string(existing.Status))),
		}
	}

	merged := patch.Apply(*existing)
	now := time.Now().UTC()

	if patch.TouchesSchedule() {
		if err := s.validator.Validate(merged.Draft(), now).Err(); err != nil {
			return nil, err
		}

		unlock := s.detector.LockWindow(merged.ArrivalTime)
		defer unlock()

		if s.detector.HasConflict(ctx, merged.ArrivalTime, merged.PartySize, existing.ID) {
			return nil, &domain.ConflictError{ArrivalTime: merged.ArrivalTime, PartySize: merged.PartySize}
		}
	}

	merged.UpdatedAt = now
	merged.UpdatedBy = actorRef(actor)

	updated, err := s.repo.Replace(ctx, id, &merged)
	if err != nil {
		return nil, &domain.StorageError{Op: "replace reservation", Err: err, Retryable: true}
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	changes := detectChanges(existing, updated)
	s.audit(ctx, domain.AuditEntry{
		ReservationID: updated.ID,
		Action:        domain.AuditUpdated,
		Actor:         actorRef(actor),
		Timestamp:     now,
	})
	if len(changes) > 0 {
		s.publish(ctx, events.ReservationUpdated, events.ReservationUpdatedEvent{
			ReservationID: updated.ID,
			GuestEmail:    updated.GuestEmail,
			GuestName:     updated.GuestName,
			ArrivalTime:   updated.ArrivalTime,
			Changes:       changes,
			UpdatedAt:     updated.UpdatedAt,
		})
	}

	return updated, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string, actor domain.Actor) (*domain.Reservation, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch existing.Status {
	case domain.StatusCancelled:
		return nil, &domain.BusinessRuleError{
			Rule:    domain.RuleAlreadyCancelled,
			Message: "reservation is already cancelled",
		}
	case domain.StatusCompleted:
		return nil, &domain.BusinessRuleError{
			Rule:    domain.RuleCannotCancelCompleted,
			Message: "cannot cancel a completed reservation",
		}
	}

	// Guests cannot cancel close to arrival; staff can.
	if !actor.Privileged {
		if lead := time.Until(existing.ArrivalTime); lead < s.policy.GuestCancelLeadTime {
			return nil, &domain.BusinessRuleError{
				Rule: domain.RuleCancelLeadTime,
				Message: fmt.Sprintf("reservations cannot be cancelled less than %s before arrival",
					s.policy.GuestCancelLeadTime),
			}
		}
	}

	updated, err := s.applyTransition(ctx, existing, domain.StatusCancelled, actor, domain.AuditCancelled)
	if err != nil {
		return nil, err
	}

	reason := "guest_requested"
	if actor.Privileged {
		reason = "staff_cancelled"
	}
	s.publish(ctx, events.ReservationCancelled, events.ReservationCancelledEvent{
		ReservationID: updated.ID,
		GuestEmail:    updated.GuestEmail,
		GuestName:     updated.GuestName,
		ArrivalTime:   updated.ArrivalTime,
		Reason:        reason,
		CancelledAt:   updated.UpdatedAt,
	})

	return updated, nil
}

func (s *reservationService) ChangeStatus(ctx context.Context, id string, to domain.ReservationStatus, actor domain.Actor) (*domain.Reservation, error) {
	if !actor.Privileged {
		return nil, &domain.BusinessRuleError{
			Rule:    domain.RulePrivilegedOnly,
			Message: "only staff can change reservation status",
		}
	}
	if !to.Valid() {
		return nil, &domain.InvalidTransitionError{To: to}
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.applyTransition(ctx, existing, to, actor, domain.AuditStatusChanged)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.ReservationStatusChanged, events.ReservationStatusChangedEvent{
		ReservationID: updated.ID,
		GuestEmail:    updated.GuestEmail,
		GuestName:     updated.GuestName,
		ArrivalTime:   updated.ArrivalTime,
		FromStatus:    string(existing.Status),
		ToStatus:      string(updated.Status),
		ChangedAt:     updated.UpdatedAt,
	})

	return updated, nil
}

// applyTransition drives the state machine: the transition is checked
// before anything mutates, and the audit entry is only written once the
// new state has been persisted.
func (s *reservationService) applyTransition(ctx context.Context, existing *domain.Reservation, to domain.ReservationStatus, actor domain.Actor, action domain.AuditAction) (*domain.Reservation, error) {
	if !domain.CanTransition(existing.Status, to) {
		return nil, &domain.InvalidTransitionError{From: existing.Status, To: to}
	}

	now := time.Now().UTC()
	next := *existing
	next.Status = to
	next.UpdatedAt = now
	next.UpdatedBy = actorRef(actor)

	updated, err := s.repo.Replace(ctx, existing.ID, &next)
	if err != nil {
		return nil, &domain.StorageError{Op: "replace reservation", Err: err, Retryable: true}
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	s.audit(ctx, domain.AuditEntry{
		ReservationID: updated.ID,
		Action:        action,
		Actor:         actorRef(actor),
		FromStatus:    existing.Status,
		ToStatus:      updated.Status,
		Timestamp:     now,
	})

	return updated, nil
}

func (s *reservationService) List(ctx context.Context, filter domain.Filter, page domain.Page) (*domain.PaginatedResult, error) {
	page = page.Normalize()

	items, total, err := s.repo.FindFiltered(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, &domain.StorageError{Op: "list reservations", Err: err, Retryable: true}
	}
	if items == nil {
		items = []domain.Reservation{}
	}

	return &domain.PaginatedResult{
		Items:   items,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: page.Offset+len(items) < total,
	}, nil
}

func (s *reservationService) GetByEmail(ctx context.Context, email string) ([]domain.Reservation, error) {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return nil, &domain.ValidationError{Fields: []domain.FieldError{
			{Field: "guest_email", Message: "guest email is required", Code: domain.CodeRequired},
		}}
	}

	items, err := s.repo.FindByGuestEmail(ctx, email)
	if err != nil {
		return nil, &domain.StorageError{Op: "find reservations by email", Err: err, Retryable: true}
	}
	return items, nil
}

// audit and publish are fire-and-forget: a dead event bus never fails the
// operation, it only shows up in the logs.
func (s *reservationService) audit(ctx context.Context, entry domain.AuditEntry) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.ReservationAudit, entry); err != nil {
		logger.ErrorContext(ctx, "failed to publish audit entry",
			"error", err, "reservation_id", entry.ReservationID, "action", entry.Action)
	}
}

func (s *reservationService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.ErrorContext(ctx, "failed to publish reservation event", "error", err, "subject", subject)
	}
}

func actorRef(actor domain.Actor) string {
	if actor.ID != "" {
		return actor.ID
	}
	if actor.Name != "" {
		return actor.Name
	}
	return "guest"
}

func detectChanges(old, new *domain.Reservation) []string {
	var changes []string

	if old.GuestName != new.GuestName {
		changes = append(changes, "guest_name")
	}
	if old.GuestPhone != new.GuestPhone {
		changes = append(changes, "guest_phone")
	}
	if !old.ArrivalTime.Equal(new.ArrivalTime) {
		changes = append(changes, "arrival_time")
	}
	if old.PartySize != new.PartySize {
		changes = append(changes, "party_size")
	}
	if old.Notes != new.Notes {
		changes = append(changes, "notes")
	}

	return changes
}
