// Package capacity approximates whether the room can absorb another party
// around a given arrival time. It is a heuristic over aggregate covers, not
// a table assignment: a conflict means "ask the guest for another time".
package capacity

import (
	"context"
	"time"

	"github.com/seatwise/reservations/internal/domain"
	"github.com/seatwise/reservations/internal/repository"
	"github.com/seatwise/reservations/pkg/config"
	"github.com/seatwise/reservations/pkg/logger"
)

type Detector struct {
	repo   repository.ReservationRepository
	policy config.PolicyConfig
	locks  *WindowLocks
}

func NewDetector(repo repository.ReservationRepository, policy config.PolicyConfig) *Detector {
	return &Detector{
		repo:   repo,
		policy: policy,
		locks:  NewWindowLocks(policy.ConflictWindow),
	}
}

// HasConflict reports whether accepting partySize at arrivalTime would push
// the committed covers in the surrounding window past the capacity bound.
// excludeID skips the reservation being updated; pass "" on create.
//
// If the store lookup fails the detector fails open: it reports no conflict
// rather than blocking every booking on a transient storage error, and logs
// the failure loudly so operators can see when the guard is blind.
func (d *Detector) HasConflict(ctx context.Context, arrivalTime time.Time, partySize int, excludeID string) bool {
	start := arrivalTime.Add(-d.policy.ConflictWindow)
	end := arrivalTime.Add(d.policy.ConflictWindow)

	inWindow, err := d.repo.FindByDateRange(ctx, start, end)
	if err != nil {
		logger.ErrorContext(ctx, "conflict check failed open, accepting without capacity guard",
			"error", err,
			"arrival_time", arrivalTime,
			"party_size", partySize,
		)
		return false
	}

	committed := 0
	for _, r := range inWindow {
		if r.Status == domain.StatusCancelled {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		committed += r.PartySize
	}

	return committed+partySize > d.policy.SeatCapacity()
}

// LockWindow serializes check-then-persist sequences whose conflict windows
// can overlap. The returned func releases the locks.
func (d *Detector) LockWindow(arrivalTime time.Time) func() {
	return d.locks.Lock(arrivalTime)
}
