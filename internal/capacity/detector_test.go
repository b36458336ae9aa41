package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/seatwise/reservations/internal/domain"
	"github.com/seatwise/reservations/pkg/config"
)

// fakeRangeRepo implements repository.ReservationRepository with only the
// range lookup doing real work.
type fakeRangeRepo struct {
	inWindow []domain.Reservation
	err      error
}

func (f *fakeRangeRepo) FindByDateRange(_ context.Context, start, end time.Time) ([]domain.Reservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Reservation
	for _, r := range f.inWindow {
		if !r.ArrivalTime.Before(start) && !r.ArrivalTime.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRangeRepo) FindByID(context.Context, string) (*domain.Reservation, error) {
	return nil, nil
}
func (f *fakeRangeRepo) FindByIDWithToken(context.Context, string, string) (*domain.Reservation, error) {
	return nil, nil
}
func (f *fakeRangeRepo) FindByStatus(context.Context, domain.ReservationStatus, int, int) ([]domain.Reservation, error) {
	return nil, nil
}
func (f *fakeRangeRepo) FindByGuestEmail(context.Context, string) ([]domain.Reservation, error) {
	return nil, nil
}
func (f *fakeRangeRepo) FindFiltered(context.Context, domain.Filter, int, int) ([]domain.Reservation, int, error) {
	return nil, 0, nil
}
func (f *fakeRangeRepo) Insert(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	return r, nil
}
func (f *fakeRangeRepo) Replace(_ context.Context, _ string, r *domain.Reservation) (*domain.Reservation, error) {
	return r, nil
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		ConflictWindow:            2 * time.Hour,
		MaxConcurrentReservations: 10,
		AverageSeatsPerTable:      4, // bound = 40 covers
	}
}

var arrival = time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC)

func reservation(id string, at time.Time, size int, status domain.ReservationStatus) domain.Reservation {
	return domain.Reservation{ID: id, ArrivalTime: at, PartySize: size, Status: status}
}

func TestHasConflict_CapacityBoundary(t *testing.T) {
	repo := &fakeRangeRepo{inWindow: []domain.Reservation{
		reservation("a", arrival.Add(-time.Hour), 20, domain.StatusApproved),
		reservation("b", arrival.Add(30*time.Minute), 16, domain.StatusRequested),
	}}
	d := NewDetector(repo, testPolicy())

	// 36 committed: a party of 4 lands exactly on the bound and is accepted.
	assert.False(t, d.HasConflict(context.Background(), arrival, 4, ""))
	// A party of 5 would exceed it.
	assert.True(t, d.HasConflict(context.Background(), arrival, 5, ""))
}

func TestHasConflict_IgnoresCancelled(t *testing.T) {
	repo := &fakeRangeRepo{inWindow: []domain.Reservation{
		reservation("a", arrival, 36, domain.StatusApproved),
		reservation("c", arrival, 30, domain.StatusCancelled),
	}}
	d := NewDetector(repo, testPolicy())

	assert.False(t, d.HasConflict(context.Background(), arrival, 4, ""))
}

func TestHasConflict_IgnoresOutsideWindow(t *testing.T) {
	repo := &fakeRangeRepo{inWindow: []domain.Reservation{
		reservation("a", arrival.Add(-3*time.Hour), 40, domain.StatusApproved),
		reservation("b", arrival.Add(2*time.Hour+time.Minute), 40, domain.StatusApproved),
	}}
	d := NewDetector(repo, testPolicy())

	assert.False(t, d.HasConflict(context.Background(), arrival, 12, ""))
}

func TestHasConflict_ExcludesReservationBeingUpdated(t *testing.T) {
	repo := &fakeRangeRepo{inWindow: []domain.Reservation{
		reservation("self", arrival, 38, domain.StatusApproved),
	}}
	d := NewDetector(repo, testPolicy())

	// Without the exclusion the update would collide with its own footprint.
	assert.True(t, d.HasConflict(context.Background(), arrival, 6, ""))
	assert.False(t, d.HasConflict(context.Background(), arrival, 6, "self"))
}

func TestHasConflict_FailsOpenOnStorageError(t *testing.T) {
	repo := &fakeRangeRepo{err: errors.New("connection refused")}
	d := NewDetector(repo, testPolicy())

	assert.False(t, d.HasConflict(context.Background(), arrival, 12, ""))
}

func TestWindowLocks_SerializesOverlappingWindows(t *testing.T) {
	locks := NewWindowLocks(2 * time.Hour)

	unlock := locks.Lock(arrival)

	acquired := make(chan struct{})
	go func() {
		// 30 minutes later: windows overlap, must wait for the first holder.
		u := locks.Lock(arrival.Add(30 * time.Minute))
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("overlapping window acquired lock while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never released to the waiter")
	}
}

func TestWindowLocks_Reentrant_AfterUnlock(t *testing.T) {
	locks := NewWindowLocks(2 * time.Hour)

	unlock := locks.Lock(arrival)
	unlock()
	unlock2 := locks.Lock(arrival)
	unlock2()
}
