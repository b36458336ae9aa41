package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_FullGrid(t *testing.T) {
	all := []ReservationStatus{StatusRequested, StatusApproved, StatusCancelled, StatusCompleted}

	allowed := map[ReservationStatus]map[ReservationStatus]bool{
		StatusRequested: {StatusApproved: true, StatusCancelled: true},
		StatusApproved:  {StatusCompleted: true, StatusCancelled: true},
		StatusCancelled: {},
		StatusCompleted: {},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			got := CanTransition(from, to)
			assert.Equal(t, want, got, "transition %s -> %s", from, to)
		}
	}
}

func TestCanTransition_SelfPairsDisallowed(t *testing.T) {
	for _, s := range []ReservationStatus{StatusRequested, StatusApproved, StatusCancelled, StatusCompleted} {
		assert.False(t, CanTransition(s, s), "self-transition %s", s)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusRequested.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}

func TestParseReservationStatus(t *testing.T) {
	tests := []struct {
		in   string
		want ReservationStatus
		ok   bool
	}{
		{"REQUESTED", StatusRequested, true},
		{"approved", StatusApproved, true},
		{"  Cancelled  ", StatusCancelled, true},
		{"completed", StatusCompleted, true},
		{"", "", false},
		{"SEATED", "", false},
		{"no_show", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseReservationStatus(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
