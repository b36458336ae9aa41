package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPatchApply_MergesOnlySetFields(t *testing.T) {
	arrival := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	r := Reservation{
		ID:          "res-1",
		GuestName:   "Dana Cole",
		GuestEmail:  "dana@example.com",
		GuestPhone:  "+15550001111",
		ArrivalTime: arrival,
		PartySize:   2,
		Notes:       "window seat",
	}

	newName := "Dana C."
	newSize := 4
	patched := Patch{GuestName: &newName, PartySize: &newSize}.Apply(r)

	assert.Equal(t, "Dana C.", patched.GuestName)
	assert.Equal(t, 4, patched.PartySize)
	assert.Equal(t, r.GuestPhone, patched.GuestPhone)
	assert.Equal(t, r.ArrivalTime, patched.ArrivalTime)
	assert.Equal(t, r.Notes, patched.Notes)
	// original untouched
	assert.Equal(t, "Dana Cole", r.GuestName)
	assert.Equal(t, 2, r.PartySize)
}

func TestPatchTouchesSchedule(t *testing.T) {
	size := 6
	at := time.Now()
	name := "x"

	assert.False(t, Patch{}.TouchesSchedule())
	assert.False(t, Patch{GuestName: &name}.TouchesSchedule())
	assert.True(t, Patch{PartySize: &size}.TouchesSchedule())
	assert.True(t, Patch{ArrivalTime: &at}.TouchesSchedule())
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"defaults", Page{}, Page{Limit: 20, Offset: 0}},
		{"negative offset", Page{Limit: 10, Offset: -5}, Page{Limit: 10, Offset: 0}},
		{"over cap", Page{Limit: 500, Offset: 40}, Page{Limit: 20, Offset: 40}},
		{"kept as is", Page{Limit: 50, Offset: 100}, Page{Limit: 50, Offset: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestIsOwner_CaseInsensitive(t *testing.T) {
	r := Reservation{GuestEmail: "Guest@Example.com"}
	assert.True(t, r.IsOwner("guest@example.com"))
	assert.True(t, r.IsOwner("GUEST@EXAMPLE.COM"))
	assert.False(t, r.IsOwner("other@example.com"))
}
