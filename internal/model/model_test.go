package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartsAt(t *testing.T) {
	a := Appointment{Date: day(2026, 3, 14), Time: "09:30"}
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), a.StartsAt())

	// anything not a strict two-digit HH:MM falls back to midnight
	midnight := day(2026, 3, 14)
	for _, raw := range []string{"bad", "", "ab:cd", "1a:30", "-1:30", "9:30", "24:00", "12:60", "12-30"} {
		b := Appointment{Date: midnight, Time: raw}
		assert.Equal(t, midnight, b.StartsAt(), "time %q", raw)
	}
}

func TestUpcomingAt(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		date     time.Time
		hhmm     string
		upcoming bool
	}{
		{"later today", day(2026, 3, 14), "09:31", true},
		{"tomorrow", day(2026, 3, 15), "00:00", true},
		{"exactly now is past", day(2026, 3, 14), "09:30", false},
		{"earlier today", day(2026, 3, 14), "09:29", false},
		{"yesterday", day(2026, 3, 13), "23:59", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Appointment{Date: tt.date, Time: tt.hhmm}
			assert.Equal(t, tt.upcoming, a.UpcomingAt(now))
		})
	}
}

func TestParticipants(t *testing.T) {
	a := Appointment{UserIDs: []string{"u1", "u2"}, CreatedBy: "u1"}
	assert.True(t, a.HasParticipant("u1"))
	assert.True(t, a.HasParticipant("u2"))
	assert.False(t, a.HasParticipant("u3"))
	assert.Equal(t, "u2", a.Invitee())
}

func TestAuthorize(t *testing.T) {
	appt := func(status Status) *Appointment {
		return &Appointment{UserIDs: []string{"creator", "invitee"}, CreatedBy: "creator", Status: status}
	}

	tests := []struct {
		name   string
		status Status
		actor  string
		action Status
		err    error
	}{
		{"creator cancels pending", StatusPending, "creator", StatusCancel, nil},
		{"creator cancels accepted", StatusAccept, "creator", StatusCancel, nil},
		{"creator cancels twice", StatusCancel, "creator", StatusCancel, ErrNotAllowed},
		{"creator cannot accept", StatusPending, "creator", StatusAccept, ErrNotAllowed},
		{"creator cannot decline", StatusPending, "creator", StatusDecline, ErrNotAllowed},
		{"invitee accepts pending", StatusPending, "invitee", StatusAccept, nil},
		{"invitee declines pending", StatusPending, "invitee", StatusDecline, nil},
		{"invitee cannot cancel", StatusPending, "invitee", StatusCancel, ErrNotAllowed},
		{"invitee cannot accept twice", StatusAccept, "invitee", StatusAccept, ErrNotAllowed},
		{"invitee cannot accept cancelled", StatusCancel, "invitee", StatusAccept, ErrNotAllowed},
		{"outsider rejected", StatusPending, "stranger", StatusAccept, ErrNotParticipant},
		{"pending is not an action", StatusPending, "invitee", StatusPending, ErrNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := appt(tt.status).Authorize(tt.actor, tt.action)
			if tt.err == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusAccept, StatusDecline, StatusCancel} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("confirmed").Valid())
	assert.False(t, Status("").Valid())
}
