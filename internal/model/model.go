package model

import (
	"errors"
	"time"
)

var (
	ErrNotParticipant = errors.New("not a participant")
	ErrNotAllowed     = errors.New("action not allowed")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Status is the lifecycle of an appointment. It starts at pending and
// moves exactly once: the invitee accepts or declines, or the creator cancels.
type Status string

const (
	StatusPending Status = "pending"
	StatusAccept  Status = "accept"
	StatusDecline Status = "decline"
	StatusCancel  Status = "cancel"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccept, StatusDecline, StatusCancel:
		return true
	}
	return false
}

// Appointment is shared between exactly two participants: the creator and
// the invitee. Visibility is defined by membership in UserIDs.
type Appointment struct {
	ID           string
	Title        string
	Description  string
	Date         time.Time // calendar date, midnight in Date.Location()
	Time         string    // "HH:MM", 24h
	Status       Status
	AudioMessage string // public URL, set at creation, never mutated
	UserIDs      []string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Appointment) HasParticipant(userID string) bool {
	for _, id := range a.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Invitee returns the participant that is not the creator.
func (a *Appointment) Invitee() string {
	for _, id := range a.UserIDs {
		if id != a.CreatedBy {
			return id
		}
	}
	return ""
}

// StartsAt combines the calendar date and the HH:MM time into one instant.
// A malformed time sorts the appointment at midnight rather than failing;
// the creation flow and the table's check constraint keep bad values out of
// new rows.
func (a *Appointment) StartsAt() time.Time {
	hh, mm := parseClock(a.Time)
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), hh, mm, 0, 0, a.Date.Location())
}

// parseClock reads a strict two-digit "HH:MM"; anything else is midnight.
func parseClock(s string) (int, int) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	if hh > 23 || mm > 59 {
		return 0, 0
	}
	return hh, mm
}

// UpcomingAt reports whether the appointment is still ahead of now.
// Derived on every read, never stored.
func (a *Appointment) UpcomingAt(now time.Time) bool {
	return a.StartsAt().After(now)
}

// Authorize checks whether actor may apply action to this appointment.
// Cancel is reserved for the creator; accept and decline for the invitee,
// and only while the appointment is still pending.
func (a *Appointment) Authorize(actorID string, action Status) error {
	if !a.HasParticipant(actorID) {
		return ErrNotParticipant
	}
	switch action {
	case StatusCancel:
		if actorID != a.CreatedBy {
			return ErrNotAllowed
		}
		if a.Status == StatusCancel {
			return ErrNotAllowed
		}
	case StatusAccept, StatusDecline:
		if actorID == a.CreatedBy {
			return ErrNotAllowed
		}
		if a.Status != StatusPending {
			return ErrNotAllowed
		}
	default:
		return ErrNotAllowed
	}
	return nil
}
