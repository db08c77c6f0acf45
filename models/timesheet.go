package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timesheet status values. The duration-based statuses are recomputed after
// every mutation; the flag-based ones (weekly off, holidays, manual entry)
// always take precedence over the computation.
const (
	StatusAbsent        = "absent"
	StatusPresent       = "present"
	StatusHalfDay       = "half_day"
	StatusFullDay       = "full_day"
	StatusWeeklyOff     = "weekly_off"
	StatusCustomHoliday = "custom_holiday"
	StatusPublicHoliday = "public_holiday"
)

// Session states reported to the client after a scan.
const (
	SessionStateNone   = "none"
	SessionStateOpen   = "open"
	SessionStateClosed = "closed"
)

// DefaultRequiredMinutes applies when a user has no configured working hours.
const DefaultRequiredMinutes = 480

type SessionPoint struct {
	Time              time.Time          `json:"time" bson:"time"`
	AttendanceEventID primitive.ObjectID `json:"attendance_event_id" bson:"attendance_event_id"`
}

// Session is one check-in/check-out pair. DurationMinutes is only set once
// both ends are present.
type Session struct {
	CheckIn         *SessionPoint `json:"check_in,omitempty" bson:"check_in,omitempty"`
	CheckOut        *SessionPoint `json:"check_out,omitempty" bson:"check_out,omitempty"`
	DurationMinutes int           `json:"duration_minutes" bson:"duration_minutes"`
}

func (s *Session) Open() bool {
	return s.CheckIn != nil && s.CheckOut == nil
}

type ManualEntryDetails struct {
	EnteredBy primitive.ObjectID `json:"entered_by" bson:"entered_by"`
	Reason    string             `json:"reason,omitempty" bson:"reason,omitempty"`
	EnteredAt time.Time          `json:"entered_at" bson:"entered_at"`
}

// Timesheet is the daily aggregate ledger, one per user per organization per
// civil day. Date is the start instant of that civil day and forms a unique
// composite index with UserID and OrganizationID.
type Timesheet struct {
	ID                  primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID              primitive.ObjectID  `json:"user_id" bson:"user_id"`
	OrganizationID      primitive.ObjectID  `json:"organization_id" bson:"organization_id"`
	Date                time.Time           `json:"date" bson:"date"`
	Sessions            []Session           `json:"sessions" bson:"sessions"`
	TotalWorkingMinutes int                 `json:"total_working_minutes" bson:"total_working_minutes"`
	Status              string              `json:"status" bson:"status"`
	HasOpenSession      bool                `json:"has_open_session" bson:"has_open_session"`
	IsWeeklyOff         bool                `json:"is_weekly_off" bson:"is_weekly_off"`
	IsCustomHoliday     bool                `json:"is_custom_holiday" bson:"is_custom_holiday"`
	IsPublicHoliday     bool                `json:"is_public_holiday" bson:"is_public_holiday"`
	IsManualEntry       bool                `json:"is_manual_entry" bson:"is_manual_entry"`
	ManualEntry         *ManualEntryDetails `json:"manual_entry,omitempty" bson:"manual_entry,omitempty"`
	CreatedAt           time.Time           `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt           time.Time           `json:"updated_at" bson:"updated_at,omitempty"`
}

// OpenSessionIndex returns the index of the session still missing a
// check-out, or -1. At most one session may be open at any time.
func (t *Timesheet) OpenSessionIndex() int {
	for i := range t.Sessions {
		if t.Sessions[i].Open() {
			return i
		}
	}
	return -1
}

// RecomputeTotals sums session durations into TotalWorkingMinutes and
// refreshes the open-session flag.
func (t *Timesheet) RecomputeTotals() {
	total := 0
	for i := range t.Sessions {
		total += t.Sessions[i].DurationMinutes
	}
	t.TotalWorkingMinutes = total
	t.HasOpenSession = t.OpenSessionIndex() >= 0
}

// ComputeStatus derives the status from worked minutes and flags. Flags win
// over the duration rule; a manual entry keeps whatever was set by the admin.
func (t *Timesheet) ComputeStatus(requiredMinutes int) string {
	if t.IsManualEntry {
		return t.Status
	}
	if t.IsWeeklyOff {
		return StatusWeeklyOff
	}
	if t.IsCustomHoliday {
		return StatusCustomHoliday
	}
	if t.IsPublicHoliday {
		return StatusPublicHoliday
	}
	if requiredMinutes <= 0 {
		requiredMinutes = DefaultRequiredMinutes
	}
	switch {
	case t.TotalWorkingMinutes == 0:
		return StatusAbsent
	case t.TotalWorkingMinutes < requiredMinutes/2:
		return StatusHalfDay
	default:
		return StatusFullDay
	}
}

// SessionDuration is the minutes between two scan instants, floored and
// clamped to zero.
func SessionDuration(checkIn, checkOut time.Time) int {
	mins := int(checkOut.Sub(checkIn) / time.Minute)
	if mins < 0 {
		return 0
	}
	return mins
}

type TimesheetSummary struct {
	Status       string `json:"status" bson:"_id"`
	Days         int    `json:"days" bson:"days"`
	TotalMinutes int    `json:"total_minutes" bson:"total_minutes"`
}

type TimesheetWithUser struct {
	ID                  primitive.ObjectID `json:"id" bson:"_id"`
	UserID              primitive.ObjectID `json:"user_id" bson:"user_id"`
	Date                time.Time          `json:"date" bson:"date"`
	Sessions            []Session          `json:"sessions" bson:"sessions"`
	TotalWorkingMinutes int                `json:"total_working_minutes" bson:"total_working_minutes"`
	Status              string             `json:"status" bson:"status"`
	HasOpenSession      bool               `json:"has_open_session" bson:"has_open_session"`
	UserName            string             `json:"user_name" bson:"user_name"`
	UserEmail           string             `json:"user_email" bson:"user_email"`
}
