package models

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func istTime(hour, min int) time.Time {
	ist := time.FixedZone("IST", 5*3600+30*60)
	return time.Date(2025, 3, 10, hour, min, 0, 0, ist)
}

func TestSessionDuration(t *testing.T) {
	tests := []struct {
		name     string
		in, out  time.Time
		expected int
	}{
		{"full day", istTime(9, 5), istTime(17, 10), 485},
		{"two hours", istTime(9, 0), istTime(11, 0), 120},
		{"floors partial minute", istTime(9, 0), istTime(9, 1).Add(59 * time.Second), 1},
		{"clamped to zero when reversed", istTime(17, 0), istTime(9, 0), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SessionDuration(tc.in, tc.out); got != tc.expected {
				t.Errorf("SessionDuration = %d, want %d", got, tc.expected)
			}
		})
	}
}

func TestComputeStatusDurationRule(t *testing.T) {
	tests := []struct {
		name     string
		minutes  int
		required int
		expected string
	}{
		{"zero is absent", 0, 480, StatusAbsent},
		{"under half is half day", 120, 480, StatusHalfDay},
		{"exactly half is full day", 240, 480, StatusFullDay},
		{"over half is full day", 485, 480, StatusFullDay},
		{"default when required unset", 239, 0, StatusHalfDay},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sheet := &Timesheet{TotalWorkingMinutes: tc.minutes}
			if got := sheet.ComputeStatus(tc.required); got != tc.expected {
				t.Errorf("ComputeStatus = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestComputeStatusFlagsWin(t *testing.T) {
	sheet := &Timesheet{TotalWorkingMinutes: 485, IsWeeklyOff: true}
	if got := sheet.ComputeStatus(480); got != StatusWeeklyOff {
		t.Errorf("weekly off flag must win, got %q", got)
	}

	sheet = &Timesheet{TotalWorkingMinutes: 0, IsPublicHoliday: true}
	if got := sheet.ComputeStatus(480); got != StatusPublicHoliday {
		t.Errorf("public holiday flag must win, got %q", got)
	}

	sheet = &Timesheet{TotalWorkingMinutes: 0, IsCustomHoliday: true}
	if got := sheet.ComputeStatus(480); got != StatusCustomHoliday {
		t.Errorf("custom holiday flag must win, got %q", got)
	}

	// Manual entries keep what the admin set.
	sheet = &Timesheet{TotalWorkingMinutes: 0, IsManualEntry: true, Status: StatusPresent}
	if got := sheet.ComputeStatus(480); got != StatusPresent {
		t.Errorf("manual entry status must be preserved, got %q", got)
	}
}

func TestRecomputeTotalsAndOpenSession(t *testing.T) {
	eventID := primitive.NewObjectID()
	sheet := &Timesheet{
		Sessions: []Session{
			{
				CheckIn:         &SessionPoint{Time: istTime(9, 0), AttendanceEventID: eventID},
				CheckOut:        &SessionPoint{Time: istTime(12, 0), AttendanceEventID: eventID},
				DurationMinutes: 180,
			},
			{
				CheckIn: &SessionPoint{Time: istTime(13, 0), AttendanceEventID: eventID},
			},
		},
	}

	sheet.RecomputeTotals()

	if sheet.TotalWorkingMinutes != 180 {
		t.Errorf("TotalWorkingMinutes = %d, want 180", sheet.TotalWorkingMinutes)
	}
	if !sheet.HasOpenSession {
		t.Error("expected an open session")
	}
	if idx := sheet.OpenSessionIndex(); idx != 1 {
		t.Errorf("OpenSessionIndex = %d, want 1", idx)
	}

	open := 0
	for _, s := range sheet.Sessions {
		if s.Open() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("found %d open sessions, at most one may be open", open)
	}
}

func TestWorkingHoursRequiredMinutes(t *testing.T) {
	if got := (WorkingHours{Start: "09:00", End: "17:00"}).RequiredMinutes(); got != 480 {
		t.Errorf("RequiredMinutes = %d, want 480", got)
	}
	if got := (WorkingHours{}).RequiredMinutes(); got != DefaultRequiredMinutes {
		t.Errorf("unset hours should default, got %d", got)
	}
	if got := (WorkingHours{Start: "17:00", End: "09:00"}).RequiredMinutes(); got != DefaultRequiredMinutes {
		t.Errorf("inverted hours should default, got %d", got)
	}
}
