package services

import (
	"context"
	"errors"
	"log"
	"time"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/timebase"
	"attendtrack-backend/repository"
)

// NonWorkingKind selects which flag a materialized non-working timesheet
// carries.
type NonWorkingKind string

const (
	KindWeeklyOff     NonWorkingKind = "weekly_off"
	KindCustomHoliday NonWorkingKind = "custom_holiday"
	KindPublicHoliday NonWorkingKind = "public_holiday"
)

// WorkingDayOracle answers whether a civil day is a working day for a user.
type WorkingDayOracle interface {
	IsWorkingDay(day time.Time, user *models.User) (bool, error)
}

// TimesheetAggregator folds attendance events into the daily ledger and
// synthesizes weekly-off, holiday and absence records.
type TimesheetAggregator struct {
	sheets repository.TimesheetRepository

	// PublicHolidayCreditMinutes is credited on materialized public
	// holidays. Zero means no credit.
	PublicHolidayCreditMinutes int
}

func NewTimesheetAggregator(sheets repository.TimesheetRepository) *TimesheetAggregator {
	return &TimesheetAggregator{sheets: sheets}
}

// Apply folds one attendance event into the user's timesheet for the event's
// civil day and returns the updated sheet. The session mutation is a guarded
// conditional write; a losing concurrent scan comes back as a state-machine
// rejection, never as silent data loss.
func (a *TimesheetAggregator) Apply(ctx context.Context, event *models.AttendanceEvent, user *models.User) (*models.Timesheet, error) {
	day := timebase.StartOfCivilDay(event.Instant)
	point := models.SessionPoint{Time: event.Instant, AttendanceEventID: event.ID}

	var sheet *models.Timesheet
	var err error
	switch event.Kind {
	case models.ScanTypeCheckIn:
		sheet, err = a.sheets.OpenSession(ctx, event.UserID, event.OrganizationID, day, point)
		if errors.Is(err, repository.ErrSessionConflict) {
			return nil, apperr.New(apperr.DuplicateCheckIn, "you already have an open session today, check out first")
		}
	case models.ScanTypeCheckOut:
		sheet, err = a.sheets.CloseSession(ctx, event.UserID, event.OrganizationID, day, point)
		if errors.Is(err, repository.ErrSessionConflict) {
			// The recorder's state machine should have rejected this scan;
			// reaching here means an upstream invariant broke or a
			// concurrent close raced us.
			log.Printf("ERROR: no active session for user %s on %s while applying check-out event %s",
				event.UserID.Hex(), timebase.DateKey(day), event.ID.Hex())
			return nil, apperr.New(apperr.NoActiveSession, "no open session to check out of")
		}
	default:
		return nil, apperr.New(apperr.BadRequest, "unknown scan type")
	}
	if err != nil {
		return nil, err
	}

	a.recomputeDerived(sheet)
	if err := a.sheets.SetDerived(ctx, sheet.ID, sheet.Sessions, sheet.TotalWorkingMinutes, a.statusFor(sheet, user)); err != nil {
		return nil, err
	}
	sheet.Status = a.statusFor(sheet, user)
	return sheet, nil
}

// recomputeDerived fills the duration of any newly closed session and the
// total. Durations are a pure function of the scan instants, so recomputing
// them on every apply is safe.
func (a *TimesheetAggregator) recomputeDerived(sheet *models.Timesheet) {
	for i := range sheet.Sessions {
		s := &sheet.Sessions[i]
		if s.CheckIn != nil && s.CheckOut != nil {
			s.DurationMinutes = models.SessionDuration(s.CheckIn.Time, s.CheckOut.Time)
		}
	}
	sheet.RecomputeTotals()
}

func (a *TimesheetAggregator) statusFor(sheet *models.Timesheet, user *models.User) string {
	return sheet.ComputeStatus(user.WorkingHours.RequiredMinutes())
}

// MaterializeNonWorkingDay upserts a weekly-off or holiday timesheet for the
// day. Insert-only-if-absent: a day the user already worked keeps its
// sessions and minutes. Safe to re-run.
func (a *TimesheetAggregator) MaterializeNonWorkingDay(ctx context.Context, user *models.User, day time.Time, kind NonWorkingKind) (bool, error) {
	sheet := &models.Timesheet{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Date:           timebase.StartOfCivilDay(day),
	}
	switch kind {
	case KindWeeklyOff:
		sheet.IsWeeklyOff = true
		sheet.Status = models.StatusWeeklyOff
	case KindCustomHoliday:
		sheet.IsCustomHoliday = true
		sheet.Status = models.StatusCustomHoliday
	case KindPublicHoliday:
		sheet.IsPublicHoliday = true
		sheet.Status = models.StatusPublicHoliday
		sheet.TotalWorkingMinutes = a.PublicHolidayCreditMinutes
	default:
		return false, apperr.New(apperr.BadRequest, "unknown non-working day kind")
	}

	return a.sheets.InsertIfAbsent(ctx, sheet)
}

// MaterializeAbsence upserts an absent timesheet for the day, but only when
// the oracle says the day was a working day for this user. Idempotent.
func (a *TimesheetAggregator) MaterializeAbsence(ctx context.Context, user *models.User, day time.Time, oracle WorkingDayOracle) (bool, error) {
	working, err := oracle.IsWorkingDay(day, user)
	if err != nil {
		return false, err
	}
	if !working {
		return false, nil
	}

	sheet := &models.Timesheet{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Date:           timebase.StartOfCivilDay(day),
		Status:         models.StatusAbsent,
	}
	return a.sheets.InsertIfAbsent(ctx, sheet)
}
