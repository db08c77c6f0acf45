package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/timebase"
	util "attendtrack-backend/pkg/utils"
	"attendtrack-backend/repository"
)

// AttendanceRecorder runs the scan pipeline: SpoofGuard, DeviceTrustGate,
// QRLedger, then the per-day check-in/check-out state machine, and finally
// hands the event to the TimesheetAggregator.
//
// The aggregator's guarded timesheet write is the commit point. The event id
// is allocated up front and the immutable event is only appended after that
// write wins, so a rejected scan never leaves a partial mutation behind.
type AttendanceRecorder struct {
	guard      *SpoofGuard
	devices    *DeviceTrustGate
	ledger     *QRLedger
	aggregator *TimesheetAggregator
	events     repository.AttendanceEventRepository
	users      repository.UserRepository

	// now is swappable for tests.
	now func() time.Time
}

func NewAttendanceRecorder(
	guard *SpoofGuard,
	devices *DeviceTrustGate,
	ledger *QRLedger,
	aggregator *TimesheetAggregator,
	events repository.AttendanceEventRepository,
	users repository.UserRepository,
) *AttendanceRecorder {
	return &AttendanceRecorder{
		guard:      guard,
		devices:    devices,
		ledger:     ledger,
		aggregator: aggregator,
		events:     events,
		users:      users,
		now:        time.Now,
	}
}

// Record processes one scan end to end and returns the updated timesheet.
func (r *AttendanceRecorder) Record(ctx context.Context, req *ScanRequest) (*models.Timesheet, error) {
	location, err := r.guard.Check(req)
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindUserByID(ctx, req.Claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.Unauthenticated, "account not found")
	}

	deviceTrusted := true
	if user.Role != models.RoleAdmin {
		if err := r.devices.Check(user, req.DeviceID()); err != nil {
			return nil, err
		}
	}

	code, err := r.ledger.Validate(ctx, req.Payload.Token, req.Claims.OrganizationID, req.Payload.ScanType)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := r.checkTransition(ctx, user, now, req.Payload.ScanType); err != nil {
		return nil, err
	}

	event := &models.AttendanceEvent{
		ID:             primitive.NewObjectID(),
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		QRCodeID:       code.ID,
		Kind:           req.Payload.ScanType,
		Instant:        now,
		Location:       location,
		DeviceID:       req.DeviceID(),
		Verified:       true,
		Verification: models.VerificationDetails{
			LocationMatch: locationMatches(location, code.Location),
			QRValid:       true,
			DeviceTrusted: deviceTrusted,
		},
	}

	sheet, err := r.aggregator.Apply(ctx, event, user)
	if err != nil {
		return nil, err
	}

	if err := r.events.Append(ctx, event); err != nil {
		// The ledger mutation already committed; the missing event is left
		// to the caller's retry at the infrastructure boundary.
		log.Printf("ERROR: failed to append attendance event %s after ledger commit: %v", event.ID.Hex(), err)
		return nil, err
	}

	if err := r.ledger.RecordUsage(ctx, code.ID); err != nil {
		log.Printf("WARN: failed to record qr usage for %s: %v", code.ID.Hex(), err)
	}

	return sheet, nil
}

// checkTransition enforces NoSession -> OpenSession -> ClosedSession (with
// re-opening allowed) by reading the newest same-day event. "Today" is the
// civil-day window, not a raw UTC midnight.
func (r *AttendanceRecorder) checkTransition(ctx context.Context, user *models.User, now time.Time, scanType string) error {
	start, end := timebase.DayWindow(now)
	last, err := r.events.FindLastInWindow(ctx, user.ID, user.OrganizationID, start, end)
	if err != nil {
		return err
	}

	switch scanType {
	case models.ScanTypeCheckIn:
		if last != nil && last.Kind == models.ScanTypeCheckIn {
			return apperr.New(apperr.DuplicateCheckIn, "already checked in at "+timebase.Format(last.Instant).Time)
		}
	case models.ScanTypeCheckOut:
		if last == nil {
			return apperr.New(apperr.CheckOutWithoutCheckIn, "no check-in found today, check in first")
		}
		if last.Kind == models.ScanTypeCheckOut {
			return apperr.New(apperr.DuplicateCheckOut, "already checked out at "+timebase.Format(last.Instant).Time)
		}
	}
	return nil
}

// locationMatches is a diagnostic, not a gate: within the code's radius,
// falling back to the scan accuracy, then a fixed default.
func locationMatches(scan models.GeoPoint, anchor models.QRLocation) bool {
	radius := anchor.RadiusMeters
	if radius <= 0 {
		radius = scan.AccuracyMeters
	}
	if radius <= 0 {
		radius = DefaultRadiusMeters
	}
	distance := util.DistanceMeters(scan.Latitude, scan.Longitude, anchor.Latitude, anchor.Longitude)
	return distance <= radius
}
