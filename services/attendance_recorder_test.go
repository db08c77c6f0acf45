package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/paseto"
	"attendtrack-backend/pkg/timebase"
)

type pipeline struct {
	recorder *AttendanceRecorder
	sheets   *fakeTimesheetRepo
	events   *fakeEventRepo
	qrs      *fakeQRRepo
	user     *models.User
	checkIn  *models.QRCode
	checkOut *models.QRCode
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	user := &models.User{
		ID:             primitive.NewObjectID(),
		Name:           "Asha Verma",
		Email:          "asha@example.com",
		Role:           models.RoleWorker,
		OrganizationID: primitive.NewObjectID(),
		WorkingHours:   models.WorkingHours{Start: "09:00", End: "17:00"},
		Device:         models.DeviceInfo{DeviceID: "device-1", IsRegistered: true},
		Active:         true,
	}

	qrs := &fakeQRRepo{}
	anchor := models.QRLocation{Latitude: 12.9716, Longitude: 77.5946, RadiusMeters: 100}
	checkIn := &models.QRCode{OrganizationID: user.OrganizationID, Type: models.ScanTypeCheckIn, Token: "token-in", Location: anchor}
	checkOut := &models.QRCode{OrganizationID: user.OrganizationID, Type: models.ScanTypeCheckOut, Token: "token-out", Location: anchor}
	if err := qrs.Supersede(context.Background(), checkIn); err != nil {
		t.Fatal(err)
	}
	if err := qrs.Supersede(context.Background(), checkOut); err != nil {
		t.Fatal(err)
	}

	sheets := newFakeTimesheetRepo()
	events := &fakeEventRepo{}
	users := newFakeUserRepo(user)

	recorder := NewAttendanceRecorder(
		NewSpoofGuard(),
		NewDeviceTrustGate(users),
		NewQRLedger(qrs),
		NewTimesheetAggregator(sheets),
		events,
		users,
	)

	return &pipeline{
		recorder: recorder,
		sheets:   sheets,
		events:   events,
		qrs:      qrs,
		user:     user,
		checkIn:  checkIn,
		checkOut: checkOut,
	}
}

func (p *pipeline) scan(token, scanType string, at time.Time) (*models.Timesheet, error) {
	p.recorder.now = func() time.Time { return at }
	lat, lng := 12.9716, 77.5946
	req := &ScanRequest{
		Claims: &paseto.Claims{
			UserID:         p.user.ID,
			OrganizationID: p.user.OrganizationID,
			Role:           p.user.Role,
		},
		Payload: models.ScanPayload{
			Token:      token,
			ScanType:   scanType,
			Location:   &models.ScanLocationPayload{Latitude: &lat, Longitude: &lng},
			DeviceInfo: &models.DeviceInfoPayload{DeviceID: "device-1"},
		},
	}
	return p.recorder.Record(context.Background(), req)
}

func ist(hour, min int) time.Time {
	return time.Date(2025, 3, 10, hour, min, 0, 0, timebase.Location())
}

func TestFullDayCheckInCheckOut(t *testing.T) {
	p := newPipeline(t)

	sheet, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 5))
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if !sheet.HasOpenSession {
		t.Error("expected an open session after check-in")
	}

	sheet, err = p.scan("token-out", models.ScanTypeCheckOut, ist(17, 10))
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}
	if sheet.HasOpenSession {
		t.Error("session should be closed after check-out")
	}
	if sheet.TotalWorkingMinutes != 485 {
		t.Errorf("TotalWorkingMinutes = %d, want 485", sheet.TotalWorkingMinutes)
	}
	if sheet.Status != models.StatusFullDay {
		t.Errorf("Status = %q, want %q", sheet.Status, models.StatusFullDay)
	}
	if len(sheet.Sessions) != 1 || sheet.Sessions[0].DurationMinutes != 485 {
		t.Errorf("unexpected sessions: %+v", sheet.Sessions)
	}
}

func TestShortDayIsHalfDay(t *testing.T) {
	p := newPipeline(t)

	if _, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 0)); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	sheet, err := p.scan("token-out", models.ScanTypeCheckOut, ist(11, 0))
	if err != nil {
		t.Fatalf("check-out failed: %v", err)
	}

	if sheet.TotalWorkingMinutes != 120 {
		t.Errorf("TotalWorkingMinutes = %d, want 120", sheet.TotalWorkingMinutes)
	}
	if sheet.Status != models.StatusHalfDay {
		t.Errorf("Status = %q, want %q", sheet.Status, models.StatusHalfDay)
	}
}

func TestMultipleSessionsAccumulate(t *testing.T) {
	p := newPipeline(t)

	steps := []struct {
		token, kind string
		at          time.Time
	}{
		{"token-in", models.ScanTypeCheckIn, ist(9, 0)},
		{"token-out", models.ScanTypeCheckOut, ist(12, 0)},
		{"token-in", models.ScanTypeCheckIn, ist(13, 0)},
		{"token-out", models.ScanTypeCheckOut, ist(17, 0)},
	}

	var sheet *models.Timesheet
	var err error
	for _, s := range steps {
		sheet, err = p.scan(s.token, s.kind, s.at)
		if err != nil {
			t.Fatalf("scan %s at %v failed: %v", s.kind, s.at, err)
		}
	}

	if len(sheet.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sheet.Sessions))
	}
	if sheet.TotalWorkingMinutes != 180+240 {
		t.Errorf("TotalWorkingMinutes = %d, want 420", sheet.TotalWorkingMinutes)
	}
}

func TestDuplicateCheckInRejected(t *testing.T) {
	p := newPipeline(t)

	if _, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 0)); err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}

	_, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 30))
	if apperr.KindOf(err) != apperr.DuplicateCheckIn {
		t.Fatalf("expected DuplicateCheckIn, got %v", err)
	}

	// Ledger unchanged: still exactly one session, still open.
	sheet, _ := p.sheets.FindByKey(context.Background(), p.user.ID, p.user.OrganizationID, timebase.StartOfCivilDay(ist(9, 0)))
	if len(sheet.Sessions) != 1 || !sheet.HasOpenSession {
		t.Errorf("ledger mutated by rejected scan: %+v", sheet)
	}
}

func TestCheckOutWithoutCheckInRejected(t *testing.T) {
	p := newPipeline(t)

	_, err := p.scan("token-out", models.ScanTypeCheckOut, ist(17, 0))
	if apperr.KindOf(err) != apperr.CheckOutWithoutCheckIn {
		t.Fatalf("expected CheckOutWithoutCheckIn, got %v", err)
	}

	// No timesheet must have been created.
	sheet, _ := p.sheets.FindByKey(context.Background(), p.user.ID, p.user.OrganizationID, timebase.StartOfCivilDay(ist(17, 0)))
	if sheet != nil {
		t.Errorf("rejected scan created a timesheet: %+v", sheet)
	}
	if len(p.events.events) != 0 {
		t.Errorf("rejected scan appended %d events", len(p.events.events))
	}
}

func TestDuplicateCheckOutRejected(t *testing.T) {
	p := newPipeline(t)

	if _, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := p.scan("token-out", models.ScanTypeCheckOut, ist(12, 0)); err != nil {
		t.Fatal(err)
	}

	_, err := p.scan("token-out", models.ScanTypeCheckOut, ist(12, 5))
	if apperr.KindOf(err) != apperr.DuplicateCheckOut {
		t.Fatalf("expected DuplicateCheckOut, got %v", err)
	}
}

func TestMockLocationRejectedBeforeQRLookup(t *testing.T) {
	p := newPipeline(t)
	p.recorder.now = func() time.Time { return ist(9, 0) }

	lat, lng := 12.9716, 77.5946
	req := &ScanRequest{
		Claims: &paseto.Claims{UserID: p.user.ID, OrganizationID: p.user.OrganizationID, Role: models.RoleWorker},
		Payload: models.ScanPayload{
			Token:      "token-in",
			ScanType:   models.ScanTypeCheckIn,
			Location:   &models.ScanLocationPayload{Latitude: &lat, Longitude: &lng},
			DeviceInfo: &models.DeviceInfoPayload{DeviceID: "device-1", IsMockLocation: true},
		},
	}

	_, err := p.recorder.Record(context.Background(), req)
	if apperr.KindOf(err) != apperr.MockLocationDetected {
		t.Fatalf("expected MockLocationDetected, got %v", err)
	}
	if p.qrs.findCalls != 0 {
		t.Errorf("QR ledger was consulted %d times before the spoof rejection", p.qrs.findCalls)
	}
}

func TestUnregisteredDeviceRejected(t *testing.T) {
	p := newPipeline(t)

	p.recorder.now = func() time.Time { return ist(9, 0) }
	lat, lng := 12.9716, 77.5946
	req := &ScanRequest{
		Claims: &paseto.Claims{UserID: p.user.ID, OrganizationID: p.user.OrganizationID, Role: models.RoleWorker},
		Payload: models.ScanPayload{
			Token:      "token-in",
			ScanType:   models.ScanTypeCheckIn,
			Location:   &models.ScanLocationPayload{Latitude: &lat, Longitude: &lng},
			DeviceInfo: &models.DeviceInfoPayload{DeviceID: "someone-elses-phone"},
		},
	}

	_, err := p.recorder.Record(context.Background(), req)
	if apperr.KindOf(err) != apperr.DeviceNotAuthorized {
		t.Fatalf("expected DeviceNotAuthorized, got %v", err)
	}
}

func TestStaleQRTokenRejected(t *testing.T) {
	p := newPipeline(t)

	// Issue a replacement; the old token goes inactive.
	replacement := &models.QRCode{
		OrganizationID: p.user.OrganizationID,
		Type:           models.ScanTypeCheckIn,
		Token:          "token-in-v2",
		Location:       p.checkIn.Location,
	}
	if err := p.qrs.Supersede(context.Background(), replacement); err != nil {
		t.Fatal(err)
	}

	_, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 0))
	if apperr.KindOf(err) != apperr.QRInvalid {
		t.Fatalf("expected QRInvalid for superseded token, got %v", err)
	}

	if _, err := p.scan("token-in-v2", models.ScanTypeCheckIn, ist(9, 1)); err != nil {
		t.Fatalf("fresh token should scan, got %v", err)
	}
}

func TestWrongTypeTokenRejected(t *testing.T) {
	p := newPipeline(t)

	if _, err := p.scan("token-in", models.ScanTypeCheckIn, ist(9, 0)); err != nil {
		t.Fatal(err)
	}
	// Checking out with the check-in code must fail closed.
	_, err := p.scan("token-in", models.ScanTypeCheckOut, ist(17, 0))
	if apperr.KindOf(err) != apperr.QRInvalid {
		t.Fatalf("expected QRInvalid for type mismatch, got %v", err)
	}
}

func TestConcurrentCheckInsExactlyOneWins(t *testing.T) {
	p := newPipeline(t)
	at := ist(9, 0)

	var wg sync.WaitGroup
	results := make([]error, 2)
	start := make(chan struct{})

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start

			recorder := NewAttendanceRecorder(
				NewSpoofGuard(),
				NewDeviceTrustGate(newFakeUserRepo(p.user)),
				NewQRLedger(p.qrs),
				NewTimesheetAggregator(p.sheets),
				p.events,
				newFakeUserRepo(p.user),
			)
			recorder.now = func() time.Time { return at }

			lat, lng := 12.9716, 77.5946
			req := &ScanRequest{
				Claims: &paseto.Claims{UserID: p.user.ID, OrganizationID: p.user.OrganizationID, Role: models.RoleWorker},
				Payload: models.ScanPayload{
					Token:      "token-in",
					ScanType:   models.ScanTypeCheckIn,
					Location:   &models.ScanLocationPayload{Latitude: &lat, Longitude: &lng},
					DeviceInfo: &models.DeviceInfoPayload{DeviceID: "device-1"},
				},
			}
			_, results[i] = recorder.Record(context.Background(), req)
		}(i)
	}

	close(start)
	wg.Wait()

	succeeded, duplicates := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperr.KindOf(err) == apperr.DuplicateCheckIn:
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || duplicates != 1 {
		t.Fatalf("succeeded=%d duplicates=%d, want exactly one of each", succeeded, duplicates)
	}

	sheet, _ := p.sheets.FindByKey(context.Background(), p.user.ID, p.user.OrganizationID, timebase.StartOfCivilDay(at))
	if sheet == nil || len(sheet.Sessions) != 1 || !sheet.HasOpenSession {
		t.Fatalf("ledger corrupted by race: %+v", sheet)
	}
}
