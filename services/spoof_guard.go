package services

import (
	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/paseto"
)

// DefaultRadiusMeters is the location-match radius when neither the request
// accuracy nor the QR code provides one.
const DefaultRadiusMeters = 100.0

// ScanRequest is the normalized input to the pipeline: the raw payload plus
// the caller identity and the device id header, resolved by the handler.
type ScanRequest struct {
	Claims         *paseto.Claims
	Payload        models.ScanPayload
	HeaderDeviceID string
}

// DeviceID resolves the effective device identifier, preferring the payload
// over the dedicated header.
func (r *ScanRequest) DeviceID() string {
	if r.Payload.DeviceInfo != nil && r.Payload.DeviceInfo.DeviceID != "" {
		return r.Payload.DeviceInfo.DeviceID
	}
	return r.HeaderDeviceID
}

// SpoofGuard pre-validates a scan request before any QR or ledger I/O. It
// has no dependencies and no side effects; a rejection here means nothing
// was touched.
type SpoofGuard struct{}

func NewSpoofGuard() *SpoofGuard {
	return &SpoofGuard{}
}

// Check validates in order, short-circuiting on the first failure. On
// success it returns the location with accuracy defaulted.
func (g *SpoofGuard) Check(req *ScanRequest) (models.GeoPoint, error) {
	if req.Claims == nil || req.Claims.UserID.IsZero() {
		return models.GeoPoint{}, apperr.New(apperr.Unauthenticated, "authentication required")
	}

	if req.Payload.Token == "" || req.Payload.ScanType == "" {
		return models.GeoPoint{}, apperr.New(apperr.BadRequest, "token and scan_type are required")
	}
	if req.Payload.ScanType != models.ScanTypeCheckIn && req.Payload.ScanType != models.ScanTypeCheckOut {
		return models.GeoPoint{}, apperr.New(apperr.BadRequest, "scan_type must be check-in or check-out")
	}

	loc := req.Payload.Location
	if loc == nil || loc.Latitude == nil || loc.Longitude == nil {
		return models.GeoPoint{}, apperr.New(apperr.LocationRequired, "location latitude and longitude are required")
	}
	accuracy := 0.0
	if loc.Accuracy != nil {
		accuracy = *loc.Accuracy
	}

	if req.Payload.DeviceInfo != nil && req.Payload.DeviceInfo.IsMockLocation {
		return models.GeoPoint{}, apperr.New(apperr.MockLocationDetected, "mock location detected, disable mock location and try again")
	}

	// Only workers are device-bound; org admins may scan from anywhere.
	if req.Claims.Role != models.RoleAdmin && req.DeviceID() == "" {
		return models.GeoPoint{}, apperr.New(apperr.DeviceIDRequired, "a device identifier is required for attendance scans")
	}

	return models.GeoPoint{
		Latitude:       *loc.Latitude,
		Longitude:      *loc.Longitude,
		AccuracyMeters: accuracy,
	}, nil
}
