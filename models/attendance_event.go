package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ScanTypeCheckIn  = "check-in"
	ScanTypeCheckOut = "check-out"
)

type GeoPoint struct {
	Latitude       float64 `json:"latitude" bson:"latitude"`
	Longitude      float64 `json:"longitude" bson:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty" bson:"accuracy_meters,omitempty"`
}

type VerificationDetails struct {
	LocationMatch    bool `json:"location_match" bson:"location_match"`
	QRValid          bool `json:"qr_valid" bson:"qr_valid"`
	DeviceTrusted    bool `json:"device_trusted" bson:"device_trusted"`
	SpoofingDetected bool `json:"spoofing_detected" bson:"spoofing_detected"`
}

// AttendanceEvent is append-only: once written it is never mutated, and the
// day's session state is derivable by replaying events in creation order.
type AttendanceEvent struct {
	ID             primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         primitive.ObjectID  `json:"user_id" bson:"user_id"`
	OrganizationID primitive.ObjectID  `json:"organization_id" bson:"organization_id"`
	QRCodeID       primitive.ObjectID  `json:"qr_code_id" bson:"qr_code_id"`
	Kind           string              `json:"kind" bson:"kind"`
	Instant        time.Time           `json:"instant" bson:"instant"`
	Location       GeoPoint            `json:"location" bson:"location"`
	DeviceID       string              `json:"device_id,omitempty" bson:"device_id,omitempty"`
	Verified       bool                `json:"verified" bson:"verified"`
	Verification   VerificationDetails `json:"verification" bson:"verification"`
	CreatedAt      time.Time           `json:"created_at" bson:"created_at"`
}

type DeviceInfoPayload struct {
	DeviceID       string `json:"device_id,omitempty"`
	IsMockLocation bool   `json:"is_mock_location,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

type ScanLocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type ScanPayload struct {
	Token      string               `json:"token" validate:"required"`
	ScanType   string               `json:"scan_type" validate:"required,oneof=check-in check-out"`
	Location   *ScanLocationPayload `json:"location"`
	DeviceInfo *DeviceInfoPayload   `json:"device_info,omitempty"`
}

type ScanSuccessResponse struct {
	Status              string `json:"status" example:"ok"`
	Message             string `json:"message" example:"Checked in at 09:05"`
	SessionState        string `json:"session_state" example:"open"`
	TotalWorkingMinutes int    `json:"total_working_minutes" example:"485"`
	TimesheetStatus     string `json:"timesheet_status" example:"full_day"`
}
