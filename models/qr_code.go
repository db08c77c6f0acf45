package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QRLocation anchors a code to a physical spot. RadiusMeters bounds the
// location-match diagnostic on scans.
type QRLocation struct {
	Latitude     float64 `json:"latitude" bson:"latitude"`
	Longitude    float64 `json:"longitude" bson:"longitude"`
	RadiusMeters float64 `json:"radius_meters" bson:"radius_meters"`
}

// QRCode is the scannable code for one organization and scan type. At most
// one code per (organization, type) is active; issuing a new one supersedes
// the previous. Codes stay valid until superseded — the expires_at embedded
// in the token is a client hint and is not enforced on validation.
type QRCode struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OrganizationID primitive.ObjectID `json:"organization_id" bson:"organization_id"`
	Type           string             `json:"type" bson:"type"`
	Token          string             `json:"token" bson:"token"`
	Location       QRLocation         `json:"location" bson:"location"`
	Active         bool               `json:"active" bson:"active"`
	UsageCount     int64              `json:"usage_count" bson:"usage_count"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at,omitempty"`
}

type QRCodeIssuePayload struct {
	Type            string  `json:"type" validate:"required,oneof=check-in check-out"`
	Latitude        float64 `json:"latitude" validate:"required"`
	Longitude       float64 `json:"longitude" validate:"required"`
	RadiusMeters    float64 `json:"radius_meters" validate:"omitempty,min=0"`
	ValidityMinutes int     `json:"validity_minutes" validate:"omitempty,min=1"`
}

type QRCodeIssueResponse struct {
	Message       string    `json:"message" example:"QR code issued"`
	Token         string    `json:"token"`
	QRCodeImage   string    `json:"qr_code_image"`
	ExpiresAtHint time.Time `json:"expires_at_hint"`
}
