package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// Device change request statuses.
const (
	DeviceChangePending  = "pending"
	DeviceChangeApproved = "approved"
	DeviceChangeRejected = "rejected"
)

type WorkingHours struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

// RequiredMinutes derives the expected daily minutes from the configured
// working hours, falling back to the default when unset or malformed.
func (w WorkingHours) RequiredMinutes() int {
	start, err1 := time.Parse("15:04", w.Start)
	end, err2 := time.Parse("15:04", w.End)
	if err1 != nil || err2 != nil {
		return DefaultRequiredMinutes
	}
	mins := int(end.Sub(start) / time.Minute)
	if mins <= 0 {
		return DefaultRequiredMinutes
	}
	return mins
}

type CustomHoliday struct {
	Date      string `json:"date" bson:"date"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Recurring bool   `json:"recurring" bson:"recurring"`
}

type DeviceInfo struct {
	DeviceID     string `json:"device_id,omitempty" bson:"device_id,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty" bson:"fingerprint,omitempty"`
	IsRegistered bool   `json:"is_registered" bson:"is_registered"`
}

type DeviceChangeRequest struct {
	NewDeviceID string    `json:"new_device_id" bson:"new_device_id"`
	Status      string    `json:"status" bson:"status"`
	RequestedAt time.Time `json:"requested_at" bson:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

type User struct {
	ID             primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name,omitempty"`
	Email          string               `json:"email" bson:"email,omitempty"`
	Password       string               `json:"-" bson:"password,omitempty"`
	Role           string               `json:"role" bson:"role,omitempty"`
	OrganizationID primitive.ObjectID   `json:"organization_id" bson:"organization_id,omitempty"`
	WorkingHours   WorkingHours         `json:"working_hours" bson:"working_hours,omitempty"`
	WeeklySchedule [7]bool              `json:"weekly_schedule" bson:"weekly_schedule,omitempty"`
	CustomHolidays []CustomHoliday      `json:"custom_holidays,omitempty" bson:"custom_holidays,omitempty"`
	Device         DeviceInfo           `json:"device" bson:"device,omitempty"`
	DeviceChange   *DeviceChangeRequest `json:"device_change,omitempty" bson:"device_change,omitempty"`
	Active         bool                 `json:"active" bson:"active"`
	IsFirstLogin   bool                 `json:"is_first_login" bson:"is_first_login,omitempty"`
	CreatedAt      time.Time            `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt      time.Time            `json:"updated_at" bson:"updated_at,omitempty"`
}

type UserRegisterPayload struct {
	Name           string   `json:"name" validate:"required,min=3,max=100"`
	Email          string   `json:"email" validate:"required,email"`
	Password       string   `json:"password" validate:"required,min=8,max=50,hasuppercase"`
	Role           string   `json:"role" validate:"required,oneof=admin worker"`
	OrganizationID string   `json:"organization_id" validate:"required"`
	WorkStart      string   `json:"work_start" validate:"omitempty,datetime=15:04"`
	WorkEnd        string   `json:"work_end" validate:"omitempty,datetime=15:04"`
	WeeklySchedule *[7]bool `json:"weekly_schedule,omitempty"`
}

type UserLoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	DeviceID string `json:"device_id,omitempty"`
}

type DeviceChangePayload struct {
	NewDeviceID string `json:"new_device_id" validate:"required"`
}

type DeviceChangeDecisionPayload struct {
	Approve bool `json:"approve"`
}
