package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/repository"
)

// DeviceTrustGate binds each worker to a single trusted device and checks
// scans against it. Rebinding requires the admin-approved change flow.
type DeviceTrustGate struct {
	users repository.UserRepository
}

func NewDeviceTrustGate(users repository.UserRepository) *DeviceTrustGate {
	return &DeviceTrustGate{users: users}
}

// Bind records the device as the user's one trusted device. Called on first
// login and on admin approval of a change request.
func (g *DeviceTrustGate) Bind(ctx context.Context, userID primitive.ObjectID, deviceID string) error {
	return g.users.BindDevice(ctx, userID, deviceID)
}

// Check requires an exact match against the registered device. An
// unregistered user passes (binding happens at login); a mismatch is
// DeviceNotAuthorized and needs the change workflow.
func (g *DeviceTrustGate) Check(user *models.User, deviceID string) error {
	if !user.Device.IsRegistered {
		return nil
	}
	if user.Device.DeviceID != deviceID {
		return apperr.New(apperr.DeviceNotAuthorized, "this device is not authorized for attendance, request a device change from your admin")
	}
	return nil
}

// RequestChange files a pending device-change request for the user.
func (g *DeviceTrustGate) RequestChange(ctx context.Context, userID primitive.ObjectID, newDeviceID string) error {
	if newDeviceID == "" {
		return apperr.New(apperr.BadRequest, "new_device_id is required")
	}
	return g.users.SetDeviceChange(ctx, userID, &models.DeviceChangeRequest{
		NewDeviceID: newDeviceID,
		Status:      models.DeviceChangePending,
		RequestedAt: time.Now(),
	})
}

// ResolveChange approves or rejects the user's pending request. Approval
// rebinds the trusted device to the requested one.
func (g *DeviceTrustGate) ResolveChange(ctx context.Context, userID primitive.ObjectID, approve bool) error {
	user, err := g.users.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperr.New(apperr.NotFound, "user not found")
	}
	if user.DeviceChange == nil || user.DeviceChange.Status != models.DeviceChangePending {
		return apperr.New(apperr.BadRequest, "user has no pending device change request")
	}

	if approve {
		return g.users.BindDevice(ctx, userID, user.DeviceChange.NewDeviceID)
	}

	resolved := *user.DeviceChange
	resolved.Status = models.DeviceChangeRejected
	resolved.ResolvedAt = time.Now()
	return g.users.SetDeviceChange(ctx, userID, &resolved)
}
