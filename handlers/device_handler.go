package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	util "attendtrack-backend/pkg/utils"
	"attendtrack-backend/services"
)

// DeviceHandler exposes the admin-mediated device-change workflow.
type DeviceHandler struct {
	devices *services.DeviceTrustGate
}

func NewDeviceHandler(devices *services.DeviceTrustGate) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// RequestChange godoc
// @Summary Request a trusted-device change
// @Tags Devices
// @Accept json
// @Produce json
// @Param payload body models.DeviceChangePayload true "new device"
// @Success 200 {object} models.MessageResponse
// @Security BearerAuth
// @Router /devices/change-request [post]
func (h *DeviceHandler) RequestChange(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return rejection(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	var payload models.DeviceChangePayload
	if err := c.BodyParser(&payload); err != nil {
		return rejection(c, apperr.New(apperr.BadRequest, "invalid request body: "+err.Error()))
	}
	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": errs})
	}

	if err := h.devices.RequestChange(c.Context(), claims.UserID, payload.NewDeviceID); err != nil {
		return rejection(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.MessageResponse{Message: "device change requested, waiting for admin approval"})
}

// ResolveChange godoc
// @Summary Approve or reject a user's device change (admin only)
// @Tags Devices
// @Accept json
// @Produce json
// @Param id path string true "user id"
// @Param payload body models.DeviceChangeDecisionPayload true "decision"
// @Success 200 {object} models.MessageResponse
// @Security BearerAuth
// @Router /devices/{id}/change-request [put]
func (h *DeviceHandler) ResolveChange(c *fiber.Ctx) error {
	userID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return rejection(c, apperr.New(apperr.BadRequest, "invalid user id"))
	}

	var payload models.DeviceChangeDecisionPayload
	if err := c.BodyParser(&payload); err != nil {
		return rejection(c, apperr.New(apperr.BadRequest, "invalid request body: "+err.Error()))
	}

	if err := h.devices.ResolveChange(c.Context(), userID, payload.Approve); err != nil {
		return rejection(c, err)
	}

	msg := "device change rejected"
	if payload.Approve {
		msg = "device change approved and device rebound"
	}
	return c.Status(fiber.StatusOK).JSON(models.MessageResponse{Message: msg})
}
