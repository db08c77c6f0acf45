package handlers

import (
	"github.com/gofiber/fiber/v2"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	util "attendtrack-backend/pkg/utils"
	"attendtrack-backend/services"
)

type QRHandler struct {
	ledger *services.QRLedger
}

func NewQRHandler(ledger *services.QRLedger) *QRHandler {
	return &QRHandler{ledger: ledger}
}

// Issue godoc
// @Summary Issue a new QR code for the admin's organization
// @Description Deactivates the previous active code of the same type.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.QRCodeIssuePayload true "issue request"
// @Success 200 {object} models.QRCodeIssueResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /attendance/qr [post]
func (h *QRHandler) Issue(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return rejection(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	var payload models.QRCodeIssuePayload
	if err := c.BodyParser(&payload); err != nil {
		return rejection(c, apperr.New(apperr.BadRequest, "invalid request body: "+err.Error()))
	}
	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": errs})
	}

	resp, err := h.ledger.Issue(c.Context(), claims.OrganizationID, payload.Type, models.QRLocation{
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
		RadiusMeters: payload.RadiusMeters,
	}, payload.ValidityMinutes)
	if err != nil {
		return rejection(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
