package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/paseto"
	"attendtrack-backend/pkg/timebase"
	"attendtrack-backend/repository"
	"attendtrack-backend/services"
)

type AttendanceHandler struct {
	recorder *services.AttendanceRecorder
	sheets   repository.TimesheetRepository
}

func NewAttendanceHandler(recorder *services.AttendanceRecorder, sheets repository.TimesheetRepository) *AttendanceHandler {
	return &AttendanceHandler{recorder: recorder, sheets: sheets}
}

func claimsFrom(c *fiber.Ctx) *paseto.Claims {
	claims, _ := c.Locals("user").(*paseto.Claims)
	return claims
}

// rejection renders a pipeline error with its machine-readable kind.
func rejection(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Status: "error", Kind: string(apperr.Internal), Message: "internal server error",
		})
	}
	return c.Status(apperr.HTTPStatus(kind)).JSON(models.ErrorResponse{
		Status: "error", Kind: string(kind), Message: apperr.MessageOf(err),
	})
}

// Scan godoc
// @Summary Scan a QR code to check in or out
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body models.ScanPayload true "scan request"
// @Success 200 {object} models.ScanSuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *fiber.Ctx) error {
	var payload models.ScanPayload
	if err := c.BodyParser(&payload); err != nil {
		return rejection(c, apperr.New(apperr.BadRequest, "invalid request body: "+err.Error()))
	}

	req := &services.ScanRequest{
		Claims:         claimsFrom(c),
		Payload:        payload,
		HeaderDeviceID: c.Get("X-Device-ID"),
	}

	sheet, err := h.recorder.Record(c.Context(), req)
	if err != nil {
		return rejection(c, err)
	}

	state := models.SessionStateClosed
	verb := "checked out"
	if sheet.HasOpenSession {
		state = models.SessionStateOpen
		verb = "checked in"
	}

	return c.Status(fiber.StatusOK).JSON(models.ScanSuccessResponse{
		Status:              "ok",
		Message:             fmt.Sprintf("Successfully %s at %s", verb, timebase.Format(time.Now()).Time),
		SessionState:        state,
		TotalWorkingMinutes: sheet.TotalWorkingMinutes,
		TimesheetStatus:     sheet.Status,
	})
}

// MyTimesheets godoc
// @Summary Get the caller's timesheets for a date range
// @Tags Attendance
// @Produce json
// @Param start_date query string true "range start (2006-01-02)"
// @Param end_date query string true "range end (2006-01-02)"
// @Success 200 {array} models.Timesheet
// @Security BearerAuth
// @Router /attendance/my-timesheets [get]
func (h *AttendanceHandler) MyTimesheets(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return rejection(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	start, end, err := parseRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return rejection(c, err)
	}

	sheets, err := h.sheets.FindByUserInRange(c.Context(), claims.UserID, claims.OrganizationID, start, end)
	if err != nil {
		return rejection(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(sheets)
}

// parseRange turns date query params into a civil-day window spanning both
// endpoints inclusive.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	layout := "2006-01-02"
	start, err := time.ParseInLocation(layout, startStr, timebase.Location())
	if err != nil {
		return time.Time{}, time.Time{}, apperr.New(apperr.BadRequest, "invalid start_date format, expected 2006-01-02")
	}
	end, err := time.ParseInLocation(layout, endStr, timebase.Location())
	if err != nil {
		return time.Time{}, time.Time{}, apperr.New(apperr.BadRequest, "invalid end_date format, expected 2006-01-02")
	}
	return timebase.StartOfCivilDay(start), timebase.EndOfCivilDay(end), nil
}
