package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/pkg/timebase"
	"attendtrack-backend/repository"
)

// ReportHandler is the read-only projection surface over the timesheet
// ledger for organization admins.
type ReportHandler struct {
	sheets repository.TimesheetRepository
}

func NewReportHandler(sheets repository.TimesheetRepository) *ReportHandler {
	return &ReportHandler{sheets: sheets}
}

// Today godoc
// @Summary Today's attendance for the admin's organization
// @Tags Reports
// @Produce json
// @Success 200 {array} models.TimesheetWithUser
// @Security BearerAuth
// @Router /reports/today [get]
func (h *ReportHandler) Today(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return rejection(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	day := timebase.StartOfCivilDay(time.Now())
	sheets, err := h.sheets.FindByOrgDateWithUsers(c.Context(), claims.OrganizationID, day)
	if err != nil {
		return rejection(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(sheets)
}

// Summary godoc
// @Summary Status summary over a date range for the admin's organization
// @Description Grouped day counts and worked minutes for weekly or monthly reports.
// @Tags Reports
// @Produce json
// @Param start_date query string true "range start (2006-01-02)"
// @Param end_date query string true "range end (2006-01-02)"
// @Success 200 {array} models.TimesheetSummary
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	if claims == nil {
		return rejection(c, apperr.New(apperr.Unauthenticated, "authentication required"))
	}

	start, end, err := parseRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return rejection(c, err)
	}

	summary, err := h.sheets.SummarizeByOrgRange(c.Context(), claims.OrganizationID, start, end)
	if err != nil {
		return rejection(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}
