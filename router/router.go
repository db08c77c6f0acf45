package router

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"attendtrack-backend/config/middleware"
	"attendtrack-backend/handlers"
	"attendtrack-backend/pkg/holidays"
	"attendtrack-backend/pkg/paseto"
	"attendtrack-backend/repository"
	"attendtrack-backend/scheduler"
	"attendtrack-backend/services"

	_ "attendtrack-backend/docs"
)

// SetupRoutes wires repositories, services and handlers, registers the
// routes, and returns the nightly scheduler for main to start.
func SetupRoutes(app *fiber.App, maker *paseto.Maker, holidayOracle *holidays.Oracle) *scheduler.Scheduler {
	userRepo := repository.NewUserRepository()
	eventRepo := repository.NewAttendanceEventRepository()
	sheetRepo := repository.NewTimesheetRepository()
	qrRepo := repository.NewQRCodeRepository()

	spoofGuard := services.NewSpoofGuard()
	deviceGate := services.NewDeviceTrustGate(userRepo)
	qrLedger := services.NewQRLedger(qrRepo)
	aggregator := services.NewTimesheetAggregator(sheetRepo)
	recorder := services.NewAttendanceRecorder(spoofGuard, deviceGate, qrLedger, aggregator, eventRepo, userRepo)

	authHandler := handlers.NewAuthHandler(userRepo, deviceGate, maker)
	attendanceHandler := handlers.NewAttendanceHandler(recorder, sheetRepo)
	qrHandler := handlers.NewQRHandler(qrLedger)
	reportHandler := handlers.NewReportHandler(sheetRepo)
	deviceHandler := handlers.NewDeviceHandler(deviceGate)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AttendTrack API",
			"status":  "running",
			"docs":    "/docs/index.html",
		})
	})
	app.Get("/docs/*", swagger.HandlerDefault)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)

	auth := middleware.AuthMiddleware(maker)
	admin := middleware.AdminMiddleware()

	authGroup.Post("/register", auth, admin, authHandler.Register)

	attendanceGroup := api.Group("/attendance", auth)
	attendanceGroup.Post("/scan", attendanceHandler.Scan)
	attendanceGroup.Get("/my-timesheets", attendanceHandler.MyTimesheets)
	attendanceGroup.Post("/qr", admin, qrHandler.Issue)

	reportGroup := api.Group("/reports", auth, admin)
	reportGroup.Get("/today", reportHandler.Today)
	reportGroup.Get("/summary", reportHandler.Summary)

	deviceGroup := api.Group("/devices", auth)
	deviceGroup.Post("/change-request", deviceHandler.RequestChange)
	deviceGroup.Put("/:id/change-request", admin, deviceHandler.ResolveChange)

	log.Println("Routes registered")

	return scheduler.New(userRepo, aggregator, holidayOracle)
}
