package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"attendtrack-backend/config"
	"attendtrack-backend/pkg/holidays"
	"attendtrack-backend/pkg/paseto"
	"attendtrack-backend/repository"
	"attendtrack-backend/router"
	"attendtrack-backend/seeder"

	_ "attendtrack-backend/docs"
)

// @title AttendTrack API
// @version 1.0
// @description Multi-tenant QR attendance tracking with anti-spoofing checks and daily timesheet derivation
//
// @host localhost:3000
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
//
// @tag.name Auth
// @tag.description Authentication endpoints
//
// @tag.name Attendance
// @tag.description QR scanning and timesheets
//
// @tag.name Reports
// @tag.description Admin projections over the timesheet ledger
//
// @tag.name Devices
// @tag.description Trusted-device change workflow
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.LoadConfig()

	config.MongoConnect()
	config.InitDatabase()
	defer config.DisconnectDB()

	if os.Getenv("SEED") == "true" {
		seeder.SeedUsers(repository.NewUserRepository())
	}

	maker, err := paseto.NewMaker(cfg.PASETO_SECRET)
	if err != nil {
		log.Fatalf("Failed to initialize token maker: %v", err)
	}

	holidayOracle := holidays.NewOracle(holidays.NewAPISource(cfg.HolidayAPIURL))

	app := fiber.New()

	config.SetupCORS(app)
	app.Use(logger.New())

	nightly := router.SetupRoutes(app, maker, holidayOracle)
	if err := nightly.Start(); err != nil {
		log.Fatalf("Failed to start nightly jobs: %v", err)
	}
	defer nightly.Stop()

	log.Printf("Server running on port %s", cfg.Port)
	log.Printf("API Documentation: http://localhost:%s/docs/index.html", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
