package seeder

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"attendtrack-backend/models"
	"attendtrack-backend/repository"
)

// SeedUsers creates a demo organization admin and a couple of workers with
// weekday schedules. Existing emails are left alone, so re-running is safe.
func SeedUsers(userRepo repository.UserRepository) {
	log.Println("Seeding users...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	orgID := primitive.NewObjectID()
	weekdays := [7]bool{false, true, true, true, true, true, false}

	seeds := []models.User{
		{
			Name:           "Org Admin",
			Email:          "admin@attendtrack.example",
			Password:       string(hashedPassword),
			Role:           models.RoleAdmin,
			OrganizationID: orgID,
			WeeklySchedule: weekdays,
		},
		{
			Name:           "Asha Verma",
			Email:          "asha@attendtrack.example",
			Password:       string(hashedPassword),
			Role:           models.RoleWorker,
			OrganizationID: orgID,
			WorkingHours:   models.WorkingHours{Start: "09:00", End: "17:00"},
			WeeklySchedule: weekdays,
			CustomHolidays: []models.CustomHoliday{
				{Date: "2025-11-01", Name: "Founders Day", Recurring: true},
			},
		},
		{
			Name:           "Rohan Iyer",
			Email:          "rohan@attendtrack.example",
			Password:       string(hashedPassword),
			Role:           models.RoleWorker,
			OrganizationID: orgID,
			WorkingHours:   models.WorkingHours{Start: "10:00", End: "18:00"},
			WeeklySchedule: weekdays,
		},
	}

	for i := range seeds {
		user := seeds[i]
		existing, err := userRepo.FindUserByEmail(ctx, user.Email)
		if err == nil && existing != nil {
			log.Printf("User %s already exists, skipping", user.Email)
			continue
		}
		if err := userRepo.CreateUser(ctx, &user); err != nil {
			log.Printf("Failed to seed user %s: %v", user.Email, err)
			continue
		}
		log.Printf("Seeded user %s", user.Email)
	}

	log.Println("User seeding done")
}
