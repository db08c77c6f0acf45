package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/paseto"
	util "attendtrack-backend/pkg/utils"
	"attendtrack-backend/repository"
	"attendtrack-backend/services"
)

type AuthHandler struct {
	users   repository.UserRepository
	devices *services.DeviceTrustGate
	maker   *paseto.Maker
}

func NewAuthHandler(users repository.UserRepository, devices *services.DeviceTrustGate, maker *paseto.Maker) *AuthHandler {
	return &AuthHandler{users: users, devices: devices, maker: maker}
}

// Register godoc
// @Summary Register a user (admin only)
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.UserRegisterPayload true "user"
// @Success 201 {object} models.RegisterSuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var payload models.UserRegisterPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body: " + err.Error()})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": errs})
	}

	orgID, err := primitive.ObjectIDFromHex(payload.OrganizationID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid organization_id"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to hash password"})
	}

	// Default schedule: Monday through Friday working.
	schedule := [7]bool{false, true, true, true, true, true, false}
	if payload.WeeklySchedule != nil {
		schedule = *payload.WeeklySchedule
	}

	user := &models.User{
		Name:           payload.Name,
		Email:          payload.Email,
		Password:       string(hashed),
		Role:           payload.Role,
		OrganizationID: orgID,
		WorkingHours:   models.WorkingHours{Start: payload.WorkStart, End: payload.WorkEnd},
		WeeklySchedule: schedule,
	}

	if err := h.users.CreateUser(c.Context(), user); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(models.RegisterSuccessResponse{
		Message: "user registered",
		UserID:  user.ID.Hex(),
	})
}

// Login godoc
// @Summary Log in and receive a token
// @Description On a worker's first login the presented device becomes the trusted device.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.UserLoginPayload true "credentials"
// @Success 200 {object} models.LoginSuccessResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload models.UserLoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body: " + err.Error()})
	}

	if errs := util.ValidateStruct(payload); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "details": errs})
	}

	user, err := h.users.FindUserByEmail(c.Context(), payload.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to look up user"})
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(payload.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}

	deviceID := payload.DeviceID
	if deviceID == "" {
		deviceID = c.Get("X-Device-ID")
	}

	// First-ever login from a worker binds the presented device as the one
	// trusted device.
	if user.Role == models.RoleWorker && !user.Device.IsRegistered && deviceID != "" {
		if err := h.devices.Bind(c.Context(), user.ID, deviceID); err != nil {
			log.Printf("WARN: failed to bind device for user %s: %v", user.ID.Hex(), err)
		}
	}

	token, err := h.maker.GenerateToken(user, deviceID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate token"})
	}

	wasFirstLogin := user.IsFirstLogin
	if wasFirstLogin {
		if err := h.users.ClearFirstLogin(c.Context(), user.ID); err != nil {
			log.Printf("WARN: failed to clear first login flag for user %s: %v", user.ID.Hex(), err)
		}
	}

	return c.Status(fiber.StatusOK).JSON(models.LoginSuccessResponse{
		Message:      "login successful",
		Token:        token,
		UserID:       user.ID.Hex(),
		Role:         user.Role,
		IsFirstLogin: wasFirstLogin,
	})
}
