package paseto

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
)

// Claims is what the auth middleware exposes to handlers. OrganizationID is
// normalized to its canonical id type here, once, so business logic never
// sees anything else.
type Claims struct {
	UserID         primitive.ObjectID `json:"user_id"`
	OrganizationID primitive.ObjectID `json:"organization_id"`
	Email          string             `json:"email"`
	Role           string             `json:"role"`
	DeviceID       string             `json:"device_id,omitempty"`
}

func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Maker issues and verifies v2 local tokens. Construct one in the
// composition root; there is no package-level key.
type Maker struct {
	v2  *paseto.V2
	key []byte
}

func NewMaker(secretBase64 string) (*Maker, error) {
	key, err := base64.URLEncoding.DecodeString(secretBase64)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(secretBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode PASETO secret: %w", err)
		}
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PASETO secret must be exactly 32 bytes after decoding, got %d", len(key))
	}
	return &Maker{v2: paseto.NewV2(), key: key}, nil
}

func (m *Maker) GenerateToken(user *models.User, deviceID string) (string, error) {
	now := time.Now()

	token := paseto.JSONToken{
		IssuedAt:   now,
		Expiration: now.Add(24 * time.Hour),
		NotBefore:  now,
	}

	token.Set("user_id", user.ID.Hex())
	token.Set("organization_id", user.OrganizationID.Hex())
	token.Set("email", user.Email)
	token.Set("role", user.Role)
	token.Set("device_id", deviceID)

	return m.v2.Encrypt(m.key, token, "")
}

func (m *Maker) ValidateToken(tokenString string) (*Claims, error) {
	var token paseto.JSONToken
	var footer string

	if err := m.v2.Decrypt(tokenString, m.key, &token, &footer); err != nil {
		return nil, fmt.Errorf("failed to decrypt paseto token: %w", err)
	}

	if err := token.Validate(); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	userID, err := primitive.ObjectIDFromHex(token.Get("user_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	orgID, err := primitive.ObjectIDFromHex(token.Get("organization_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid organization_id claim: %w", err)
	}

	return &Claims{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          token.Get("email"),
		Role:           token.Get("role"),
		DeviceID:       token.Get("device_id"),
	}, nil
}
