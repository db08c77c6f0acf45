package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"attendtrack-backend/models"
	"attendtrack-backend/pkg/apperr"
	"attendtrack-backend/repository"
)

const defaultValidityMinutes = 24 * 60

// tokenPayload is what the scannable token encodes. The expiry inside it is
// a hint for clients; validation deliberately does not enforce it — a code
// stays valid until a newer one supersedes it.
type tokenPayload struct {
	OrganizationID string    `json:"org"`
	Type           string    `json:"type"`
	IssuedAt       time.Time `json:"iat"`
	ExpiresAt      time.Time `json:"exp"`
	Nonce          string    `json:"nonce"`
}

// QRLedger owns the QR lifecycle: one active code per organization per scan
// type, last issued wins.
type QRLedger struct {
	codes repository.QRCodeRepository
}

func NewQRLedger(codes repository.QRCodeRepository) *QRLedger {
	return &QRLedger{codes: codes}
}

// Issue supersedes the org's active code of the given type with a fresh one
// and returns the token rendered as a scannable PNG data URI.
func (l *QRLedger) Issue(ctx context.Context, orgID primitive.ObjectID, codeType string, location models.QRLocation, validityMinutes int) (*models.QRCodeIssueResponse, error) {
	if codeType != models.ScanTypeCheckIn && codeType != models.ScanTypeCheckOut {
		return nil, apperr.New(apperr.BadRequest, "type must be check-in or check-out")
	}
	if validityMinutes <= 0 {
		validityMinutes = defaultValidityMinutes
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(validityMinutes) * time.Minute)
	payload, err := json.Marshal(tokenPayload{
		OrganizationID: orgID.Hex(),
		Type:           codeType,
		IssuedAt:       now,
		ExpiresAt:      expiresAt,
		Nonce:          uuid.New().String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(payload)

	code := &models.QRCode{
		OrganizationID: orgID,
		Type:           codeType,
		Token:          token,
		Location:       location,
	}
	if err := l.codes.Supersede(ctx, code); err != nil {
		if errors.Is(err, repository.ErrIssueConflict) {
			// A concurrent issuance claimed the slot; one retry after its
			// deactivation pass.
			err = l.codes.Supersede(ctx, code)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to issue qr code: %w", err)
		}
	}

	png, err := qrcode.Encode(token, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code image: %w", err)
	}

	return &models.QRCodeIssueResponse{
		Message:       "QR code issued",
		Token:         token,
		QRCodeImage:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ExpiresAtHint: expiresAt,
	}, nil
}

// Validate fails closed: unknown token, inactive code, organization mismatch
// and type mismatch all come back as QRInvalid.
func (l *QRLedger) Validate(ctx context.Context, token string, orgID primitive.ObjectID, expectedType string) (*models.QRCode, error) {
	code, err := l.codes.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if code == nil || !code.Active {
		return nil, apperr.New(apperr.QRInvalid, "QR code not found or no longer active, scan the current code")
	}
	if code.OrganizationID != orgID {
		return nil, apperr.New(apperr.QRInvalid, "QR code does not belong to your organization")
	}
	if code.Type != expectedType {
		return nil, apperr.New(apperr.QRInvalid, fmt.Sprintf("this QR code is for %s, not %s", code.Type, expectedType))
	}
	return code, nil
}

// RecordUsage bumps the code's usage counter after a successful scan.
func (l *QRLedger) RecordUsage(ctx context.Context, id primitive.ObjectID) error {
	return l.codes.IncrementUsage(ctx, id)
}
