package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"attendtrack-backend/config"
	"attendtrack-backend/models"
)

type QRCodeRepository interface {
	// Supersede deactivates the active code of the given type for the
	// organization and inserts code as the new active one. The partial
	// unique index on (organization_id, type, active) closes the window in
	// which two codes could both be active; a duplicate-key error here means
	// a concurrent issuance won and the caller should retry.
	Supersede(ctx context.Context, code *models.QRCode) error
	FindByToken(ctx context.Context, token string) (*models.QRCode, error)
	IncrementUsage(ctx context.Context, id primitive.ObjectID) error
}

// ErrIssueConflict is returned when a concurrent issuance claimed the active
// slot between the deactivate and the insert.
var ErrIssueConflict = errors.New("concurrent qr code issuance")

type qrCodeRepository struct {
	collection *mongo.Collection
}

func NewQRCodeRepository() QRCodeRepository {
	return &qrCodeRepository{
		collection: config.GetCollection(config.QRCodeCollection),
	}
}

func (r *qrCodeRepository) Supersede(ctx context.Context, code *models.QRCode) error {
	now := time.Now()

	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"organization_id": code.OrganizationID,
			"type":            code.Type,
			"active":          true,
		},
		bson.M{"$set": bson.M{"active": false, "updated_at": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate previous qr codes: %w", err)
	}

	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	code.Active = true
	code.CreatedAt = now
	code.UpdatedAt = now

	_, err = r.collection.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrIssueConflict
		}
		return fmt.Errorf("failed to insert qr code: %w", err)
	}
	return nil
}

func (r *qrCodeRepository) FindByToken(ctx context.Context, token string) (*models.QRCode, error) {
	var code models.QRCode
	err := r.collection.FindOne(ctx, bson.M{"token": token}).Decode(&code)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find qr code by token: %w", err)
	}
	return &code, nil
}

func (r *qrCodeRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to increment qr code usage: %w", err)
	}
	return nil
}
