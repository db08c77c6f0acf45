package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"attendtrack-backend/config"
	"attendtrack-backend/models"
)

// AttendanceEventRepository is the append-only scan log. Events are never
// updated or deleted.
type AttendanceEventRepository interface {
	Append(ctx context.Context, event *models.AttendanceEvent) error
	FindLastInWindow(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) (*models.AttendanceEvent, error)
	FindByUserInRange(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]models.AttendanceEvent, error)
}

type attendanceEventRepository struct {
	collection *mongo.Collection
}

func NewAttendanceEventRepository() AttendanceEventRepository {
	return &attendanceEventRepository{
		collection: config.GetCollection(config.AttendanceEventCollection),
	}
}

func (r *attendanceEventRepository) Append(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	event.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to append attendance event: %w", err)
	}
	return nil
}

// FindLastInWindow returns the newest event for the user within the civil-day
// window, or nil when the day has no events yet.
func (r *attendanceEventRepository) FindLastInWindow(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) (*models.AttendanceEvent, error) {
	filter := bson.M{
		"user_id":         userID,
		"organization_id": orgID,
		"instant":         bson.M{"$gte": start, "$lte": end},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "instant", Value: -1}})

	var event models.AttendanceEvent
	err := r.collection.FindOne(ctx, filter, opts).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find last attendance event: %w", err)
	}
	return &event, nil
}

func (r *attendanceEventRepository) FindByUserInRange(ctx context.Context, userID primitive.ObjectID, start, end time.Time) ([]models.AttendanceEvent, error) {
	filter := bson.M{
		"user_id": userID,
		"instant": bson.M{"$gte": start, "$lte": end},
	}
	opts := options.Find().SetSort(bson.D{{Key: "instant", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance events: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.AttendanceEvent
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode attendance events: %w", err)
	}
	if len(results) == 0 {
		return []models.AttendanceEvent{}, nil
	}
	return results, nil
}
