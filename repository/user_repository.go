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

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindAllActiveWorkers(ctx context.Context) ([]models.User, error)
	BindDevice(ctx context.Context, id primitive.ObjectID, deviceID string) error
	SetDeviceChange(ctx context.Context, id primitive.ObjectID, req *models.DeviceChangeRequest) error
	ClearFirstLogin(ctx context.Context, id primitive.ObjectID) error
}

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository() UserRepository {
	return &userRepository{
		collection: config.GetCollection(config.UserCollection),
	}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Active = true
	user.IsFirstLogin = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

func (r *userRepository) FindAllActiveWorkers(ctx context.Context) ([]models.User, error) {
	filter := bson.M{
		"active": true,
		"role":   models.RoleWorker,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active workers: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode active workers: %w", err)
	}
	if len(users) == 0 {
		return []models.User{}, nil
	}
	return users, nil
}

// BindDevice records the user's one trusted device and clears any pending
// change request.
func (r *userRepository) BindDevice(ctx context.Context, id primitive.ObjectID, deviceID string) error {
	update := bson.M{
		"$set": bson.M{
			"device.device_id":     deviceID,
			"device.is_registered": true,
			"updated_at":           time.Now(),
		},
		"$unset": bson.M{"device_change": ""},
	}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to bind device: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *userRepository) SetDeviceChange(ctx context.Context, id primitive.ObjectID, req *models.DeviceChangeRequest) error {
	update := bson.M{
		"$set": bson.M{
			"device_change": req,
			"updated_at":    time.Now(),
		},
	}
	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to set device change request: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *userRepository) ClearFirstLogin(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"is_first_login": false, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to clear first login flag: %w", err)
	}
	return nil
}
