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

// ErrSessionConflict is returned when a guarded session write loses: opening
// while a session is already open, or closing while none is.
var ErrSessionConflict = errors.New("session state conflict")

// TimesheetRepository owns the per-(user, organization, civil day) ledger.
// OpenSession and CloseSession are conditional writes: the condition on
// has_open_session at write time, backed by the unique composite index, is
// what resolves concurrent scans — the loser gets ErrSessionConflict, never
// silent data loss.
type TimesheetRepository interface {
	FindByKey(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time) (*models.Timesheet, error)
	OpenSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error)
	CloseSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error)
	SetDerived(ctx context.Context, id primitive.ObjectID, sessions []models.Session, totalMinutes int, status string) error
	InsertIfAbsent(ctx context.Context, sheet *models.Timesheet) (bool, error)
	FindByUserInRange(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) ([]models.Timesheet, error)
	FindByOrgDateWithUsers(ctx context.Context, orgID primitive.ObjectID, day time.Time) ([]models.TimesheetWithUser, error)
	SummarizeByOrgRange(ctx context.Context, orgID primitive.ObjectID, start, end time.Time) ([]models.TimesheetSummary, error)
}

type timesheetRepository struct {
	collection *mongo.Collection
}

func NewTimesheetRepository() TimesheetRepository {
	return &timesheetRepository{
		collection: config.GetCollection(config.TimesheetCollection),
	}
}

func key(userID, orgID primitive.ObjectID, day time.Time) bson.M {
	return bson.M{
		"user_id":         userID,
		"organization_id": orgID,
		"date":            day,
	}
}

func (r *timesheetRepository) FindByKey(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time) (*models.Timesheet, error) {
	var sheet models.Timesheet
	err := r.collection.FindOne(ctx, key(userID, orgID, day)).Decode(&sheet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find timesheet: %w", err)
	}
	return &sheet, nil
}

// OpenSession appends a session holding only a check-in. The filter requires
// no open session; when one exists the upsert collides with the unique
// (user, org, date) index and the caller sees ErrSessionConflict.
func (r *timesheetRepository) OpenSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error) {
	filter := key(userID, orgID, day)
	filter["has_open_session"] = bson.M{"$ne": true}

	now := time.Now()
	update := bson.M{
		"$push": bson.M{"sessions": models.Session{CheckIn: &point}},
		"$set":  bson.M{"has_open_session": true, "updated_at": now},
		"$setOnInsert": bson.M{
			"status":                models.StatusAbsent,
			"total_working_minutes": 0,
			"created_at":            now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var sheet models.Timesheet
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sheet)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrSessionConflict
		}
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return &sheet, nil
}

// CloseSession fills the check-out of the one open session. No matching
// document means there is nothing open to close.
func (r *timesheetRepository) CloseSession(ctx context.Context, userID, orgID primitive.ObjectID, day time.Time, point models.SessionPoint) (*models.Timesheet, error) {
	filter := key(userID, orgID, day)
	filter["has_open_session"] = true

	update := bson.M{
		"$set": bson.M{
			"sessions.$[open].check_out": point,
			"has_open_session":           false,
			"updated_at":                 time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"open.check_out": bson.M{"$exists": false}}},
		})

	var sheet models.Timesheet
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sheet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionConflict
		}
		return nil, fmt.Errorf("failed to close session: %w", err)
	}
	return &sheet, nil
}

// SetDerived writes the recomputed session durations, total and status. The
// values are a pure function of the sessions, so re-applying is harmless.
func (r *timesheetRepository) SetDerived(ctx context.Context, id primitive.ObjectID, sessions []models.Session, totalMinutes int, status string) error {
	update := bson.M{
		"$set": bson.M{
			"sessions":              sessions,
			"total_working_minutes": totalMinutes,
			"status":                status,
			"updated_at":            time.Now(),
		},
	}
	_, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update derived timesheet fields: %w", err)
	}
	return nil
}

// InsertIfAbsent creates the timesheet only when none exists for the key.
// Existing documents — including ones where the user already worked — are
// left untouched. Returns whether a document was inserted.
func (r *timesheetRepository) InsertIfAbsent(ctx context.Context, sheet *models.Timesheet) (bool, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"sessions":              []models.Session{},
			"total_working_minutes": sheet.TotalWorkingMinutes,
			"status":                sheet.Status,
			"has_open_session":      false,
			"is_weekly_off":         sheet.IsWeeklyOff,
			"is_custom_holiday":     sheet.IsCustomHoliday,
			"is_public_holiday":     sheet.IsPublicHoliday,
			"created_at":            now,
			"updated_at":            now,
		},
	}

	res, err := r.collection.UpdateOne(ctx, key(sheet.UserID, sheet.OrganizationID, sheet.Date), update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent materialization of the same day; the other insert won.
			return false, nil
		}
		return false, fmt.Errorf("failed to materialize timesheet: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *timesheetRepository) FindByUserInRange(ctx context.Context, userID, orgID primitive.ObjectID, start, end time.Time) ([]models.Timesheet, error) {
	filter := bson.M{
		"user_id":         userID,
		"organization_id": orgID,
		"date":            bson.M{"$gte": start, "$lte": end},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find timesheets: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Timesheet
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode timesheets: %w", err)
	}
	if len(results) == 0 {
		return []models.Timesheet{}, nil
	}
	return results, nil
}

func (r *timesheetRepository) FindByOrgDateWithUsers(ctx context.Context, orgID primitive.ObjectID, day time.Time) ([]models.TimesheetWithUser, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "organization_id", Value: orgID},
			{Key: "date", Value: day},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: config.UserCollection},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userDetails"},
		}}},
		{{Key: "$unwind", Value: "$userDetails"}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: "$_id"},
			{Key: "user_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "sessions", Value: 1},
			{Key: "total_working_minutes", Value: 1},
			{Key: "status", Value: 1},
			{Key: "has_open_session", Value: 1},
			{Key: "user_name", Value: "$userDetails.name"},
			{Key: "user_email", Value: "$userDetails.email"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate org timesheets: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.TimesheetWithUser
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode org timesheets: %w", err)
	}
	if len(results) == 0 {
		return []models.TimesheetWithUser{}, nil
	}
	return results, nil
}

// SummarizeByOrgRange groups an organization's timesheets in [start, end] by
// status with day counts and worked minutes, for weekly/monthly reports.
func (r *timesheetRepository) SummarizeByOrgRange(ctx context.Context, orgID primitive.ObjectID, start, end time.Time) ([]models.TimesheetSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "organization_id", Value: orgID},
			{Key: "date", Value: bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "days", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_minutes", Value: bson.D{{Key: "$sum", Value: "$total_working_minutes"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize timesheets: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.TimesheetSummary
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode timesheet summary: %w", err)
	}
	if len(results) == 0 {
		return []models.TimesheetSummary{}, nil
	}
	return results, nil
}
