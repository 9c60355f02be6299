// internal/repository/mongo/workout_repo.go
package mongo

import (
	"context"
	"errors"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Workout and nutrition days share a shape and live in separate collections.
const (
	WorkoutDayCollection   = "workout_days"
	NutritionDayCollection = "nutrition_days"
)

type mongoPlanDayRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanDayRepository creates a plan day repository backed by the
// named collection.
func NewMongoPlanDayRepository(db *mongo.Database, collection string) repository.PlanDayRepository {
	return &mongoPlanDayRepository{
		collection: db.Collection(collection),
	}
}

// UpsertBatch writes days keyed by (planId, date) in one unordered bulk
// write. It returns how many rows were written, including when some of
// the writes failed.
func (r *mongoPlanDayRepository) UpsertBatch(ctx context.Context, days []domain.PlanDay) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(days))
	for _, d := range days {
		if d.PlanID == primitive.NilObjectID || d.Date == "" {
			return 0, errors.New("plan day requires planId and date")
		}
		id := d.ID
		if id == primitive.NilObjectID {
			id = primitive.NewObjectID()
		}
		set := bson.M{
			"memberId":             d.MemberID,
			"dayIndex":             d.DayIndex,
			"weekNumber":           d.WeekNumber,
			"monthNumber":          d.MonthNumber,
			"dayOfWeek":            d.DayOfWeek,
			"sessionType":          d.SessionType,
			"title":                d.Title,
			"description":          d.Description,
			"estimatedDurationMin": d.EstimatedDurationMin,
			"exercises":            nonNilExercises(d.Exercises),
			"meals":                d.Meals,
			"targetCalories":       d.TargetCalories,
			"isRest":               d.IsRest,
			"updatedAt":            now,
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"planId": d.PlanID, "date": d.Date}).
			SetUpdate(bson.M{
				"$set":         set,
				"$setOnInsert": bson.M{"_id": id, "createdAt": now},
			}).
			SetUpsert(true))
	}

	// On a BulkWriteException the result still holds what the other writes did.
	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return writtenDays(result), err
}

// writtenDays counts rows that now hold the batch's content: new
// documents plus existing ones matched by (planId, date).
func writtenDays(result *mongo.BulkWriteResult) int64 {
	if result == nil {
		return 0
	}
	return result.UpsertedCount + result.MatchedCount
}

func nonNilExercises(ex []domain.Exercise) []domain.Exercise {
	if ex == nil {
		return []domain.Exercise{}
	}
	return ex
}

func (r *mongoPlanDayRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanDay, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoPlanDayRepository) GetByDate(ctx context.Context, planID primitive.ObjectID, date string) (*domain.PlanDay, error) {
	return r.findOne(ctx, bson.M{"planId": planID, "date": date})
}

func (r *mongoPlanDayRepository) findOne(ctx context.Context, filter bson.M) (*domain.PlanDay, error) {
	var day domain.PlanDay
	if err := r.collection.FindOne(ctx, filter).Decode(&day); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &day, nil
}

// ListRange returns the plan's days with from <= date <= to, in date order.
// yyyy-mm-dd strings sort chronologically.
func (r *mongoPlanDayRepository) ListRange(ctx context.Context, planID primitive.ObjectID, from, to string) ([]domain.PlanDay, error) {
	filter := bson.M{
		"planId": planID,
		"date":   bson.M{"$gte": from, "$lte": to},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var days []domain.PlanDay
	if err = cursor.All(ctx, &days); err != nil {
		return nil, err
	}
	return days, nil
}

func (r *mongoPlanDayRepository) CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"planId": planID})
}

func EnsurePlanDayIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "date", Value: 1}},
		},
	})
}
