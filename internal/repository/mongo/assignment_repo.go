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

const completionCollectionName = "completions"

// mongoCompletionRepository implements repository.CompletionRepository
type mongoCompletionRepository struct {
	collection *mongo.Collection
}

// NewMongoCompletionRepository creates a new Completion repository backed by MongoDB.
func NewMongoCompletionRepository(db *mongo.Database) repository.CompletionRepository {
	return &mongoCompletionRepository{
		collection: db.Collection(completionCollectionName),
	}
}

// Upsert records a completion. Completing the same day again replaces
// notes and rating but keeps the original id.
func (r *mongoCompletionRepository) Upsert(ctx context.Context, c *domain.Completion) error {
	if c.MemberID == primitive.NilObjectID || c.PlanDayID == primitive.NilObjectID {
		return errors.New("completion requires memberId and planDayId")
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	if c.ID == primitive.NilObjectID {
		c.ID = primitive.NewObjectID()
	}

	filter := bson.M{"memberId": c.MemberID, "planDayId": c.PlanDayID}
	update := bson.M{
		"$set": bson.M{
			"planId":      c.PlanID,
			"gymId":       c.GymID,
			"date":        c.Date,
			"notes":       c.Notes,
			"rating":      c.Rating,
			"completedAt": c.CompletedAt,
		},
		"$setOnInsert": bson.M{"_id": c.ID},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// ListByMember returns completions with from <= date <= to. Empty bounds
// are open.
func (r *mongoCompletionRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID, from, to string) ([]domain.Completion, error) {
	filter := bson.M{"memberId": memberID}
	dateFilter := bson.M{}
	if from != "" {
		dateFilter["$gte"] = from
	}
	if to != "" {
		dateFilter["$lte"] = to
	}
	if len(dateFilter) > 0 {
		filter["date"] = dateFilter
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var completions []domain.Completion
	if err = cursor.All(ctx, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

// EnsureCompletionIndexes creates necessary indexes. Call during startup.
func EnsureCompletionIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "memberId", Value: 1}, {Key: "planDayId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "date", Value: 1}},
		},
	})
}
