// internal/repository/mongo/training_plan_repo.go
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

const planCollectionName = "plans"

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoPlanRepository creates a new Plan repository.
func NewMongoPlanRepository(db *mongo.Database) repository.PlanRepository {
	return &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
}

// Create inserts a new plan.
func (r *mongoPlanRepository) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.MemberID == primitive.NilObjectID || plan.Kind == "" {
		return primitive.NilObjectID, errors.New("plan requires memberId and kind")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByID retrieves a single plan by its ID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetActive returns the member's active plan of the given kind.
func (r *mongoPlanRepository) GetActive(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind) (*domain.Plan, error) {
	return r.findOne(ctx, bson.M{"memberId": memberID, "kind": kind, "status": domain.PlanActive})
}

func (r *mongoPlanRepository) findOne(ctx context.Context, filter bson.M) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.collection.FindOne(ctx, filter).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListByMember returns a member's plans, newest first. An empty kind
// lists both kinds. The month templates are left out.
func (r *mongoPlanRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	filter := bson.M{"memberId": memberID}
	if kind != "" {
		filter["kind"] = kind
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"months": 0})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.Plan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *mongoPlanRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus, daysWritten int64, cause string) error {
	update := bson.M{
		"$set": bson.M{
			"status":       status,
			"daysWritten":  daysWritten,
			"failureCause": cause,
			"updatedAt":    time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeactivateOthers keeps at most one active plan per member and kind.
func (r *mongoPlanRepository) DeactivateOthers(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind, excludeID primitive.ObjectID) error {
	filter := bson.M{
		"memberId": memberID,
		"kind":     kind,
		"status":   domain.PlanActive,
		"_id":      bson.M{"$ne": excludeID},
	}
	update := bson.M{"$set": bson.M{"status": domain.PlanInactive, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateMany(ctx, filter, update)
	return err
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Active plan lookup
			Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "kind", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "gymId", Value: 1}},
		},
	})
}
