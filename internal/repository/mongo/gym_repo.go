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

const gymCollectionName = "gyms"

type mongoGymRepository struct {
	collection *mongo.Collection
}

func NewMongoGymRepository(db *mongo.Database) repository.GymRepository {
	return &mongoGymRepository{collection: db.Collection(gymCollectionName)}
}

func (r *mongoGymRepository) Create(ctx context.Context, g *domain.Gym) (primitive.ObjectID, error) {
	if g.Name == "" || g.Code == "" || g.OwnerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("gym requires name, code, and ownerId")
	}
	g.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, g)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoGymRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoGymRepository) GetByCode(ctx context.Context, code string) (*domain.Gym, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *mongoGymRepository) findOne(ctx context.Context, filter bson.M) (*domain.Gym, error) {
	var g domain.Gym
	if err := r.collection.FindOne(ctx, filter).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *mongoGymRepository) UpdateBranding(ctx context.Context, id primitive.ObjectID, name string, b domain.Branding) error {
	return r.set(ctx, id, bson.M{"name": name, "branding": b})
}

func (r *mongoGymRepository) SetTier(ctx context.Context, id primitive.ObjectID, tier domain.SaaSTier, startedAt time.Time) error {
	return r.set(ctx, id, bson.M{"tier": tier, "tierStartedAt": startedAt})
}

func (r *mongoGymRepository) SetStripeAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	return r.set(ctx, id, bson.M{"stripeAccountId": accountID})
}

func (r *mongoGymRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func EnsureGymIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "ownerId", Value: 1}},
		},
	})
}
