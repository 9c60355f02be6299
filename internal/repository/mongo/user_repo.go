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

const profileCollectionName = "profiles"

// mongoProfileRepository implements repository.ProfileRepository using MongoDB.
type mongoProfileRepository struct {
	collection *mongo.Collection
}

func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection(profileCollectionName),
	}
}

// Create inserts a new profile into the database.
func (r *mongoProfileRepository) Create(ctx context.Context, p *domain.Profile) (primitive.ObjectID, error) {
	if p.Email == "" || p.PasswordHash == "" || p.Role == "" {
		return primitive.NilObjectID, errors.New("profile email, password hash, and role are required")
	}

	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// GetByEmail retrieves a profile by email address.
func (r *mongoProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoProfileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoProfileRepository) findOne(ctx context.Context, filter bson.M) (*domain.Profile, error) {
	var p domain.Profile
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByGym returns the gym's profiles, optionally restricted to one role.
func (r *mongoProfileRepository) ListByGym(ctx context.Context, gymID primitive.ObjectID, role domain.Role) ([]domain.Profile, error) {
	filter := bson.M{"gymId": gymID}
	if role != "" {
		filter["role"] = role
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []domain.Profile
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateFitness updates the member's fitness profile and contact fields.
func (r *mongoProfileRepository) UpdateFitness(ctx context.Context, p *domain.Profile) error {
	update := bson.M{
		"$set": bson.M{
			"name":              p.Name,
			"phone":             p.Phone,
			"fitnessGoal":       p.FitnessGoal,
			"fitnessLevel":      p.FitnessLevel,
			"daysPerWeek":       p.DaysPerWeek,
			"equipment":         p.Equipment,
			"dietaryPreference": p.DietaryPreference,
			"allergies":         p.Allergies,
			"updatedAt":         time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetGym attaches a profile to a gym with the given role.
func (r *mongoProfileRepository) SetGym(ctx context.Context, id, gymID primitive.ObjectID, role domain.Role) error {
	update := bson.M{"$set": bson.M{"gymId": gymID, "role": role, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProfileIndexes creates necessary indexes for the profiles collection.
func EnsureProfileIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "role", Value: 1}},
		},
	})
}
