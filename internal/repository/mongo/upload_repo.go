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

const (
	photoCollectionName      = "progress_photos"
	biometricsCollectionName = "biometrics"
)

// mongoPhotoRepository implements repository.PhotoRepository
type mongoPhotoRepository struct {
	collection *mongo.Collection
}

// NewMongoPhotoRepository creates a new progress photo repository backed by MongoDB.
func NewMongoPhotoRepository(db *mongo.Database) repository.PhotoRepository {
	return &mongoPhotoRepository{
		collection: db.Collection(photoCollectionName),
	}
}

// Create inserts photo metadata. The object itself is uploaded by the
// client through a presigned URL.
func (r *mongoPhotoRepository) Create(ctx context.Context, p *domain.ProgressPhoto) (primitive.ObjectID, error) {
	if p.MemberID == primitive.NilObjectID || p.ObjectKey == "" {
		return primitive.NilObjectID, errors.New("photo requires memberId and objectKey")
	}

	p.ID = primitive.NewObjectID()
	p.UploadedAt = time.Now().UTC()
	if p.TakenAt.IsZero() {
		p.TakenAt = p.UploadedAt
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoPhotoRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.ProgressPhoto, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"memberId": memberID}, options.Find().SetSort(bson.D{{Key: "takenAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var photos []domain.ProgressPhoto
	if err = cursor.All(ctx, &photos); err != nil {
		return nil, err
	}
	return photos, nil
}

// EnsurePhotoIndexes creates necessary indexes. Call during startup.
func EnsurePhotoIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "takenAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "objectKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

type mongoBiometricsRepository struct {
	collection *mongo.Collection
}

func NewMongoBiometricsRepository(db *mongo.Database) repository.BiometricsRepository {
	return &mongoBiometricsRepository{
		collection: db.Collection(biometricsCollectionName),
	}
}

func (r *mongoBiometricsRepository) Create(ctx context.Context, b *domain.Biometrics) (primitive.ObjectID, error) {
	if b.MemberID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("biometrics requires memberId")
	}
	b.ID = primitive.NewObjectID()
	b.CreatedAt = time.Now().UTC()
	if b.TakenAt.IsZero() {
		b.TakenAt = b.CreatedAt
	}

	result, err := r.collection.InsertOne(ctx, b)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

// ListByMember returns entries taken in [from, to), oldest first. Zero
// bounds are open.
func (r *mongoBiometricsRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID, from, to time.Time) ([]domain.Biometrics, error) {
	filter := bson.M{"memberId": memberID}
	taken := bson.M{}
	if !from.IsZero() {
		taken["$gte"] = from
	}
	if !to.IsZero() {
		taken["$lt"] = to
	}
	if len(taken) > 0 {
		filter["takenAt"] = taken
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "takenAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.Biometrics
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *mongoBiometricsRepository) Latest(ctx context.Context, memberID primitive.ObjectID) (*domain.Biometrics, error) {
	var b domain.Biometrics
	opts := options.FindOne().SetSort(bson.D{{Key: "takenAt", Value: -1}})
	if err := r.collection.FindOne(ctx, bson.M{"memberId": memberID}, opts).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func EnsureBiometricsIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "takenAt", Value: -1}}},
	})
}
