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

const paymentCollectionName = "payments"

type mongoPaymentRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) repository.PaymentRepository {
	return &mongoPaymentRepository{collection: db.Collection(paymentCollectionName)}
}

func (r *mongoPaymentRepository) Create(ctx context.Context, p *domain.Payment) (primitive.ObjectID, error) {
	if p.GymID == primitive.NilObjectID || p.Kind == "" {
		return primitive.NilObjectID, errors.New("payment requires gymId and kind")
	}
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = domain.PaymentPending
	}

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoPaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoPaymentRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"checkoutSessionId": sessionID})
}

func (r *mongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.collection.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *mongoPaymentRepository) SetCheckoutSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	update := bson.M{"$set": bson.M{"checkoutSessionId": sessionID, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkPaid only matches pending payments, so a confirmation replayed by
// the browser is applied once.
func (r *mongoPaymentRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error {
	filter := bson.M{"_id": id, "status": domain.PaymentPending}
	update := bson.M{"$set": bson.M{"status": domain.PaymentSucceeded, "paidAt": paidAt, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

func (r *mongoPaymentRepository) MarkFailed(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id, "status": domain.PaymentPending}
	update := bson.M{"$set": bson.M{"status": domain.PaymentFailed, "updatedAt": time.Now().UTC()}}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *mongoPaymentRepository) MarkApplied(ctx context.Context, id primitive.ObjectID, appliedAt time.Time) error {
	filter := bson.M{"_id": id, "status": domain.PaymentSucceeded, "appliedAt": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"appliedAt": appliedAt, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

// ListByGym returns payments created or paid in [from, to), any status.
func (r *mongoPaymentRepository) ListByGym(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Payment, error) {
	window := bson.M{"$gte": from, "$lt": to}
	filter := bson.M{
		"gymId": gymID,
		"$or": bson.A{
			bson.M{"createdAt": window},
			bson.M{"paidAt": window},
		},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []domain.Payment
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

func EnsurePaymentIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "paidAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "checkoutSessionId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})
}
