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
	membershipPlanCollectionName = "membership_plans"
	membershipCollectionName     = "memberships"
)

// --- Membership plans ---

type mongoMembershipPlanRepository struct {
	collection *mongo.Collection
}

func NewMongoMembershipPlanRepository(db *mongo.Database) repository.MembershipPlanRepository {
	return &mongoMembershipPlanRepository{collection: db.Collection(membershipPlanCollectionName)}
}

func (r *mongoMembershipPlanRepository) Create(ctx context.Context, p *domain.MembershipPlan) (primitive.ObjectID, error) {
	if p.GymID == primitive.NilObjectID || p.Name == "" {
		return primitive.NilObjectID, errors.New("membership plan requires gymId and name")
	}
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoMembershipPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MembershipPlan, error) {
	var p domain.MembershipPlan
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *mongoMembershipPlanRepository) ListByGym(ctx context.Context, gymID primitive.ObjectID, activeOnly bool) ([]domain.MembershipPlan, error) {
	filter := bson.M{"gymId": gymID}
	if activeOnly {
		filter["isActive"] = true
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "priceCents", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var plans []domain.MembershipPlan
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *mongoMembershipPlanRepository) Update(ctx context.Context, p *domain.MembershipPlan) error {
	if p.ID == primitive.NilObjectID {
		return errors.New("membership plan ID is required for update")
	}
	// gymId in the filter keeps admins inside their own tenant.
	filter := bson.M{"_id": p.ID, "gymId": p.GymID}
	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"priceCents":  p.PriceCents,
			"duration":    p.Duration,
			"unit":        p.Unit,
			"features":    p.Features,
			"isActive":    p.IsActive,
			"updatedAt":   time.Now().UTC(),
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoMembershipPlanRepository) Delete(ctx context.Context, id, gymID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "gymId": gymID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func EnsureMembershipPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "isActive", Value: 1}}},
	})
}

// --- Memberships ---

type mongoMembershipRepository struct {
	collection *mongo.Collection
}

func NewMongoMembershipRepository(db *mongo.Database) repository.MembershipRepository {
	return &mongoMembershipRepository{collection: db.Collection(membershipCollectionName)}
}

func (r *mongoMembershipRepository) Create(ctx context.Context, m *domain.Membership) (primitive.ObjectID, error) {
	if m.GymID == primitive.NilObjectID || m.MemberID == primitive.NilObjectID || m.PlanID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("membership requires gymId, memberId, and planId")
	}
	m.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = domain.MembershipPending
	}

	result, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoMembershipRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Membership, error) {
	var m domain.Membership
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *mongoMembershipRepository) ListByGym(ctx context.Context, gymID primitive.ObjectID, status domain.MembershipStatus) ([]domain.Membership, error) {
	filter := bson.M{"gymId": gymID}
	if status != "" {
		filter["status"] = status
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "endDate", Value: 1}}))
}

func (r *mongoMembershipRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Membership, error) {
	return r.find(ctx, bson.M{"memberId": memberID}, options.Find().SetSort(bson.D{{Key: "startDate", Value: -1}}))
}

func (r *mongoMembershipRepository) ListOverlapping(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Membership, error) {
	filter := bson.M{
		"gymId":     gymID,
		"status":    bson.M{"$in": []domain.MembershipStatus{domain.MembershipActive, domain.MembershipExpired}},
		"startDate": bson.M{"$lt": to},
		"endDate":   bson.M{"$gt": from},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *mongoMembershipRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.Membership, error) {
	filter := bson.M{
		"status":  domain.MembershipActive,
		"endDate": bson.M{"$lt": now},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *mongoMembershipRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Membership, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var memberships []domain.Membership
	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *mongoMembershipRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.MembershipStatus) error {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *mongoMembershipRepository) UpdateTerm(ctx context.Context, id primitive.ObjectID, start, end time.Time, priceCents int64, status domain.MembershipStatus) error {
	return r.set(ctx, id, bson.M{"startDate": start, "endDate": end, "priceCents": priceCents, "status": status})
}

func (r *mongoMembershipRepository) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
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

func EnsureMembershipIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "status", Value: 1}, {Key: "endDate", Value: 1}}},
		{Keys: bson.D{{Key: "memberId", Value: 1}, {Key: "startDate", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "endDate", Value: 1}}},
	})
}
