package mongo

import (
	"context"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// expiringWindow is how far ahead the dashboard looks for memberships
// about to end.
const expiringWindow = 7 * 24 * time.Hour

type mongoStatsRepository struct {
	memberships *mongo.Collection
	payments    *mongo.Collection
}

func NewMongoStatsRepository(db *mongo.Database) repository.StatsRepository {
	return &mongoStatsRepository{
		memberships: db.Collection(membershipCollectionName),
		payments:    db.Collection(paymentCollectionName),
	}
}

func (r *mongoStatsRepository) Dashboard(ctx context.Context, gymID primitive.ObjectID, now time.Time) (repository.DashboardStats, error) {
	var stats repository.DashboardStats
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	active, err := r.memberships.CountDocuments(ctx, bson.M{
		"gymId":   gymID,
		"status":  domain.MembershipActive,
		"endDate": bson.M{"$gte": now},
	})
	if err != nil {
		return stats, err
	}
	stats.ActiveMembers = active

	newMembers, err := r.memberships.CountDocuments(ctx, bson.M{
		"gymId":     gymID,
		"status":    bson.M{"$ne": domain.MembershipPending},
		"startDate": bson.M{"$gte": monthStart, "$lt": nextMonth},
	})
	if err != nil {
		return stats, err
	}
	stats.NewMembersThisMonth = newMembers

	expiring, err := r.memberships.CountDocuments(ctx, bson.M{
		"gymId":   gymID,
		"status":  domain.MembershipActive,
		"endDate": bson.M{"$gte": now, "$lt": now.Add(expiringWindow)},
	})
	if err != nil {
		return stats, err
	}
	stats.ExpiringSoon = expiring

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"gymId":  gymID,
			"status": domain.PaymentSucceeded,
			"paidAt": bson.M{"$gte": monthStart, "$lt": nextMonth},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amountCents"},
		}}},
	}
	cursor, err := r.payments.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return stats, err
	}
	if len(rows) > 0 {
		stats.RevenueThisMonth = rows[0].Total
	}
	return stats, nil
}
