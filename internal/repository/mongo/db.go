package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. Failures are
// logged and do not stop startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.SugaredLogger) {
	ensure := map[string]func(context.Context, *mongo.Collection) error{
		profileCollectionName:        EnsureProfileIndexes,
		gymCollectionName:            EnsureGymIndexes,
		membershipPlanCollectionName: EnsureMembershipPlanIndexes,
		membershipCollectionName:     EnsureMembershipIndexes,
		paymentCollectionName:        EnsurePaymentIndexes,
		productCollectionName:        EnsureProductIndexes,
		postCollectionName:           EnsurePostIndexes,
		commentCollectionName:        EnsureCommentIndexes,
		likeCollectionName:           EnsureLikeIndexes,
		notificationCollectionName:   EnsureNotificationIndexes,
		planCollectionName:           EnsurePlanIndexes,
		WorkoutDayCollection:         EnsurePlanDayIndexes,
		NutritionDayCollection:       EnsurePlanDayIndexes,
		completionCollectionName:     EnsureCompletionIndexes,
		biometricsCollectionName:     EnsureBiometricsIndexes,
		photoCollectionName:          EnsurePhotoIndexes,
	}
	for name, fn := range ensure {
		if err := fn(ctx, db.Collection(name)); err != nil {
			log.Warnw("failed to create indexes", "collection", name, "error", err)
		}
	}
}

func insertedObjectID(result *mongo.InsertOneResult) (primitive.ObjectID, error) {
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return id, nil
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
