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
	postCollectionName    = "posts"
	commentCollectionName = "comments"
	likeCollectionName    = "likes"
)

// --- Posts ---

type mongoPostRepository struct {
	collection *mongo.Collection
}

func NewMongoPostRepository(db *mongo.Database) repository.PostRepository {
	return &mongoPostRepository{collection: db.Collection(postCollectionName)}
}

func (r *mongoPostRepository) Create(ctx context.Context, p *domain.Post) (primitive.ObjectID, error) {
	if p.GymID == primitive.NilObjectID || p.AuthorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("post requires gymId and authorId")
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

func (r *mongoPostRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	var p domain.Post
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *mongoPostRepository) Feed(ctx context.Context, gymID primitive.ObjectID, includeHidden bool, page repository.Page) ([]domain.Post, error) {
	filter := bson.M{"gymId": gymID}
	if !includeHidden {
		filter["hidden"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoPostRepository) ListReported(ctx context.Context, gymID primitive.ObjectID) ([]domain.Post, error) {
	filter := bson.M{"gymId": gymID, "reportCount": bson.M{"$gt": 0}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "reportCount", Value: -1}}))
}

func (r *mongoPostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Post, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []domain.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *mongoPostRepository) IncrementCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	switch field {
	case repository.CounterLikes, repository.CounterComments, repository.CounterReports:
	default:
		return errors.New("unknown post counter: " + field)
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error {
	filter := bson.M{"_id": id, "gymId": gymID}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"hidden": hidden, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id, gymID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "gymId": gymID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func EnsurePostIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "hidden", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "gymId", Value: 1}, {Key: "reportCount", Value: -1}}},
	})
}

// --- Comments ---

type mongoCommentRepository struct {
	collection *mongo.Collection
}

func NewMongoCommentRepository(db *mongo.Database) repository.CommentRepository {
	return &mongoCommentRepository{collection: db.Collection(commentCollectionName)}
}

func (r *mongoCommentRepository) Create(ctx context.Context, c *domain.Comment) (primitive.ObjectID, error) {
	if c.PostID == primitive.NilObjectID || c.AuthorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("comment requires postId and authorId")
	}
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return insertedObjectID(result)
}

func (r *mongoCommentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error) {
	var c domain.Comment
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *mongoCommentRepository) ListByPost(ctx context.Context, postID primitive.ObjectID, includeHidden bool) ([]domain.Comment, error) {
	filter := bson.M{"postId": postID}
	if !includeHidden {
		filter["hidden"] = false
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var comments []domain.Comment
	if err = cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *mongoCommentRepository) SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "gymId": gymID}, bson.M{"$set": bson.M{"hidden": hidden}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoCommentRepository) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"postId": postID})
	return err
}

func EnsureCommentIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
}

// --- Likes ---

type mongoLikeRepository struct {
	collection *mongo.Collection
}

func NewMongoLikeRepository(db *mongo.Database) repository.LikeRepository {
	return &mongoLikeRepository{collection: db.Collection(likeCollectionName)}
}

func (r *mongoLikeRepository) Create(ctx context.Context, l *domain.Like) error {
	l.ID = primitive.NewObjectID()
	l.CreatedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, l); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *mongoLikeRepository) Delete(ctx context.Context, postID, userID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"postId": postID, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoLikeRepository) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"postId": postID})
	return err
}

func EnsureLikeIndexes(ctx context.Context, collection *mongo.Collection) error {
	return createIndexes(ctx, collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "postId", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}
