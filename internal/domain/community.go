package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is an entry in a gym's community feed.
type Post struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID        primitive.ObjectID `bson:"gymId" json:"gymId"`
	AuthorID     primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorName   string             `bson:"authorName" json:"authorName"`
	Content      string             `bson:"content" json:"content"`
	ImageKey     string             `bson:"imageKey,omitempty" json:"-"`
	LikeCount    int                `bson:"likeCount" json:"likeCount"`
	CommentCount int                `bson:"commentCount" json:"commentCount"`
	ReportCount  int                `bson:"reportCount" json:"reportCount"`
	Hidden       bool               `bson:"hidden" json:"hidden"` // Set by moderation
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Comment struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID     primitive.ObjectID `bson:"postId" json:"postId"`
	GymID      primitive.ObjectID `bson:"gymId" json:"gymId"`
	AuthorID   primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorName string             `bson:"authorName" json:"authorName"`
	Content    string             `bson:"content" json:"content"`
	Hidden     bool               `bson:"hidden" json:"hidden"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// Like is unique per (post, user).
type Like struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
