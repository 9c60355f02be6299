package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationKind string

const (
	NotifyComment           NotificationKind = "comment"
	NotifyLike              NotificationKind = "like"
	NotifyMembershipExpired NotificationKind = "membership_expired"
	NotifyPaymentReceived   NotificationKind = "payment_received"
	NotifyPlanReady         NotificationKind = "plan_ready"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	GymID     primitive.ObjectID `bson:"gymId" json:"gymId"`
	Kind      NotificationKind   `bson:"kind" json:"kind"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body,omitempty" json:"body,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
