package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentKind string

const (
	PaymentMembership PaymentKind = "membership"
	PaymentProduct    PaymentKind = "product"
	PaymentSaaS       PaymentKind = "saas"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records money moving through the hosted checkout. ReferenceID
// points at the membership, product or gym (for saas upgrades) paid for.
type Payment struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID             primitive.ObjectID `bson:"gymId" json:"gymId"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	Kind              PaymentKind        `bson:"kind" json:"kind"`
	ReferenceID       primitive.ObjectID `bson:"referenceId" json:"referenceId"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	Quantity          int                `bson:"quantity" json:"quantity"`
	AmountCents       int64              `bson:"amountCents" json:"amountCents"`
	Currency          string             `bson:"currency" json:"currency"`
	Status            PaymentStatus      `bson:"status" json:"status"`
	CheckoutSessionID string             `bson:"checkoutSessionId,omitempty" json:"checkoutSessionId,omitempty"`
	TargetTier        SaaSTier           `bson:"targetTier,omitempty" json:"targetTier,omitempty"`
	PaidAt            *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	AppliedAt         *time.Time         `bson:"appliedAt,omitempty" json:"appliedAt,omitempty"` // Set once the membership, stock or tier change landed
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
