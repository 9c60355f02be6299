package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaaSTier is the platform subscription a gym pays for.
type SaaSTier string

const (
	TierStarter SaaSTier = "starter"
	TierGrowth  SaaSTier = "growth"
	TierPro     SaaSTier = "pro"
)

// Branding holds the look of a gym's member portal.
type Branding struct {
	PrimaryColor   string `bson:"primaryColor,omitempty" json:"primaryColor,omitempty"`
	SecondaryColor string `bson:"secondaryColor,omitempty" json:"secondaryColor,omitempty"`
	LogoKey        string `bson:"logoKey,omitempty" json:"-"`
	LogoURL        string `bson:"logoUrl,omitempty" json:"logoUrl,omitempty"`
}

// Gym is a tenant.
type Gym struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID  primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Name     string             `bson:"name" json:"name"`
	Code     string             `bson:"code" json:"code"` // Join code handed to members, unique
	Currency string             `bson:"currency" json:"currency"`
	Branding Branding           `bson:"branding" json:"branding"`

	Tier            SaaSTier  `bson:"tier" json:"tier"`
	TierStartedAt   time.Time `bson:"tierStartedAt" json:"tierStartedAt"` // Start of the current 30-day billing cycle
	StripeAccountID string    `bson:"stripeAccountId,omitempty" json:"-"` // Connected account receiving member payments

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
