package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DurationUnit is the unit a membership plan's duration is expressed in.
type DurationUnit string

const (
	UnitDay   DurationUnit = "day"
	UnitWeek  DurationUnit = "week"
	UnitMonth DurationUnit = "month"
	UnitYear  DurationUnit = "year"
)

// MembershipPlan is a plan a gym sells to its members.
type MembershipPlan struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID       primitive.ObjectID `bson:"gymId" json:"gymId"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	PriceCents  int64              `bson:"priceCents" json:"priceCents"`
	Duration    int                `bson:"duration" json:"duration"`
	Unit        DurationUnit       `bson:"unit" json:"unit"`
	Features    []string           `bson:"features,omitempty" json:"features,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MembershipStatus tracks the lifecycle of a membership.
type MembershipStatus string

const (
	MembershipPending   MembershipStatus = "pending" // Waiting for checkout
	MembershipActive    MembershipStatus = "active"
	MembershipExpired   MembershipStatus = "expired"
	MembershipCancelled MembershipStatus = "cancelled"
)

// Membership is a member's subscription to one of the gym's plans.
type Membership struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID      primitive.ObjectID `bson:"gymId" json:"gymId"`
	MemberID   primitive.ObjectID `bson:"memberId" json:"memberId"`
	PlanID     primitive.ObjectID `bson:"planId" json:"planId"`
	PlanName   string             `bson:"planName" json:"planName"`     // Denormalized for reports
	PriceCents int64              `bson:"priceCents" json:"priceCents"` // Charged for StartDate..EndDate
	StartDate  time.Time          `bson:"startDate" json:"startDate"`
	EndDate    time.Time          `bson:"endDate" json:"endDate"`
	Status     MembershipStatus   `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
