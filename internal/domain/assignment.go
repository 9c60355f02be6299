package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Completion records a member finishing one plan day. One per
// (member, day).
type Completion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanDayID   primitive.ObjectID `bson:"planDayId" json:"planDayId"`
	PlanID      primitive.ObjectID `bson:"planId" json:"planId"`
	MemberID    primitive.ObjectID `bson:"memberId" json:"memberId"`
	GymID       primitive.ObjectID `bson:"gymId" json:"gymId"`
	Date        string             `bson:"date" json:"date"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Rating      int                `bson:"rating,omitempty" json:"rating,omitempty"` // 1..5, perceived effort
	CompletedAt time.Time          `bson:"completedAt" json:"completedAt"`
}
