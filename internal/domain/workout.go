package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionTypeRest marks a day with nothing prescribed.
const SessionTypeRest = "rest"

// PlanDay is one materialized calendar day of a plan. (PlanID, Date) is
// the natural key.
type PlanDay struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID               primitive.ObjectID `bson:"planId" json:"planId"`
	MemberID             primitive.ObjectID `bson:"memberId" json:"memberId"`
	Date                 string             `bson:"date" json:"date"` // yyyy-mm-dd
	DayIndex             int                `bson:"dayIndex" json:"dayIndex"`
	WeekNumber           int                `bson:"weekNumber" json:"weekNumber"`
	MonthNumber          int                `bson:"monthNumber" json:"monthNumber"` // 1..12, calendar month of Date
	DayOfWeek            int                `bson:"dayOfWeek" json:"dayOfWeek"`
	SessionType          string             `bson:"sessionType" json:"sessionType"`
	Title                string             `bson:"title" json:"title"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	EstimatedDurationMin int                `bson:"estimatedDurationMin" json:"estimatedDurationMin"`
	Exercises            []Exercise         `bson:"exercises" json:"exercises"`
	Meals                []Meal             `bson:"meals,omitempty" json:"meals,omitempty"`
	TargetCalories       int                `bson:"targetCalories,omitempty" json:"targetCalories,omitempty"`
	IsRest               bool               `bson:"isRest" json:"isRest"`
	CreatedAt            time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt,omitempty" json:"updatedAt"`
}
