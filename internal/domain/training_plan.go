// internal/domain/training_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanKind separates workout plans from nutrition plans. Both share the
// same template shape and the same 365-day expansion.
type PlanKind string

const (
	PlanWorkout   PlanKind = "workout"
	PlanNutrition PlanKind = "nutrition"
)

type PlanStatus string

const (
	PlanGenerating PlanStatus = "generating"
	PlanActive     PlanStatus = "active"
	PlanInactive   PlanStatus = "inactive"
	PlanFailed     PlanStatus = "failed" // Some day rows may have been written
)

// DayTemplate is what a month prescribes for one weekday.
type DayTemplate struct {
	DayOfWeek            int        `bson:"dayOfWeek" json:"dayOfWeek"` // 0=Sunday..6=Saturday
	SessionType          string     `bson:"sessionType" json:"sessionType"`
	Title                string     `bson:"title" json:"title"`
	Description          string     `bson:"description,omitempty" json:"description,omitempty"`
	EstimatedDurationMin int        `bson:"estimatedDurationMin" json:"estimatedDurationMin"`
	Exercises            []Exercise `bson:"exercises,omitempty" json:"exercises,omitempty"`
	Meals                []Meal     `bson:"meals,omitempty" json:"meals,omitempty"`
	TargetCalories       int        `bson:"targetCalories,omitempty" json:"targetCalories,omitempty"`
}

// MonthTemplate is one bucket of a year template.
type MonthTemplate struct {
	Month int           `bson:"month" json:"month"` // Phase month as labelled by the generator, informational
	Phase string        `bson:"phase,omitempty" json:"phase,omitempty"`
	Focus string        `bson:"focus,omitempty" json:"focus,omitempty"`
	Days  []DayTemplate `bson:"days" json:"days"`
}

// Plan is a generated annual workout or nutrition plan for a member.
type Plan struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID        primitive.ObjectID `bson:"gymId" json:"gymId"`
	MemberID     primitive.ObjectID `bson:"memberId" json:"memberId"`
	Kind         PlanKind           `bson:"kind" json:"kind"`
	Title        string             `bson:"title" json:"title"`
	Goal         string             `bson:"goal,omitempty" json:"goal,omitempty"`
	Status       PlanStatus         `bson:"status" json:"status"`
	StartDate    time.Time          `bson:"startDate" json:"startDate"`
	EndDate      time.Time          `bson:"endDate" json:"endDate"`
	Months       []MonthTemplate    `bson:"months" json:"months"`
	UsedFallback bool               `bson:"usedFallback" json:"usedFallback"` // Generator failed, static template used
	DaysWritten  int64              `bson:"daysWritten" json:"daysWritten"`
	FailureCause string             `bson:"failureCause,omitempty" json:"failureCause,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
