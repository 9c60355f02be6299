package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleSuperAdmin Role = "superadmin" // platform operator
	RoleAdmin      Role = "admin"      // gym owner or staff
	RoleMember     Role = "member"
)

// Profile represents a user of the platform. Every profile except a
// superadmin belongs to exactly one gym.
type Profile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GymID        primitive.ObjectID `bson:"gymId,omitempty" json:"gymId,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	AvatarKey    string             `bson:"avatarKey,omitempty" json:"-"`

	// --- Member fitness profile, used to build plan prompts ---
	FitnessGoal       string   `bson:"fitnessGoal,omitempty" json:"fitnessGoal,omitempty"`   // e.g. "lose weight", "build muscle"
	FitnessLevel      string   `bson:"fitnessLevel,omitempty" json:"fitnessLevel,omitempty"` // beginner, intermediate, advanced
	DaysPerWeek       int      `bson:"daysPerWeek,omitempty" json:"daysPerWeek,omitempty"`
	Equipment         []string `bson:"equipment,omitempty" json:"equipment,omitempty"`
	DietaryPreference string   `bson:"dietaryPreference,omitempty" json:"dietaryPreference,omitempty"`
	Allergies         []string `bson:"allergies,omitempty" json:"allergies,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func (p *Profile) IsMember() bool {
	return p.Role == RoleMember
}
