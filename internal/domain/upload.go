package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Biometrics is one body measurement entry of a member.
type Biometrics struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID     primitive.ObjectID `bson:"memberId" json:"memberId"`
	GymID        primitive.ObjectID `bson:"gymId" json:"gymId"`
	WeightKg     float64            `bson:"weightKg" json:"weightKg"`
	HeightCm     float64            `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	BodyFatPct   float64            `bson:"bodyFatPct,omitempty" json:"bodyFatPct,omitempty"`
	Measurements map[string]float64 `bson:"measurements,omitempty" json:"measurements,omitempty"` // e.g. "waist": 82
	TakenAt      time.Time          `bson:"takenAt" json:"takenAt"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// ProgressPhoto stores metadata about a photo uploaded by a member.
// The file itself lives in object storage.
type ProgressPhoto struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MemberID    primitive.ObjectID `bson:"memberId" json:"memberId"`
	GymID       primitive.ObjectID `bson:"gymId" json:"gymId"`
	ObjectKey   string             `bson:"objectKey" json:"-"` // Internal use only
	ContentType string             `bson:"contentType" json:"contentType"`
	Caption     string             `bson:"caption,omitempty" json:"caption,omitempty"`
	TakenAt     time.Time          `bson:"takenAt" json:"takenAt"`
	UploadedAt  time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
