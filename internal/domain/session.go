package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Session identifies the caller of a service operation. It is built once
// per request from the verified token and passed explicitly to services.
type Session struct {
	UserID primitive.ObjectID
	GymID  primitive.ObjectID
	Role   Role
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSuperAdmin
}

// Valid reports whether the session carries a user and, for tenant
// roles, a gym.
func (s Session) Valid() bool {
	if s.UserID == primitive.NilObjectID || s.Role == "" {
		return false
	}
	if s.Role != RoleSuperAdmin && s.GymID == primitive.NilObjectID {
		return false
	}
	return true
}
