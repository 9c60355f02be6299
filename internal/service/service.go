package service

import (
	"context"
	"errors"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions shared by all services ---
var (
	ErrUnauthenticated = errors.New("missing or invalid session")
	ErrForbidden       = errors.New("access denied")
	ErrInvalidInput    = errors.New("invalid input")
)

// UploadTicket is handed to clients that upload a file straight to
// object storage.
type UploadTicket struct {
	UploadURL string    `json:"uploadUrl"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CheckoutResult is returned when a purchase needs the browser to visit
// the hosted checkout.
type CheckoutResult struct {
	PaymentID   primitive.ObjectID `json:"paymentId"`
	SessionID   string             `json:"sessionId,omitempty"`
	RedirectURL string             `json:"redirectUrl,omitempty"`
	AmountCents int64              `json:"amountCents"`
}

func requireSession(s domain.Session) error {
	if !s.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(s domain.Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// canSeeMember reports whether s may read data owned by a member of gymID.
func canSeeMember(s domain.Session, memberID, gymID primitive.ObjectID) bool {
	if s.UserID == memberID {
		return true
	}
	if s.Role == domain.RoleSuperAdmin {
		return true
	}
	return s.Role == domain.RoleAdmin && s.GymID == gymID
}

// resolveMember returns the profile an operation targets. A nil memberID
// means the caller.
func resolveMember(ctx context.Context, profiles repository.ProfileRepository, s domain.Session, memberID primitive.ObjectID) (*domain.Profile, error) {
	if err := requireSession(s); err != nil {
		return nil, err
	}
	if memberID == primitive.NilObjectID {
		memberID = s.UserID
	}
	if memberID != s.UserID && !s.IsAdmin() {
		return nil, ErrForbidden
	}
	member, err := profiles.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !canSeeMember(s, member.ID, member.GymID) {
		return nil, ErrForbidden
	}
	return member, nil
}

// nowUTC is replaced in tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
