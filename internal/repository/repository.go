package repository

import (
	"context"
	"time"

	"gymdesk/platform/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrOutOfStock   = RepositoryError("insufficient stock")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Page bounds list queries.
type Page struct {
	Limit int64
	Skip  int64
}

// ProfileRepository defines the interface for interacting with user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error)
	ListByGym(ctx context.Context, gymID primitive.ObjectID, role domain.Role) ([]domain.Profile, error)
	UpdateFitness(ctx context.Context, p *domain.Profile) error
	SetGym(ctx context.Context, id, gymID primitive.ObjectID, role domain.Role) error
}

type GymRepository interface {
	Create(ctx context.Context, g *domain.Gym) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error)
	GetByCode(ctx context.Context, code string) (*domain.Gym, error)
	UpdateBranding(ctx context.Context, id primitive.ObjectID, name string, b domain.Branding) error
	SetTier(ctx context.Context, id primitive.ObjectID, tier domain.SaaSTier, startedAt time.Time) error
	SetStripeAccount(ctx context.Context, id primitive.ObjectID, accountID string) error
}

type MembershipPlanRepository interface {
	Create(ctx context.Context, p *domain.MembershipPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MembershipPlan, error)
	ListByGym(ctx context.Context, gymID primitive.ObjectID, activeOnly bool) ([]domain.MembershipPlan, error)
	Update(ctx context.Context, p *domain.MembershipPlan) error
	Delete(ctx context.Context, id, gymID primitive.ObjectID) error
}

type MembershipRepository interface {
	Create(ctx context.Context, m *domain.Membership) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Membership, error)
	ListByGym(ctx context.Context, gymID primitive.ObjectID, status domain.MembershipStatus) ([]domain.Membership, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Membership, error)
	// ListOverlapping returns memberships whose term intersects [from, to).
	ListOverlapping(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Membership, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.MembershipStatus) error
	// UpdateTerm sets the term and the total charged for it.
	UpdateTerm(ctx context.Context, id primitive.ObjectID, start, end time.Time, priceCents int64, status domain.MembershipStatus) error
	// ListExpired returns active memberships that ended before now, across all gyms.
	ListExpired(ctx context.Context, now time.Time) ([]domain.Membership, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Payment, error)
	SetCheckoutSession(ctx context.Context, id primitive.ObjectID, sessionID string) error
	// MarkPaid moves a pending payment to succeeded. It returns
	// ErrUpdateFailed if the payment was not pending.
	MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error
	MarkFailed(ctx context.Context, id primitive.ObjectID) error
	// MarkApplied records that the payment's effect was carried out. It
	// returns ErrUpdateFailed if it was already recorded.
	MarkApplied(ctx context.Context, id primitive.ObjectID, appliedAt time.Time) error
	ListByGym(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Payment, error)
}

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	ListByGym(ctx context.Context, gymID primitive.ObjectID, activeOnly bool) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id, gymID primitive.ObjectID) error
	// DecrementStock removes qty units only if at least qty are in stock.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// Post counter fields accepted by PostRepository.IncrementCounter.
const (
	CounterLikes    = "likeCount"
	CounterComments = "commentCount"
	CounterReports  = "reportCount"
)

type PostRepository interface {
	Create(ctx context.Context, p *domain.Post) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error)
	Feed(ctx context.Context, gymID primitive.ObjectID, includeHidden bool, page Page) ([]domain.Post, error)
	ListReported(ctx context.Context, gymID primitive.ObjectID) ([]domain.Post, error)
	IncrementCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error
	SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error
	Delete(ctx context.Context, id, gymID primitive.ObjectID) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *domain.Comment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID primitive.ObjectID, includeHidden bool) ([]domain.Comment, error)
	SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) error
}

type LikeRepository interface {
	// Create returns ErrDuplicate if the user already liked the post.
	Create(ctx context.Context, l *domain.Like) error
	// Delete returns ErrNotFound if there was no like to remove.
	Delete(ctx context.Context, postID, userID primitive.ObjectID) error
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (primitive.ObjectID, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// PlanRepository stores workout and nutrition plans.
type PlanRepository interface {
	Create(ctx context.Context, p *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error)
	GetActive(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind) (*domain.Plan, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.PlanStatus, daysWritten int64, cause string) error
	DeactivateOthers(ctx context.Context, memberID primitive.ObjectID, kind domain.PlanKind, excludeID primitive.ObjectID) error
}

// PlanDayRepository stores materialized plan days. Rows are keyed by
// (planId, date); writing the same day twice replaces it.
type PlanDayRepository interface {
	UpsertBatch(ctx context.Context, days []domain.PlanDay) (int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanDay, error)
	ListRange(ctx context.Context, planID primitive.ObjectID, from, to string) ([]domain.PlanDay, error)
	GetByDate(ctx context.Context, planID primitive.ObjectID, date string) (*domain.PlanDay, error)
	CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
}

type CompletionRepository interface {
	// Upsert keeps one completion per (member, plan day).
	Upsert(ctx context.Context, c *domain.Completion) error
	ListByMember(ctx context.Context, memberID primitive.ObjectID, from, to string) ([]domain.Completion, error)
}

type BiometricsRepository interface {
	Create(ctx context.Context, b *domain.Biometrics) (primitive.ObjectID, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID, from, to time.Time) ([]domain.Biometrics, error)
	Latest(ctx context.Context, memberID primitive.ObjectID) (*domain.Biometrics, error)
}

type PhotoRepository interface {
	Create(ctx context.Context, p *domain.ProgressPhoto) (primitive.ObjectID, error)
	ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.ProgressPhoto, error)
}

// DashboardStats is the admin dashboard headline numbers.
type DashboardStats struct {
	ActiveMembers       int64 `bson:"activeMembers" json:"activeMembers"`
	NewMembersThisMonth int64 `bson:"newMembersThisMonth" json:"newMembersThisMonth"`
	ExpiringSoon        int64 `bson:"expiringSoon" json:"expiringSoon"`
	RevenueThisMonth    int64 `bson:"revenueThisMonth" json:"revenueThisMonth"`
}

// StatsRepository computes aggregates server side.
type StatsRepository interface {
	Dashboard(ctx context.Context, gymID primitive.ObjectID, now time.Time) (DashboardStats, error)
}
