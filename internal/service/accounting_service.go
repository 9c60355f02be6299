package service

import (
	"context"
	"errors"
	"time"

	"gymdesk/platform/internal/billing"
	"gymdesk/platform/internal/cache"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxReportSpan caps revenue report windows.
const maxReportSpan = 366 * 24 * time.Hour

// RevenueReport compares earned (accrued) and collected (cash) revenue
// over a window.
type RevenueReport struct {
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	AccruedCents    int64            `json:"accruedCents"`
	CashCents       int64            `json:"cashCents"`
	ByPlan          map[string]int64 `json:"byPlan"` // Accrued per plan name
	MembershipCount int              `json:"membershipCount"`
	PaymentCount    int              `json:"paymentCount"`
}

type AccountingService interface {
	// RevenueReport covers [from, to).
	RevenueReport(ctx context.Context, s domain.Session, from, to time.Time) (*RevenueReport, error)
	DashboardStats(ctx context.Context, s domain.Session) (*repository.DashboardStats, error)
	ListPayments(ctx context.Context, s domain.Session, from, to time.Time) ([]domain.Payment, error)
}

type accountingService struct {
	membershipRepo repository.MembershipRepository
	paymentRepo    repository.PaymentRepository
	statsRepo      repository.StatsRepository
	cache          cache.Cache
	statsTTL       time.Duration
	log            *zap.SugaredLogger
}

func NewAccountingService(
	membershipRepo repository.MembershipRepository,
	paymentRepo repository.PaymentRepository,
	statsRepo repository.StatsRepository,
	statsCache cache.Cache,
	statsTTL time.Duration,
	log *zap.SugaredLogger,
) AccountingService {
	return &accountingService{
		membershipRepo: membershipRepo,
		paymentRepo:    paymentRepo,
		statsRepo:      statsRepo,
		cache:          statsCache,
		statsTTL:       statsTTL,
		log:            log,
	}
}

func validWindow(from, to time.Time) error {
	if from.IsZero() || to.IsZero() || !to.After(from) {
		return ErrInvalidDateRange
	}
	if to.Sub(from) > maxReportSpan {
		return ErrInvalidDateRange
	}
	return nil
}

func (s *accountingService) RevenueReport(ctx context.Context, sess domain.Session, from, to time.Time) (*RevenueReport, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := validWindow(from, to); err != nil {
		return nil, err
	}

	memberships, err := s.membershipRepo.ListOverlapping(ctx, sess.GymID, from, to)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByGym(ctx, sess.GymID, from, to)
	if err != nil {
		return nil, err
	}

	report := &RevenueReport{
		From:            from,
		To:              to,
		ByPlan:          map[string]int64{},
		MembershipCount: len(memberships),
	}
	for _, m := range memberships {
		accrued := billing.AccruedRevenue(m.PriceCents, m.StartDate, m.EndDate, from, to)
		report.AccruedCents += accrued
		report.ByPlan[m.PlanName] += accrued
	}
	report.CashCents = billing.CashRevenue(payments, from, to)
	for _, p := range payments {
		if p.Status == domain.PaymentSucceeded && p.PaidAt != nil && !p.PaidAt.Before(from) && p.PaidAt.Before(to) {
			report.PaymentCount++
		}
	}
	return report, nil
}

func (s *accountingService) DashboardStats(ctx context.Context, sess domain.Session) (*repository.DashboardStats, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	key := dashboardCacheKey(sess.GymID)

	var stats repository.DashboardStats
	if s.cache != nil {
		err := s.cache.Get(ctx, key, &stats)
		if err == nil {
			return &stats, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warnw("dashboard cache read failed", "gym", sess.GymID.Hex(), "error", err)
		}
	}

	stats, err := s.statsRepo.Dashboard(ctx, sess.GymID, nowUTC())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.statsTTL); err != nil {
			s.log.Warnw("dashboard cache write failed", "gym", sess.GymID.Hex(), "error", err)
		}
	}
	return &stats, nil
}

func (s *accountingService) ListPayments(ctx context.Context, sess domain.Session, from, to time.Time) ([]domain.Payment, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := validWindow(from, to); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByGym(ctx, sess.GymID, from, to)
}

func dashboardCacheKey(gymID primitive.ObjectID) string {
	return "dashboard:" + gymID.Hex()
}

// invalidateDashboard drops cached stats after a write that changes them.
func invalidateDashboard(ctx context.Context, c cache.Cache, log *zap.SugaredLogger, gymID primitive.ObjectID) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, dashboardCacheKey(gymID)); err != nil {
		log.Warnw("dashboard cache invalidation failed", "gym", gymID.Hex(), "error", err)
	}
}
