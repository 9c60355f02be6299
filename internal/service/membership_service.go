package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gymdesk/platform/internal/billing"
	"gymdesk/platform/internal/cache"
	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/metrics"
	"gymdesk/platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrMembershipPlanNotFound = errors.New("membership plan not found")
	ErrMembershipNotFound     = errors.New("membership not found")
	ErrMembershipPlanInactive = errors.New("membership plan is not available")
	ErrMembershipNotActive    = errors.New("membership is not active")
	ErrNotAMember             = errors.New("user is not a member of this gym")
)

type MembershipPlanInput struct {
	Name        string
	Description string
	PriceCents  int64
	Duration    int
	Unit        domain.DurationUnit
	Features    []string
	IsActive    bool
}

func (in MembershipPlanInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.PriceCents < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if _, err := billing.ExpiryDate(time.Time{}, in.Duration, in.Unit); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

type MembershipService interface {
	CreatePlan(ctx context.Context, s domain.Session, in MembershipPlanInput) (*domain.MembershipPlan, error)
	UpdatePlan(ctx context.Context, s domain.Session, planID primitive.ObjectID, in MembershipPlanInput) (*domain.MembershipPlan, error)
	DeletePlan(ctx context.Context, s domain.Session, planID primitive.ObjectID) error
	// ListPlans returns every plan to admins and active plans to members.
	ListPlans(ctx context.Context, s domain.Session) ([]domain.MembershipPlan, error)

	// EnrollMember is an admin enrolment paid at the desk.
	EnrollMember(ctx context.Context, s domain.Session, memberID, planID primitive.ObjectID, start time.Time) (*domain.Membership, error)
	// Purchase starts a member's own checkout for a plan. The membership
	// stays pending until the payment is confirmed.
	Purchase(ctx context.Context, s domain.Session, planID primitive.ObjectID) (*CheckoutResult, error)
	Renew(ctx context.Context, s domain.Session, membershipID primitive.ObjectID) (*domain.Membership, error)
	Cancel(ctx context.Context, s domain.Session, membershipID primitive.ObjectID) error
	List(ctx context.Context, s domain.Session, status domain.MembershipStatus) ([]domain.Membership, error)
	// ExpireDue moves active memberships that ended before now to expired.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type membershipService struct {
	planRepo       repository.MembershipPlanRepository
	membershipRepo repository.MembershipRepository
	paymentRepo    repository.PaymentRepository
	profileRepo    repository.ProfileRepository
	gymRepo        repository.GymRepository
	provider       checkout.Provider
	notifier       Notifier
	cache          cache.Cache
	log            *zap.SugaredLogger
}

func NewMembershipService(
	planRepo repository.MembershipPlanRepository,
	membershipRepo repository.MembershipRepository,
	paymentRepo repository.PaymentRepository,
	profileRepo repository.ProfileRepository,
	gymRepo repository.GymRepository,
	provider checkout.Provider,
	notifier Notifier,
	statsCache cache.Cache,
	log *zap.SugaredLogger,
) MembershipService {
	return &membershipService{
		planRepo:       planRepo,
		membershipRepo: membershipRepo,
		paymentRepo:    paymentRepo,
		profileRepo:    profileRepo,
		gymRepo:        gymRepo,
		provider:       provider,
		notifier:       notifier,
		cache:          statsCache,
		log:            log,
	}
}

// === Membership plans ===

func (s *membershipService) CreatePlan(ctx context.Context, sess domain.Session, in MembershipPlanInput) (*domain.MembershipPlan, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	plan := &domain.MembershipPlan{
		GymID:       sess.GymID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Duration:    in.Duration,
		Unit:        in.Unit,
		Features:    in.Features,
		IsActive:    in.IsActive,
	}
	id, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = id
	return plan, nil
}

func (s *membershipService) UpdatePlan(ctx context.Context, sess domain.Session, planID primitive.ObjectID, in MembershipPlanInput) (*domain.MembershipPlan, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	plan, err := s.getPlan(ctx, sess, planID)
	if err != nil {
		return nil, err
	}
	plan.Name = strings.TrimSpace(in.Name)
	plan.Description = in.Description
	plan.PriceCents = in.PriceCents
	plan.Duration = in.Duration
	plan.Unit = in.Unit
	plan.Features = in.Features
	plan.IsActive = in.IsActive
	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// DeletePlan removes a plan. Existing memberships keep their
// denormalized plan name and price.
func (s *membershipService) DeletePlan(ctx context.Context, sess domain.Session, planID primitive.ObjectID) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.planRepo.Delete(ctx, planID, sess.GymID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMembershipPlanNotFound
		}
		return err
	}
	return nil
}

func (s *membershipService) ListPlans(ctx context.Context, sess domain.Session) ([]domain.MembershipPlan, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.planRepo.ListByGym(ctx, sess.GymID, !sess.IsAdmin())
}

func (s *membershipService) getPlan(ctx context.Context, sess domain.Session, planID primitive.ObjectID) (*domain.MembershipPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipPlanNotFound
		}
		return nil, err
	}
	if plan.GymID != sess.GymID {
		return nil, ErrMembershipPlanNotFound
	}
	return plan, nil
}

// === Memberships ===

func (s *membershipService) EnrollMember(ctx context.Context, sess domain.Session, memberID, planID primitive.ObjectID, start time.Time) (*domain.Membership, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	member, err := s.profileRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member.GymID != sess.GymID || member.Role != domain.RoleMember {
		return nil, ErrNotAMember
	}
	plan, err := s.getPlan(ctx, sess, planID)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = nowUTC()
	}
	end, err := billing.ExpiryDate(start, plan.Duration, plan.Unit)
	if err != nil {
		return nil, err
	}

	m := &domain.Membership{
		GymID:      sess.GymID,
		MemberID:   member.ID,
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		PriceCents: plan.PriceCents,
		StartDate:  start,
		EndDate:    end,
		Status:     domain.MembershipActive,
	}
	if m.ID, err = s.membershipRepo.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := s.recordDeskPayment(ctx, sess, m, m.PriceCents, fmt.Sprintf("%s (desk)", plan.Name)); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, sess.GymID)
	return m, nil
}

func (s *membershipService) recordDeskPayment(ctx context.Context, sess domain.Session, m *domain.Membership, amount int64, description string) error {
	if amount == 0 {
		return nil
	}
	gym, err := s.gymRepo.GetByID(ctx, sess.GymID)
	if err != nil {
		return err
	}
	paidAt := nowUTC()
	_, err = s.paymentRepo.Create(ctx, &domain.Payment{
		GymID:       sess.GymID,
		UserID:      m.MemberID,
		Kind:        domain.PaymentMembership,
		ReferenceID: m.ID,
		Description: description,
		Quantity:    1,
		AmountCents: amount,
		Currency:    gym.Currency,
		Status:      domain.PaymentSucceeded,
		PaidAt:      &paidAt,
		AppliedAt:   &paidAt,
	})
	return err
}

func (s *membershipService) Purchase(ctx context.Context, sess domain.Session, planID primitive.ObjectID) (*CheckoutResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	plan, err := s.getPlan(ctx, sess, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrMembershipPlanInactive
	}
	gym, err := s.gymRepo.GetByID(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	// Term dates are set again when the payment is confirmed.
	start := nowUTC()
	end, err := billing.ExpiryDate(start, plan.Duration, plan.Unit)
	if err != nil {
		return nil, err
	}
	m := &domain.Membership{
		GymID:      sess.GymID,
		MemberID:   sess.UserID,
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		PriceCents: plan.PriceCents,
		StartDate:  start,
		EndDate:    end,
		Status:     domain.MembershipPending,
	}
	if m.ID, err = s.membershipRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		GymID:       sess.GymID,
		UserID:      sess.UserID,
		Kind:        domain.PaymentMembership,
		ReferenceID: m.ID,
		Description: plan.Name,
		Quantity:    1,
		AmountCents: plan.PriceCents,
		Currency:    gym.Currency,
	}
	return startCheckout(ctx, s.paymentRepo, s.provider, payment, gym.StripeAccountID, profile.Email)
}

// startCheckout stores a pending payment and opens a hosted checkout for it.
func startCheckout(ctx context.Context, payments repository.PaymentRepository, provider checkout.Provider, p *domain.Payment, account, email string) (*CheckoutResult, error) {
	id, err := payments.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id

	qty := int64(max(p.Quantity, 1))
	session, err := provider.CreateSession(ctx, checkout.Request{
		PaymentID:   id.Hex(),
		Description: p.Description,
		AmountCents: p.AmountCents / qty,
		Quantity:    qty,
		Currency:    p.Currency,
		Email:       email,
		Account:     account,
		Metadata:    map[string]string{"kind": string(p.Kind), "reference_id": p.ReferenceID.Hex()},
	})
	if err != nil {
		_ = payments.MarkFailed(ctx, id)
		return nil, err
	}
	if err := payments.SetCheckoutSession(ctx, id, session.ID); err != nil {
		return nil, err
	}
	return &CheckoutResult{
		PaymentID:   id,
		SessionID:   session.ID,
		RedirectURL: session.URL,
		AmountCents: p.AmountCents,
	}, nil
}

// Renew extends a membership by one plan duration from the later of now
// and its current end. An active membership keeps its start and adds the
// renewal fee to its price, so accrual spreads everything charged over
// the whole term.
func (s *membershipService) Renew(ctx context.Context, sess domain.Session, membershipID primitive.ObjectID) (*domain.Membership, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	m, err := s.get(ctx, sess, membershipID)
	if err != nil {
		return nil, err
	}
	if m.Status == domain.MembershipPending {
		return nil, ErrMembershipNotActive
	}
	plan, err := s.getPlan(ctx, sess, m.PlanID)
	if err != nil {
		return nil, err
	}

	from := nowUTC()
	if m.Status == domain.MembershipActive && m.EndDate.After(from) {
		from = m.EndDate
	}
	end, err := billing.ExpiryDate(from, plan.Duration, plan.Unit)
	if err != nil {
		return nil, err
	}
	start, price := m.StartDate, m.PriceCents+plan.PriceCents
	if m.Status != domain.MembershipActive {
		// A lapsed membership starts a new term
		start, price = from, plan.PriceCents
	}
	if err := s.membershipRepo.UpdateTerm(ctx, m.ID, start, end, price, domain.MembershipActive); err != nil {
		return nil, err
	}

	m.StartDate, m.EndDate, m.Status, m.PriceCents = start, end, domain.MembershipActive, price
	if err := s.recordDeskPayment(ctx, sess, m, plan.PriceCents, fmt.Sprintf("%s renewal", plan.Name)); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, sess.GymID)
	return m, nil
}

func (s *membershipService) Cancel(ctx context.Context, sess domain.Session, membershipID primitive.ObjectID) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	m, err := s.get(ctx, sess, membershipID)
	if err != nil {
		return err
	}
	if m.Status != domain.MembershipActive && m.Status != domain.MembershipPending {
		return ErrMembershipNotActive
	}
	if err := s.membershipRepo.UpdateStatus(ctx, m.ID, domain.MembershipCancelled); err != nil {
		return err
	}
	s.invalidateStats(ctx, sess.GymID)
	return nil
}

func (s *membershipService) get(ctx context.Context, sess domain.Session, id primitive.ObjectID) (*domain.Membership, error) {
	m, err := s.membershipRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}
	if !canSeeMember(sess, m.MemberID, m.GymID) {
		return nil, ErrMembershipNotFound
	}
	return m, nil
}

func (s *membershipService) List(ctx context.Context, sess domain.Session, status domain.MembershipStatus) ([]domain.Membership, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if sess.IsAdmin() {
		return s.membershipRepo.ListByGym(ctx, sess.GymID, status)
	}
	all, err := s.membershipRepo.ListByMember(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	filtered := all[:0]
	for _, m := range all {
		if m.Status == status {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (s *membershipService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.membershipRepo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	gyms := map[primitive.ObjectID]struct{}{}
	for _, m := range due {
		if err := s.membershipRepo.UpdateStatus(ctx, m.ID, domain.MembershipExpired); err != nil {
			s.log.Errorw("failed to expire membership", "membership", m.ID.Hex(), "error", err)
			continue
		}
		expired++
		gyms[m.GymID] = struct{}{}
		notifyQuietly(ctx, s.notifier, s.log, m.MemberID, m.GymID, domain.NotifyMembershipExpired,
			"Your membership has expired", fmt.Sprintf("%s ended on %s", m.PlanName, m.EndDate.Format("2006-01-02")))
	}
	for gymID := range gyms {
		s.invalidateStats(ctx, gymID)
	}
	metrics.AddMembershipsExpired(expired)
	return expired, nil
}

func (s *membershipService) invalidateStats(ctx context.Context, gymID primitive.ObjectID) {
	invalidateDashboard(ctx, s.cache, s.log, gymID)
}
