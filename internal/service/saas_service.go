package service

import (
	"context"
	"errors"
	"fmt"

	"gymdesk/platform/internal/billing"
	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/config"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.uber.org/zap"
)

var ErrInvalidTierChange = errors.New("target tier must be above the current tier")

// Tier is one platform subscription level.
type Tier struct {
	Name        domain.SaaSTier `json:"name"`
	PriceCents  int64           `json:"priceCents"`  // Per 30-day cycle
	MemberLimit int             `json:"memberLimit"` // 0 means unlimited
}

// TierCatalog lists the tiers from cheapest to most expensive.
type TierCatalog struct {
	tiers []Tier
}

func NewTierCatalog(cfg config.SaaSConfig) TierCatalog {
	return TierCatalog{tiers: []Tier{
		{Name: domain.TierStarter, PriceCents: cfg.StarterPriceCents, MemberLimit: 100},
		{Name: domain.TierGrowth, PriceCents: cfg.GrowthPriceCents, MemberLimit: 500},
		{Name: domain.TierPro, PriceCents: cfg.ProPriceCents},
	}}
}

func (c TierCatalog) List() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Get returns the tier, or the first tier for an unknown name.
func (c TierCatalog) Get(name domain.SaaSTier) Tier {
	if i := c.rank(name); i >= 0 {
		return c.tiers[i]
	}
	if len(c.tiers) == 0 {
		return Tier{}
	}
	return c.tiers[0]
}

func (c TierCatalog) rank(name domain.SaaSTier) int {
	for i, t := range c.tiers {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// UpgradeQuote is what moving to a higher tier costs today.
type UpgradeQuote struct {
	CurrentTier    domain.SaaSTier `json:"currentTier"`
	TargetTier     domain.SaaSTier `json:"targetTier"`
	DaysUsed       int             `json:"daysUsed"`
	CreditCents    int64           `json:"creditCents"`
	AmountDueCents int64           `json:"amountDueCents"`
}

type SaaSService interface {
	ListTiers() []Tier
	QuoteUpgrade(ctx context.Context, s domain.Session, target domain.SaaSTier) (*UpgradeQuote, error)
	// StartUpgrade opens a checkout for the prorated amount. When nothing
	// is due the tier switches immediately and no redirect is returned.
	StartUpgrade(ctx context.Context, s domain.Session, target domain.SaaSTier) (*CheckoutResult, error)
}

type saasService struct {
	gymRepo     repository.GymRepository
	paymentRepo repository.PaymentRepository
	provider    checkout.Provider
	tiers       TierCatalog
	currency    string
	log         *zap.SugaredLogger
}

func NewSaaSService(gymRepo repository.GymRepository, paymentRepo repository.PaymentRepository, provider checkout.Provider, tiers TierCatalog, currency string, log *zap.SugaredLogger) SaaSService {
	return &saasService{
		gymRepo:     gymRepo,
		paymentRepo: paymentRepo,
		provider:    provider,
		tiers:       tiers,
		currency:    currency,
		log:         log,
	}
}

func (s *saasService) ListTiers() []Tier {
	return s.tiers.List()
}

func (s *saasService) QuoteUpgrade(ctx context.Context, sess domain.Session, target domain.SaaSTier) (*UpgradeQuote, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	gym, err := s.gymRepo.GetByID(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}
	return s.quote(gym, target)
}

func (s *saasService) quote(gym *domain.Gym, target domain.SaaSTier) (*UpgradeQuote, error) {
	current := s.tiers.Get(gym.Tier)
	targetRank := s.tiers.rank(target)
	if targetRank < 0 {
		return nil, fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, target)
	}
	if targetRank <= s.tiers.rank(current.Name) {
		return nil, ErrInvalidTierChange
	}
	next := s.tiers.tiers[targetRank]

	daysUsed := billing.DaysUsedInCycle(gym.TierStartedAt, nowUTC())
	return &UpgradeQuote{
		CurrentTier:    current.Name,
		TargetTier:     next.Name,
		DaysUsed:       daysUsed,
		CreditCents:    billing.ProrationCredit(current.PriceCents, daysUsed),
		AmountDueCents: billing.UpgradeAmount(current.PriceCents, next.PriceCents, daysUsed),
	}, nil
}

func (s *saasService) StartUpgrade(ctx context.Context, sess domain.Session, target domain.SaaSTier) (*CheckoutResult, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	gym, err := s.gymRepo.GetByID(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}
	q, err := s.quote(gym, target)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	payment := &domain.Payment{
		GymID:       gym.ID,
		UserID:      sess.UserID,
		Kind:        domain.PaymentSaaS,
		ReferenceID: gym.ID,
		Description: fmt.Sprintf("Upgrade to %s", q.TargetTier),
		Quantity:    1,
		AmountCents: q.AmountDueCents,
		Currency:    s.currency,
		TargetTier:  q.TargetTier,
	}

	if q.AmountDueCents == 0 {
		payment.Status = domain.PaymentSucceeded
		payment.PaidAt = &now
		if payment.ID, err = s.paymentRepo.Create(ctx, payment); err != nil {
			return nil, err
		}
		if err := s.gymRepo.SetTier(ctx, gym.ID, q.TargetTier, now); err != nil {
			return nil, err
		}
		s.log.Infow("gym tier upgraded without charge", "gym", gym.ID.Hex(), "tier", q.TargetTier)
		return &CheckoutResult{PaymentID: payment.ID}, nil
	}

	if payment.ID, err = s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}
	session, err := s.provider.CreateSession(ctx, checkout.Request{
		PaymentID:   payment.ID.Hex(),
		Description: payment.Description,
		AmountCents: q.AmountDueCents,
		Quantity:    1,
		Currency:    s.currency,
		Metadata:    map[string]string{"kind": string(domain.PaymentSaaS), "gym_id": gym.ID.Hex()},
	})
	if err != nil {
		_ = s.paymentRepo.MarkFailed(ctx, payment.ID)
		return nil, err
	}
	if err := s.paymentRepo.SetCheckoutSession(ctx, payment.ID, session.ID); err != nil {
		return nil, err
	}
	return &CheckoutResult{
		PaymentID:   payment.ID,
		SessionID:   session.ID,
		RedirectURL: session.URL,
		AmountCents: q.AmountDueCents,
	}, nil
}
