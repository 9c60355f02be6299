package service

import (
	"context"
	"errors"
	"fmt"

	"gymdesk/platform/internal/billing"
	"gymdesk/platform/internal/cache"
	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotCompleted = errors.New("payment was not completed")
)

// PaymentService settles hosted checkouts when the browser returns from
// the provider.
type PaymentService interface {
	// ConfirmCheckout checks the session with the provider and applies
	// the payment's effect. Confirming a payment whose effect already
	// landed returns it unchanged; a paid payment whose effect failed is
	// applied again.
	ConfirmCheckout(ctx context.Context, s domain.Session, sessionID string, success bool) (*domain.Payment, error)
}

type paymentService struct {
	paymentRepo    repository.PaymentRepository
	membershipRepo repository.MembershipRepository
	planRepo       repository.MembershipPlanRepository
	productRepo    repository.ProductRepository
	gymRepo        repository.GymRepository
	provider       checkout.Provider
	notifier       Notifier
	cache          cache.Cache
	log            *zap.SugaredLogger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	membershipRepo repository.MembershipRepository,
	planRepo repository.MembershipPlanRepository,
	productRepo repository.ProductRepository,
	gymRepo repository.GymRepository,
	provider checkout.Provider,
	notifier Notifier,
	statsCache cache.Cache,
	log *zap.SugaredLogger,
) PaymentService {
	return &paymentService{
		paymentRepo:    paymentRepo,
		membershipRepo: membershipRepo,
		planRepo:       planRepo,
		productRepo:    productRepo,
		gymRepo:        gymRepo,
		provider:       provider,
		notifier:       notifier,
		cache:          statsCache,
		log:            log,
	}
}

func (s *paymentService) ConfirmCheckout(ctx context.Context, sess domain.Session, sessionID string, success bool) (*domain.Payment, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	payment, err := s.paymentRepo.GetByCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != sess.UserID && !(sess.IsAdmin() && sess.GymID == payment.GymID) {
		return nil, ErrPaymentNotFound
	}
	if payment.Status == domain.PaymentFailed {
		return payment, ErrPaymentNotCompleted
	}
	if payment.Status == domain.PaymentSucceeded && payment.AppliedAt != nil {
		return payment, nil
	}

	gym, err := s.gymRepo.GetByID(ctx, payment.GymID)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.PaymentSucceeded {
		// Paid earlier, but the effect did not land
		return s.settle(ctx, gym, payment)
	}
	account := gym.StripeAccountID
	if payment.Kind == domain.PaymentSaaS {
		// Platform fees go to the platform account
		account = ""
	}

	status, err := s.provider.SessionStatus(ctx, sessionID, account)
	if err != nil {
		return nil, err
	}
	if !status.Paid {
		if !success || !status.Open {
			if err := s.paymentRepo.MarkFailed(ctx, payment.ID); err != nil {
				return nil, err
			}
			payment.Status = domain.PaymentFailed
		}
		return payment, ErrPaymentNotCompleted
	}

	paidAt := nowUTC()
	if err := s.paymentRepo.MarkPaid(ctx, payment.ID, paidAt); err != nil {
		if errors.Is(err, repository.ErrUpdateFailed) {
			// A concurrent confirmation settled it first
			return s.paymentRepo.GetByID(ctx, payment.ID)
		}
		return nil, err
	}
	payment.Status = domain.PaymentSucceeded
	payment.PaidAt = &paidAt
	return s.settle(ctx, gym, payment)
}

// settle applies a paid payment's effect and records it. On failure the
// payment stays unapplied so the next confirmation retries.
func (s *paymentService) settle(ctx context.Context, gym *domain.Gym, payment *domain.Payment) (*domain.Payment, error) {
	if err := s.apply(ctx, payment); err != nil {
		s.log.Errorw("payment settled but its effect failed",
			"payment", payment.ID.Hex(), "kind", payment.Kind, "error", err)
		return payment, err
	}
	appliedAt := nowUTC()
	if err := s.paymentRepo.MarkApplied(ctx, payment.ID, appliedAt); err != nil {
		if errors.Is(err, repository.ErrUpdateFailed) {
			return s.paymentRepo.GetByID(ctx, payment.ID)
		}
		return nil, err
	}
	payment.AppliedAt = &appliedAt

	invalidateDashboard(ctx, s.cache, s.log, payment.GymID)
	amount := fmt.Sprintf("%s %.2f", payment.Currency, float64(payment.AmountCents)/100)
	notifyQuietly(ctx, s.notifier, s.log, payment.UserID, payment.GymID, domain.NotifyPaymentReceived,
		"Payment confirmed", fmt.Sprintf("%s (%s)", payment.Description, amount))
	if gym.OwnerID != payment.UserID {
		notifyQuietly(ctx, s.notifier, s.log, gym.OwnerID, gym.ID, domain.NotifyPaymentReceived,
			"Payment received", fmt.Sprintf("%s (%s)", payment.Description, amount))
	}
	return payment, nil
}

func (s *paymentService) apply(ctx context.Context, p *domain.Payment) error {
	switch p.Kind {
	case domain.PaymentMembership:
		m, err := s.membershipRepo.GetByID(ctx, p.ReferenceID)
		if err != nil {
			return err
		}
		plan, err := s.planRepo.GetByID(ctx, m.PlanID)
		if err != nil {
			return err
		}
		start := *p.PaidAt
		end, err := billing.ExpiryDate(start, plan.Duration, plan.Unit)
		if err != nil {
			return err
		}
		return s.membershipRepo.UpdateTerm(ctx, m.ID, start, end, p.AmountCents, domain.MembershipActive)
	case domain.PaymentProduct:
		return s.productRepo.DecrementStock(ctx, p.ReferenceID, p.Quantity)
	case domain.PaymentSaaS:
		return s.gymRepo.SetTier(ctx, p.GymID, p.TargetTier, *p.PaidAt)
	default:
		return fmt.Errorf("unknown payment kind %q", p.Kind)
	}
}
