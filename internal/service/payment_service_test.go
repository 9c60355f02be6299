package service

import (
	"context"
	"testing"
	"time"

	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type paymentFixture struct {
	svc         PaymentService
	payments    *paymentRepoMock
	memberships *membershipRepoMock
	plans       *membershipPlanRepoMock
	products    *productRepoMock
	gyms        *gymRepoMock
	provider    *providerMock
	notifier    *notifierMock
	cache       *memCache
	gym         *domain.Gym
	payer       domain.Session
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := &paymentFixture{
		payments:    &paymentRepoMock{},
		memberships: &membershipRepoMock{},
		plans:       &membershipPlanRepoMock{},
		products:    &productRepoMock{},
		gyms:        &gymRepoMock{},
		provider:    &providerMock{},
		notifier:    &notifierMock{},
		cache:       newMemCache(),
	}
	f.gym = &domain.Gym{ID: primitive.NewObjectID(), OwnerID: primitive.NewObjectID(), StripeAccountID: "acct_gym"}
	f.payer = memberSession(f.gym.ID)
	f.gyms.On("GetByID", mock.Anything, f.gym.ID).Return(f.gym, nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, f.gym.ID, domain.NotifyPaymentReceived, mock.Anything, mock.Anything).Return(nil)
	f.payments.On("MarkApplied", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.svc = NewPaymentService(f.payments, f.memberships, f.plans, f.products, f.gyms, f.provider, f.notifier, f.cache, testLog)
	withNow(t, time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC))
	return f
}

func (f *paymentFixture) pending(kind domain.PaymentKind, ref primitive.ObjectID) *domain.Payment {
	p := &domain.Payment{
		ID:                primitive.NewObjectID(),
		GymID:             f.gym.ID,
		UserID:            f.payer.UserID,
		Kind:              kind,
		ReferenceID:       ref,
		Quantity:          1,
		AmountCents:       4500,
		Currency:          "usd",
		Status:            domain.PaymentPending,
		CheckoutSessionID: "cs_" + string(kind),
	}
	f.payments.On("GetByCheckoutSession", mock.Anything, p.CheckoutSessionID).Return(p, nil)
	return p
}

func TestConfirmMembershipPaymentActivatesTerm(t *testing.T) {
	f := newPaymentFixture(t)
	plan := &domain.MembershipPlan{ID: primitive.NewObjectID(), Duration: 1, Unit: domain.UnitMonth}
	m := &domain.Membership{ID: primitive.NewObjectID(), PlanID: plan.ID, Status: domain.MembershipPending}
	p := f.pending(domain.PaymentMembership, m.ID)
	now := nowUTC()

	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: true}, nil)
	f.payments.On("MarkPaid", mock.Anything, p.ID, now).Return(nil)
	f.memberships.On("GetByID", mock.Anything, m.ID).Return(m, nil)
	f.plans.On("GetByID", mock.Anything, plan.ID).Return(plan, nil)
	f.memberships.On("UpdateTerm", mock.Anything, m.ID, now, now.AddDate(0, 1, 0), int64(4500), domain.MembershipActive).Return(nil)
	f.cache.entries[dashboardCacheKey(f.gym.ID)] = repository.DashboardStats{}

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, got.Status)
	f.memberships.AssertExpectations(t)
	assert.Empty(t, f.cache.entries)
	// Payer and gym owner
	f.notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.pending(domain.PaymentProduct, primitive.NewObjectID())
	paidAt := nowUTC().Add(-time.Minute)
	p.Status = domain.PaymentSucceeded
	p.PaidAt = &paidAt
	p.AppliedAt = &paidAt

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, got.Status)
	f.provider.AssertNotCalled(t, "SessionStatus", mock.Anything, mock.Anything, mock.Anything)
	f.products.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmCancelledCheckoutFailsPayment(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.pending(domain.PaymentProduct, primitive.NewObjectID())
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: false, Open: true}, nil)
	f.payments.On("MarkFailed", mock.Anything, p.ID).Return(nil)

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, false)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, domain.PaymentFailed, got.Status)
}

func TestConfirmStillOpenCheckoutStaysPending(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.pending(domain.PaymentProduct, primitive.NewObjectID())
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: false, Open: true}, nil)

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	assert.Equal(t, domain.PaymentPending, got.Status)
	f.payments.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestConfirmProductTakesStock(t *testing.T) {
	f := newPaymentFixture(t)
	productID := primitive.NewObjectID()
	p := f.pending(domain.PaymentProduct, productID)
	p.Quantity = 3
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: true}, nil)
	f.payments.On("MarkPaid", mock.Anything, p.ID, mock.Anything).Return(nil)
	f.products.On("DecrementStock", mock.Anything, productID, 3).Return(nil)

	_, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	f.products.AssertExpectations(t)
}

func TestConfirmRetriesEffectThatFailed(t *testing.T) {
	f := newPaymentFixture(t)
	productID := primitive.NewObjectID()
	p := f.pending(domain.PaymentProduct, productID)
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: true}, nil).Once()
	f.payments.On("MarkPaid", mock.Anything, p.ID, mock.Anything).Return(nil).Once()
	f.products.On("DecrementStock", mock.Anything, productID, 1).Return(repository.ErrOutOfStock).Once()

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	assert.ErrorIs(t, err, repository.ErrOutOfStock)
	assert.Equal(t, domain.PaymentSucceeded, got.Status)
	assert.Nil(t, got.AppliedAt)
	f.payments.AssertNotCalled(t, "MarkApplied", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Stock came back; the paid payment is applied without asking the provider again
	f.products.On("DecrementStock", mock.Anything, productID, 1).Return(nil).Once()
	got, err = f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	require.NotNil(t, got.AppliedAt)
	f.products.AssertNumberOfCalls(t, "DecrementStock", 2)
	f.provider.AssertNumberOfCalls(t, "SessionStatus", 1)
	f.payments.AssertNumberOfCalls(t, "MarkPaid", 1)
	f.payments.AssertNumberOfCalls(t, "MarkApplied", 1)

	// Applied now, so a third confirmation changes nothing
	_, err = f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	f.products.AssertNumberOfCalls(t, "DecrementStock", 2)
}

func TestConfirmSaaSUsesPlatformAccount(t *testing.T) {
	f := newPaymentFixture(t)
	owner := domain.Session{UserID: f.gym.OwnerID, GymID: f.gym.ID, Role: domain.RoleAdmin}
	f.payer = owner
	p := f.pending(domain.PaymentSaaS, f.gym.ID)
	p.TargetTier = domain.TierPro
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "").Return(&checkout.Status{Paid: true}, nil)
	f.payments.On("MarkPaid", mock.Anything, p.ID, mock.Anything).Return(nil)
	f.gyms.On("SetTier", mock.Anything, f.gym.ID, domain.TierPro, nowUTC()).Return(nil)

	_, err := f.svc.ConfirmCheckout(context.Background(), owner, p.CheckoutSessionID, true)
	require.NoError(t, err)
	f.gyms.AssertExpectations(t)
	// Owner paid, so only one notification
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestConfirmRaceReturnsSettledPayment(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.pending(domain.PaymentProduct, primitive.NewObjectID())
	settled := *p
	settled.Status = domain.PaymentSucceeded
	f.provider.On("SessionStatus", mock.Anything, p.CheckoutSessionID, "acct_gym").Return(&checkout.Status{Paid: true}, nil)
	f.payments.On("MarkPaid", mock.Anything, p.ID, mock.Anything).Return(repository.ErrUpdateFailed)
	f.payments.On("GetByID", mock.Anything, p.ID).Return(&settled, nil)

	got, err := f.svc.ConfirmCheckout(context.Background(), f.payer, p.CheckoutSessionID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSucceeded, got.Status)
	f.products.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmHidesOtherUsersPayments(t *testing.T) {
	f := newPaymentFixture(t)
	p := f.pending(domain.PaymentProduct, primitive.NewObjectID())

	_, err := f.svc.ConfirmCheckout(context.Background(), memberSession(f.gym.ID), p.CheckoutSessionID, true)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	f.payments.On("GetByCheckoutSession", mock.Anything, "cs_missing").Return(nil, repository.ErrNotFound)
	_, err = f.svc.ConfirmCheckout(context.Background(), f.payer, "cs_missing", true)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
