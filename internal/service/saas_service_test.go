package service

import (
	"context"
	"testing"
	"time"

	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/config"
	"gymdesk/platform/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func withNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowUTC
	nowUTC = func() time.Time { return now }
	t.Cleanup(func() { nowUTC = prev })
}

func TestTierCatalog(t *testing.T) {
	tiers := testTiers()
	assert.Len(t, tiers.List(), 3)
	assert.Equal(t, 100, tiers.Get(domain.TierStarter).MemberLimit)
	assert.Equal(t, 0, tiers.Get(domain.TierPro).MemberLimit)
	assert.Equal(t, domain.TierStarter, tiers.Get("unknown").Name)
}

func TestQuoteUpgradeProrates(t *testing.T) {
	gyms := &gymRepoMock{}
	svc := NewSaaSService(gyms, &paymentRepoMock{}, &providerMock{}, testTiers(), "usd", testLog)
	gym := &domain.Gym{
		ID:            primitive.NewObjectID(),
		Tier:          domain.TierStarter,
		TierStartedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	gyms.On("GetByID", mock.Anything, gym.ID).Return(gym, nil)
	withNow(t, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))

	q, err := svc.QuoteUpgrade(context.Background(), adminSession(gym.ID), domain.TierGrowth)
	require.NoError(t, err)
	assert.Equal(t, 10, q.DaysUsed)
	assert.EqualValues(t, 2000, q.CreditCents)
	assert.EqualValues(t, 4000, q.AmountDueCents)

	_, err = svc.QuoteUpgrade(context.Background(), adminSession(gym.ID), domain.TierStarter)
	assert.ErrorIs(t, err, ErrInvalidTierChange)
	_, err = svc.QuoteUpgrade(context.Background(), adminSession(gym.ID), "platinum")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.QuoteUpgrade(context.Background(), memberSession(gym.ID), domain.TierGrowth)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStartUpgradeOpensPlatformCheckout(t *testing.T) {
	gyms := &gymRepoMock{}
	payments := &paymentRepoMock{}
	provider := &providerMock{}
	svc := NewSaaSService(gyms, payments, provider, testTiers(), "usd", testLog)
	gym := &domain.Gym{ID: primitive.NewObjectID(), Tier: domain.TierGrowth, TierStartedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	paymentID := primitive.NewObjectID()
	withNow(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	gyms.On("GetByID", mock.Anything, gym.ID).Return(gym, nil)
	payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Kind == domain.PaymentSaaS && p.TargetTier == domain.TierPro && p.AmountCents == 6000
	})).Return(paymentID, nil)
	provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(r checkout.Request) bool {
		return r.Account == "" && r.AmountCents == 6000 && r.PaymentID == paymentID.Hex()
	})).Return(&checkout.Session{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil)
	payments.On("SetCheckoutSession", mock.Anything, paymentID, "cs_1").Return(nil)

	res, err := svc.StartUpgrade(context.Background(), adminSession(gym.ID), domain.TierPro)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", res.RedirectURL)
	gyms.AssertNotCalled(t, "SetTier", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStartUpgradeWithNothingDueSwitchesImmediately(t *testing.T) {
	gyms := &gymRepoMock{}
	payments := &paymentRepoMock{}
	provider := &providerMock{}
	// Growth costs the same as starter, so a fresh cycle leaves nothing due
	tiers := NewTierCatalog(config.SaaSConfig{StarterPriceCents: 3000, GrowthPriceCents: 3000, ProPriceCents: 9000})
	svc := NewSaaSService(gyms, payments, provider, tiers, "usd", testLog)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	withNow(t, now)
	gym := &domain.Gym{ID: primitive.NewObjectID(), Tier: domain.TierStarter, TierStartedAt: now}

	gyms.On("GetByID", mock.Anything, gym.ID).Return(gym, nil)
	gyms.On("SetTier", mock.Anything, gym.ID, domain.TierGrowth, now).Return(nil)
	payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Status == domain.PaymentSucceeded && p.AmountCents == 0
	})).Return(primitive.NewObjectID(), nil)

	res, err := svc.StartUpgrade(context.Background(), adminSession(gym.ID), domain.TierGrowth)
	require.NoError(t, err)
	assert.Empty(t, res.RedirectURL)
	gyms.AssertExpectations(t)
	provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}
