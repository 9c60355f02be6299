package service

import (
	"context"
	"testing"

	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type storeFixture struct {
	svc      StoreService
	products *productRepoMock
	payments *paymentRepoMock
	profiles *profileRepoMock
	provider *providerMock
	gym      *domain.Gym
}

func newStoreFixture() *storeFixture {
	f := &storeFixture{
		products: &productRepoMock{},
		payments: &paymentRepoMock{},
		profiles: &profileRepoMock{},
		provider: &providerMock{},
		gym:      &domain.Gym{ID: primitive.NewObjectID(), Currency: "eur", StripeAccountID: "acct_gym"},
	}
	gyms := &gymRepoMock{}
	gyms.On("GetByID", mock.Anything, f.gym.ID).Return(f.gym, nil)
	f.svc = NewStoreService(f.products, f.payments, gyms, f.profiles, f.provider, fakeStorage{}, testLog)
	return f
}

func TestCreateProductChecksImageKey(t *testing.T) {
	f := newStoreFixture()
	admin := adminSession(f.gym.ID)
	key, err := storage.ObjectKey(storage.PrefixProducts, f.gym.ID, f.gym.ID, "image/png")
	require.NoError(t, err)
	foreign, err := storage.ObjectKey(storage.PrefixProducts, primitive.NewObjectID(), primitive.NewObjectID(), "image/png")
	require.NoError(t, err)

	_, err = f.svc.CreateProduct(context.Background(), admin, ProductInput{Name: "Shaker", PriceCents: 900, ImageKey: foreign})
	assert.ErrorIs(t, err, ErrForeignKey)
	_, err = f.svc.CreateProduct(context.Background(), admin, ProductInput{Name: "Shaker", PriceCents: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.products.On("Create", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)
	view, err := f.svc.CreateProduct(context.Background(), admin, ProductInput{Name: "Shaker", PriceCents: 900, Stock: 5, ImageKey: key, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/"+key, view.ImageURL)
}

func TestListProductsByRole(t *testing.T) {
	f := newStoreFixture()
	f.products.On("ListByGym", mock.Anything, f.gym.ID, false).Return([]domain.Product{{Name: "a"}, {Name: "b"}}, nil)
	f.products.On("ListByGym", mock.Anything, f.gym.ID, true).Return([]domain.Product{{Name: "a"}}, nil)

	all, err := f.svc.ListProducts(context.Background(), adminSession(f.gym.ID))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	active, err := f.svc.ListProducts(context.Background(), memberSession(f.gym.ID))
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPurchaseProduct(t *testing.T) {
	f := newStoreFixture()
	sess := memberSession(f.gym.ID)
	product := &domain.Product{ID: primitive.NewObjectID(), GymID: f.gym.ID, Name: "Protein", PriceCents: 2500, Stock: 4, IsActive: true}
	paymentID := primitive.NewObjectID()
	f.products.On("GetByID", mock.Anything, product.ID).Return(product, nil)
	f.profiles.On("GetByID", mock.Anything, sess.UserID).Return(&domain.Profile{ID: sess.UserID, Email: "m@example.com"}, nil)
	f.payments.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Kind == domain.PaymentProduct && p.AmountCents == 7500 && p.Quantity == 3 && p.Currency == "eur"
	})).Return(paymentID, nil)
	f.provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(r checkout.Request) bool {
		return r.AmountCents == 2500 && r.Quantity == 3 && r.Account == "acct_gym"
	})).Return(&checkout.Session{ID: "cs_p", URL: "https://pay.test/cs_p"}, nil)
	f.payments.On("SetCheckoutSession", mock.Anything, paymentID, "cs_p").Return(nil)

	res, err := f.svc.Purchase(context.Background(), sess, product.ID, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 7500, res.AmountCents)

	_, err = f.svc.Purchase(context.Background(), sess, product.ID, 5)
	assert.ErrorIs(t, err, ErrOutOfStock)
	_, err = f.svc.Purchase(context.Background(), sess, product.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPurchaseHiddenProducts(t *testing.T) {
	f := newStoreFixture()
	sess := memberSession(f.gym.ID)
	inactive := &domain.Product{ID: primitive.NewObjectID(), GymID: f.gym.ID, Stock: 10}
	foreign := &domain.Product{ID: primitive.NewObjectID(), GymID: primitive.NewObjectID(), Stock: 10, IsActive: true}
	f.products.On("GetByID", mock.Anything, inactive.ID).Return(inactive, nil)
	f.products.On("GetByID", mock.Anything, foreign.ID).Return(foreign, nil)
	missing := primitive.NewObjectID()
	f.products.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrNotFound)

	_, err := f.svc.Purchase(context.Background(), sess, inactive.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)
	_, err = f.svc.Purchase(context.Background(), sess, foreign.ID, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = f.svc.Purchase(context.Background(), sess, missing, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
