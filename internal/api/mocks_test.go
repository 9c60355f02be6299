package api

import (
	"context"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type authMock struct{ mock.Mock }

func (m *authMock) Register(ctx context.Context, in service.RegisterInput) (string, *domain.Profile, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(1).(*domain.Profile)
	return args.String(0), p, args.Error(2)
}

func (m *authMock) RegisterOwner(ctx context.Context, name, email, password string) (*domain.Profile, error) {
	args := m.Called(ctx, name, email, password)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

func (m *authMock) Login(ctx context.Context, email, password string) (string, *domain.Profile, error) {
	args := m.Called(ctx, email, password)
	p, _ := args.Get(1).(*domain.Profile)
	return args.String(0), p, args.Error(2)
}

func (m *authMock) IssueToken(p *domain.Profile) (string, error) {
	args := m.Called(p)
	return args.String(0), args.Error(1)
}

func (m *authMock) ParseToken(token string) (domain.Session, error) {
	args := m.Called(token)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *authMock) Me(ctx context.Context, s domain.Session) (*domain.Profile, error) {
	args := m.Called(ctx, s)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

func (m *authMock) UpdateProfile(ctx context.Context, s domain.Session, in service.FitnessProfileInput) (*domain.Profile, error) {
	args := m.Called(ctx, s, in)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

type paymentMock struct{ mock.Mock }

func (m *paymentMock) ConfirmCheckout(ctx context.Context, s domain.Session, sessionID string, success bool) (*domain.Payment, error) {
	args := m.Called(ctx, s, sessionID, success)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

type storeMock struct{ mock.Mock }

func (m *storeMock) CreateProduct(ctx context.Context, s domain.Session, in service.ProductInput) (*service.ProductView, error) {
	args := m.Called(ctx, s, in)
	p, _ := args.Get(0).(*service.ProductView)
	return p, args.Error(1)
}

func (m *storeMock) UpdateProduct(ctx context.Context, s domain.Session, id primitive.ObjectID, in service.ProductInput) (*service.ProductView, error) {
	args := m.Called(ctx, s, id, in)
	p, _ := args.Get(0).(*service.ProductView)
	return p, args.Error(1)
}

func (m *storeMock) DeleteProduct(ctx context.Context, s domain.Session, id primitive.ObjectID) error {
	return m.Called(ctx, s, id).Error(0)
}

func (m *storeMock) ListProducts(ctx context.Context, s domain.Session) ([]service.ProductView, error) {
	args := m.Called(ctx, s)
	p, _ := args.Get(0).([]service.ProductView)
	return p, args.Error(1)
}

func (m *storeMock) RequestImageUpload(ctx context.Context, s domain.Session, contentType string) (*service.UploadTicket, error) {
	args := m.Called(ctx, s, contentType)
	t, _ := args.Get(0).(*service.UploadTicket)
	return t, args.Error(1)
}

func (m *storeMock) Purchase(ctx context.Context, s domain.Session, id primitive.ObjectID, quantity int) (*service.CheckoutResult, error) {
	args := m.Called(ctx, s, id, quantity)
	r, _ := args.Get(0).(*service.CheckoutResult)
	return r, args.Error(1)
}
