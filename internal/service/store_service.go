package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrOutOfStock         = errors.New("not enough stock")
)

const maxPurchaseQuantity = 20

type ProductInput struct {
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Stock       int
	ImageKey    string
	IsActive    bool
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.PriceCents <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if in.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return nil
}

// ProductView adds a displayable image URL.
type ProductView struct {
	domain.Product
	ImageURL string `json:"imageUrl,omitempty"`
}

type StoreService interface {
	CreateProduct(ctx context.Context, s domain.Session, in ProductInput) (*ProductView, error)
	UpdateProduct(ctx context.Context, s domain.Session, id primitive.ObjectID, in ProductInput) (*ProductView, error)
	DeleteProduct(ctx context.Context, s domain.Session, id primitive.ObjectID) error
	// ListProducts returns every product to admins and active ones to members.
	ListProducts(ctx context.Context, s domain.Session) ([]ProductView, error)
	RequestImageUpload(ctx context.Context, s domain.Session, contentType string) (*UploadTicket, error)
	// Purchase opens a checkout; stock is taken when the payment is confirmed.
	Purchase(ctx context.Context, s domain.Session, id primitive.ObjectID, quantity int) (*CheckoutResult, error)
}

type storeService struct {
	productRepo repository.ProductRepository
	paymentRepo repository.PaymentRepository
	gymRepo     repository.GymRepository
	profileRepo repository.ProfileRepository
	provider    checkout.Provider
	storage     storage.FileStorage
	log         *zap.SugaredLogger
}

func NewStoreService(
	productRepo repository.ProductRepository,
	paymentRepo repository.PaymentRepository,
	gymRepo repository.GymRepository,
	profileRepo repository.ProfileRepository,
	provider checkout.Provider,
	fileStorage storage.FileStorage,
	log *zap.SugaredLogger,
) StoreService {
	return &storeService{
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		gymRepo:     gymRepo,
		profileRepo: profileRepo,
		provider:    provider,
		storage:     fileStorage,
		log:         log,
	}
}

func (s *storeService) view(p domain.Product) ProductView {
	return ProductView{Product: p, ImageURL: s.storage.PublicURL(p.ImageKey)}
}

func (s *storeService) checkImageKey(sess domain.Session, key string) error {
	if key != "" && !storage.KeyBelongsTo(key, storage.PrefixProducts, sess.GymID, sess.GymID) {
		return ErrForeignKey
	}
	return nil
}

func (s *storeService) CreateProduct(ctx context.Context, sess domain.Session, in ProductInput) (*ProductView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkImageKey(sess, in.ImageKey); err != nil {
		return nil, err
	}
	p := &domain.Product{
		GymID:       sess.GymID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		ImageKey:    in.ImageKey,
		IsActive:    in.IsActive,
	}
	id, err := s.productRepo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	p.ID = id
	v := s.view(*p)
	return &v, nil
}

func (s *storeService) UpdateProduct(ctx context.Context, sess domain.Session, id primitive.ObjectID, in ProductInput) (*ProductView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkImageKey(sess, in.ImageKey); err != nil {
		return nil, err
	}
	p, err := s.get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = in.Category
	p.PriceCents = in.PriceCents
	p.Stock = in.Stock
	p.ImageKey = in.ImageKey
	p.IsActive = in.IsActive
	if err := s.productRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	v := s.view(*p)
	return &v, nil
}

func (s *storeService) DeleteProduct(ctx context.Context, sess domain.Session, id primitive.ObjectID) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id, sess.GymID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

func (s *storeService) ListProducts(ctx context.Context, sess domain.Session) ([]ProductView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	products, err := s.productRepo.ListByGym(ctx, sess.GymID, !sess.IsAdmin())
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.view(p))
	}
	return views, nil
}

func (s *storeService) RequestImageUpload(ctx context.Context, sess domain.Session, contentType string) (*UploadTicket, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	return presignUpload(ctx, s.storage, storage.PrefixProducts, sess.GymID, sess.GymID, contentType)
}

func (s *storeService) Purchase(ctx context.Context, sess domain.Session, id primitive.ObjectID, quantity int) (*CheckoutResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if quantity <= 0 || quantity > maxPurchaseQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, maxPurchaseQuantity)
	}
	p, err := s.get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrProductUnavailable
	}
	// Checked again atomically on confirmation
	if p.Stock < quantity {
		return nil, ErrOutOfStock
	}
	gym, err := s.gymRepo.GetByID(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		GymID:       sess.GymID,
		UserID:      sess.UserID,
		Kind:        domain.PaymentProduct,
		ReferenceID: p.ID,
		Description: p.Name,
		Quantity:    quantity,
		AmountCents: p.PriceCents * int64(quantity),
		Currency:    gym.Currency,
	}
	return startCheckout(ctx, s.paymentRepo, s.provider, payment, gym.StripeAccountID, profile.Email)
}

func (s *storeService) get(ctx context.Context, sess domain.Session, id primitive.ObjectID) (*domain.Product, error) {
	p, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.GymID != sess.GymID {
		return nil, ErrProductNotFound
	}
	return p, nil
}
