package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrGymNotFound  = errors.New("gym not found")
	ErrInvalidColor = errors.New("colors must be #rrggbb")
	ErrForeignKey   = errors.New("object key was not issued for this gym")
)

const gymCodeAttempts = 3

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type RegisterGymInput struct {
	OwnerName string
	Email     string
	Password  string
	GymName   string
	Currency  string
}

type BrandingInput struct {
	Name           string
	PrimaryColor   string
	SecondaryColor string
	LogoKey        string // From RequestLogoUpload; empty keeps the current logo
}

// PublicGym is what anyone holding a gym code may see.
type PublicGym struct {
	Name     string          `json:"name"`
	Code     string          `json:"code"`
	Branding domain.Branding `json:"branding"`
}

type GymService interface {
	// RegisterGym creates the owner's admin profile and the gym, and
	// returns a token scoped to the new gym.
	RegisterGym(ctx context.Context, in RegisterGymInput) (token string, gym *domain.Gym, err error)
	GetGym(ctx context.Context, s domain.Session) (*domain.Gym, error)
	GetPublic(ctx context.Context, code string) (*PublicGym, error)
	UpdateBranding(ctx context.Context, s domain.Session, in BrandingInput) (*domain.Gym, error)
	RequestLogoUpload(ctx context.Context, s domain.Session, contentType string) (*UploadTicket, error)
	SetPayoutAccount(ctx context.Context, s domain.Session, accountID string) error
	ListMembers(ctx context.Context, s domain.Session) ([]domain.Profile, error)
}

type gymService struct {
	gymRepo     repository.GymRepository
	profileRepo repository.ProfileRepository
	auth        AuthService
	storage     storage.FileStorage
	currency    string
	log         *zap.SugaredLogger
}

func NewGymService(gymRepo repository.GymRepository, profileRepo repository.ProfileRepository, auth AuthService, fileStorage storage.FileStorage, currency string, log *zap.SugaredLogger) GymService {
	return &gymService{
		gymRepo:     gymRepo,
		profileRepo: profileRepo,
		auth:        auth,
		storage:     fileStorage,
		currency:    currency,
		log:         log,
	}
}

func (s *gymService) RegisterGym(ctx context.Context, in RegisterGymInput) (string, *domain.Gym, error) {
	if strings.TrimSpace(in.GymName) == "" {
		return "", nil, fmt.Errorf("%w: gym name is required", ErrInvalidInput)
	}
	owner, err := s.auth.RegisterOwner(ctx, in.OwnerName, in.Email, in.Password)
	if err != nil {
		return "", nil, err
	}

	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = s.currency
	}
	now := nowUTC()
	gym := &domain.Gym{
		OwnerID:       owner.ID,
		Name:          strings.TrimSpace(in.GymName),
		Currency:      currency,
		Tier:          domain.TierStarter,
		TierStartedAt: now,
	}

	for attempt := 0; attempt < gymCodeAttempts; attempt++ {
		gym.Code = newGymCode()
		gym.ID, err = s.gymRepo.Create(ctx, gym)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return "", nil, err
	}

	if err := s.profileRepo.SetGym(ctx, owner.ID, gym.ID, domain.RoleAdmin); err != nil {
		return "", nil, err
	}
	owner.GymID = gym.ID

	token, err := s.auth.IssueToken(owner)
	if err != nil {
		return "", nil, err
	}
	s.log.Infow("gym registered", "gym", gym.ID.Hex(), "owner", owner.ID.Hex())
	return token, gym, nil
}

// newGymCode returns an 8 character join code.
func newGymCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *gymService) GetGym(ctx context.Context, sess domain.Session) (*domain.Gym, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.get(ctx, sess.GymID)
}

func (s *gymService) get(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	gym, err := s.gymRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return gym, nil
}

func (s *gymService) GetPublic(ctx context.Context, code string) (*PublicGym, error) {
	gym, err := s.gymRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}
	return &PublicGym{Name: gym.Name, Code: gym.Code, Branding: gym.Branding}, nil
}

func (s *gymService) UpdateBranding(ctx context.Context, sess domain.Session, in BrandingInput) (*domain.Gym, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	for _, c := range []string{in.PrimaryColor, in.SecondaryColor} {
		if c != "" && !hexColor.MatchString(c) {
			return nil, ErrInvalidColor
		}
	}
	gym, err := s.get(ctx, sess.GymID)
	if err != nil {
		return nil, err
	}

	branding := gym.Branding
	branding.PrimaryColor = in.PrimaryColor
	branding.SecondaryColor = in.SecondaryColor
	if in.LogoKey != "" && in.LogoKey != branding.LogoKey {
		if !storage.KeyBelongsTo(in.LogoKey, storage.PrefixLogos, gym.ID, gym.ID) {
			return nil, ErrForeignKey
		}
		branding.LogoKey = in.LogoKey
		branding.LogoURL = s.storage.PublicURL(in.LogoKey)
	}
	name := gym.Name
	if strings.TrimSpace(in.Name) != "" {
		name = strings.TrimSpace(in.Name)
	}

	if err := s.gymRepo.UpdateBranding(ctx, gym.ID, name, branding); err != nil {
		return nil, err
	}
	gym.Name = name
	gym.Branding = branding
	return gym, nil
}

func (s *gymService) RequestLogoUpload(ctx context.Context, sess domain.Session, contentType string) (*UploadTicket, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	// Logos are keyed by gym only
	return presignUpload(ctx, s.storage, storage.PrefixLogos, sess.GymID, sess.GymID, contentType)
}

func (s *gymService) SetPayoutAccount(ctx context.Context, sess domain.Session, accountID string) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	if !strings.HasPrefix(accountID, "acct_") {
		return fmt.Errorf("%w: account id must start with acct_", ErrInvalidInput)
	}
	return s.gymRepo.SetStripeAccount(ctx, sess.GymID, accountID)
}

func (s *gymService) ListMembers(ctx context.Context, sess domain.Session) ([]domain.Profile, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	members, err := s.profileRepo.ListByGym(ctx, sess.GymID, domain.RoleMember)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].PasswordHash = ""
	}
	return members, nil
}

// presignUpload issues an object key and a PUT URL for it.
func presignUpload(ctx context.Context, fs storage.FileStorage, prefix string, gymID, ownerID primitive.ObjectID, contentType string) (*UploadTicket, error) {
	key, err := storage.ObjectKey(prefix, gymID, ownerID, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	url, err := fs.GeneratePresignedUploadURL(ctx, key, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, err
	}
	return &UploadTicket{
		UploadURL: url,
		ObjectKey: key,
		ExpiresAt: time.Now().UTC().Add(storage.DefaultPresignedURLExpiry),
	}, nil
}
