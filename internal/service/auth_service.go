package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists    = errors.New("user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed: invalid email or password")
	ErrHashingFailed        = errors.New("failed to hash password")
	ErrTokenGeneration      = errors.New("failed to generate authentication token")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrGymCodeNotFound      = errors.New("no gym with this code")
	ErrMemberLimitReached   = errors.New("gym has reached the member limit of its plan")
)

const minPasswordLength = 8

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	GymCode  string
}

// FitnessProfileInput updates the fields plan prompts are built from.
type FitnessProfileInput struct {
	Name              string
	Phone             string
	FitnessGoal       string
	FitnessLevel      string
	DaysPerWeek       int
	Equipment         []string
	DietaryPreference string
	Allergies         []string
}

type AuthService interface {
	// Register creates a member of the gym identified by GymCode.
	Register(ctx context.Context, in RegisterInput) (token string, profile *domain.Profile, err error)
	// RegisterOwner creates an admin profile not yet attached to a gym.
	RegisterOwner(ctx context.Context, name, email, password string) (*domain.Profile, error)
	Login(ctx context.Context, email, password string) (token string, profile *domain.Profile, err error)
	IssueToken(p *domain.Profile) (string, error)
	ParseToken(token string) (domain.Session, error)
	Me(ctx context.Context, s domain.Session) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, s domain.Session, in FitnessProfileInput) (*domain.Profile, error)
}

// authService implements the AuthService interface.
type authService struct {
	profileRepo   repository.ProfileRepository
	gymRepo       repository.GymRepository
	tiers         TierCatalog
	jwtSecret     string
	jwtExpiration time.Duration
}

// NewAuthService creates a new instance of authService.
func NewAuthService(profileRepo repository.ProfileRepository, gymRepo repository.GymRepository, tiers TierCatalog, jwtSecret string, jwtExpiration time.Duration) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	if jwtExpiration <= 0 {
		jwtExpiration = time.Hour
	}
	return &authService{
		profileRepo:   profileRepo,
		gymRepo:       gymRepo,
		tiers:         tiers,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (string, *domain.Profile, error) {
	if strings.TrimSpace(in.GymCode) == "" {
		return "", nil, fmt.Errorf("%w: gym code is required", ErrInvalidInput)
	}
	gym, err := s.gymRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(in.GymCode)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrGymCodeNotFound
		}
		return "", nil, err
	}

	if limit := s.tiers.Get(gym.Tier).MemberLimit; limit > 0 {
		members, err := s.profileRepo.ListByGym(ctx, gym.ID, domain.RoleMember)
		if err != nil {
			return "", nil, err
		}
		if len(members) >= limit {
			return "", nil, ErrMemberLimitReached
		}
	}

	profile, err := s.create(ctx, in.Name, in.Email, in.Password, domain.RoleMember, gym.ID)
	if err != nil {
		return "", nil, err
	}
	token, err := s.IssueToken(profile)
	if err != nil {
		return "", nil, err
	}
	return token, profile, nil
}

func (s *authService) RegisterOwner(ctx context.Context, name, email, password string) (*domain.Profile, error) {
	return s.create(ctx, name, email, password, domain.RoleAdmin, primitive.NilObjectID)
}

func (s *authService) create(ctx context.Context, name, email, password string, role domain.Role, gymID primitive.ObjectID) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password cannot be empty", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	_, err := s.profileRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrHashingFailed
	}

	profile := &domain.Profile{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		GymID:        gymID,
	}
	id, err := s.profileRepo.Create(ctx, profile)
	if err != nil {
		// Unique index catches a concurrent registration with the same email
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}
	profile.ID = id
	profile.PasswordHash = ""
	return profile, nil
}

// Login handles user authentication and JWT generation.
func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.Profile, error) {
	if email == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password cannot be empty", ErrInvalidInput)
	}

	profile, err := s.profileRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrAuthenticationFailed
		}
		return "", nil, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrAuthenticationFailed
	}

	token, err := s.IssueToken(profile)
	if err != nil {
		return "", nil, err
	}
	profile.PasswordHash = ""
	return token, profile, nil
}

func (s *authService) Me(ctx context.Context, sess domain.Session) (*domain.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	profile.PasswordHash = ""
	return profile, nil
}

func (s *authService) UpdateProfile(ctx context.Context, sess domain.Session, in FitnessProfileInput) (*domain.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if in.DaysPerWeek < 0 || in.DaysPerWeek > 7 {
		return nil, fmt.Errorf("%w: daysPerWeek must be between 0 and 7", ErrInvalidInput)
	}
	profile, err := s.profileRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		profile.Name = in.Name
	}
	profile.Phone = in.Phone
	profile.FitnessGoal = in.FitnessGoal
	profile.FitnessLevel = in.FitnessLevel
	profile.DaysPerWeek = in.DaysPerWeek
	profile.Equipment = in.Equipment
	profile.DietaryPreference = in.DietaryPreference
	profile.Allergies = in.Allergies

	if err := s.profileRepo.UpdateFitness(ctx, profile); err != nil {
		return nil, err
	}
	profile.PasswordHash = ""
	return profile, nil
}

// --- JWT Helper ---

// jwtClaims defines the structure of the JWT payload.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	GymID  string      `json:"gid,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken creates a signed JWT for the profile.
func (s *authService) IssueToken(p *domain.Profile) (string, error) {
	now := time.Now()
	claims := &jwtClaims{
		UserID: p.ID.Hex(),
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "gymdesk",
		},
	}
	if p.GymID != primitive.NilObjectID {
		claims.GymID = p.GymID.Hex()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}

// ParseToken verifies a token and turns its claims into a Session.
func (s *authService) ParseToken(tokenString string) (domain.Session, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return domain.Session{}, ErrInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return domain.Session{}, ErrInvalidToken
	}
	sess := domain.Session{UserID: userID, Role: claims.Role}
	if claims.GymID != "" {
		if sess.GymID, err = primitive.ObjectIDFromHex(claims.GymID); err != nil {
			return domain.Session{}, ErrInvalidToken
		}
	}
	return sess, nil
}
