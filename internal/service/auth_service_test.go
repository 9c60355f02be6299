package service

import (
	"context"
	"testing"
	"time"

	"gymdesk/platform/internal/config"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func testTiers() TierCatalog {
	return NewTierCatalog(config.SaaSConfig{StarterPriceCents: 3000, GrowthPriceCents: 6000, ProPriceCents: 12000})
}

func newAuthFixture() (AuthService, *profileRepoMock, *gymRepoMock) {
	profiles := &profileRepoMock{}
	gyms := &gymRepoMock{}
	return NewAuthService(profiles, gyms, testTiers(), "test-secret", time.Hour), profiles, gyms
}

func TestRegisterMemberIssuesToken(t *testing.T) {
	svc, profiles, gyms := newAuthFixture()
	gym := &domain.Gym{ID: primitive.NewObjectID(), Code: "ABCD1234", Tier: domain.TierStarter}
	newID := primitive.NewObjectID()

	gyms.On("GetByCode", mock.Anything, "ABCD1234").Return(gym, nil)
	profiles.On("ListByGym", mock.Anything, gym.ID, domain.RoleMember).Return([]domain.Profile{}, nil)
	profiles.On("GetByEmail", mock.Anything, "dana@example.com").Return(nil, repository.ErrNotFound)
	profiles.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.Role == domain.RoleMember && p.GymID == gym.ID && bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("s3cretpass")) == nil
	})).Return(newID, nil)

	token, profile, err := svc.Register(context.Background(), RegisterInput{
		Name: "Dana", Email: " Dana@Example.com ", Password: "s3cretpass", GymCode: "abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, newID, profile.ID)
	assert.Empty(t, profile.PasswordHash)

	sess, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Session{UserID: newID, GymID: gym.ID, Role: domain.RoleMember}, sess)
	profiles.AssertExpectations(t)
}

func TestRegisterRejections(t *testing.T) {
	svc, profiles, gyms := newAuthFixture()
	full := &domain.Gym{ID: primitive.NewObjectID(), Code: "FULL0001", Tier: domain.TierStarter}
	open := &domain.Gym{ID: primitive.NewObjectID(), Code: "OPEN0001", Tier: domain.TierPro}

	gyms.On("GetByCode", mock.Anything, "NOPE0000").Return(nil, repository.ErrNotFound)
	gyms.On("GetByCode", mock.Anything, "FULL0001").Return(full, nil)
	gyms.On("GetByCode", mock.Anything, "OPEN0001").Return(open, nil)
	profiles.On("ListByGym", mock.Anything, full.ID, domain.RoleMember).Return(make([]domain.Profile, 100), nil)
	profiles.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.Profile{}, nil)

	ctx := context.Background()
	_, _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough", GymCode: "NOPE0000"})
	assert.ErrorIs(t, err, ErrGymCodeNotFound)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "longenough", GymCode: "FULL0001"})
	assert.ErrorIs(t, err, ErrMemberLimitReached)

	// Pro has no member limit, so ListByGym is never consulted
	_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "taken@example.com", Password: "longenough", GymCode: "OPEN0001"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "not-an-email", Password: "longenough", GymCode: "OPEN0001"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "short", GymCode: "OPEN0001"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterDuplicateRace(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	profiles.On("GetByEmail", mock.Anything, "owner@example.com").Return(nil, repository.ErrNotFound)
	profiles.On("Create", mock.Anything, mock.Anything).Return(primitive.NilObjectID, repository.ErrDuplicate)

	_, err := svc.RegisterOwner(context.Background(), "Owner", "owner@example.com", "longenough")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLogin(t *testing.T) {
	svc, profiles, _ := newAuthFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	owner := &domain.Profile{ID: primitive.NewObjectID(), Email: "owner@example.com", PasswordHash: string(hash), Role: domain.RoleAdmin}
	profiles.On("GetByEmail", mock.Anything, "owner@example.com").Return(owner, nil)
	profiles.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	token, p, err := svc.Login(context.Background(), "owner@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Empty(t, p.PasswordHash)

	sess, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, sess.UserID)
	assert.Equal(t, primitive.NilObjectID, sess.GymID)

	_, _, err = svc.Login(context.Background(), "owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = svc.Login(context.Background(), "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	svc, _, _ := newAuthFixture()
	other := NewAuthService(&profileRepoMock{}, &gymRepoMock{}, testTiers(), "another-secret", time.Hour)
	token, err := other.IssueToken(&domain.Profile{ID: primitive.NewObjectID(), Role: domain.RoleMember})
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUpdateProfileValidatesDays(t *testing.T) {
	svc, _, _ := newAuthFixture()
	sess := memberSession(primitive.NewObjectID())
	_, err := svc.UpdateProfile(context.Background(), sess, FitnessProfileInput{DaysPerWeek: 8})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Me(context.Background(), domain.Session{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
