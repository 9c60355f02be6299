package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gymdesk/platform/internal/cache"
	"gymdesk/platform/internal/checkout"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/storage"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var testLog = zap.NewNop().Sugar()

// --- testify mocks ---

type profileRepoMock struct{ mock.Mock }

var _ repository.ProfileRepository = (*profileRepoMock)(nil)

func (m *profileRepoMock) Create(ctx context.Context, p *domain.Profile) (primitive.ObjectID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *profileRepoMock) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *profileRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *profileRepoMock) ListByGym(ctx context.Context, gymID primitive.ObjectID, role domain.Role) ([]domain.Profile, error) {
	args := m.Called(ctx, gymID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *profileRepoMock) UpdateFitness(ctx context.Context, p *domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *profileRepoMock) SetGym(ctx context.Context, id, gymID primitive.ObjectID, role domain.Role) error {
	return m.Called(ctx, id, gymID, role).Error(0)
}

type gymRepoMock struct{ mock.Mock }

var _ repository.GymRepository = (*gymRepoMock)(nil)

func (m *gymRepoMock) Create(ctx context.Context, g *domain.Gym) (primitive.ObjectID, error) {
	args := m.Called(ctx, g)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *gymRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Gym, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gym), args.Error(1)
}

func (m *gymRepoMock) GetByCode(ctx context.Context, code string) (*domain.Gym, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Gym), args.Error(1)
}

func (m *gymRepoMock) UpdateBranding(ctx context.Context, id primitive.ObjectID, name string, b domain.Branding) error {
	return m.Called(ctx, id, name, b).Error(0)
}

func (m *gymRepoMock) SetTier(ctx context.Context, id primitive.ObjectID, tier domain.SaaSTier, startedAt time.Time) error {
	return m.Called(ctx, id, tier, startedAt).Error(0)
}

func (m *gymRepoMock) SetStripeAccount(ctx context.Context, id primitive.ObjectID, accountID string) error {
	return m.Called(ctx, id, accountID).Error(0)
}

type paymentRepoMock struct{ mock.Mock }

var _ repository.PaymentRepository = (*paymentRepoMock)(nil)

func (m *paymentRepoMock) Create(ctx context.Context, p *domain.Payment) (primitive.ObjectID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *paymentRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *paymentRepoMock) GetByCheckoutSession(ctx context.Context, sessionID string) (*domain.Payment, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *paymentRepoMock) SetCheckoutSession(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	return m.Called(ctx, id, sessionID).Error(0)
}

func (m *paymentRepoMock) MarkPaid(ctx context.Context, id primitive.ObjectID, paidAt time.Time) error {
	return m.Called(ctx, id, paidAt).Error(0)
}

func (m *paymentRepoMock) MarkFailed(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *paymentRepoMock) MarkApplied(ctx context.Context, id primitive.ObjectID, appliedAt time.Time) error {
	return m.Called(ctx, id, appliedAt).Error(0)
}

func (m *paymentRepoMock) ListByGym(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Payment, error) {
	args := m.Called(ctx, gymID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type membershipRepoMock struct{ mock.Mock }

var _ repository.MembershipRepository = (*membershipRepoMock)(nil)

func (m *membershipRepoMock) Create(ctx context.Context, ms *domain.Membership) (primitive.ObjectID, error) {
	args := m.Called(ctx, ms)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *membershipRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *membershipRepoMock) ListByGym(ctx context.Context, gymID primitive.ObjectID, status domain.MembershipStatus) ([]domain.Membership, error) {
	args := m.Called(ctx, gymID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Membership), args.Error(1)
}

func (m *membershipRepoMock) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Membership, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Membership), args.Error(1)
}

func (m *membershipRepoMock) ListOverlapping(ctx context.Context, gymID primitive.ObjectID, from, to time.Time) ([]domain.Membership, error) {
	args := m.Called(ctx, gymID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Membership), args.Error(1)
}

func (m *membershipRepoMock) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.MembershipStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *membershipRepoMock) UpdateTerm(ctx context.Context, id primitive.ObjectID, start, end time.Time, priceCents int64, status domain.MembershipStatus) error {
	return m.Called(ctx, id, start, end, priceCents, status).Error(0)
}

func (m *membershipRepoMock) ListExpired(ctx context.Context, now time.Time) ([]domain.Membership, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Membership), args.Error(1)
}

type membershipPlanRepoMock struct{ mock.Mock }

var _ repository.MembershipPlanRepository = (*membershipPlanRepoMock)(nil)

func (m *membershipPlanRepoMock) Create(ctx context.Context, p *domain.MembershipPlan) (primitive.ObjectID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *membershipPlanRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.MembershipPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MembershipPlan), args.Error(1)
}

func (m *membershipPlanRepoMock) ListByGym(ctx context.Context, gymID primitive.ObjectID, activeOnly bool) ([]domain.MembershipPlan, error) {
	args := m.Called(ctx, gymID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MembershipPlan), args.Error(1)
}

func (m *membershipPlanRepoMock) Update(ctx context.Context, p *domain.MembershipPlan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *membershipPlanRepoMock) Delete(ctx context.Context, id, gymID primitive.ObjectID) error {
	return m.Called(ctx, id, gymID).Error(0)
}

type productRepoMock struct{ mock.Mock }

var _ repository.ProductRepository = (*productRepoMock)(nil)

func (m *productRepoMock) Create(ctx context.Context, p *domain.Product) (primitive.ObjectID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *productRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *productRepoMock) ListByGym(ctx context.Context, gymID primitive.ObjectID, activeOnly bool) ([]domain.Product, error) {
	args := m.Called(ctx, gymID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *productRepoMock) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *productRepoMock) Delete(ctx context.Context, id, gymID primitive.ObjectID) error {
	return m.Called(ctx, id, gymID).Error(0)
}

func (m *productRepoMock) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	return m.Called(ctx, id, qty).Error(0)
}

type postRepoMock struct{ mock.Mock }

var _ repository.PostRepository = (*postRepoMock)(nil)

func (m *postRepoMock) Create(ctx context.Context, p *domain.Post) (primitive.ObjectID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *postRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *postRepoMock) Feed(ctx context.Context, gymID primitive.ObjectID, includeHidden bool, page repository.Page) ([]domain.Post, error) {
	args := m.Called(ctx, gymID, includeHidden, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *postRepoMock) ListReported(ctx context.Context, gymID primitive.ObjectID) ([]domain.Post, error) {
	args := m.Called(ctx, gymID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *postRepoMock) IncrementCounter(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	return m.Called(ctx, id, field, delta).Error(0)
}

func (m *postRepoMock) SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error {
	return m.Called(ctx, id, gymID, hidden).Error(0)
}

func (m *postRepoMock) Delete(ctx context.Context, id, gymID primitive.ObjectID) error {
	return m.Called(ctx, id, gymID).Error(0)
}

type commentRepoMock struct{ mock.Mock }

var _ repository.CommentRepository = (*commentRepoMock)(nil)

func (m *commentRepoMock) Create(ctx context.Context, c *domain.Comment) (primitive.ObjectID, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *commentRepoMock) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *commentRepoMock) ListByPost(ctx context.Context, postID primitive.ObjectID, includeHidden bool) ([]domain.Comment, error) {
	args := m.Called(ctx, postID, includeHidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *commentRepoMock) SetHidden(ctx context.Context, id, gymID primitive.ObjectID, hidden bool) error {
	return m.Called(ctx, id, gymID, hidden).Error(0)
}

func (m *commentRepoMock) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	return m.Called(ctx, postID).Error(0)
}

type likeRepoMock struct{ mock.Mock }

var _ repository.LikeRepository = (*likeRepoMock)(nil)

func (m *likeRepoMock) Create(ctx context.Context, l *domain.Like) error {
	return m.Called(ctx, l).Error(0)
}

func (m *likeRepoMock) Delete(ctx context.Context, postID, userID primitive.ObjectID) error {
	return m.Called(ctx, postID, userID).Error(0)
}

func (m *likeRepoMock) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	return m.Called(ctx, postID).Error(0)
}

type statsRepoMock struct{ mock.Mock }

func (m *statsRepoMock) Dashboard(ctx context.Context, gymID primitive.ObjectID, now time.Time) (repository.DashboardStats, error) {
	args := m.Called(ctx, gymID, now)
	return args.Get(0).(repository.DashboardStats), args.Error(1)
}

type notifierMock struct{ mock.Mock }

func (m *notifierMock) Notify(ctx context.Context, userID, gymID primitive.ObjectID, kind domain.NotificationKind, title, body string) error {
	return m.Called(ctx, userID, gymID, kind, title, body).Error(0)
}

type providerMock struct{ mock.Mock }

var _ checkout.Provider = (*providerMock)(nil)

func (m *providerMock) CreateSession(ctx context.Context, req checkout.Request) (checkout.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return checkout.Session{}, args.Error(1)
	}
	return *args.Get(0).(*checkout.Session), args.Error(1)
}

func (m *providerMock) SessionStatus(ctx context.Context, sessionID, account string) (checkout.Status, error) {
	args := m.Called(ctx, sessionID, account)
	if args.Get(0) == nil {
		return checkout.Status{}, args.Error(1)
	}
	return *args.Get(0).(*checkout.Status), args.Error(1)
}

// --- in-memory fakes ---

// memCache stores values as-is; Get copies through a type switch on
// the dashboard stats, the only value services cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string]any
	deletes int
}

func newMemCache() *memCache { return &memCache{entries: map[string]any{}} }

func (c *memCache) Get(_ context.Context, key string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return cache.ErrMiss
	}
	*(out.(*repository.DashboardStats)) = v.(repository.DashboardStats)
	return nil
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deletes++
	}
	return nil
}

type fakeStorage struct{}

var _ storage.FileStorage = fakeStorage{}

func (fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://upload.test/" + key, nil
}

func (fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://download.test/" + key, nil
}

func (fakeStorage) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn.test/" + key
}

func (fakeStorage) DeleteObject(context.Context, string) error { return nil }

type memPlanRepo struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]*domain.Plan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: map[primitive.ObjectID]*domain.Plan{}}
}

func (r *memPlanRepo) Create(_ context.Context, p *domain.Plan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	cp.ID = primitive.NewObjectID()
	r.plans[cp.ID] = &cp
	return cp.ID, nil
}

func (r *memPlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPlanRepo) ListByMember(_ context.Context, memberID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Plan
	for _, p := range r.plans {
		if p.MemberID == memberID && (kind == "" || p.Kind == kind) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPlanRepo) GetActive(_ context.Context, memberID primitive.ObjectID, kind domain.PlanKind) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.MemberID == memberID && p.Kind == kind && p.Status == domain.PlanActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPlanRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus, daysWritten int64, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status, p.DaysWritten, p.FailureCause = status, daysWritten, cause
	return nil
}

func (r *memPlanRepo) DeactivateOthers(_ context.Context, memberID primitive.ObjectID, kind domain.PlanKind, excludeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.plans {
		if id != excludeID && p.MemberID == memberID && p.Kind == kind && p.Status == domain.PlanActive {
			p.Status = domain.PlanInactive
		}
	}
	return nil
}

// memPlanDayRepo keys rows by (planId, date) like the unique index.
type memPlanDayRepo struct {
	mu      sync.Mutex
	days    map[string]domain.PlanDay
	batches int
	// failOnBatch makes the nth call (1-based) fail after writing half
	// of its rows.
	failOnBatch int
	failErr     error
}

func newMemPlanDayRepo() *memPlanDayRepo {
	return &memPlanDayRepo{days: map[string]domain.PlanDay{}}
}

func dayKey(planID primitive.ObjectID, date string) string { return planID.Hex() + "/" + date }

func (r *memPlanDayRepo) UpsertBatch(_ context.Context, days []domain.PlanDay) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	rows := days
	if r.batches == r.failOnBatch {
		rows = days[:len(days)/2]
	}
	var n int64
	for _, d := range rows {
		k := dayKey(d.PlanID, d.Date)
		if existing, ok := r.days[k]; ok {
			d.ID = existing.ID
		} else {
			d.ID = primitive.NewObjectID()
		}
		r.days[k] = d
		n++
	}
	if r.batches == r.failOnBatch {
		return n, r.failErr
	}
	return n, nil
}

func (r *memPlanDayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.PlanDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.days {
		if d.ID == id {
			cp := d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPlanDayRepo) ListRange(_ context.Context, planID primitive.ObjectID, from, to string) ([]domain.PlanDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PlanDay
	for _, d := range r.days {
		if d.PlanID == planID && d.Date >= from && d.Date <= to {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *memPlanDayRepo) GetByDate(_ context.Context, planID primitive.ObjectID, date string) (*domain.PlanDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayKey(planID, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *memPlanDayRepo) CountByPlan(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.days {
		if d.PlanID == planID {
			n++
		}
	}
	return n, nil
}

type memCompletionRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Completion
}

func newMemCompletionRepo() *memCompletionRepo {
	return &memCompletionRepo{rows: map[string]domain.Completion{}}
}

func (r *memCompletionRepo) Upsert(_ context.Context, c *domain.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.MemberID.Hex()+"/"+c.PlanDayID.Hex()] = *c
	return nil
}

func (r *memCompletionRepo) ListByMember(_ context.Context, memberID primitive.ObjectID, from, to string) ([]domain.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Completion
	for _, c := range r.rows {
		if c.MemberID != memberID {
			continue
		}
		if (from != "" && c.Date < from) || (to != "" && c.Date > to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type memBiometricsRepo struct {
	latest *domain.Biometrics
}

func (r *memBiometricsRepo) Create(_ context.Context, b *domain.Biometrics) (primitive.ObjectID, error) {
	cp := *b
	cp.ID = primitive.NewObjectID()
	r.latest = &cp
	return cp.ID, nil
}

func (r *memBiometricsRepo) ListByMember(context.Context, primitive.ObjectID, time.Time, time.Time) ([]domain.Biometrics, error) {
	if r.latest == nil {
		return nil, nil
	}
	return []domain.Biometrics{*r.latest}, nil
}

func (r *memBiometricsRepo) Latest(context.Context, primitive.ObjectID) (*domain.Biometrics, error) {
	if r.latest == nil {
		return nil, repository.ErrNotFound
	}
	return r.latest, nil
}

func memberSession(gymID primitive.ObjectID) domain.Session {
	return domain.Session{UserID: primitive.NewObjectID(), GymID: gymID, Role: domain.RoleMember}
}

func adminSession(gymID primitive.ObjectID) domain.Session {
	return domain.Session{UserID: primitive.NewObjectID(), GymID: gymID, Role: domain.RoleAdmin}
}
