package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymdesk/platform/internal/ai"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/metrics"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/schedule"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrPlanNotFound     = errors.New("plan not found")
	ErrPlanDayNotFound  = errors.New("plan day not found")
	ErrPlanNotActive    = errors.New("plan is not active")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrRestDay          = errors.New("rest days cannot be completed")
)

// maxScheduleSpan caps GetSchedule ranges.
const maxScheduleSpan = 93

// TemplateGenerator produces year templates for a member.
type TemplateGenerator interface {
	WorkoutTemplate(ctx context.Context, mc ai.MemberContext) (ai.Template, bool, error)
	NutritionTemplate(ctx context.Context, mc ai.MemberContext) (ai.Template, bool, error)
}

type GeneratePlanInput struct {
	// MemberID lets an admin generate for a member of their gym. Members
	// always generate for themselves.
	MemberID  primitive.ObjectID
	StartDate time.Time // Zero means today
	Goal      string    // Overrides the profile goal when set
}

type CompleteInput struct {
	Notes  string
	Rating int // 1..5, 0 when not given
}

// TodayView is what a member should do on one date.
type TodayView struct {
	Date      string          `json:"date"`
	Workout   *domain.PlanDay `json:"workout,omitempty"`
	Nutrition *domain.PlanDay `json:"nutrition,omitempty"`
	Completed bool            `json:"completed"`
}

type PlanService interface {
	GenerateWorkoutPlan(ctx context.Context, s domain.Session, in GeneratePlanInput) (*domain.Plan, error)
	GenerateNutritionPlan(ctx context.Context, s domain.Session, in GeneratePlanInput) (*domain.Plan, error)
	GetPlan(ctx context.Context, s domain.Session, planID primitive.ObjectID) (*domain.Plan, error)
	ListPlans(ctx context.Context, s domain.Session, memberID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error)
	// GetSchedule returns the plan's days with from <= date <= to.
	GetSchedule(ctx context.Context, s domain.Session, planID primitive.ObjectID, from, to string) ([]domain.PlanDay, error)
	GetToday(ctx context.Context, s domain.Session, date string) (*TodayView, error)
	DeactivatePlan(ctx context.Context, s domain.Session, planID primitive.ObjectID) error
	CompleteSession(ctx context.Context, s domain.Session, planDayID primitive.ObjectID, in CompleteInput) (*domain.Completion, error)
	ListCompletions(ctx context.Context, s domain.Session, from, to string) ([]domain.Completion, error)
}

type PlanServiceConfig struct {
	BatchSize int
	Keying    schedule.Keying
}

type planService struct {
	planRepo       repository.PlanRepository
	workoutDays    repository.PlanDayRepository
	nutritionDays  repository.PlanDayRepository
	completionRepo repository.CompletionRepository
	profileRepo    repository.ProfileRepository
	biometricsRepo repository.BiometricsRepository
	generator      TemplateGenerator
	notifier       Notifier
	cfg            PlanServiceConfig
	log            *zap.SugaredLogger
}

func NewPlanService(
	planRepo repository.PlanRepository,
	workoutDays repository.PlanDayRepository,
	nutritionDays repository.PlanDayRepository,
	completionRepo repository.CompletionRepository,
	profileRepo repository.ProfileRepository,
	biometricsRepo repository.BiometricsRepository,
	generator TemplateGenerator,
	notifier Notifier,
	cfg PlanServiceConfig,
	log *zap.SugaredLogger,
) PlanService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = schedule.DefaultBatchSize
	}
	return &planService{
		planRepo:       planRepo,
		workoutDays:    workoutDays,
		nutritionDays:  nutritionDays,
		completionRepo: completionRepo,
		profileRepo:    profileRepo,
		biometricsRepo: biometricsRepo,
		generator:      generator,
		notifier:       notifier,
		cfg:            cfg,
		log:            log,
	}
}

func (s *planService) days(kind domain.PlanKind) repository.PlanDayRepository {
	if kind == domain.PlanNutrition {
		return s.nutritionDays
	}
	return s.workoutDays
}

func (s *planService) GenerateWorkoutPlan(ctx context.Context, sess domain.Session, in GeneratePlanInput) (*domain.Plan, error) {
	return s.generate(ctx, sess, domain.PlanWorkout, in)
}

func (s *planService) GenerateNutritionPlan(ctx context.Context, sess domain.Session, in GeneratePlanInput) (*domain.Plan, error) {
	return s.generate(ctx, sess, domain.PlanNutrition, in)
}

// generate asks for a template, stores the plan, expands it into 365 days
// and writes them in batches. Batches written before a failure stay
// written; the plan is then marked failed and the write error returned.
func (s *planService) generate(ctx context.Context, sess domain.Session, kind domain.PlanKind, in GeneratePlanInput) (*domain.Plan, error) {
	member, err := s.resolveMember(ctx, sess, in.MemberID)
	if err != nil {
		return nil, err
	}

	latest, err := s.biometricsRepo.Latest(ctx, member.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	mc := ai.NewMemberContext(member, latest)
	if in.Goal != "" {
		mc.Goal = in.Goal
	}

	var (
		tmpl     ai.Template
		fallback bool
	)
	if kind == domain.PlanNutrition {
		tmpl, fallback, err = s.generator.NutritionTemplate(ctx, mc)
	} else {
		tmpl, fallback, err = s.generator.WorkoutTemplate(ctx, mc)
	}
	if err != nil {
		return nil, err
	}

	start := in.StartDate
	if start.IsZero() {
		start = nowUTC()
	}
	start = schedule.DateOf(start)

	plan := &domain.Plan{
		GymID:        member.GymID,
		MemberID:     member.ID,
		Kind:         kind,
		Title:        tmpl.Title,
		Goal:         mc.Goal,
		Status:       domain.PlanGenerating,
		StartDate:    start,
		EndDate:      schedule.EndDate(start),
		Months:       tmpl.Months,
		UsedFallback: fallback,
	}
	if plan.ID, err = s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}

	days := schedule.Expand(schedule.Input{
		Months:   plan.Months,
		Start:    start,
		MemberID: member.ID,
		PlanID:   plan.ID,
		Keying:   s.cfg.Keying,
	})

	repo := s.days(kind)
	for i, batch := range schedule.Chunk(days, s.cfg.BatchSize) {
		n, err := repo.UpsertBatch(ctx, batch)
		plan.DaysWritten += n
		if err != nil {
			s.log.Errorw("plan day batch failed",
				"plan", plan.ID.Hex(), "kind", kind, "batch", i, "daysWritten", plan.DaysWritten, "error", err)
			metrics.IncPlanGenerated(string(kind), "failed")
			metrics.AddPlanDaysWritten(string(kind), plan.DaysWritten)
			plan.Status = domain.PlanFailed
			plan.FailureCause = err.Error()
			// The caller's context may be the reason for the failure
			if statusErr := s.planRepo.UpdateStatus(context.WithoutCancel(ctx), plan.ID, plan.Status, plan.DaysWritten, plan.FailureCause); statusErr != nil {
				s.log.Errorw("failed to mark plan failed", "plan", plan.ID.Hex(), "error", statusErr)
			}
			return plan, fmt.Errorf("write plan days: %w", err)
		}
	}

	if err := s.planRepo.DeactivateOthers(ctx, member.ID, kind, plan.ID); err != nil {
		return nil, err
	}
	plan.Status = domain.PlanActive
	if err := s.planRepo.UpdateStatus(ctx, plan.ID, plan.Status, plan.DaysWritten, ""); err != nil {
		return nil, err
	}

	outcome := "generated"
	if fallback {
		outcome = "fallback"
	}
	metrics.IncPlanGenerated(string(kind), outcome)
	metrics.AddPlanDaysWritten(string(kind), plan.DaysWritten)
	s.log.Infow("plan generated", "plan", plan.ID.Hex(), "member", member.ID.Hex(), "kind", kind, "fallback", fallback)

	notifyQuietly(ctx, s.notifier, s.log, member.ID, member.GymID, domain.NotifyPlanReady,
		fmt.Sprintf("Your %s plan is ready", kind), plan.Title)
	return plan, nil
}

func (s *planService) resolveMember(ctx context.Context, sess domain.Session, memberID primitive.ObjectID) (*domain.Profile, error) {
	return resolveMember(ctx, s.profileRepo, sess, memberID)
}

func (s *planService) GetPlan(ctx context.Context, sess domain.Session, planID primitive.ObjectID) (*domain.Plan, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !canSeeMember(sess, plan.MemberID, plan.GymID) {
		// Don't reveal plans of other tenants
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *planService) ListPlans(ctx context.Context, sess domain.Session, memberID primitive.ObjectID, kind domain.PlanKind) ([]domain.Plan, error) {
	member, err := s.resolveMember(ctx, sess, memberID)
	if err != nil {
		return nil, err
	}
	return s.planRepo.ListByMember(ctx, member.ID, kind)
}

func (s *planService) GetSchedule(ctx context.Context, sess domain.Session, planID primitive.ObjectID, from, to string) ([]domain.PlanDay, error) {
	plan, err := s.GetPlan(ctx, sess, planID)
	if err != nil {
		return nil, err
	}
	if from == "" {
		from = schedule.FormatDate(plan.StartDate)
	}
	if to == "" {
		start, _ := schedule.ParseDate(from)
		to = schedule.FormatDate(start.AddDate(0, 0, 6))
	}
	fromDate, err1 := schedule.ParseDate(from)
	toDate, err2 := schedule.ParseDate(to)
	if err1 != nil || err2 != nil || toDate.Before(fromDate) {
		return nil, ErrInvalidDateRange
	}
	if toDate.Sub(fromDate) > maxScheduleSpan*24*time.Hour {
		return nil, fmt.Errorf("%w: at most %d days per request", ErrInvalidDateRange, maxScheduleSpan)
	}
	return s.days(plan.Kind).ListRange(ctx, plan.ID, from, to)
}

func (s *planService) GetToday(ctx context.Context, sess domain.Session, date string) (*TodayView, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if date == "" {
		date = schedule.FormatDate(nowUTC())
	} else if _, err := schedule.ParseDate(date); err != nil {
		return nil, ErrInvalidDateRange
	}
	view := &TodayView{Date: date}

	for _, kind := range []domain.PlanKind{domain.PlanWorkout, domain.PlanNutrition} {
		plan, err := s.planRepo.GetActive(ctx, sess.UserID, kind)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		day, err := s.days(kind).GetByDate(ctx, plan.ID, date)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if kind == domain.PlanWorkout {
			view.Workout = day
		} else {
			view.Nutrition = day
		}
	}

	if view.Workout != nil {
		done, err := s.completionRepo.ListByMember(ctx, sess.UserID, date, date)
		if err != nil {
			return nil, err
		}
		for _, c := range done {
			if c.PlanDayID == view.Workout.ID {
				view.Completed = true
			}
		}
	}
	return view, nil
}

func (s *planService) DeactivatePlan(ctx context.Context, sess domain.Session, planID primitive.ObjectID) error {
	plan, err := s.GetPlan(ctx, sess, planID)
	if err != nil {
		return err
	}
	if plan.Status != domain.PlanActive {
		return ErrPlanNotActive
	}
	return s.planRepo.UpdateStatus(ctx, plan.ID, domain.PlanInactive, plan.DaysWritten, "")
}

// CompleteSession records that the caller finished a workout day.
// Completing the same day again overwrites notes and rating.
func (s *planService) CompleteSession(ctx context.Context, sess domain.Session, planDayID primitive.ObjectID, in CompleteInput) (*domain.Completion, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	day, err := s.workoutDays.GetByID(ctx, planDayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanDayNotFound
		}
		return nil, err
	}
	if day.MemberID != sess.UserID {
		return nil, ErrPlanDayNotFound
	}
	if day.IsRest {
		return nil, ErrRestDay
	}

	c := &domain.Completion{
		PlanDayID:   day.ID,
		PlanID:      day.PlanID,
		MemberID:    sess.UserID,
		GymID:       sess.GymID,
		Date:        day.Date,
		Notes:       in.Notes,
		Rating:      in.Rating,
		CompletedAt: nowUTC(),
	}
	if err := s.completionRepo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *planService) ListCompletions(ctx context.Context, sess domain.Session, from, to string) ([]domain.Completion, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	return s.completionRepo.ListByMember(ctx, sess.UserID, from, to)
}
