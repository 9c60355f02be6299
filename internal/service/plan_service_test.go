package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymdesk/platform/internal/ai"
	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type generatorMock struct{ mock.Mock }

func (m *generatorMock) WorkoutTemplate(ctx context.Context, mc ai.MemberContext) (ai.Template, bool, error) {
	args := m.Called(ctx, mc)
	return args.Get(0).(ai.Template), args.Bool(1), args.Error(2)
}

func (m *generatorMock) NutritionTemplate(ctx context.Context, mc ai.MemberContext) (ai.Template, bool, error) {
	args := m.Called(ctx, mc)
	return args.Get(0).(ai.Template), args.Bool(1), args.Error(2)
}

func legDayTemplate() ai.Template {
	months := make([]domain.MonthTemplate, 12)
	for i := range months {
		months[i] = domain.MonthTemplate{
			Month: i + 1,
			Days: []domain.DayTemplate{{
				DayOfWeek:            int(time.Monday),
				SessionType:          "strength",
				Title:                "Leg Day",
				EstimatedDurationMin: 60,
				Exercises:            []domain.Exercise{{Name: "Squat", Sets: 5, Reps: "5"}},
			}},
		}
	}
	return ai.Template{Title: "Strength Year", Months: months}
}

type planFixture struct {
	svc         PlanService
	plans       *memPlanRepo
	workoutDays *memPlanDayRepo
	completions *memCompletionRepo
	generator   *generatorMock
	notifier    *notifierMock
	member      *domain.Profile
	session     domain.Session
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()
	gymID := primitive.NewObjectID()
	member := &domain.Profile{
		ID:          primitive.NewObjectID(),
		GymID:       gymID,
		Name:        "Dana",
		Role:        domain.RoleMember,
		FitnessGoal: "build strength",
	}
	profiles := &profileRepoMock{}
	profiles.On("GetByID", mock.Anything, member.ID).Return(member, nil)

	f := &planFixture{
		plans:       newMemPlanRepo(),
		workoutDays: newMemPlanDayRepo(),
		completions: newMemCompletionRepo(),
		generator:   &generatorMock{},
		notifier:    &notifierMock{},
		member:      member,
		session:     domain.Session{UserID: member.ID, GymID: gymID, Role: domain.RoleMember},
	}
	f.notifier.On("Notify", mock.Anything, member.ID, gymID, domain.NotifyPlanReady, mock.Anything, mock.Anything).Return(nil)
	f.svc = NewPlanService(f.plans, f.workoutDays, newMemPlanDayRepo(), f.completions, profiles, &memBiometricsRepo{},
		f.generator, f.notifier, PlanServiceConfig{BatchSize: schedule.DefaultBatchSize}, testLog)
	return f
}

var planStart = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestGenerateWorkoutPlanWritesAYear(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)

	plan, err := f.svc.GenerateWorkoutPlan(context.Background(), f.session, GeneratePlanInput{StartDate: planStart})
	require.NoError(t, err)

	assert.Equal(t, domain.PlanActive, plan.Status)
	assert.EqualValues(t, schedule.DaysPerPlan, plan.DaysWritten)
	assert.Equal(t, "2025-01-13", schedule.FormatDate(plan.EndDate))
	assert.Equal(t, 8, f.workoutDays.batches)

	count, err := f.workoutDays.CountByPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.EqualValues(t, schedule.DaysPerPlan, count)

	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanActive, stored.Status)
	f.notifier.AssertExpectations(t)
}

func TestGenerateUsesGoalOverride(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.MatchedBy(func(mc ai.MemberContext) bool {
		return mc.Goal == "run a marathon"
	})).Return(legDayTemplate(), true, nil)

	plan, err := f.svc.GenerateWorkoutPlan(context.Background(), f.session,
		GeneratePlanInput{StartDate: planStart, Goal: "run a marathon"})
	require.NoError(t, err)
	assert.True(t, plan.UsedFallback)
	assert.Equal(t, "run a marathon", plan.Goal)
}

func TestGenerateBatchFailureMarksPlanFailed(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)
	writeErr := errors.New("connection reset")
	f.workoutDays.failOnBatch = 3
	f.workoutDays.failErr = writeErr

	plan, err := f.svc.GenerateWorkoutPlan(context.Background(), f.session, GeneratePlanInput{StartDate: planStart})
	require.ErrorIs(t, err, writeErr)
	require.NotNil(t, plan)

	// Two full batches and half of the third
	assert.EqualValues(t, 125, plan.DaysWritten)
	assert.Equal(t, domain.PlanFailed, plan.Status)
	assert.Equal(t, 3, f.workoutDays.batches)

	stored, err := f.plans.GetByID(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFailed, stored.Status)
	assert.EqualValues(t, 125, stored.DaysWritten)
	assert.Equal(t, "connection reset", stored.FailureCause)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	f := newPlanFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(ai.Template{}, false, context.Canceled)

	plan, err := f.svc.GenerateWorkoutPlan(ctx, f.session, GeneratePlanInput{StartDate: planStart})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, plan)
	assert.Zero(t, f.workoutDays.batches)
}

func TestNewPlanDeactivatesPrevious(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)
	ctx := context.Background()

	first, err := f.svc.GenerateWorkoutPlan(ctx, f.session, GeneratePlanInput{StartDate: planStart})
	require.NoError(t, err)
	second, err := f.svc.GenerateWorkoutPlan(ctx, f.session, GeneratePlanInput{StartDate: planStart.AddDate(0, 1, 0)})
	require.NoError(t, err)

	got, err := f.svc.GetPlan(ctx, f.session, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanInactive, got.Status)

	active, err := f.plans.GetActive(ctx, f.member.ID, domain.PlanWorkout)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	require.NoError(t, f.svc.DeactivatePlan(ctx, f.session, second.ID))
	assert.ErrorIs(t, f.svc.DeactivatePlan(ctx, f.session, second.ID), ErrPlanNotActive)
}

func TestPlansAreHiddenFromOtherMembers(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)
	plan, err := f.svc.GenerateWorkoutPlan(context.Background(), f.session, GeneratePlanInput{StartDate: planStart})
	require.NoError(t, err)

	other := memberSession(f.session.GymID)
	_, err = f.svc.GetPlan(context.Background(), other, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	admin := adminSession(f.session.GymID)
	_, err = f.svc.GetPlan(context.Background(), admin, plan.ID)
	assert.NoError(t, err)

	foreignAdmin := adminSession(primitive.NewObjectID())
	_, err = f.svc.GetPlan(context.Background(), foreignAdmin, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestGetSchedule(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)
	ctx := context.Background()
	plan, err := f.svc.GenerateWorkoutPlan(ctx, f.session, GeneratePlanInput{StartDate: planStart})
	require.NoError(t, err)

	week, err := f.svc.GetSchedule(ctx, f.session, plan.ID, "", "")
	require.NoError(t, err)
	require.Len(t, week, 7)
	assert.Equal(t, "2024-01-15", week[0].Date)
	assert.Equal(t, "Leg Day", week[0].Title)
	assert.True(t, week[1].IsRest)

	_, err = f.svc.GetSchedule(ctx, f.session, plan.ID, "2024-03-01", "2024-02-01")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	_, err = f.svc.GetSchedule(ctx, f.session, plan.ID, "2024-01-15", "2024-12-31")
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCompleteSessionAndToday(t *testing.T) {
	f := newPlanFixture(t)
	f.generator.On("WorkoutTemplate", mock.Anything, mock.Anything).Return(legDayTemplate(), false, nil)
	ctx := context.Background()
	plan, err := f.svc.GenerateWorkoutPlan(ctx, f.session, GeneratePlanInput{StartDate: planStart})
	require.NoError(t, err)

	legDay, err := f.workoutDays.GetByDate(ctx, plan.ID, "2024-01-15")
	require.NoError(t, err)
	restDay, err := f.workoutDays.GetByDate(ctx, plan.ID, "2024-01-16")
	require.NoError(t, err)

	before, err := f.svc.GetToday(ctx, f.session, "2024-01-15")
	require.NoError(t, err)
	require.NotNil(t, before.Workout)
	assert.Nil(t, before.Nutrition)
	assert.False(t, before.Completed)

	c, err := f.svc.CompleteSession(ctx, f.session, legDay.ID, CompleteInput{Notes: "heavy", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", c.Date)
	_, err = f.svc.CompleteSession(ctx, f.session, legDay.ID, CompleteInput{Rating: 5})
	require.NoError(t, err)

	after, err := f.svc.GetToday(ctx, f.session, "2024-01-15")
	require.NoError(t, err)
	assert.True(t, after.Completed)

	done, err := f.svc.ListCompletions(ctx, f.session, "", "")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 5, done[0].Rating)

	_, err = f.svc.CompleteSession(ctx, f.session, restDay.ID, CompleteInput{})
	assert.ErrorIs(t, err, ErrRestDay)
	_, err = f.svc.CompleteSession(ctx, memberSession(f.session.GymID), legDay.ID, CompleteInput{})
	assert.ErrorIs(t, err, ErrPlanDayNotFound)
	_, err = f.svc.CompleteSession(ctx, f.session, legDay.ID, CompleteInput{Rating: 9})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
