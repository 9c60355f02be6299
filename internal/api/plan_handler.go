package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler serves AI generated workout and nutrition plans.
type PlanHandler struct {
	planService service.PlanService
}

func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

type GeneratePlanRequest struct {
	MemberID  string `json:"memberId"`  // Admins only; defaults to the caller
	StartDate string `json:"startDate"` // YYYY-MM-DD; defaults to today
	Goal      string `json:"goal"`
}

type CompleteSessionRequest struct {
	Notes  string `json:"notes"`
	Rating int    `json:"rating" binding:"min=0,max=5"`
}

func (r GeneratePlanRequest) input() (service.GeneratePlanInput, error) {
	in := service.GeneratePlanInput{Goal: r.Goal}
	if r.MemberID != "" {
		id, err := primitive.ObjectIDFromHex(r.MemberID)
		if err != nil {
			return in, errors.New("invalid memberId format")
		}
		in.MemberID = id
	}
	if r.StartDate != "" {
		t, err := time.Parse(time.DateOnly, r.StartDate)
		if err != nil {
			return in, errors.New("startDate must be YYYY-MM-DD")
		}
		in.StartDate = t
	}
	return in, nil
}

type generateFunc func(ctx context.Context, s domain.Session, in service.GeneratePlanInput) (*domain.Plan, error)

// GenerateWorkoutPlan godoc
// @Summary Generate a 365 day workout plan
// @Description Builds monthly templates with the AI generator and writes one row per day.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body GeneratePlanRequest false "Generation options"
// @Success 201 {object} domain.Plan
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Member belongs to another gym"
// @Failure 500 {object} gin.H "Generation or storage failed"
// @Router /plans/workout [post]
func (h *PlanHandler) GenerateWorkoutPlan(c *gin.Context) {
	h.generate(c, h.planService.GenerateWorkoutPlan)
}

// GenerateNutritionPlan is the nutrition counterpart of GenerateWorkoutPlan.
func (h *PlanHandler) GenerateNutritionPlan(c *gin.Context) {
	h.generate(c, h.planService.GenerateNutritionPlan)
}

func (h *PlanHandler) generate(c *gin.Context, fn generateFunc) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req GeneratePlanRequest
	// An empty body generates for the caller from today
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}
	in, err := req.input()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := fn(c.Request.Context(), session, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *PlanHandler) ListPlans(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	memberID, ok := optionalObjectID(c, "memberId")
	if !ok {
		return
	}
	kind := domain.PlanKind(c.Query("kind"))
	if kind != "" && kind != domain.PlanWorkout && kind != domain.PlanNutrition {
		abortWithError(c, http.StatusBadRequest, "kind must be workout or nutrition")
		return
	}

	plans, err := h.planService.ListPlans(c.Request.Context(), session, memberID, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	c.JSON(http.StatusOK, plans)
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), session, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GetSchedule returns the plan's days between the from and to query
// dates, inclusive. Without bounds it returns the coming week.
func (h *PlanHandler) GetSchedule(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	today := time.Now().UTC()
	from := c.DefaultQuery("from", today.Format(time.DateOnly))
	to := c.DefaultQuery("to", today.AddDate(0, 0, 6).Format(time.DateOnly))

	days, err := h.planService.GetSchedule(c.Request.Context(), session, planID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if days == nil {
		days = []domain.PlanDay{}
	}
	c.JSON(http.StatusOK, days)
}

func (h *PlanHandler) DeactivatePlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	if err := h.planService.DeactivatePlan(c.Request.Context(), session, planID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetToday returns the caller's workout and meals for ?date (default today).
func (h *PlanHandler) GetToday(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	view, err := h.planService.GetToday(c.Request.Context(), session, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PlanHandler) CompleteSession(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	dayID, ok := objectIDParam(c, "dayId")
	if !ok {
		return
	}
	var req CompleteSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
			return
		}
	}

	completion, err := h.planService.CompleteSession(c.Request.Context(), session, dayID, service.CompleteInput{
		Notes:  req.Notes,
		Rating: req.Rating,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, completion)
}

func (h *PlanHandler) ListCompletions(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	today := time.Now().UTC()
	from := c.DefaultQuery("from", today.AddDate(0, 0, -30).Format(time.DateOnly))
	to := c.DefaultQuery("to", today.Format(time.DateOnly))

	completions, err := h.planService.ListCompletions(c.Request.Context(), session, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if completions == nil {
		completions = []domain.Completion{}
	}
	c.JSON(http.StatusOK, completions)
}
