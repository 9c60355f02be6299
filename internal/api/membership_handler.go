package api

import (
	"fmt"
	"net/http"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MembershipHandler struct {
	membershipService service.MembershipService
}

func NewMembershipHandler(membershipService service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

type MembershipPlanRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	PriceCents  int64               `json:"priceCents" binding:"min=0"`
	Duration    int                 `json:"duration" binding:"required,min=1"`
	Unit        domain.DurationUnit `json:"unit" binding:"required,oneof=day week month year"`
	Features    []string            `json:"features"`
	IsActive    *bool               `json:"isActive"` // Defaults to true
}

func (r MembershipPlanRequest) input() service.MembershipPlanInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.MembershipPlanInput{
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Duration:    r.Duration,
		Unit:        r.Unit,
		Features:    r.Features,
		IsActive:    active,
	}
}

type EnrollRequest struct {
	MemberID  string `json:"memberId" binding:"required"`
	PlanID    string `json:"planId" binding:"required"`
	StartDate string `json:"startDate"` // YYYY-MM-DD; defaults to today
}

// --- Membership plans ---

func (h *MembershipHandler) CreatePlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req MembershipPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	plan, err := h.membershipService.CreatePlan(c.Request.Context(), session, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *MembershipHandler) UpdatePlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	var req MembershipPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	plan, err := h.membershipService.UpdatePlan(c.Request.Context(), session, planID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *MembershipHandler) DeletePlan(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	if err := h.membershipService.DeletePlan(c.Request.Context(), session, planID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MembershipHandler) ListPlans(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	plans, err := h.membershipService.ListPlans(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	if plans == nil {
		plans = []domain.MembershipPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// --- Memberships ---

// Enroll godoc
// @Summary Enroll a member at the desk
// @Description Activates a membership paid in person and records the payment.
// @Tags Memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollment body EnrollRequest true "Member, plan and start date"
// @Success 201 {object} domain.Membership
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 403 {object} gin.H "Not an admin of this gym"
// @Failure 404 {object} gin.H "Plan or member not found"
// @Router /memberships [post]
func (h *MembershipHandler) Enroll(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid memberId format")
		return
	}
	planID, err := primitive.ObjectIDFromHex(req.PlanID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid planId format")
		return
	}
	start := time.Now().UTC()
	if req.StartDate != "" {
		if start, err = time.Parse(time.DateOnly, req.StartDate); err != nil {
			abortWithError(c, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
			return
		}
	}

	m, err := h.membershipService.EnrollMember(c.Request.Context(), session, memberID, planID, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// Purchase starts the caller's own checkout for a plan.
func (h *MembershipHandler) Purchase(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	result, err := h.membershipService.Purchase(c.Request.Context(), session, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *MembershipHandler) Renew(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "membershipId")
	if !ok {
		return
	}
	m, err := h.membershipService.Renew(c.Request.Context(), session, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MembershipHandler) Cancel(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "membershipId")
	if !ok {
		return
	}
	if err := h.membershipService.Cancel(c.Request.Context(), session, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List returns the gym's memberships to admins and the caller's own to
// members, optionally filtered by ?status.
func (h *MembershipHandler) List(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	status := domain.MembershipStatus(c.Query("status"))
	switch status {
	case "", domain.MembershipPending, domain.MembershipActive, domain.MembershipExpired, domain.MembershipCancelled:
	default:
		abortWithError(c, http.StatusBadRequest, "Unknown membership status")
		return
	}

	list, err := h.membershipService.List(c.Request.Context(), session, status)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []domain.Membership{}
	}
	c.JSON(http.StatusOK, list)
}
