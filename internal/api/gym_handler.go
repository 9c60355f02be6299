package api

import (
	"fmt"
	"net/http"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

type GymHandler struct {
	gymService service.GymService
}

func NewGymHandler(gymService service.GymService) *GymHandler {
	return &GymHandler{gymService: gymService}
}

type RegisterGymRequest struct {
	OwnerName string `json:"ownerName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	GymName   string `json:"gymName" binding:"required"`
	Currency  string `json:"currency" binding:"omitempty,len=3"`
}

type RegisterGymResponse struct {
	Token string      `json:"token"`
	Gym   *domain.Gym `json:"gym"`
}

type BrandingRequest struct {
	Name           string `json:"name"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	LogoKey        string `json:"logoKey"`
}

// UploadRequest asks for a presigned upload URL.
type UploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type PayoutAccountRequest struct {
	AccountID string `json:"accountId" binding:"required"`
}

// RegisterGym godoc
// @Summary Register a gym
// @Description Creates the owner's admin account and the gym in one step.
// @Tags Gym
// @Accept json
// @Produce json
// @Param gym body RegisterGymRequest true "Owner and gym details"
// @Success 201 {object} RegisterGymResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email already registered"
// @Router /auth/register-gym [post]
func (h *GymHandler) RegisterGym(c *gin.Context) {
	var req RegisterGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, gym, err := h.gymService.RegisterGym(c.Request.Context(), service.RegisterGymInput{
		OwnerName: req.OwnerName,
		Email:     req.Email,
		Password:  req.Password,
		GymName:   req.GymName,
		Currency:  req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, RegisterGymResponse{Token: token, Gym: gym})
}

// GetPublic returns the branding a signup page shows for a gym code.
func (h *GymHandler) GetPublic(c *gin.Context) {
	gym, err := h.gymService.GetPublic(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gym)
}

func (h *GymHandler) GetGym(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	gym, err := h.gymService.GetGym(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gym)
}

func (h *GymHandler) UpdateBranding(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	gym, err := h.gymService.UpdateBranding(c.Request.Context(), session, service.BrandingInput{
		Name:           req.Name,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		LogoKey:        req.LogoKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gym)
}

func (h *GymHandler) RequestLogoUpload(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.gymService.RequestLogoUpload(c.Request.Context(), session, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *GymHandler) SetPayoutAccount(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req PayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if err := h.gymService.SetPayoutAccount(c.Request.Context(), session, req.AccountID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GymHandler) ListMembers(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	members, err := h.gymService.ListMembers(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	if members == nil {
		members = []domain.Profile{}
	}
	c.JSON(http.StatusOK, members)
}
