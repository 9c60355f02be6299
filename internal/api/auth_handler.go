package api

import (
	"fmt"
	"net/http"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	GymCode  string `json:"gymCode" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string          `json:"token"`
	User  *domain.Profile `json:"user"`
}

type UpdateProfileRequest struct {
	Name              string   `json:"name" binding:"required"`
	Phone             string   `json:"phone"`
	FitnessGoal       string   `json:"fitnessGoal"`
	FitnessLevel      string   `json:"fitnessLevel"`
	DaysPerWeek       int      `json:"daysPerWeek" binding:"min=0,max=7"`
	Equipment         []string `json:"equipment"`
	DietaryPreference string   `json:"dietaryPreference"`
	Allergies         []string `json:"allergies"`
}

// --- Handler Methods ---

// Register godoc
// @Summary Register a new member
// @Description Creates a member account in the gym identified by gymCode.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} LoginResponse "Member created"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 404 {object} gin.H "Unknown gym code"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, profile, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		GymCode:  req.GymCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, LoginResponse{Token: token, User: profile})
}

// Login godoc
// @Summary Log in a user
// @Description Authenticates a user and returns a JWT token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse "Login successful"
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, profile, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: profile})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	profile, err := h.authService.Me(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile replaces the fitness fields plans are generated from.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), session, service.FitnessProfileInput{
		Name:              req.Name,
		Phone:             req.Phone,
		FitnessGoal:       req.FitnessGoal,
		FitnessLevel:      req.FitnessLevel,
		DaysPerWeek:       req.DaysPerWeek,
		Equipment:         req.Equipment,
		DietaryPreference: req.DietaryPreference,
		Allergies:         req.Allergies,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
