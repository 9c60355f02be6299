package api

import (
	"fmt"
	"net/http"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultProgressWindow = 365 * 24 * time.Hour

type ProgressHandler struct {
	progressService service.ProgressService
}

func NewProgressHandler(progressService service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressService: progressService}
}

type BiometricsRequest struct {
	WeightKg     float64            `json:"weightKg" binding:"required"`
	HeightCm     float64            `json:"heightCm"`
	BodyFatPct   float64            `json:"bodyFatPct"`
	Measurements map[string]float64 `json:"measurements"`
	TakenAt      *time.Time         `json:"takenAt"`
}

type ConfirmPhotoRequest struct {
	ObjectKey   string     `json:"objectKey" binding:"required"`
	ContentType string     `json:"contentType" binding:"required"`
	Caption     string     `json:"caption"`
	TakenAt     *time.Time `json:"takenAt"`
}

func (h *ProgressHandler) RecordBiometrics(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req BiometricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	in := service.BiometricsInput{
		WeightKg:     req.WeightKg,
		HeightCm:     req.HeightCm,
		BodyFatPct:   req.BodyFatPct,
		Measurements: req.Measurements,
	}
	if req.TakenAt != nil {
		in.TakenAt = *req.TakenAt
	}

	b, err := h.progressService.RecordBiometrics(c.Request.Context(), session, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBiometrics returns ?memberId's entries (default the caller) in [from, to).
func (h *ProgressHandler) ListBiometrics(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	memberID, ok := optionalObjectID(c, "memberId")
	if !ok {
		return
	}
	from, to, ok := timeRange(c, defaultProgressWindow)
	if !ok {
		return
	}

	list, err := h.progressService.ListBiometrics(c.Request.Context(), session, memberID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []domain.Biometrics{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *ProgressHandler) RequestPhotoUpload(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.progressService.RequestPhotoUpload(c.Request.Context(), session, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (h *ProgressHandler) ConfirmPhoto(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req ConfirmPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	in := service.PhotoInput{
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		Caption:     req.Caption,
	}
	if req.TakenAt != nil {
		in.TakenAt = *req.TakenAt
	}

	photo, err := h.progressService.ConfirmPhoto(c.Request.Context(), session, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, photo)
}

func (h *ProgressHandler) ListPhotos(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	memberID, ok := optionalObjectID(c, "memberId")
	if !ok {
		return
	}
	photos, err := h.progressService.ListPhotos(c.Request.Context(), session, memberID)
	if err != nil {
		respondError(c, err)
		return
	}
	if photos == nil {
		photos = []service.PhotoView{}
	}
	c.JSON(http.StatusOK, photos)
}
