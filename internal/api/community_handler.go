package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommunityHandler serves the gym's member feed.
type CommunityHandler struct {
	communityService service.CommunityService
}

func NewCommunityHandler(communityService service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

type CreatePostRequest struct {
	Content  string `json:"content" binding:"required"`
	ImageKey string `json:"imageKey"`
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type HiddenRequest struct {
	Hidden bool `json:"hidden"`
}

func (h *CommunityHandler) CreatePost(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	post, err := h.communityService.CreatePost(c.Request.Context(), session, req.Content, req.ImageKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Feed pages with ?limit and ?offset. Out of range values are clamped.
func (h *CommunityHandler) Feed(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	limit, err1 := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)
	offset, err2 := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if err1 != nil || err2 != nil {
		abortWithError(c, http.StatusBadRequest, "limit and offset must be integers")
		return
	}

	posts, err := h.communityService.Feed(c.Request.Context(), session, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []service.PostView{}
	}
	c.JSON(http.StatusOK, posts)
}

func (h *CommunityHandler) GetPost(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID, ok := objectIDParam(c, "postId")
	if !ok {
		return
	}
	post, err := h.communityService.GetPost(c.Request.Context(), session, postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *CommunityHandler) Comment(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID, ok := objectIDParam(c, "postId")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	comment, err := h.communityService.Comment(c.Request.Context(), session, postID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *CommunityHandler) Like(c *gin.Context) {
	h.postAction(c, h.communityService.Like)
}

func (h *CommunityHandler) Unlike(c *gin.Context) {
	h.postAction(c, h.communityService.Unlike)
}

func (h *CommunityHandler) Report(c *gin.Context) {
	h.postAction(c, h.communityService.Report)
}

func (h *CommunityHandler) DeletePost(c *gin.Context) {
	h.postAction(c, h.communityService.DeletePost)
}

type postActionFunc func(ctx context.Context, s domain.Session, postID primitive.ObjectID) error

func (h *CommunityHandler) postAction(c *gin.Context, fn postActionFunc) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	postID, ok := objectIDParam(c, "postId")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), session, postID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) RequestImageUpload(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	ticket, err := h.communityService.RequestImageUpload(c.Request.Context(), session, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// --- Moderation ---

func (h *CommunityHandler) SetPostHidden(c *gin.Context) {
	h.setHidden(c, "postId", h.communityService.SetPostHidden)
}

func (h *CommunityHandler) SetCommentHidden(c *gin.Context) {
	h.setHidden(c, "commentId", h.communityService.SetCommentHidden)
}

func (h *CommunityHandler) setHidden(c *gin.Context, param string, fn func(context.Context, domain.Session, primitive.ObjectID, bool) error) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, param)
	if !ok {
		return
	}
	var req HiddenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	if err := fn(c.Request.Context(), session, id, req.Hidden); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CommunityHandler) ListReported(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	posts, err := h.communityService.ListReported(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []service.PostView{}
	}
	c.JSON(http.StatusOK, posts)
}
