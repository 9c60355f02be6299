package api

import (
	"net/http"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/realtime"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	streamer            *realtime.Streamer
	log                 *zap.SugaredLogger
}

func NewNotificationHandler(notificationService service.NotificationService, streamer *realtime.Streamer, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, streamer: streamer, log: log}
}

// List returns the caller's latest notifications; ?unread=true filters.
func (h *NotificationHandler) List(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	list, err := h.notificationService.List(c.Request.Context(), session, c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []domain.Notification{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "notificationId")
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(c.Request.Context(), session, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Stream upgrades to a websocket that pushes new notifications as they
// are created. It returns when the client disconnects.
func (h *NotificationHandler) Stream(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.streamer.Serve(c.Writer, c.Request, session.UserID); err != nil {
		h.log.Debugw("notification stream ended", "user", session.UserID.Hex(), "error", err)
		if !c.Writer.Written() {
			abortWithError(c, http.StatusServiceUnavailable, "Notification stream unavailable")
		}
	}
}
