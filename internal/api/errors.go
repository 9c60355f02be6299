package api

import (
	"errors"
	"net/http"
	"time"

	"gymdesk/platform/internal/domain"
	"gymdesk/platform/internal/repository"
	"gymdesk/platform/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// errorStatus pairs service errors with the status they are reported as.
// The first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrInvalidToken, http.StatusUnauthorized},
	{service.ErrAuthenticationFailed, http.StatusUnauthorized},

	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrForeignKey, http.StatusForbidden},
	{service.ErrNotAMember, http.StatusForbidden},
	{service.ErrMemberLimitReached, http.StatusForbidden},

	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidColor, http.StatusBadRequest},
	{service.ErrInvalidDateRange, http.StatusBadRequest},
	{service.ErrInvalidTierChange, http.StatusBadRequest},
	{service.ErrRestDay, http.StatusBadRequest},

	{service.ErrGymNotFound, http.StatusNotFound},
	{service.ErrGymCodeNotFound, http.StatusNotFound},
	{service.ErrMembershipPlanNotFound, http.StatusNotFound},
	{service.ErrMembershipNotFound, http.StatusNotFound},
	{service.ErrPaymentNotFound, http.StatusNotFound},
	{service.ErrPlanNotFound, http.StatusNotFound},
	{service.ErrPlanDayNotFound, http.StatusNotFound},
	{service.ErrPostNotFound, http.StatusNotFound},
	{service.ErrCommentNotFound, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{repository.ErrNotFound, http.StatusNotFound},

	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrAlreadyLiked, http.StatusConflict},
	{service.ErrNotLiked, http.StatusConflict},
	{service.ErrOutOfStock, http.StatusConflict},
	{repository.ErrOutOfStock, http.StatusConflict},
	{service.ErrProductUnavailable, http.StatusConflict},
	{service.ErrMembershipPlanInactive, http.StatusConflict},
	{service.ErrMembershipNotActive, http.StatusConflict},
	{service.ErrPlanNotActive, http.StatusConflict},
	{repository.ErrDuplicate, http.StatusConflict},

	{service.ErrPaymentNotCompleted, http.StatusPaymentRequired},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as a JSON error. Unexpected errors are recorded
// on the context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		abortWithError(c, status, "An unexpected error occurred")
		return
	}
	abortWithError(c, status, err.Error())
}

// currentSession reads the session, aborting with 401 when it is absent.
func currentSession(c *gin.Context) (domain.Session, bool) {
	s, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user")
		return s, false
	}
	return s, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalObjectID parses an optional hex id from the query string.
func optionalObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return primitive.NilObjectID, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseTime accepts RFC 3339 timestamps and plain dates (UTC midnight).
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}

// timeRange reads from/to query parameters. Missing bounds default to
// the last def up to now.
func timeRange(c *gin.Context, def time.Duration) (time.Time, time.Time, bool) {
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'to' date")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	from := to.Add(-def)
	if raw := c.Query("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'from' date")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	return from, to, true
}
