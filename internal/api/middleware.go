package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"gymdesk/platform/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Constants for context keys
const (
	ContextSessionKey   = "session"
	ContextRequestIDKey = "requestID"

	requestIDHeader = "X-Request-ID"
)

// TokenParser verifies a bearer token and returns the caller's session.
type TokenParser interface {
	ParseToken(tokenString string) (domain.Session, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
// Browsers cannot set headers on websocket upgrades, so those requests
// may pass the token as the access_token query parameter instead.
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, msg := bearerToken(c)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, msg)
			return
		}

		session, err := parser.ParseToken(tokenString)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			if t := c.Query("access_token"); t != "" {
				return t, ""
			}
		}
		return "", "Authorization header is missing"
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", "Authorization header format must be Bearer {token}"
	}
	return parts[1], ""
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessionFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "Session not found in context")
			return
		}

		for _, allowedRole := range allowedRoles {
			if session.Role == allowedRole {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", session.Role))
	}
}

// sessionFromContext returns the session set by AuthMiddleware.
func sessionFromContext(c *gin.Context) (domain.Session, error) {
	raw, exists := c.Get(ContextSessionKey)
	if !exists {
		return domain.Session{}, errors.New("session not found in context")
	}
	session, ok := raw.(domain.Session)
	if !ok {
		return domain.Session{}, errors.New("invalid session type in context")
	}
	return session, nil
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := []any{
			"requestId", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if s, err := sessionFromContext(c); err == nil {
			fields = append(fields, "userId", s.UserID.Hex())
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Errorw("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Infow("request rejected", fields...)
		default:
			log.Debugw("request served", fields...)
		}
	}
}

// userLimiter hands out one token bucket per user.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	buckets  map[primitive.ObjectID]*bucket
	maxIdle  time.Duration
	lastTrim time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(perMinute int) *userLimiter {
	return &userLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/4, 1),
		buckets: make(map[primitive.ObjectID]*bucket),
		maxIdle: 10 * time.Minute,
	}
}

func (l *userLimiter) allow(userID primitive.ObjectID, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastTrim) > l.maxIdle {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.maxIdle {
				delete(l.buckets, id)
			}
		}
		l.lastTrim = now
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimitMiddleware caps requests per authenticated user. Must run
// AFTER AuthMiddleware. perMinute <= 0 disables it.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newUserLimiter(perMinute)
	return func(c *gin.Context) {
		session, err := sessionFromContext(c)
		if err != nil {
			c.Next()
			return
		}
		if !limiter.allow(session.UserID, time.Now()) {
			c.Header("Retry-After", "60")
			abortWithError(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
