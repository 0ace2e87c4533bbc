package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/Placement-Tracker/internal/auth"
	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/logging"
	"go.uber.org/zap"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate requires a valid bearer token and puts its subject on the
// request context, where auth.ContextIdentity finds it.
func Authenticate(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	log = logging.OrNop(log)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, log, common.NewError(common.CodeUnauthorized, "missing authorization header", nil))
			return
		}
		userID, err := verifier.Verify(header)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) {
				log.Warn("token verification failed", zap.Error(err))
			}
			respondError(c, log, common.NewError(common.CodeUnauthorized, "invalid token", err))
			return
		}
		c.Set("user_id", userID)
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), userID))
		c.Next()
	}
}

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// MemoryLimiter is a fixed-window limiter for a single process. Expired
// buckets are swept at most once per window.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	nextSweep time.Time
	now       func() time.Time
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if now.After(l.nextSweep) {
		for k, b := range l.buckets {
			if now.After(b.windowEnd) {
				delete(l.buckets, k)
			}
		}
		l.nextSweep = now.Add(window)
	}
	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		l.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// RateLimit limits requests per signed-in user, falling back to the client IP.
// A non-positive limit or nil limiter disables it.
func RateLimit(limiter Limiter, scope string, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	log = logging.OrNop(log)
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		who := c.GetString("user_id")
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, who)
		if !limiter.Allow(key, limit, window) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			respondError(c, log, common.NewError(common.CodeRateLimited,
				fmt.Sprintf("too many requests, at most %d per %s", limit, window), nil))
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with zap.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = logging.OrNop(log)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
