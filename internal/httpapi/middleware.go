package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"invest-platform-go/internal/auth"
	"invest-platform-go/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const claimsContextKey = "authClaims"

// ipLimiter hands out one token bucket per client IP. The map is held by the
// server instance, not a package global, so tests and multiple servers do not
// share buckets. Once the map reaches maxTracked entries, buckets idle for
// longer than idleAfter are evicted before a new one is added.
type ipLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	maxTracked int
	idleAfter  time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	return &ipLimiter{
		limiters:   map[string]*limiterEntry{},
		rate:       rate.Limit(perSecond),
		burst:      burst,
		maxTracked: 10000,
		idleAfter:  10 * time.Minute,
	}
}

func (l *ipLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	entry, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= l.maxTracked {
			l.evictIdle(now)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle drops buckets not used within idleAfter. Callers hold the lock.
// An idle client that returns later simply starts from a full bucket again.
func (l *ipLimiter) evictIdle(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleAfter {
			delete(l.limiters, ip)
		}
	}
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiterFor(c.ClientIP()).Allow() {
			writeError(c, http.StatusTooManyRequests, codeRateLimit, "too many requests")
			return
		}
		c.Next()
	}
}

// requireAuth resolves the bearer token into claims and stamps the acting
// user onto the request context for the audit trail.
func requireAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(c, http.StatusUnauthorized, codePermissionDenied, "missing bearer token")
			return
		}

		claims, err := authService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(c, http.StatusUnauthorized, codePermissionDenied, "invalid or expired token")
			return
		}

		c.Set(claimsContextKey, claims)
		c.Request = c.Request.WithContext(models.WithActor(c.Request.Context(), claims.UserId))
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || claims.Role != "admin" {
			writeError(c, http.StatusForbidden, codePermissionDenied, "admin role required")
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*auth.Claims)
	return claims
}

// authorizeUser allows admins everywhere and clients only on their own data.
func authorizeUser(c *gin.Context, userId string) bool {
	claims := claimsFrom(c)
	if claims == nil {
		writeError(c, http.StatusUnauthorized, codePermissionDenied, "not authenticated")
		return false
	}
	if claims.Role == "admin" || claims.UserId == userId {
		return true
	}
	writeError(c, http.StatusForbidden, codePermissionDenied, "cannot access another user's data")
	return false
}
