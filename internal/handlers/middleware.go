package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"famhealth/internal/activemember"
	"famhealth/internal/models"
	"famhealth/internal/security"
	"famhealth/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey         ContextKey = "user"
	SessionContextKey      ContextKey = "session"
	ActiveMemberContextKey ContextKey = "active_member"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	registry    *activemember.Registry
	limiter     *security.RateLimiter
	clientIP    *security.ClientIPResolver
}

// NewMiddleware creates a new middleware instance. A nil clientIP keys the
// rate limiter on the connecting peer only.
func NewMiddleware(authService *service.AuthService, registry *activemember.Registry, limiter *security.RateLimiter, clientIP *security.ClientIPResolver) *Middleware {
	return &Middleware{
		authService: authService,
		registry:    registry,
		limiter:     limiter,
		clientIP:    clientIP,
	}
}

// RequireAuth is middleware that requires a valid bearer access token. The
// session row is checked on every request so logout revokes immediately.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		user, sess, err := m.authService.Authenticate(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		store, ok := m.registry.For(*sess)
		if !ok {
			// signed out while this request was in flight
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, sess)
		ctx = context.WithValue(ctx, ActiveMemberContextKey, store)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(m.clientIP.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging middleware logs HTTP requests and records request metrics
func Logging(metrics *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		// Call next handler
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, elapsed)

		if metrics != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			metrics.duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		}
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionFromContext retrieves the session from the request context
func GetSessionFromContext(ctx context.Context) *models.Session {
	sess, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetActiveMemberStore retrieves the session's active-member store
func GetActiveMemberStore(ctx context.Context) *activemember.Store {
	store, ok := ctx.Value(ActiveMemberContextKey).(*activemember.Store)
	if !ok {
		return nil
	}
	return store
}

// activeMember returns the caller's current selection, answering 409 when
// nothing is selected.
func activeMember(w http.ResponseWriter, r *http.Request) (models.ActiveMember, bool) {
	store := GetActiveMemberStore(r.Context())
	if store == nil {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return models.ActiveMember{}, false
	}
	member, ok := store.Get()
	if !ok {
		respondWithError(w, http.StatusConflict, ErrNoActiveMember, "", nil)
		return models.ActiveMember{}, false
	}
	return member, true
}
