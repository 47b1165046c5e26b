package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"playlister/core/auth"
	"playlister/logger"

	"golang.org/x/time/rate"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserIDFromContext returns the authenticated user id, or "" for guests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Verify requires a valid session cookie and stores its user id in the
// request context.
func (s *Server) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.CookieName)
		if err != nil || cookie.Value == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"loggedIn":     false,
				"user":         nil,
				"errorMessage": "Unauthorized",
			})
			return
		}

		userID, err := s.tokens.Verify(cookie.Value)
		if err != nil {
			logger.Debug("Rejected session token", logger.ErrorField(err))
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"loggedIn":     false,
				"user":         nil,
				"errorMessage": "Unauthorized",
			})
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// VerifyUser returns the user id of a valid session cookie, or "".
func (s *Server) VerifyUser(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return id
	}
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	userID, err := s.tokens.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	return userID
}

// cors allows the single configured origin to call the API with credentials.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && origin == s.cfg.CORSOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger logs method, path, status and duration of every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.statusCode),
			logger.Duration("duration", time.Since(start)),
			logger.String("remote", clientIP(r)))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ========== 限流 ==========

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

// newIPLimiter allows perMinute requests per address. perMinute <= 0
// disables limiting.
func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ipLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		idle:      10 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimited rejects callers that exceed the auth rate limit.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !s.authLimiter.allow(ip) {
			loginRejections.Inc()
			logger.Warn("Auth request rate limited",
				logger.String("remote", ip),
				logger.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			writeFailure(w, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
			return
		}
		next(w, r)
	}
}
