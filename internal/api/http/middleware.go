package httpapi

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pledgekit-backend/internal/logger"
	"pledgekit-backend/internal/ratelimit"
	"pledgekit-backend/internal/security"
)

type ctxKey string

const (
	requestIDKey ctxKey = "reqid"
	claimsKey    ctxKey = "claims"
)

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(r *http.Request) string {
	if s, ok := r.Context().Value(requestIDKey).(string); ok {
		return s
	}
	return ""
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }
func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		logger.Info("http request",
			"reqid", GetRequestID(r), "method", r.Method, "uri", r.RequestURI,
			"status", sw.status, "bytes", sw.bytes, "duration", time.Since(start),
			"ip", clientIP(r), "user_agent", r.UserAgent())
	})
}

// Recoverer converts a handler panic into a 500 problem response
// instead of tearing down the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				reqid := GetRequestID(r)
				logger.Error("panic in handler",
					"panic", rec, "reqid", reqid, "uri", r.RequestURI, "method", r.Method,
					"stack", string(debug.Stack()))
				WriteProblem(w, http.StatusInternalServerError, "Internal Server Error",
					"unexpected server error (see logs by reqid)", map[string]any{"reqid": reqid})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type authMiddleware struct {
	tokens security.TokenManager
}

// Require rejects requests without a valid access token.
func (m *authMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.claimsFromRequest(r)
		if !ok {
			WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches claims when a valid token is present but lets
// anonymous requests through. Listing and read endpoints use it so the
// visibility rules can widen for signed-in users.
func (m *authMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := m.claimsFromRequest(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), claimsKey, claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *authMiddleware) claimsFromRequest(r *http.Request) (*security.UserClaims, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, false
	}
	claims, err := m.tokens.ValidateToken(token)
	if err != nil || claims.Type != security.TokenTypeAccess {
		return nil, false
	}
	return claims, true
}

// Claims returns the authenticated user's claims, if any.
func Claims(r *http.Request) (*security.UserClaims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*security.UserClaims)
	return claims, ok
}

// ActorID returns the authenticated user id or nil for anonymous
// requests, in the shape the access layer expects.
func ActorID(r *http.Request) *int32 {
	if claims, ok := Claims(r); ok {
		return &claims.UserID
	}
	return nil
}

// RateLimit applies a fixed-window limit keyed by client IP.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(clientIP(r))
			if !allowed {
				seconds := int(retryAfter.Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				WriteProblem(w, http.StatusTooManyRequests, "Too Many Requests",
					"rate limit exceeded, slow down", map[string]any{"retry_after_seconds": seconds})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when running behind the proxy.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
