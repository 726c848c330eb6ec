package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the ID assigned to the request by RequestLogger.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an X-Request-ID and logs its outcome.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))

			logger.Info("request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					writeError(w, r, logger, Internal(fmt.Errorf("panic: %v", p)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS allows GET requests from origins. A "*" entry allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !(allowAll || allowed[origin]) {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
					h.Set("Access-Control-Allow-Headers", req)
				}
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter caps requests per client address over a fixed window.
type RateLimiter struct {
	limit  int
	window time.Duration
	exempt map[string]bool
	now    func() time.Time

	mu       sync.Mutex
	requests map[string]*clientRequests
}

type clientRequests struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter allows limit requests per window. Requests whose
// Authorization header is one of exemptKeys are never limited.
func NewRateLimiter(limit int, window time.Duration, exemptKeys []string) *RateLimiter {
	exempt := make(map[string]bool, len(exemptKeys))
	for _, k := range exemptKeys {
		exempt[k] = true
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		exempt:   exempt,
		now:      time.Now,
		requests: make(map[string]*clientRequests),
	}
}

// allow records a request from client and reports whether it is within the
// limit, how many requests remain and when the window resets.
func (l *RateLimiter) allow(client string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, c := range l.requests {
		if now.Sub(c.windowStart) > l.window {
			delete(l.requests, ip)
		}
	}

	c, ok := l.requests[client]
	if !ok {
		c = &clientRequests{windowStart: now}
		l.requests[client] = c
	}
	reset := c.windowStart.Add(l.window)
	if c.count >= l.limit {
		return false, 0, reset
	}
	c.count++
	return true, l.limit - c.count, reset
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("Authorization"); key != "" && l.exempt[key] {
			next.ServeHTTP(w, r)
			return
		}

		ok, remaining, reset := l.allow(clientAddr(r))
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", reset.UTC().Format(time.RFC3339))
		if !ok {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
