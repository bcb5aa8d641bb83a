package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"

	"rajhholding/internal/config"
	"rajhholding/internal/logging"
)

// securityHeaders adds security headers to responses
func securityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			h.Set("Server", "")

			// HSTS only makes sense behind TLS
			if !cfg.App.Debug && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cors echoes allowed origins with credentials so the dashboard can send
// the session cookie.
func cors(cfg *config.CORSConfig, debug bool) func(http.Handler) http.Handler {
	wildcard := len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*"
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if !debug && !wildcard && origin != "" && !slices.Contains(cfg.AllowedOrigins, origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			h := w.Header()
			if origin != "" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			} else if debug {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Expose-Headers", "Content-Type, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
			h.Set("Access-Control-Max-Age", maxAge)
			h.Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogging logs every request except health probes
func requestLogging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			m := httpsnoop.CaptureMetrics(next, w, r)
			l := logging.For(r.Context(), logger).With(
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"duration", m.Duration,
				"bytes", m.Written,
				"remote", r.RemoteAddr,
			)
			if m.Code >= http.StatusInternalServerError {
				l.Error("request failed")
			} else {
				l.Info("request")
			}
		})
	}
}

// recovery turns panics into bare 500s and logs the stack
func recovery(logger *log.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})),
		handlers.PrintRecoveryStack(true),
	)
}
