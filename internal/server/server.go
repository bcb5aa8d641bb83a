// Package server exposes the services over HTTP on the goa muxer.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"

	"rajhholding/internal/config"
	"rajhholding/internal/logging"
	"rajhholding/internal/metrics"
	"rajhholding/internal/ratelimit"
	"rajhholding/internal/services"
)

// Services are the handlers' collaborators
type Services struct {
	Teams    *services.TeamService
	Contacts *services.ContactService
	Sessions *services.SessionService
	Uploads  *services.UploadService
	Health   *services.HealthService
}

// Limiter counts requests in fixed windows
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error)
}

// Server routes HTTP requests to the services
type Server struct {
	cfg     *config.Config
	svc     Services
	limiter Limiter
	logger  *log.Logger
}

// New creates a server. limiter may be nil, which disables rate limiting.
func New(cfg *config.Config, svc Services, limiter Limiter, logger *log.Logger) *Server {
	return &Server{
		cfg:     cfg,
		svc:     svc,
		limiter: limiter,
		logger:  logger.WithPrefix("http"),
	}
}

// Mount registers every route on mux
func (s *Server) Mount(mux goahttp.Muxer) {
	mux.Handle(http.MethodGet, "/teams", s.guard(s.listTeams))
	mux.Handle(http.MethodPost, "/teams", s.guard(s.createTeamMember))
	mux.Handle(http.MethodPut, "/teams", s.guard(s.updateTeamMember))
	mux.Handle(http.MethodDelete, "/teams", s.guard(s.deleteTeamMember))

	mux.Handle(http.MethodGet, "/contacts", s.guard(s.listContacts))
	mux.Handle(http.MethodPost, "/contacts", s.guard(s.rateLimited("contacts", s.cfg.RateLimit.ContactLimit, s.createContact)))
	mux.Handle(http.MethodPut, "/contacts", s.guard(s.updateContactStatus))
	mux.Handle(http.MethodDelete, "/contacts", s.guard(s.deleteContact))

	mux.Handle(http.MethodGet, "/session", s.guard(s.checkSession))
	mux.Handle(http.MethodPost, "/session", s.guard(s.rateLimited("session", s.cfg.RateLimit.LoginLimit, s.login)))
	mux.Handle(http.MethodDelete, "/session", s.guard(s.logout))
	// login alias for dashboards that post to /login; shares the session bucket
	mux.Handle(http.MethodPost, "/login", s.guard(s.rateLimited("session", s.cfg.RateLimit.LoginLimit, s.login)))

	mux.Handle(http.MethodPost, "/upload", s.guard(s.upload))

	mux.Handle(http.MethodGet, "/health", s.guard(s.health))
	mux.Handle(http.MethodGet, "/metrics", promhttp.Handler().ServeHTTP)
}

// Handler returns the mounted muxer wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := goahttp.NewMuxer()
	s.Mount(mux)

	var handler http.Handler = metrics.PrometheusMiddleware(mux)
	handler = requestLogging(s.logger)(handler)
	handler = cors(&s.cfg.CORS, s.cfg.App.Debug)(handler)
	handler = securityHeaders(s.cfg)(handler)
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID()(handler)
	if s.cfg.App.TrustProxy {
		handler = handlers.ProxyHeaders(handler)
	}
	return recovery(s.logger)(handler)
}

// guard recovers handler panics into a JSON 500
func (s *Server) guard(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.encodeError(r.Context(), w, fmt.Errorf("panic: %v", rec))
			}
		}()
		h(w, r)
	}
}

// rateLimited rejects callers over limit requests per window. Limiter
// failures let the request through.
func (s *Server) rateLimited(endpoint string, limit int, h http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil || limit <= 0 {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		res, err := s.limiter.Allow(ctx, endpoint+":"+clientIP(r), limit, s.cfg.RateLimit.Window)
		if err != nil {
			logging.For(ctx, s.logger).Warn("rate limiter unavailable", "endpoint", endpoint, "err", err)
			h(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			metrics.RecordRateLimited(endpoint)
			if retry := time.Until(res.ResetAt); retry > 0 {
				hdr.Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			}
			s.encode(ctx, w, http.StatusTooManyRequests, errorBody{Error: "Rate limit exceeded"})
			return
		}
		h(w, r)
	}
}

// sessionToken reads the session cookie; "" when absent
func (s *Server) sessionToken(r *http.Request) string {
	c, err := r.Cookie(s.cfg.Session.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = s.cfg.Session.MaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   !s.cfg.App.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.cfg.App.Debug,
		SameSite: http.SameSiteLaxMode,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
