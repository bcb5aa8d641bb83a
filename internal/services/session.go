package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"rajhholding/internal/domain"
	"rajhholding/internal/identity"
	"rajhholding/internal/logging"
	"rajhholding/internal/metrics"
	"rajhholding/internal/util"
	apperrors "rajhholding/pkg/errors"
)

// IdentityProvider is the external service that owns admin accounts
type IdentityProvider interface {
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SessionVerifier decides whether a session token belongs to a live admin
// session. It fails closed: anything other than a positive answer from the
// provider is treated as unauthenticated.
type SessionVerifier struct {
	provider IdentityProvider
	logger   *log.Logger
	now      func() time.Time
}

// NewSessionVerifier creates a verifier backed by provider
func NewSessionVerifier(provider IdentityProvider, logger *log.Logger) (*SessionVerifier, error) {
	if provider == nil {
		return nil, apperrors.Configuration("session verifier requires an identity provider")
	}
	return &SessionVerifier{
		provider: provider,
		logger:   logger.WithPrefix("session"),
		now:      time.Now,
	}, nil
}

// Verify returns the principal behind token. An empty or expired token is
// rejected without contacting the provider.
func (v *SessionVerifier) Verify(ctx context.Context, token string) (principal *domain.Principal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.For(ctx, v.logger).Error("session verification panicked", "panic", r)
			principal, ok = nil, false
		}
		metrics.RecordSessionCheck(ok)
	}()

	if token == "" {
		return nil, false
	}
	if util.IsExpired(token, v.now()) {
		logging.For(ctx, v.logger).Debug("session token expired")
		return nil, false
	}

	user, err := v.provider.GetUser(ctx, token)
	if err != nil {
		if apperrors.IsUpstream(err) {
			logging.For(ctx, v.logger).Error("session check failed", "err", err)
		} else {
			logging.For(ctx, v.logger).Warn("session rejected", "err", err)
		}
		return nil, false
	}
	if user == nil || user.ID == "" {
		return nil, false
	}
	return &domain.Principal{Token: token, UserID: user.ID, Email: user.Email}, true
}

// Authorize is Verify for operations that require a session
func (v *SessionVerifier) Authorize(ctx context.Context, token string) (*domain.Principal, error) {
	principal, ok := v.Verify(ctx, token)
	if !ok {
		return nil, Unauthorized()
	}
	return principal, nil
}

// SessionUser is the public view of the signed-in admin
type SessionUser struct {
	Email string `json:"email"`
}

// SessionStatus answers "is this caller signed in"
type SessionStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user,omitempty"`
}

// LoginPayload carries admin credentials
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a new session; Token goes into the session cookie
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      SessionUser
}

// SessionService implements the session endpoints
type SessionService struct {
	verifier *SessionVerifier
	provider IdentityProvider
	logger   *log.Logger
}

// NewSessionService creates a new session service
func NewSessionService(verifier *SessionVerifier, provider IdentityProvider, logger *log.Logger) (*SessionService, error) {
	if verifier == nil || provider == nil {
		return nil, apperrors.Configuration("session service requires a verifier and an identity provider")
	}
	return &SessionService{verifier: verifier, provider: provider, logger: logger.WithPrefix("session")}, nil
}

// Check reports whether token is a live session. It never fails.
func (s *SessionService) Check(ctx context.Context, token string) *SessionStatus {
	principal, ok := s.verifier.Verify(ctx, token)
	if !ok {
		return &SessionStatus{Authenticated: false}
	}
	return &SessionStatus{Authenticated: true, User: &SessionUser{Email: principal.Email}}
}

// Login exchanges admin credentials for a session token
func (s *SessionService) Login(ctx context.Context, p *LoginPayload) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" || p.Password == "" {
		return nil, BadRequest("Email and password are required")
	}

	logger := logging.For(ctx, s.logger)
	session, err := s.provider.SignInWithPassword(ctx, email, p.Password)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		var providerErr *identity.Error
		if errors.As(err, &providerErr) && providerErr.Rejected() {
			logger.Info("login rejected", "email", email, "code", providerErr.Code)
			return nil, UnauthorizedWithMessage("Invalid email or password")
		}
		logger.Error("login failed", "email", email, "err", err)
		return nil, InternalFailure("Login failed")
	}
	if session.AccessToken == "" {
		metrics.RecordAuthAttempt(false)
		logger.Error("login returned no access token", "email", email)
		return nil, InternalFailure("Login failed")
	}

	metrics.RecordAuthAttempt(true)
	logger.Info("login successful", "email", email)

	userEmail := session.User.Email
	if userEmail == "" {
		userEmail = email
	}
	return &LoginResult{
		Token:     session.AccessToken,
		ExpiresIn: time.Duration(session.ExpiresIn) * time.Second,
		User:      SessionUser{Email: userEmail},
	}, nil
}

// Logout revokes the session at the provider. Failures are logged only;
// the caller clears the cookie either way.
func (s *SessionService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.provider.SignOut(ctx, token); err != nil {
		logging.For(ctx, s.logger).Warn("provider sign-out failed", "err", err)
	}
}
