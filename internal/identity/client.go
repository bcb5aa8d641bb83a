// Package identity is a client for the hosted auth service (Supabase Auth)
// that owns the admin accounts and issues session tokens.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"rajhholding/internal/config"
	apperrors "rajhholding/pkg/errors"
)

// User is the provider's view of an account
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is the result of a successful sign-in
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Error is a non-2xx answer from the provider
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider: %d: %s", e.Status, e.Message)
}

// Rejected reports whether the provider refused the request itself rather
// than failing to answer it.
func (e *Error) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// Client wraps the auth-go client. auth-go builds its requests without a
// context, so every call runs on a copy whose transport carries the caller's.
type Client struct {
	baseURL    string
	anon       auth.Client
	admin      auth.Client
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the configured project. Calls carry the caller's
// context and no timeout of their own.
func New(cfg *config.SupabaseConfig, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, apperrors.Configuration("identity provider configuration missing")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	authURL := cfg.BaseURL() + "/auth/v1"
	c := &Client{
		baseURL:    cfg.BaseURL(),
		anon:       auth.New("", cfg.AnonKey).WithCustomAuthURL(authURL),
		httpClient: &http.Client{},
	}
	if cfg.ServiceRoleKey != "" {
		c.admin = auth.New("", cfg.ServiceRoleKey).WithCustomAuthURL(authURL).WithToken(cfg.ServiceRoleKey)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetUser resolves the account behind an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := c.bind(ctx, c.anon).WithToken(accessToken).GetUser()
	if err != nil {
		return nil, translate(err)
	}
	user := toUser(resp.User)
	return &user, nil
}

// SignInWithPassword exchanges credentials for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.bind(ctx, c.anon).SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, translate(err)
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
		User:         toUser(resp.User),
	}, nil
}

// SignOut revokes the session behind accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return translate(c.bind(ctx, c.anon).WithToken(accessToken).Logout())
}

// CreateUser provisions a confirmed account through the admin API. It needs
// the service-role key.
func (c *Client) CreateUser(ctx context.Context, email, password string) (*User, error) {
	if c.admin == nil {
		return nil, apperrors.Configuration("SUPABASE_SERVICE_ROLE_KEY must be set to create users")
	}
	resp, err := c.bind(ctx, c.admin).AdminCreateUser(types.AdminCreateUserRequest{
		Email:        email,
		Password:     &password,
		EmailConfirm: true,
	})
	if err != nil {
		return nil, translate(err)
	}
	user := toUser(resp.User)
	return &user, nil
}

// Host returns the provider host, for logging
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return u.Host
}

func (c *Client) bind(ctx context.Context, base auth.Client) auth.Client {
	hc := *c.httpClient
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = contextTransport{ctx: ctx, next: next}
	return base.WithClient(hc)
}

type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

func toUser(u types.User) User {
	return User{ID: u.ID.String(), Email: u.Email, Role: u.Role}
}

// auth-go reports non-2xx answers as "response status code <n>: <body>".
var statusPattern = regexp.MustCompile(`(?s)^response status code (\d{3})(?:: (.*))?$`)

func translate(err error) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apperrors.Wrap(apperrors.ErrCodeUpstream, "identity provider unreachable", err)
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return fmt.Errorf("identity provider: %w", err)
	}
	status, _ := strconv.Atoi(m[1])
	return decodeError(status, []byte(m[2]))
}

// decodeError reads the provider's error payload. The auth service has used
// several shapes over time, so every known field is tried.
func decodeError(status int, raw []byte) error {
	var payload struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)

	e := &Error{Status: status, Code: payload.ErrorCode}
	if e.Code == "" {
		e.Code = payload.Error
	}
	if e.Code == "" {
		if code, ok := payload.Code.(string); ok {
			e.Code = code
		}
	}
	for _, m := range []string{payload.Msg, payload.ErrorDescription, payload.Message, payload.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
