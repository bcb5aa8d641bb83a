package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rajhholding/internal/domain"
	"rajhholding/internal/metrics"
	"rajhholding/internal/util"
	apperrors "rajhholding/pkg/errors"
)

// Mode is the privilege level a Client runs with. The values double as the
// PostgreSQL roles assumed for each transaction.
type Mode string

const (
	ModeAnonymous  Mode = "anon"
	ModeScoped     Mode = "authenticated"
	ModePrivileged Mode = "service_role"
)

// Gateway hands out store clients bound to exactly one privilege level
type Gateway struct {
	db *gorm.DB
}

// NewGateway wraps an open connection
func NewGateway(db *gorm.DB) (*Gateway, error) {
	if db == nil {
		return nil, apperrors.Configuration("store gateway requires an open database connection")
	}
	return &Gateway{db: db}, nil
}

// Client runs store operations under one privilege level
type Client struct {
	db     *gorm.DB
	mode   Mode
	claims string
}

// Anonymous returns a client subject to the public row-level policies
func (g *Gateway) Anonymous() *Client {
	return &Client{db: g.db, mode: ModeAnonymous, claims: `{"role":"anon"}`}
}

// Scoped returns a client acting as the verified principal. The token's own
// claims are forwarded so policies can inspect any of them.
func (g *Gateway) Scoped(p *domain.Principal) (*Client, error) {
	if p == nil || p.UserID == "" {
		return nil, fmt.Errorf("scoped client requires a verified principal")
	}

	claims := map[string]any{}
	if parsed, err := util.ParseClaims(p.Token); err == nil {
		for k, v := range parsed {
			claims[k] = v
		}
	}
	claims["sub"] = p.UserID
	claims["role"] = string(ModeScoped)
	if p.Email != "" {
		claims["email"] = p.Email
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claims: %w", err)
	}
	return &Client{db: g.db, mode: ModeScoped, claims: string(raw)}, nil
}

// Privileged returns a client that bypasses row-level security. Reserved for
// writes the public is allowed to make but not to read back.
func (g *Gateway) Privileged() *Client {
	return &Client{db: g.db, mode: ModePrivileged}
}

// DB returns the underlying connection for health checks
func (g *Gateway) DB() *gorm.DB {
	return g.db
}

// Mode reports the client's privilege level
func (c *Client) Mode() Mode {
	return c.mode
}

// Claims returns the JSON claims installed for each transaction
func (c *Client) Claims() string {
	return c.claims
}

// Run executes fn in a transaction under the client's privilege level and
// records it as operation.
func (c *Client) Run(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	start := time.Now()
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.assumeRole(tx); err != nil {
			return err
		}
		return fn(tx)
	})
	metrics.RecordDBQuery(operation, time.Since(start), err)
	return err
}

// assumeRole switches the transaction to the client's role. SQLite has no
// roles, so development databases run every mode unrestricted.
func (c *Client) assumeRole(tx *gorm.DB) error {
	if !isPostgres(tx) || c.mode == ModePrivileged {
		return nil
	}
	if err := tx.Exec("SET LOCAL ROLE " + string(c.mode)).Error; err != nil {
		return fmt.Errorf("failed to assume role %s: %w", c.mode, err)
	}
	if c.claims != "" {
		if err := tx.Exec("SELECT set_config('request.jwt.claims', ?, true)", c.claims).Error; err != nil {
			return fmt.Errorf("failed to install claims: %w", err)
		}
	}
	return nil
}
