package services

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"rajhholding/internal/database"
	"rajhholding/internal/domain"
	"rajhholding/internal/logging"
	"rajhholding/internal/metrics"
	apperrors "rajhholding/pkg/errors"
)

// CreateTeamMemberPayload is the body of a roster insert
type CreateTeamMemberPayload struct {
	Session    string  `json:"-"`
	Name       string  `json:"name"`
	Role       *string `json:"role"`
	Company    *string `json:"company"`
	ImageURL   *string `json:"image_url"`
	OrderIndex *int    `json:"order_index"`
}

// UpdateTeamMemberPayload is a partial update; nil fields are left alone
type UpdateTeamMemberPayload struct {
	Session    string  `json:"-"`
	ID         string  `json:"id"`
	Name       *string `json:"name"`
	Role       *string `json:"role"`
	Company    *string `json:"company"`
	ImageURL   *string `json:"image_url"`
	OrderIndex *int    `json:"order_index"`
}

// DeleteTeamMemberPayload identifies a roster entry
type DeleteTeamMemberPayload struct {
	Session string
	ID      string
}

// TeamService implements the team roster
type TeamService struct {
	gateway  *database.Gateway
	verifier *SessionVerifier
	logger   *log.Logger
	now      func() time.Time
}

// NewTeamService creates a new team service
func NewTeamService(gateway *database.Gateway, verifier *SessionVerifier, logger *log.Logger) (*TeamService, error) {
	if gateway == nil || verifier == nil {
		return nil, apperrors.Configuration("team service requires a store gateway and a session verifier")
	}
	return &TeamService{
		gateway:  gateway,
		verifier: verifier,
		logger:   logger.WithPrefix("team"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// List returns the public roster. A store failure yields an empty roster so
// the public page still renders.
func (s *TeamService) List(ctx context.Context) []*domain.TeamMember {
	members := []*domain.TeamMember{}
	err := s.gateway.Anonymous().Run(ctx, "teams.list", func(tx *gorm.DB) error {
		return tx.Order("order_index ASC").Order("created_at ASC").Order("id ASC").Find(&members).Error
	})
	if err != nil {
		logging.For(ctx, s.logger).Error("list failed", "err", err)
		return []*domain.TeamMember{}
	}
	return members
}

// Create adds a roster entry
func (s *TeamService) Create(ctx context.Context, p *CreateTeamMemberPayload) (*domain.TeamMember, error) {
	logger := logging.For(ctx, s.logger)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, BadRequest("Name is required")
	}

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("create failed: scoped client", "err", err)
		return nil, StoreFailure("Failed to create team member")
	}

	member := &domain.TeamMember{
		Name:       name,
		Role:       valueOr(p.Role, ""),
		Company:    valueOr(p.Company, ""),
		ImageURL:   valueOr(p.ImageURL, ""),
		OrderIndex: valueOr(p.OrderIndex, 0),
	}
	if err := client.Run(ctx, "teams.create", func(tx *gorm.DB) error {
		return tx.Create(member).Error
	}); err != nil {
		logger.Error("create failed: database error", "err", err)
		return nil, StoreFailure("Failed to create team member")
	}

	metrics.RecordTeamMutation("create")
	logger.Info("team member created", "id", member.ID, "by", principal.Email)
	return member, nil
}

// Update applies the supplied fields and refreshes updated_at
func (s *TeamService) Update(ctx context.Context, p *UpdateTeamMemberPayload) (*domain.TeamMember, error) {
	logger := logging.For(ctx, s.logger)

	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, BadRequest("Team member ID is required")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, BadRequest("Name is required")
	}

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("update failed: scoped client", "err", err)
		return nil, StoreFailure("Failed to update team member")
	}

	updates := map[string]any{"updated_at": s.now()}
	if p.Name != nil {
		updates["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Role != nil {
		updates["role"] = *p.Role
	}
	if p.Company != nil {
		updates["company"] = *p.Company
	}
	if p.ImageURL != nil {
		updates["image_url"] = *p.ImageURL
	}
	if p.OrderIndex != nil {
		updates["order_index"] = *p.OrderIndex
	}

	var member domain.TeamMember
	err = client.Run(ctx, "teams.update", func(tx *gorm.DB) error {
		res := tx.Model(&domain.TeamMember{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "team member "+id)
		}
		return tx.Where("id = ?", id).First(&member).Error
	})
	if err != nil {
		logger.Error("update failed", "id", id, "err", err, "not_found", apperrors.IsNotFound(err))
		return nil, StoreFailure("Failed to update team member")
	}

	metrics.RecordTeamMutation("update")
	logger.Info("team member updated", "id", id, "by", principal.Email)
	return &member, nil
}

// Delete removes a roster entry. Deleting a missing entry succeeds.
func (s *TeamService) Delete(ctx context.Context, p *DeleteTeamMemberPayload) error {
	logger := logging.For(ctx, s.logger)

	id := strings.TrimSpace(p.ID)
	if id == "" {
		return BadRequest("Team member ID is required")
	}

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("delete failed: scoped client", "err", err)
		return StoreFailure("Failed to delete team member")
	}

	if err := client.Run(ctx, "teams.delete", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&domain.TeamMember{}).Error
	}); err != nil {
		logger.Error("delete failed: database error", "id", id, "err", err)
		return StoreFailure("Failed to delete team member")
	}

	metrics.RecordTeamMutation("delete")
	logger.Info("team member deleted", "id", id, "by", principal.Email)
	return nil
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
