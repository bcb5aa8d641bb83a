package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"rajhholding/internal/database"
	"rajhholding/internal/domain"
	"rajhholding/internal/logging"
	"rajhholding/internal/metrics"
	apperrors "rajhholding/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactNotifier is the second destination of every contact submission
type ContactNotifier interface {
	NotifyContact(ctx context.Context, submission *domain.ContactSubmission) error
}

// CreateContactPayload is the public contact form
type CreateContactPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ListContactsPayload selects one page of submissions. Zero values select
// the defaults.
type ListContactsPayload struct {
	Session string
	Page    int
	Limit   int
}

// UpdateContactStatusPayload moves a submission to another status
type UpdateContactStatusPayload struct {
	Session string `json:"-"`
	ID      string `json:"id"`
	Status  string `json:"status"`
}

// DeleteContactPayload identifies a submission
type DeleteContactPayload struct {
	Session string
	ID      string
}

// ContactPage is one page of submissions, newest first
type ContactPage struct {
	Data       []*domain.ContactSubmission `json:"data"`
	Pagination domain.Pagination           `json:"pagination"`
}

// ContactService implements contact submissions
type ContactService struct {
	gateway  *database.Gateway
	verifier *SessionVerifier
	notifier ContactNotifier
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	draining bool
	pending  sync.WaitGroup
}

// NewContactService creates a new contact service. notifier may be nil, in
// which case submissions are only stored.
func NewContactService(gateway *database.Gateway, verifier *SessionVerifier, notifier ContactNotifier, logger *log.Logger) (*ContactService, error) {
	if gateway == nil || verifier == nil {
		return nil, apperrors.Configuration("contact service requires a store gateway and a session verifier")
	}
	return &ContactService{
		gateway:  gateway,
		verifier: verifier,
		notifier: notifier,
		logger:   logger.WithPrefix("contact"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create stores a public submission with status "new" and notifies the
// admin inbox. The two writes are independent: neither waits for nor undoes
// the other.
func (s *ContactService) Create(ctx context.Context, p *CreateContactPayload) (*domain.ContactSubmission, error) {
	logger := logging.For(ctx, s.logger)

	name := strings.TrimSpace(p.Name)
	email := strings.TrimSpace(p.Email)
	message := strings.TrimSpace(p.Message)
	if name == "" || email == "" || message == "" {
		return nil, BadRequest("Name, email, and message are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, BadRequest("Invalid email address")
	}

	submission := &domain.ContactSubmission{
		Name:    name,
		Email:   email,
		Message: message,
		Status:  domain.StatusNew,
	}
	err := s.gateway.Privileged().Run(ctx, "contacts.create", func(tx *gorm.DB) error {
		return tx.Create(submission).Error
	})

	s.notify(ctx, submission, err == nil)

	if err != nil {
		logger.Error("submit failed: database error", "email", email, "err", err)
		return nil, StoreFailure("Failed to submit contact form")
	}

	metrics.RecordContactSubmission()
	logger.Info("submission stored", "id", submission.ID, "email", email)
	return submission, nil
}

// notify hands the submission to the notifier without blocking the request.
// The copy keeps the goroutine independent of the caller. A submission that
// was not stored carries no reference.
func (s *ContactService) notify(ctx context.Context, submission *domain.ContactSubmission, stored bool) {
	if s.notifier == nil {
		return
	}
	snapshot := *submission
	if !stored {
		snapshot.ID = ""
	}
	ctx = context.WithoutCancel(ctx)
	logger := logging.For(ctx, s.logger)

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		logger.Warn("notification skipped: shutting down", "email", snapshot.Email)
		return
	}
	s.pending.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		if err := s.notifier.NotifyContact(ctx, &snapshot); err != nil {
			metrics.RecordContactNotification("failed")
			logger.Warn("notification failed", "email", snapshot.Email, "err", err)
			return
		}
		logger.Debug("notification delivered", "id", snapshot.ID)
	}()
}

// Drain stops new notifications and waits for in-flight ones
func (s *ContactService) Drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.pending.Wait()
}

// List returns one page of submissions. The count and the page are read
// concurrently.
func (s *ContactService) List(ctx context.Context, p *ListContactsPayload) (*ContactPage, error) {
	logger := logging.For(ctx, s.logger)
	page, limit := domain.NormalizePage(p.Page, p.Limit)

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("list failed: scoped client", "err", err)
		return nil, StoreFailure("Failed to fetch submissions")
	}

	var (
		total    int64
		rows     = []*domain.ContactSubmission{}
		countErr error
		listErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		countErr = client.Run(gctx, "contacts.count", func(tx *gorm.DB) error {
			return tx.Model(&domain.ContactSubmission{}).Count(&total).Error
		})
		return countErr
	})
	g.Go(func() error {
		listErr = client.Run(gctx, "contacts.list", func(tx *gorm.DB) error {
			return tx.Order("created_at DESC").Order("id DESC").
				Offset(domain.Offset(page, limit)).Limit(limit).Find(&rows).Error
		})
		return listErr
	})
	_ = g.Wait()

	if countErr != nil {
		logger.Error("list failed: count", "err", countErr)
		return nil, StoreFailure("Failed to count submissions")
	}
	if listErr != nil {
		logger.Error("list failed: fetch", "err", listErr)
		return nil, StoreFailure("Failed to fetch submissions")
	}

	logger.Debug("list successful", "page", page, "limit", limit, "returned", len(rows), "total", total)
	return &ContactPage{Data: rows, Pagination: domain.NewPagination(page, limit, total)}, nil
}

// UpdateStatus moves a submission to any of the accepted statuses
func (s *ContactService) UpdateStatus(ctx context.Context, p *UpdateContactStatusPayload) (*domain.ContactSubmission, error) {
	logger := logging.For(ctx, s.logger)

	id := strings.TrimSpace(p.ID)
	if id == "" || p.Status == "" {
		return nil, BadRequest("ID and status are required")
	}
	status := domain.ContactStatus(p.Status)
	if !status.Valid() {
		return nil, BadRequest("Invalid status")
	}

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return nil, err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("status update failed: scoped client", "err", err)
		return nil, StoreFailure("Failed to update submission")
	}

	var submission domain.ContactSubmission
	err = client.Run(ctx, "contacts.update_status", func(tx *gorm.DB) error {
		res := tx.Model(&domain.ContactSubmission{}).Where("id = ?", id).
			Updates(map[string]any{"status": status, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "contact submission "+id)
		}
		return tx.Where("id = ?", id).First(&submission).Error
	})
	if err != nil {
		logger.Error("status update failed", "id", id, "err", err, "not_found", apperrors.IsNotFound(err))
		return nil, StoreFailure("Failed to update submission")
	}

	metrics.RecordContactStatusUpdate(string(status))
	logger.Info("status updated", "id", id, "status", status, "by", principal.Email)
	return &submission, nil
}

// Delete removes a submission
func (s *ContactService) Delete(ctx context.Context, p *DeleteContactPayload) error {
	logger := logging.For(ctx, s.logger)

	id := strings.TrimSpace(p.ID)
	if id == "" {
		return BadRequest("Submission ID is required")
	}

	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return err
	}
	client, err := s.gateway.Scoped(principal)
	if err != nil {
		logger.Error("delete failed: scoped client", "err", err)
		return StoreFailure("Failed to delete submission")
	}

	if err := client.Run(ctx, "contacts.delete", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&domain.ContactSubmission{}).Error
	}); err != nil {
		logger.Error("delete failed: database error", "id", id, "err", err)
		return StoreFailure("Failed to delete submission")
	}

	logger.Info("submission deleted", "id", id, "by", principal.Email)
	return nil
}
