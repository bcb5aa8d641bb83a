package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"rajhholding/internal/imghost"
	"rajhholding/internal/logging"
	"rajhholding/internal/metrics"
	apperrors "rajhholding/pkg/errors"
)

// ImageHost stores images and returns their public URLs
type ImageHost interface {
	Upload(ctx context.Context, name string, data []byte) (*imghost.Image, error)
}

// UploadPayload is a single image from the admin dashboard
type UploadPayload struct {
	Session  string
	Filename string
	Data     []byte
}

// UploadResult carries the hosted image URLs
type UploadResult struct {
	Success    bool   `json:"success"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
	ThumbURL   string `json:"thumb_url,omitempty"`
	DeleteURL  string `json:"delete_url,omitempty"`
}

// UploadService relays admin image uploads to the image host
type UploadService struct {
	host     ImageHost
	verifier *SessionVerifier
	logger   *log.Logger
}

// NewUploadService creates a new upload service. host may be nil, in which
// case every upload fails.
func NewUploadService(host ImageHost, verifier *SessionVerifier, logger *log.Logger) (*UploadService, error) {
	if verifier == nil {
		return nil, apperrors.Configuration("upload service requires a session verifier")
	}
	return &UploadService{host: host, verifier: verifier, logger: logger.WithPrefix("upload")}, nil
}

// Upload relays p.Data and returns the hosted URLs
func (s *UploadService) Upload(ctx context.Context, p *UploadPayload) (*UploadResult, error) {
	logger := logging.For(ctx, s.logger)

	if len(p.Data) == 0 {
		return nil, BadRequest("No image provided")
	}
	principal, err := s.verifier.Authorize(ctx, p.Session)
	if err != nil {
		return nil, err
	}

	if s.host == nil {
		metrics.RecordImageUpload(false)
		logger.Error("upload failed: image host not configured", "file", p.Filename)
		return nil, UploadFailure("Failed to upload image")
	}

	logger.Info("relaying image", "file", p.Filename, "size", humanize.Bytes(uint64(len(p.Data))), "by", principal.Email)
	img, err := s.host.Upload(ctx, p.Filename, p.Data)
	if err != nil {
		metrics.RecordImageUpload(false)
		var hostErr *imghost.Error
		if errors.As(err, &hostErr) {
			logger.Error("image host rejected upload", "status", hostErr.Status, "payload", hostErr.Payload)
		} else {
			logger.Error("upload failed", "err", err)
		}
		return nil, UploadFailure("Failed to upload image")
	}

	metrics.RecordImageUpload(true)
	return &UploadResult{
		Success:    true,
		URL:        img.URL,
		DisplayURL: img.DisplayURL,
		ThumbURL:   img.ThumbURL,
		DeleteURL:  img.DeleteURL,
	}, nil
}
