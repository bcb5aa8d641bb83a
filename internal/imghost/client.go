// Package imghost relays images to the ImgBB hosting API.
package imghost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rajhholding/internal/config"
	apperrors "rajhholding/pkg/errors"
)

// Image is a hosted image
type Image struct {
	URL        string
	DisplayURL string
	ThumbURL   string
	DeleteURL  string
}

// Error is a rejected or malformed upload. Payload holds the provider's raw
// answer for logging.
type Error struct {
	Status  int
	Message string
	Payload string
}

func (e *Error) Error() string {
	return fmt.Sprintf("image host: %d: %s", e.Status, e.Message)
}

// Client uploads images with a fixed API key
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a client; the API key is required
func New(cfg *config.UploadConfig, hc *http.Client) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, apperrors.Configuration("IMGBB_API_KEY must be set")
	}
	if cfg.Endpoint == "" {
		return nil, apperrors.Configuration("IMGBB_ENDPOINT must be set")
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, httpClient: hc}, nil
}

type uploadResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
		Thumb      struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends data base64-encoded, as the API expects
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*Image, error) {
	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(data))
	if name != "" {
		form.Set("name", name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUpstream, "image host unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	var out uploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "malformed response", Payload: string(raw)}
	}
	if resp.StatusCode != http.StatusOK || !out.Success || out.Data.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = "upload rejected"
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg, Payload: string(raw)}
	}

	return &Image{
		URL:        out.Data.URL,
		DisplayURL: out.Data.DisplayURL,
		ThumbURL:   out.Data.Thumb.URL,
		DeleteURL:  out.Data.DeleteURL,
	}, nil
}
