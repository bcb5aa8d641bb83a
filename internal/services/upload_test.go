package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rajhholding/internal/imghost"
	"rajhholding/internal/logging"
	apperrors "rajhholding/pkg/errors"
)

type fakeImageHost struct {
	uploads int
	err     error
}

func (f *fakeImageHost) Upload(ctx context.Context, name string, data []byte) (*imghost.Image, error) {
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	return &imghost.Image{
		URL:        "https://i.ibb.co/abc/" + name,
		DisplayURL: "https://i.ibb.co/abc/display-" + name,
		ThumbURL:   "https://i.ibb.co/abc/thumb-" + name,
	}, nil
}

func newUploadService(t *testing.T, h *harness, host ImageHost) *UploadService {
	t.Helper()
	svc, err := NewUploadService(host, h.verifier, logging.Discard())
	require.NoError(t, err)
	return svc
}

func TestNewUploadServiceRequiresVerifier(t *testing.T) {
	_, err := NewUploadService(&fakeImageHost{}, nil, logging.Discard())
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestUploadWithoutImageHost(t *testing.T) {
	h := newHarness(t)
	svc := newUploadService(t, h, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, &UploadPayload{Session: "forged", Data: []byte("x")})
	assert.Equal(t, ErrNameUnauthorized, ErrorName(err))

	_, err = svc.Upload(ctx, &UploadPayload{Session: adminToken, Filename: "team.jpg", Data: []byte("x")})
	assert.Equal(t, ErrNameUpload, ErrorName(err))
	assert.EqualError(t, err, "Failed to upload image")
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	host := &fakeImageHost{}
	svc := newUploadService(t, h, host)

	res, err := svc.Upload(context.Background(), &UploadPayload{Session: adminToken, Filename: "team.jpg", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "https://i.ibb.co/abc/team.jpg", res.URL)
	assert.Equal(t, "https://i.ibb.co/abc/display-team.jpg", res.DisplayURL)
	assert.Equal(t, "https://i.ibb.co/abc/thumb-team.jpg", res.ThumbURL)
	assert.Empty(t, res.DeleteURL)
}

func TestUploadRequiresImageThenSession(t *testing.T) {
	h := newHarness(t)
	host := &fakeImageHost{}
	svc := newUploadService(t, h, host)
	ctx := context.Background()

	_, err := svc.Upload(ctx, &UploadPayload{Session: adminToken})
	assert.Equal(t, ErrNameBadRequest, ErrorName(err))
	assert.EqualError(t, err, "No image provided")

	_, err = svc.Upload(ctx, &UploadPayload{Session: "forged", Data: []byte("x")})
	assert.Equal(t, ErrNameUnauthorized, ErrorName(err))
	assert.Zero(t, host.uploads)
}

func TestUploadHostFailure(t *testing.T) {
	h := newHarness(t)
	host := &fakeImageHost{err: &imghost.Error{Status: 400, Message: "Invalid API v1 key.", Payload: `{"status_code":400}`}}
	svc := newUploadService(t, h, host)

	_, err := svc.Upload(context.Background(), &UploadPayload{Session: adminToken, Data: []byte("x")})
	assert.Equal(t, ErrNameUpload, ErrorName(err))
	assert.EqualError(t, err, "Failed to upload image")
}
