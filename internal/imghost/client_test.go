package imghost

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rajhholding/internal/config"
	apperrors "rajhholding/pkg/errors"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New(&config.UploadConfig{Endpoint: "https://api.imgbb.com/1/upload"}, nil)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "imgbb-key", r.PostForm.Get("key"))
		assert.Equal(t, "portrait.png", r.PostForm.Get("name"))
		decoded, err := base64.StdEncoding.DecodeString(r.PostForm.Get("image"))
		assert.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), decoded)

		_, _ = w.Write([]byte(`{"success":true,"status":200,"data":{
			"url":"https://i.ibb.co/x/portrait.png",
			"display_url":"https://i.ibb.co/x/portrait-display.png",
			"delete_url":"https://ibb.co/x/delete",
			"thumb":{"url":"https://i.ibb.co/x/thumb.png"}}}`))
	}))
	defer srv.Close()

	c, err := New(&config.UploadConfig{Endpoint: srv.URL, APIKey: "imgbb-key"}, srv.Client())
	require.NoError(t, err)

	img, err := c.Upload(context.Background(), "portrait.png", []byte("\x89PNG"))
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x/portrait.png", img.URL)
	assert.Equal(t, "https://i.ibb.co/x/portrait-display.png", img.DisplayURL)
	assert.Equal(t, "https://i.ibb.co/x/thumb.png", img.ThumbURL)
	assert.Equal(t, "https://ibb.co/x/delete", img.DeleteURL)
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status_code":400,"error":{"message":"Invalid API v1 key.","code":100},"status_txt":"Bad Request"}`))
	}))
	defer srv.Close()

	c, err := New(&config.UploadConfig{Endpoint: srv.URL, APIKey: "bad"}, srv.Client())
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), "", []byte("data"))
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, http.StatusBadRequest, uploadErr.Status)
	assert.Equal(t, "Invalid API v1 key.", uploadErr.Message)
	assert.Contains(t, uploadErr.Payload, "status_txt")
}

func TestUploadMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c, err := New(&config.UploadConfig{Endpoint: srv.URL, APIKey: "k"}, srv.Client())
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), "", []byte("data"))
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "malformed response", uploadErr.Message)
}

func TestUploadUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(&config.UploadConfig{Endpoint: srv.URL, APIKey: "imgbb-key"}, srv.Client())
	require.NoError(t, err)
	srv.Close()

	_, err = c.Upload(context.Background(), "portrait.png", []byte("\x89PNG"))
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}
