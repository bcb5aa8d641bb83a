package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddlewareCountsRequests(t *testing.T) {
	handler := PrometheusMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	counter := httpRequests.WithLabelValues("POST", "/teams", "201")
	before := testutil.ToFloat64(counter)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader(`{"name":"x"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestUnknownPathsShareOneLabel(t *testing.T) {
	handler := PrometheusMiddleware(http.NotFoundHandler())

	counter := httpRequests.WithLabelValues("GET", "other", "404")
	before := testutil.ToFloat64(counter)
	for _, p := range []string{"/wp-login.php", "/.env", "/teams/../admin"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestBusinessCounters(t *testing.T) {
	before := testutil.ToFloat64(contactStatusUpdates.WithLabelValues("archived"))
	RecordContactStatusUpdate("archived")
	assert.Equal(t, before+1, testutil.ToFloat64(contactStatusUpdates.WithLabelValues("archived")))

	before = testutil.ToFloat64(imageUploads.WithLabelValues("failure"))
	RecordImageUpload(false)
	assert.Equal(t, before+1, testutil.ToFloat64(imageUploads.WithLabelValues("failure")))

	before = testutil.ToFloat64(sessionChecks.WithLabelValues("authenticated"))
	RecordSessionCheck(true)
	assert.Equal(t, before+1, testutil.ToFloat64(sessionChecks.WithLabelValues("authenticated")))
}

func TestDBMetrics(t *testing.T) {
	before := testutil.ToFloat64(dbQueries.WithLabelValues("teams.list", "error"))
	RecordDBQuery("teams.list", time.Millisecond, errors.New("closed"))
	assert.Equal(t, before+1, testutil.ToFloat64(dbQueries.WithLabelValues("teams.list", "error")))

	UpdateDBConnections(3, 7)
	assert.Equal(t, 3.0, testutil.ToFloat64(dbOpenConns.WithLabelValues("in_use")))
	assert.Equal(t, 7.0, testutil.ToFloat64(dbOpenConns.WithLabelValues("idle")))
}
