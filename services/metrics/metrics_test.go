package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus(t *testing.T) {
	m := New("erasmushub")

	m.ApplicationCreated()
	m.ApplicationCreated()
	m.ApplicationDecided("Approved")
	m.ApplicationDecided("Rejected")
	m.ApplicationDecided("Approved")
	m.DocumentsUploaded(3)
	m.DocumentsUploaded(0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.applicationsCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.applicationsDecided.WithLabelValues("Approved")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.applicationsDecided.WithLabelValues("Rejected")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.documentsUploaded))

	// two registries do not clash
	other := New("erasmushub")
	assert.Equal(t, float64(0), testutil.ToFloat64(other.applicationsCreated))
}

func TestPrometheus_Handler(t *testing.T) {
	m := New("erasmushub")
	m.ApplicationCreated()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "erasmushub_applications_created_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
