package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("nodepop_test")

	m.IncListingsCreated()
	m.IncListingsCreated()
	m.IncImagesIngested()
	m.IncIngestFailure("decode")
	m.IncSearches()
	m.ObserveHTTP(http.MethodGet, "/apiv1/anuncios", http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestFailures.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestLatency))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncListingsCreated()
		m.IncImagesIngested()
		m.IncIngestFailure("write")
		m.IncSearches()
		m.ObserveHTTP(http.MethodPost, "/", http.StatusCreated, time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("nodepop_test")
	m.IncSearches()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodepop_test_listing_searches_total 1")
}
