package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.RecordRequest("jingle", "ok")
	m.RecordRequest("jingle", "ok")
	m.RecordThrottle("rolling_window")
	m.RecordPersistenceFailure()
	score := 0.42
	m.RecordVerdict("bgm", true, &score)
	m.RecordVerdict("bgm", false, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("jingle", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttles.WithLabelValues("rolling_window")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdicts.WithLabelValues("bgm", "false")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("generate", "ok")
	m.RecordVerdict("bgm", true, nil)
	m.RecordThrottle("daily")
	m.RecordPersistenceFailure()
	m.ObserveStage("plan", time.Millisecond)
	m.RecordHTTP("GET", "/health", 200)
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordHTTP("POST", "/jingle", 429)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `musigent_http_requests_total{method="POST",route="/jingle",status="429"} 1`)
}
