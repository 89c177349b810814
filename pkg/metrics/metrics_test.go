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

func TestRecordRun(t *testing.T) {
	m := New()
	m.RecordRun("demo", true, 20*time.Millisecond)
	m.RecordRun("demo", false, 5*time.Millisecond)
	m.RecordRun("demo", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("demo", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("demo", "failure")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun("demo", true, time.Second)
		m.RecordStepFailure("transform")
		m.RecordBridge("timeout")
		m.RecordPlacement("cloud", false)
		m.RecordSink("file", true)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordPlacement("server", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `placement_decisions_total{qualified="true",tier="server"} 1`)
}
