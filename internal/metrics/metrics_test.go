package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Decision("clarify", "ai", "", time.Millisecond)
	m.Search(true, time.Millisecond)
	m.Rerank("ok")
	m.UsageDropped()
	m.EventDropped()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestDecisionCounters(t *testing.T) {
	m := New()
	m.Decision("adjust", "fallback", "timeout", 20*time.Millisecond)
	m.Decision("adjust", "ai", "", 5*time.Millisecond)
	m.Decision("adjust", "fallback", "parse", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("adjust", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("adjust", "ai")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("adjust", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("adjust", "parse")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Search(false, time.Millisecond)
	m.Rerank("skipped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.True(t, strings.Contains(out, `waypoint_searches_total{vector="false"} 1`), out)
	assert.True(t, strings.Contains(out, `waypoint_reranks_total{outcome="skipped"} 1`))
	assert.True(t, strings.Contains(out, "go_goroutines"))
}
