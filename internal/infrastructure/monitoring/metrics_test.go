package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSessionLifecycleCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionSpawned()
	m.SessionSpawned()
	m.SpawnFailed()
	m.SessionExited()
	m.SessionRemoved()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsSpawned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpawnFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues(ReasonExited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsEnded.WithLabelValues(ReasonDestroyed)))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.SessionsSpawned)
	assert.Equal(t, int64(1), snap.SessionsActive)
	assert.Equal(t, int64(1), snap.SpawnFailures)
}

func TestRecordBytes(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordBytes(DirectionIn, 10)
	m.RecordBytes(DirectionOut, 32)
	m.RecordBytes(DirectionOut, 0)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.BytesRouted.WithLabelValues(DirectionIn)))
	assert.Equal(t, 32.0, testutil.ToFloat64(m.BytesRouted.WithLabelValues(DirectionOut)))

	snap := m.Snapshot()
	assert.Equal(t, int64(10), snap.BytesIn)
	assert.Equal(t, int64(32), snap.BytesOut)
}

func TestStaleAndLayout(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.StaleEventDropped()
	m.SetLayout(3, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleEvents))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TabsOpen))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.PanesOpen))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TabsOpen)
	assert.Equal(t, int64(7), snap.PanesOpen)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SessionSpawned()
		m.SpawnFailed()
		m.SessionRemoved()
		m.SessionExited()
		m.RecordBytes(DirectionIn, 5)
		m.StaleEventDropped()
		m.RecordEvent("data")
		m.RecordCommand("input", "ok")
		m.SetLayout(1, 1)
		m.RecordWSMessage("in", "ping")
		m.IncWSConnections()
		m.DecWSConnections()
		m.RecordHTTPRequest("GET", "/", "200", 0)
	})
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/tabs/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tabs/42", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/tabs/:id", "204")))
	assert.Equal(t, int64(1), m.Snapshot().TotalRequests)
}
