package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestRecordersUpdateDefaultRegistry(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := counterValue(t, "psharp_runtime_machines_created_total", map[string]string{"type": "MetricsTest"})
	RecordCreate("MetricsTest")
	RecordCreate("MetricsTest")
	after := counterValue(t, "psharp_runtime_machines_created_total", map[string]string{"type": "MetricsTest"})
	assert.Equal(t, before+2, after)

	RecordSend("MetricsTest", false)
	assert.GreaterOrEqual(t, counterValue(t, "psharp_runtime_events_sent_total",
		map[string]string{"type": "MetricsTest", "delivered": "false"}), 1.0)

	SetQueueDepth("metrics-test", 3)
	assert.Equal(t, 3.0, counterValue(t, "psharp_scheduler_queue_depth", map[string]string{"queue": "metrics-test"}))

	RecordStep("test")
	RecordDispatch("machines", time.Millisecond)
	RecordIteration("metrics-test", "pass")
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordIteration("handler-test", "fail")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `psharp_engine_iterations_total{program="handler-test",verdict="fail"}`)
}
