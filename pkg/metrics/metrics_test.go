package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisteredWithDefaultRegistry(t *testing.T) {
	BackendSelections.WithLabelValues("10.0.0.1:9001").Inc()
	HealthProbesTotal.WithLabelValues("10.0.0.1:9001", "success").Inc()
	EmailsSentTotal.WithLabelValues("welcome").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	selections := byName["microservices_lb_backend_selections_total"]
	require.NotNil(t, selections)
	assert.Equal(t, dto.MetricType_COUNTER, selections.GetType())

	probes := byName["microservices_lb_health_probes_total"]
	require.NotNil(t, probes)
	require.NotEmpty(t, probes.GetMetric())
	labels := probes.GetMetric()[0].GetLabel()
	assert.Len(t, labels, 2)

	require.NotNil(t, byName["microservices_emails_sent_total"])
	assert.Equal(t, dto.MetricType_HISTOGRAM, byName["microservices_lb_connection_duration_seconds"].GetType())
}

func TestBytesThroughputDirections(t *testing.T) {
	before := testutil.ToFloat64(BytesThroughput.WithLabelValues("in"))
	BytesThroughput.WithLabelValues("in").Add(4096)
	after := testutil.ToFloat64(BytesThroughput.WithLabelValues("in"))
	assert.Equal(t, before+4096, after)

	// Directions are independent series.
	out := testutil.ToFloat64(BytesThroughput.WithLabelValues("out"))
	BytesThroughput.WithLabelValues("in").Add(1)
	assert.Equal(t, out, testutil.ToFloat64(BytesThroughput.WithLabelValues("out")))
}

func TestBackendsHealthyGauge(t *testing.T) {
	BackendsHealthy.Set(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(BackendsHealthy))
	BackendsHealthy.Set(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(BackendsHealthy))
}

func TestConnectionLifecycleCounters(t *testing.T) {
	total := testutil.ToFloat64(ConnectionsTotal)
	current := testutil.ToFloat64(ConnectionsCurrent)

	ConnectionsTotal.Inc()
	ConnectionsCurrent.Inc()
	assert.Equal(t, total+1, testutil.ToFloat64(ConnectionsTotal))
	assert.Equal(t, current+1, testutil.ToFloat64(ConnectionsCurrent))

	ConnectionsCurrent.Dec()
	assert.Equal(t, current, testutil.ToFloat64(ConnectionsCurrent))
}
