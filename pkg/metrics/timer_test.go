package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogram(t *testing.T, o prometheus.Observer) *dto.Histogram {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram()
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	d := timer.Duration()
	assert.GreaterOrEqual(t, d, 20*time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), d, "duration must not go backwards")
}

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_sync_duration_seconds",
		Help:    "Test histogram",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(h)
	timer.ObserveDuration(h)

	got := histogram(t, h)
	assert.Equal(t, uint64(2), got.GetSampleCount())
	assert.GreaterOrEqual(t, got.GetSampleSum(), 0.02)
}

func TestTimerObserveDurationVec(t *testing.T) {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_request_duration_seconds",
		Help:    "Test histogram vec",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	NewTimer().ObserveDurationVec(vec, "GET")
	NewTimer().ObserveDurationVec(vec, "GET")
	NewTimer().ObserveDurationVec(vec, "DELETE")

	assert.Equal(t, uint64(2), histogram(t, vec.WithLabelValues("GET")).GetSampleCount())
	assert.Equal(t, uint64(1), histogram(t, vec.WithLabelValues("DELETE")).GetSampleCount())
	assert.Equal(t, uint64(0), histogram(t, vec.WithLabelValues("PUT")).GetSampleCount())
}
