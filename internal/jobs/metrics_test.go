package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("purge").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("purge").End(boom), boom)
	m.AddItems("purge", 4)
	m.AddItems("purge", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("purge", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("purge", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("purge")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.items.WithLabelValues("purge")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.AddItems("x", 3)
}
