package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.CompileStarted("guide", "html")
	rec.CompileFinished("guide", "html", 50*time.Millisecond, nil)
	rec.CompileFinished("guide", "pdf", time.Second, errors.New("boom"))
	rec.TypesetPass("guide", 1)
	rec.TypesetPass("guide", 2)
	rec.UnitsSwept(3, 1, 0)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(rec.compilesStarted.WithLabelValues("html")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(rec.compilesFinished.WithLabelValues("html", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(rec.compilesFinished.WithLabelValues("pdf", "error")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(rec.typesetPasses.WithLabelValues("2")))
	assert.Equal(t, float64(3),
		testutil.ToFloat64(rec.sweepUnits.WithLabelValues("compiled")))
}

func TestRecorderInterfaces(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = &PrometheusRecorder{}
}
