package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder backed by a Prometheus registry.
type PrometheusRecorder struct {
	compilesStarted  *prometheus.CounterVec
	compilesFinished *prometheus.CounterVec
	compileDuration  *prometheus.HistogramVec
	typesetPasses    *prometheus.CounterVec
	sweepUnits       *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder and registers its collectors.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		compilesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bindery_compiles_started_total",
			Help: "Number of format renders started.",
		}, []string{"format"}),
		compilesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bindery_compiles_finished_total",
			Help: "Number of format renders finished, by result.",
		}, []string{"format", "result"}),
		compileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bindery_compile_duration_seconds",
			Help:    "Duration of format renders.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		typesetPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bindery_typeset_passes_total",
			Help: "Number of external typesetter passes executed.",
		}, []string{"pass"}),
		sweepUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bindery_sweep_units_total",
			Help: "Units handled by tree sweeps, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.compilesStarted, r.compilesFinished, r.compileDuration, r.typesetPasses, r.sweepUnits)
	return r
}

func (r *PrometheusRecorder) CompileStarted(unit, format string) {
	r.compilesStarted.WithLabelValues(format).Inc()
}

func (r *PrometheusRecorder) CompileFinished(unit, format string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.compilesFinished.WithLabelValues(format, result).Inc()
	r.compileDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) TypesetPass(unit string, pass int) {
	r.typesetPasses.WithLabelValues(strconv.Itoa(pass)).Inc()
}

func (r *PrometheusRecorder) UnitsSwept(compiled, skipped, failed int) {
	r.sweepUnits.WithLabelValues("compiled").Add(float64(compiled))
	r.sweepUnits.WithLabelValues("skipped").Add(float64(skipped))
	r.sweepUnits.WithLabelValues("failed").Add(float64(failed))
}
