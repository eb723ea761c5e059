package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ExtractionCollector bundles Prometheus metrics for the extraction
// pipeline and provides a ready-made /metrics handler.
type ExtractionCollector struct {
	gatherer prometheus.Gatherer

	JobsTotal      *prometheus.CounterVec
	StageDurations *prometheus.HistogramVec

	PacketsTotal     prometheus.Counter
	NearMissesTotal  prometheus.Counter
	TruncationsTotal prometheus.Counter
	LengthSkipsTotal prometheus.Counter
}

// NewExtractionCollector registers extraction Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewExtractionCollector(reg prometheus.Registerer) (*ExtractionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extraction_jobs_total",
		Help: "Total number of extraction jobs, labeled by telemetry source and outcome.",
	}, []string{"source", "outcome"})
	jobs, err := registerCounterVec(reg, jobs, "extraction_jobs_total")
	if err != nil {
		return nil, err
	}

	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "extraction_stage_duration_seconds",
		Help:    "Extraction stage latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})
	stages, err = registerHistogramVec(reg, stages, "extraction_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	packets, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "klv_packets_total",
		Help: "Cumulative number of KLV packets emitted by the stream scanner.",
	}), "klv_packets_total")
	if err != nil {
		return nil, err
	}
	nearMisses, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "klv_near_misses_total",
		Help: "Cumulative number of 16-byte windows that almost matched the universal key.",
	}), "klv_near_misses_total")
	if err != nil {
		return nil, err
	}
	truncations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "klv_truncations_total",
		Help: "Cumulative number of streams that ended inside a packet structure.",
	}), "klv_truncations_total")
	if err != nil {
		return nil, err
	}
	lengthSkips, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "klv_length_skips_total",
		Help: "Cumulative number of packets skipped for unusable length fields.",
	}), "klv_length_skips_total")
	if err != nil {
		return nil, err
	}

	return &ExtractionCollector{
		gatherer:         gatherer,
		JobsTotal:        jobs,
		StageDurations:   stages,
		PacketsTotal:     packets,
		NearMissesTotal:  nearMisses,
		TruncationsTotal: truncations,
		LengthSkipsTotal: lengthSkips,
	}, nil
}

// JobCompleted records one finished extraction job. Source is the telemetry
// origin reported in the result (klv, subtitle, or none); outcome is ok or
// error.
func (c *ExtractionCollector) JobCompleted(source, outcome string) {
	if c == nil || c.JobsTotal == nil {
		return
	}
	c.JobsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveStage records the wall time of one pipeline stage.
func (c *ExtractionCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// AddStreamDiagnostics folds scanner counters into the cumulative stream
// health metrics. Negative values are ignored.
func (c *ExtractionCollector) AddStreamDiagnostics(packets, nearMisses, truncations, lengthSkips int64) {
	if c == nil {
		return
	}
	if c.PacketsTotal != nil && packets > 0 {
		c.PacketsTotal.Add(float64(packets))
	}
	if c.NearMissesTotal != nil && nearMisses > 0 {
		c.NearMissesTotal.Add(float64(nearMisses))
	}
	if c.TruncationsTotal != nil && truncations > 0 {
		c.TruncationsTotal.Add(float64(truncations))
	}
	if c.LengthSkipsTotal != nil && lengthSkips > 0 {
		c.LengthSkipsTotal.Add(float64(lengthSkips))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ExtractionCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
