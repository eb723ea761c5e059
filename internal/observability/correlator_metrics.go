package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CorrelationCollector exposes correlator-specific Prometheus metrics.
type CorrelationCollector struct {
	gatherer prometheus.Gatherer

	MatchDuration      prometheus.Histogram
	PointsLoaded       prometheus.Gauge
	SegmentsEnriched   prometheus.Counter
	VisualSegmentRatio prometheus.Gauge
}

// NewCorrelationCollector registers correlator metrics against the provided registerer.
func NewCorrelationCollector(reg prometheus.Registerer) (*CorrelationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	matchHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "correlation_match_duration_seconds",
		Help:    "Duration of matching one segment list against the telemetry track.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
	matchHistogram, err := registerHistogram(reg, matchHistogram, "correlation_match_duration_seconds")
	if err != nil {
		return nil, err
	}

	pointsGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "correlation_points_loaded",
		Help: "Number of time-stamped telemetry points held by the current correlator.",
	})
	pointsGauge, err = registerGauge(reg, pointsGauge, "correlation_points_loaded")
	if err != nil {
		return nil, err
	}

	enriched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "correlation_segments_enriched_total",
		Help: "Cumulative number of segments that received a geospatial context.",
	})
	enriched, err = registerCounter(reg, enriched, "correlation_segments_enriched_total")
	if err != nil {
		return nil, err
	}

	visualRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "correlation_visual_segment_ratio",
		Help: "Share of enriched segments flagged as likely visual observations in the last run.",
	})
	visualRatio, err = registerGauge(reg, visualRatio, "correlation_visual_segment_ratio")
	if err != nil {
		return nil, err
	}

	return &CorrelationCollector{
		gatherer:           gatherer,
		MatchDuration:      matchHistogram,
		PointsLoaded:       pointsGauge,
		SegmentsEnriched:   enriched,
		VisualSegmentRatio: visualRatio,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *CorrelationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveMatch records the duration of one correlation run.
func (c *CorrelationCollector) ObserveMatch(d time.Duration) {
	if c == nil || c.MatchDuration == nil {
		return
	}
	c.MatchDuration.Observe(d.Seconds())
}

// SetPointsLoaded updates the loaded-points gauge.
func (c *CorrelationCollector) SetPointsLoaded(count int) {
	if c == nil || c.PointsLoaded == nil {
		return
	}
	c.PointsLoaded.Set(float64(count))
}

// AddSegmentsEnriched increments the enriched-segment counter.
func (c *CorrelationCollector) AddSegmentsEnriched(count int) {
	if c == nil || c.SegmentsEnriched == nil || count <= 0 {
		return
	}
	c.SegmentsEnriched.Add(float64(count))
}

// SetVisualSegmentRatio sets the likely-visual share for the last run.
func (c *CorrelationCollector) SetVisualSegmentRatio(ratio float64) {
	if c == nil || c.VisualSegmentRatio == nil {
		return
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.VisualSegmentRatio.Set(ratio)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
