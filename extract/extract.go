// Package extract orchestrates the telemetry pipeline: scan a raw byte
// stream for KLV packets, decode them, fall back to subtitle captions when
// the stream carries no positions, and correlate whatever track was found
// with transcript segments.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/fmv-telemetry/correlate"
	"github.com/signalsfoundry/fmv-telemetry/internal/logging"
	"github.com/signalsfoundry/fmv-telemetry/internal/observability"
	"github.com/signalsfoundry/fmv-telemetry/klv"
	"github.com/signalsfoundry/fmv-telemetry/model"
	"github.com/signalsfoundry/fmv-telemetry/srt"
	"github.com/signalsfoundry/fmv-telemetry/st0601"
	"github.com/signalsfoundry/fmv-telemetry/track"
)

const tracerName = "github.com/signalsfoundry/fmv-telemetry/extract"

// Telemetry sources reported in Result.Source.
const (
	SourceKLV      = "klv"
	SourceSubtitle = "subtitle"
	SourceNone     = "none"
)

// Input carries everything one extraction job works from. Stream and
// Subtitles are both optional; Segments may be empty.
type Input struct {
	AssetID   string
	Stream    io.Reader
	Subtitles string
	Segments  []model.ContentSegment
}

// Stats summarises what the pipeline saw while processing one input.
type Stats struct {
	Stream           klv.Diagnostics `json:"stream"`
	TagsDecoded      int             `json:"tags_decoded"`
	TagsDropped      int             `json:"tags_dropped"`
	TagsUnknown      int             `json:"tags_unknown"`
	TruncatedPackets int             `json:"truncated_packets"`
	SubtitlePoints   int             `json:"subtitle_points"`
}

// Result is the outcome of one extraction job. A job that finds no
// geospatial data at all still succeeds: Source is none, Points is empty,
// and the segments come back without geo context.
type Result struct {
	Source   string                  `json:"source"`
	Points   []model.TelemetryPoint  `json:"points"`
	Segments []model.EnrichedSegment `json:"segments"`
	Stats    Stats                   `json:"stats"`
}

// Extractor runs extraction jobs. The zero value is not usable; construct
// with New.
type Extractor struct {
	log         logging.Logger
	metrics     *observability.ExtractionCollector
	correlation *observability.CorrelationCollector
	store       *track.Store
	scanOpts    []klv.Option
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the job logger. The default drops all logs.
func WithLogger(l logging.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(c *observability.ExtractionCollector) Option {
	return func(e *Extractor) { e.metrics = c }
}

// WithCorrelationMetrics attaches correlator metrics.
func WithCorrelationMetrics(c *observability.CorrelationCollector) Option {
	return func(e *Extractor) { e.correlation = c }
}

// WithTrackStore publishes each job's track and segments to the store,
// keyed by the input's AssetID.
func WithTrackStore(s *track.Store) Option {
	return func(e *Extractor) { e.store = s }
}

// WithScannerOptions forwards options to the KLV scanner.
func WithScannerOptions(opts ...klv.Option) Option {
	return func(e *Extractor) { e.scanOpts = opts }
}

// New constructs an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{log: logging.Noop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes one extraction job.
func (e *Extractor) Run(ctx context.Context, in Input) (Result, error) {
	ctx, log := logging.WithJobLogger(ctx, e.log)
	if in.AssetID != "" {
		log = log.With(logging.String("asset_id", in.AssetID))
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "extract.run")
	defer span.End()

	res := Result{Source: SourceNone}

	if in.Stream != nil {
		points, err := e.klvPass(ctx, log, in.Stream, &res.Stats)
		if err != nil {
			span.RecordError(err)
			e.metrics.JobCompleted(res.Source, "error")
			return Result{}, fmt.Errorf("scan klv stream: %w", err)
		}
		if positional := positionalPoints(points); len(positional) > 0 {
			res.Source = SourceKLV
			res.Points = positional
		}
	}

	if len(res.Points) == 0 && in.Subtitles != "" {
		points := e.subtitlePass(ctx, log, in.Subtitles, &res.Stats)
		if positional := positionalPoints(points); len(positional) > 0 {
			res.Source = SourceSubtitle
			res.Points = positional
		}
	}

	if res.Source == SourceNone {
		// Not an error: plenty of footage simply has no telemetry.
		log.Info(ctx, "no geospatial data found")
	}

	segments, err := e.correlatePass(ctx, res.Points, in.Segments)
	if err != nil {
		span.RecordError(err)
		e.metrics.JobCompleted(res.Source, "error")
		return Result{}, fmt.Errorf("correlate segments: %w", err)
	}
	res.Segments = segments

	e.publish(ctx, log, in.AssetID, res)

	e.metrics.JobCompleted(res.Source, "ok")
	span.SetAttributes(
		attribute.String("source", res.Source),
		attribute.Int("points", len(res.Points)),
		attribute.Int("segments", len(res.Segments)),
	)
	log.Info(ctx, "extraction complete",
		logging.String("source", res.Source),
		logging.Int("points", len(res.Points)),
		logging.Int("segments", len(res.Segments)),
	)
	return res, nil
}

// klvPass drains the stream and decodes every packet found.
func (e *Extractor) klvPass(ctx context.Context, log logging.Logger, r io.Reader, stats *Stats) ([]model.TelemetryPoint, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "extract.klv")
	defer span.End()
	start := time.Now()
	defer func() { e.metrics.ObserveStage("klv", time.Since(start)) }()

	var diag klv.Diagnostics
	scanOpts := append([]klv.Option{klv.WithDiagnostics(&diag)}, e.scanOpts...)
	scanner := klv.NewScanner(r, scanOpts...)

	var points []model.TelemetryPoint
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p, st := st0601.DecodePacket(payload)
		stats.TagsDecoded += st.Decoded
		stats.TagsDropped += st.Dropped
		stats.TagsUnknown += st.Unknown
		if st.Truncated {
			stats.TruncatedPackets++
		}
		points = append(points, p)
	}

	stats.Stream = diag
	e.metrics.AddStreamDiagnostics(diag.Packets, diag.NearMisses, diag.Truncations, diag.LengthSkips)
	span.SetAttributes(
		attribute.Int64("packets", diag.Packets),
		attribute.Int64("near_misses", diag.NearMisses),
		attribute.Int("points", len(points)),
	)
	log.Info(ctx, "klv pass complete",
		logging.Int64("packets", diag.Packets),
		logging.Int64("near_misses", diag.NearMisses),
		logging.Int64("truncations", diag.Truncations),
		logging.Int("points", len(points)),
	)
	return points, nil
}

// subtitlePass parses caption text into relative-time points.
func (e *Extractor) subtitlePass(ctx context.Context, log logging.Logger, text string, stats *Stats) []model.TelemetryPoint {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "extract.subtitle")
	defer span.End()
	start := time.Now()

	points := srt.Parse(text)
	stats.SubtitlePoints = len(points)

	e.metrics.ObserveStage("subtitle", time.Since(start))
	span.SetAttributes(attribute.Int("points", len(points)))
	log.Info(ctx, "subtitle pass complete", logging.Int("points", len(points)))
	return points
}

// correlatePass matches segments against the track. With zero points the
// segments pass through untouched apart from the enrichment wrapper.
func (e *Extractor) correlatePass(ctx context.Context, points []model.TelemetryPoint, segments []model.ContentSegment) ([]model.EnrichedSegment, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "extract.correlate")
	defer span.End()
	start := time.Now()

	c, err := correlate.New(points)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	e.correlation.SetPointsLoaded(c.PointCount())

	enriched := c.Correlate(segments)
	elapsed := time.Since(start)
	e.correlation.ObserveMatch(elapsed)
	e.metrics.ObserveStage("correlate", elapsed)

	matched, visual := 0, 0
	for _, s := range enriched {
		if s.Geo == nil {
			continue
		}
		matched++
		if s.Geo.LikelyVisual {
			visual++
		}
	}
	e.correlation.AddSegmentsEnriched(matched)
	if matched > 0 {
		e.correlation.SetVisualSegmentRatio(float64(visual) / float64(matched))
	}
	span.SetAttributes(attribute.Int("matched", matched))
	return enriched, nil
}

// publish stores the finished track when a store and asset ID are present.
func (e *Extractor) publish(ctx context.Context, log logging.Logger, assetID string, res Result) {
	if e.store == nil || assetID == "" {
		return
	}
	if err := e.store.StartTrack(assetID, res.Source); err != nil {
		log.Warn(ctx, "skipping track publication", logging.String("error", err.Error()))
		return
	}
	for _, p := range res.Points {
		if err := e.store.AppendPoint(assetID, p); err != nil {
			log.Warn(ctx, "track publication incomplete", logging.String("error", err.Error()))
			return
		}
	}
	if err := e.store.SetSegments(assetID, res.Segments); err != nil {
		log.Warn(ctx, "segment publication failed", logging.String("error", err.Error()))
	}
}

// positionalPoints keeps the points that carry any latitude field.
func positionalPoints(points []model.TelemetryPoint) []model.TelemetryPoint {
	var res []model.TelemetryPoint
	for _, p := range points {
		if p.HasLatitude() {
			res = append(res, p)
		}
	}
	return res
}
