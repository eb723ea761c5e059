package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/fmv-telemetry/extract"
	"github.com/signalsfoundry/fmv-telemetry/internal/logging"
	"github.com/signalsfoundry/fmv-telemetry/internal/observability"
	"github.com/signalsfoundry/fmv-telemetry/model"
	"github.com/signalsfoundry/fmv-telemetry/replay"
	"github.com/signalsfoundry/fmv-telemetry/track"
)

func main() {
	videoPath := flag.String("video", "", "path to the raw byte stream to scan for KLV telemetry")
	srtPath := flag.String("srt", "", "path to a subtitle file used when the stream carries no positions")
	segmentsPath := flag.String("segments", "", "path to transcript segments JSON")
	outPath := flag.String("out", "-", "output path for the result JSON, - for stdout")
	assetID := flag.String("asset", "", "asset ID for track storage and log correlation")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables the endpoint")
	replayTrack := flag.Bool("replay", false, "play the extracted track back after writing the result")
	replaySpeed := flag.Float64("replay-speed", 0, "real-time replay rate multiplier; 0 replays as fast as possible")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewExtractionCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	correlation, err := observability.NewCorrelationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise correlation metrics", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	var stream io.Reader
	if *videoPath != "" {
		f, err := os.Open(*videoPath)
		if err != nil {
			log.Error(ctx, "failed to open video stream", logging.String("path", *videoPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer f.Close()
		stream = f
	}

	subtitles := ""
	if *srtPath != "" {
		data, err := os.ReadFile(*srtPath)
		if err != nil {
			log.Error(ctx, "failed to read subtitles", logging.String("path", *srtPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		subtitles = string(data)
	}

	var segments []model.ContentSegment
	if *segmentsPath != "" {
		f, err := os.Open(*segmentsPath)
		if err != nil {
			log.Error(ctx, "failed to open segments", logging.String("path", *segmentsPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		segments, err = extract.LoadSegments(f)
		f.Close()
		if err != nil {
			log.Error(ctx, "failed to parse segments", logging.String("path", *segmentsPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	store := track.NewStore()
	extractor := extract.New(
		extract.WithLogger(log),
		extract.WithMetrics(collector),
		extract.WithCorrelationMetrics(correlation),
		extract.WithTrackStore(store),
	)

	res, err := extractor.Run(ctx, extract.Input{
		AssetID:   *assetID,
		Stream:    stream,
		Subtitles: subtitles,
		Segments:  segments,
	})
	if err != nil {
		log.Error(ctx, "extraction failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeResult(*outPath, res); err != nil {
		log.Error(ctx, "failed to write result", logging.String("path", *outPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	if *replayTrack {
		runReplay(ctx, log, res.Points, *replaySpeed)
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func writeResult(path string, res extract.Result) error {
	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runReplay(ctx context.Context, log logging.Logger, points []model.TelemetryPoint, speed float64) {
	mode := replay.Accelerated
	if speed > 0 {
		mode = replay.RealTime
	}
	player := replay.NewPlayer(points, mode)
	if speed > 0 {
		player.Speed = speed
	}
	player.AddListener(func(p model.TelemetryPoint) {
		lat, lon, alt, ok := p.SensorPosition()
		if !ok {
			return
		}
		log.Info(ctx, "replay point",
			logging.Float64("offset_sec", player.Position()),
			logging.Float64("lat", lat),
			logging.Float64("lon", lon),
			logging.Float64("alt_m", alt),
		)
	})

	log.Info(ctx, "replaying track", logging.Int("points", player.Len()))
	<-player.Start(ctx)
}

func serveMetrics(addr string, collector *observability.ExtractionCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
