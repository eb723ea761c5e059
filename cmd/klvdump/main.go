package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"

	"github.com/signalsfoundry/fmv-telemetry/internal/logging"
	"github.com/signalsfoundry/fmv-telemetry/klv"
	"github.com/signalsfoundry/fmv-telemetry/model"
	"github.com/signalsfoundry/fmv-telemetry/st0601"
)

func main() {
	inPath := flag.String("in", "-", "input stream path, - for stdin")
	maxPayload := flag.Int("max-payload", klv.DefaultMaxPayload, "largest accepted packet payload in bytes")
	ndjson := flag.Bool("ndjson", false, "emit one JSON object per packet instead of a single array")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	in, err := openInput(*inPath)
	if err != nil {
		log.Error(ctx, "failed to open input", logging.String("path", *inPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer in.Close()

	var diag klv.Diagnostics
	scanner := klv.NewScanner(in, klv.WithDiagnostics(&diag), klv.WithMaxPayload(*maxPayload))
	enc := json.NewEncoder(os.Stdout)

	points := []model.TelemetryPoint{}
	for {
		payload, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error(ctx, "stream read failed", logging.String("error", err.Error()))
			os.Exit(1)
		}

		p, stats := st0601.DecodePacket(payload)
		if stats.Dropped > 0 || stats.Truncated {
			log.Warn(ctx, "packet decoded with losses",
				logging.Int64("packet", diag.Packets),
				logging.Int("decoded", stats.Decoded),
				logging.Int("dropped", stats.Dropped),
				logging.Any("truncated", stats.Truncated),
			)
		}
		if *ndjson {
			if err := enc.Encode(p); err != nil {
				log.Error(ctx, "failed to write point", logging.String("error", err.Error()))
				os.Exit(1)
			}
			continue
		}
		points = append(points, p)
	}

	if !*ndjson {
		enc.SetIndent("", "  ")
		if err := enc.Encode(points); err != nil {
			log.Error(ctx, "failed to write points", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	log.Info(ctx, "scan complete",
		logging.Int64("packets", diag.Packets),
		logging.Int64("key_hits", diag.KeyHits),
		logging.Int64("near_misses", diag.NearMisses),
		logging.Int64("truncations", diag.Truncations),
		logging.Int64("length_skips", diag.LengthSkips),
	)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
