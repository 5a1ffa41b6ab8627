// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cardinalhq/chunkprofile/config"
	"github.com/cardinalhq/chunkprofile/internal/logctx"
)

const serviceName = "chunkprofile"

// debugEnabled reports whether debug logging was requested by the config or
// by the DEBUG or CHUNKPROFILE_DEBUG environment variables.
func debugEnabled(cfg config.LogConfig) bool {
	return cfg.Debug || os.Getenv("DEBUG") != "" || os.Getenv("CHUNKPROFILE_DEBUG") != ""
}

// setupTelemetry installs the default logger and an in-process meter provider.
// The returned context is cancelled on SIGINT or SIGTERM and carries the run
// logger. The shutdown function logs the collected counters and releases the
// log file.
func setupTelemetry(cfg config.LogConfig) (context.Context, func() error, error) {
	runID := ulid.Make().String()

	doneCtx, doneCancel := handleSignals(context.Background())

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debugEnabled(cfg) {
		opts.Level = slog.LevelDebug
	}

	var logFile *os.File
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			doneCancel()
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		logFile = f
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(f, opts))
	}
	logger := slog.New(handler).With(slog.String("service", serviceName))
	slog.SetDefault(logger.With(slog.String("run_id", runID)))

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	shutdown := func() error {
		defer doneCancel()
		logCounters(reader)
		err := provider.Shutdown(context.Background())
		if logFile != nil {
			if cerr := logFile.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}

	return logctx.WithRun(doneCtx, logger, runID), shutdown, nil
}

// logCounters writes the final value of every counter at debug level.
func logCounters(reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		slog.Warn("Failed to collect metrics", slog.Any("error", err))
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			slog.Debug("Counter", slog.String("name", m.Name), slog.Int64("value", total))
		}
	}
}
